package interpreter

import (
	"math"
	"math/bits"

	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/moremath"
	"github.com/tinywasm-go/tinywasm/internal/wazeroir"
)

func isNumericKind(k wazeroir.OperationKind) bool {
	switch k {
	case wazeroir.OperationKindEq, wazeroir.OperationKindNe, wazeroir.OperationKindEqz,
		wazeroir.OperationKindLt, wazeroir.OperationKindGt, wazeroir.OperationKindLe, wazeroir.OperationKindGe,
		wazeroir.OperationKindAdd, wazeroir.OperationKindSub, wazeroir.OperationKindMul,
		wazeroir.OperationKindClz, wazeroir.OperationKindCtz, wazeroir.OperationKindPopcnt,
		wazeroir.OperationKindDiv, wazeroir.OperationKindRem,
		wazeroir.OperationKindAnd, wazeroir.OperationKindOr, wazeroir.OperationKindXor,
		wazeroir.OperationKindShl, wazeroir.OperationKindShr, wazeroir.OperationKindRotl, wazeroir.OperationKindRotr,
		wazeroir.OperationKindAbs, wazeroir.OperationKindNeg, wazeroir.OperationKindCeil, wazeroir.OperationKindFloor,
		wazeroir.OperationKindTrunc, wazeroir.OperationKindNearest, wazeroir.OperationKindSqrt,
		wazeroir.OperationKindMin, wazeroir.OperationKindMax, wazeroir.OperationKindCopysign,
		wazeroir.OperationKindI32WrapFromI64, wazeroir.OperationKindITruncFromF, wazeroir.OperationKindITruncSatFromF,
		wazeroir.OperationKindFConvertFromI, wazeroir.OperationKindF32DemoteFromF64, wazeroir.OperationKindF64PromoteFromF32,
		wazeroir.OperationKindExtend, wazeroir.OperationKindSignExtend:
		return true
	}
	return false
}

func (m *machine) execNumeric(op *wazeroir.Operation) error {
	t := wazeroir.NumType(op.B1)
	signed := wazeroir.Signedness(op.B2) == wazeroir.Signed
	switch op.Kind {
	case wazeroir.OperationKindEqz:
		v := m.pop()
		if v == 0 {
			m.push(1)
		} else {
			m.push(0)
		}
	case wazeroir.OperationKindEq, wazeroir.OperationKindNe,
		wazeroir.OperationKindLt, wazeroir.OperationKindGt, wazeroir.OperationKindLe, wazeroir.OperationKindGe:
		b, a := m.pop(), m.pop()
		m.push(boolWord(compare(op.Kind, t, signed, a, b)))

	case wazeroir.OperationKindClz, wazeroir.OperationKindCtz, wazeroir.OperationKindPopcnt:
		v := m.pop()
		m.push(unaryIntOp(op.Kind, t, v))

	case wazeroir.OperationKindAbs, wazeroir.OperationKindNeg, wazeroir.OperationKindCeil, wazeroir.OperationKindFloor,
		wazeroir.OperationKindTrunc, wazeroir.OperationKindNearest, wazeroir.OperationKindSqrt:
		v := m.pop()
		m.push(unaryFloatOp(op.Kind, t, v))

	case wazeroir.OperationKindAdd, wazeroir.OperationKindSub, wazeroir.OperationKindMul,
		wazeroir.OperationKindAnd, wazeroir.OperationKindOr, wazeroir.OperationKindXor,
		wazeroir.OperationKindShl, wazeroir.OperationKindShr, wazeroir.OperationKindRotl, wazeroir.OperationKindRotr,
		wazeroir.OperationKindMin, wazeroir.OperationKindMax, wazeroir.OperationKindCopysign:
		b, a := m.pop(), m.pop()
		r, err := binaryOp(op.Kind, t, signed, a, b)
		if err != nil {
			return err
		}
		m.push(r)

	case wazeroir.OperationKindDiv, wazeroir.OperationKindRem:
		b, a := m.pop(), m.pop()
		r, err := divRem(op.Kind, t, signed, a, b)
		if err != nil {
			return err
		}
		m.push(r)

	case wazeroir.OperationKindI32WrapFromI64:
		m.push(uint64(uint32(m.pop())))

	case wazeroir.OperationKindITruncFromF:
		v, err := truncFromFloat(wazeroir.NumType(op.B1), signed, op.B3 == 1, m.pop())
		if err != nil {
			return err
		}
		m.push(v)

	case wazeroir.OperationKindITruncSatFromF:
		m.push(truncSatFromFloat(int(op.U1), m.pop()))

	case wazeroir.OperationKindFConvertFromI:
		m.push(convertFromInt(wazeroir.NumType(op.B1), signed, op.B3 == 1, m.pop()))

	case wazeroir.OperationKindF32DemoteFromF64:
		m.push(api.EncodeF32(float32(api.DecodeF64(m.pop()))))
	case wazeroir.OperationKindF64PromoteFromF32:
		m.push(api.EncodeF64(float64(api.DecodeF32(m.pop()))))

	case wazeroir.OperationKindExtend:
		v := int64(api.DecodeI32(m.pop()))
		if !signed {
			v = int64(api.DecodeU32(uint64(uint32(v))))
		}
		m.push(api.EncodeI64(v))

	case wazeroir.OperationKindSignExtend:
		m.push(signExtend(t, int(op.U1), m.pop()))
	}
	return nil
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func compare(kind wazeroir.OperationKind, t wazeroir.NumType, signed bool, a, b uint64) bool {
	switch t {
	case wazeroir.NumTypeI32:
		if signed {
			return compareOrdered(kind, api.DecodeI32(a), api.DecodeI32(b))
		}
		return compareOrdered(kind, api.DecodeU32(a), api.DecodeU32(b))
	case wazeroir.NumTypeI64:
		if signed {
			return compareOrdered(kind, api.DecodeI64(a), api.DecodeI64(b))
		}
		return compareOrdered(kind, a, b)
	case wazeroir.NumTypeF32:
		return compareOrdered(kind, api.DecodeF32(a), api.DecodeF32(b))
	default:
		return compareOrdered(kind, api.DecodeF64(a), api.DecodeF64(b))
	}
}

type ordered interface {
	int32 | uint32 | int64 | uint64 | float32 | float64
}

func compareOrdered[T ordered](kind wazeroir.OperationKind, a, b T) bool {
	switch kind {
	case wazeroir.OperationKindEq:
		return a == b
	case wazeroir.OperationKindNe:
		return a != b
	case wazeroir.OperationKindLt:
		return a < b
	case wazeroir.OperationKindGt:
		return a > b
	case wazeroir.OperationKindLe:
		return a <= b
	default: // Ge
		return a >= b
	}
}

func unaryIntOp(kind wazeroir.OperationKind, t wazeroir.NumType, v uint64) uint64 {
	if t == wazeroir.NumTypeI32 {
		x := uint32(v)
		switch kind {
		case wazeroir.OperationKindClz:
			return uint64(bits.LeadingZeros32(x))
		case wazeroir.OperationKindCtz:
			return uint64(bits.TrailingZeros32(x))
		default:
			return uint64(bits.OnesCount32(x))
		}
	}
	switch kind {
	case wazeroir.OperationKindClz:
		return uint64(bits.LeadingZeros64(v))
	case wazeroir.OperationKindCtz:
		return uint64(bits.TrailingZeros64(v))
	default:
		return uint64(bits.OnesCount64(v))
	}
}

// unaryFloatOp dispatches f32/f64 abs/neg/ceil/floor/trunc/nearest/sqrt.
// abs and neg only touch the sign bit and never canonicalize a NaN's
// payload; every other variant here can manufacture a fresh NaN and must.
func unaryFloatOp(kind wazeroir.OperationKind, t wazeroir.NumType, v uint64) uint64 {
	if t == wazeroir.NumTypeF32 {
		switch kind {
		case wazeroir.OperationKindAbs:
			return uint64(uint32(v) &^ (1 << 31))
		case wazeroir.OperationKindNeg:
			return uint64(uint32(v) ^ (1 << 31))
		}
		f := api.DecodeF32(v)
		return api.EncodeF32(canonNaNF32(float32(unaryFloat64Op(kind, float64(f)))))
	}
	switch kind {
	case wazeroir.OperationKindAbs:
		return v &^ (1 << 63)
	case wazeroir.OperationKindNeg:
		return v ^ (1 << 63)
	}
	f := api.DecodeF64(v)
	return api.EncodeF64(canonNaN(unaryFloat64Op(kind, f)))
}

func unaryFloat64Op(kind wazeroir.OperationKind, f float64) float64 {
	switch kind {
	case wazeroir.OperationKindAbs:
		return math.Abs(f)
	case wazeroir.OperationKindNeg:
		return -f
	case wazeroir.OperationKindCeil:
		return math.Ceil(f)
	case wazeroir.OperationKindFloor:
		return math.Floor(f)
	case wazeroir.OperationKindTrunc:
		return math.Trunc(f)
	case wazeroir.OperationKindNearest:
		return moremath.WasmCompatNearestF64(f)
	default: // Sqrt
		return math.Sqrt(f)
	}
}

func binaryOp(kind wazeroir.OperationKind, t wazeroir.NumType, signed bool, a, b uint64) (uint64, error) {
	switch t {
	case wazeroir.NumTypeI32:
		return binaryIntOp32(kind, signed, uint32(a), uint32(b))
	case wazeroir.NumTypeI64:
		return binaryIntOp64(kind, signed, a, b)
	case wazeroir.NumTypeF32:
		return api.EncodeF32(float32(binaryFloatOp(kind, float64(api.DecodeF32(a)), float64(api.DecodeF32(b))))), nil
	default:
		return api.EncodeF64(binaryFloatOp(kind, api.DecodeF64(a), api.DecodeF64(b))), nil
	}
}

func binaryIntOp32(kind wazeroir.OperationKind, signed bool, a, b uint32) (uint64, error) {
	switch kind {
	case wazeroir.OperationKindAdd:
		return uint64(a + b), nil
	case wazeroir.OperationKindSub:
		return uint64(a - b), nil
	case wazeroir.OperationKindMul:
		return uint64(a * b), nil
	case wazeroir.OperationKindAnd:
		return uint64(a & b), nil
	case wazeroir.OperationKindOr:
		return uint64(a | b), nil
	case wazeroir.OperationKindXor:
		return uint64(a ^ b), nil
	case wazeroir.OperationKindShl:
		return uint64(a << (b % 32)), nil
	case wazeroir.OperationKindShr:
		if signed {
			return uint64(uint32(int32(a) >> (b % 32))), nil
		}
		return uint64(a >> (b % 32)), nil
	case wazeroir.OperationKindRotl:
		return uint64(bits.RotateLeft32(a, int(b%32))), nil
	default: // Rotr
		return uint64(bits.RotateLeft32(a, -int(b%32))), nil
	}
}

func binaryIntOp64(kind wazeroir.OperationKind, signed bool, a, b uint64) (uint64, error) {
	switch kind {
	case wazeroir.OperationKindAdd:
		return a + b, nil
	case wazeroir.OperationKindSub:
		return a - b, nil
	case wazeroir.OperationKindMul:
		return a * b, nil
	case wazeroir.OperationKindAnd:
		return a & b, nil
	case wazeroir.OperationKindOr:
		return a | b, nil
	case wazeroir.OperationKindXor:
		return a ^ b, nil
	case wazeroir.OperationKindShl:
		return a << (b % 64), nil
	case wazeroir.OperationKindShr:
		if signed {
			return uint64(int64(a) >> (b % 64)), nil
		}
		return a >> (b % 64), nil
	case wazeroir.OperationKindRotl:
		return bits.RotateLeft64(a, int(b%64)), nil
	default: // Rotr
		return bits.RotateLeft64(a, -int(b%64)), nil
	}
}

func binaryFloatOp(kind wazeroir.OperationKind, a, b float64) float64 {
	switch kind {
	case wazeroir.OperationKindAdd:
		return canonNaN(a + b)
	case wazeroir.OperationKindSub:
		return canonNaN(a - b)
	case wazeroir.OperationKindMul:
		return canonNaN(a * b)
	case wazeroir.OperationKindMin:
		return canonNaN(moremath.WasmCompatMin(a, b))
	case wazeroir.OperationKindMax:
		return canonNaN(moremath.WasmCompatMax(a, b))
	default: // Copysign
		return math.Copysign(a, b)
	}
}

// canonicalNaN64/32 are the quiet NaN with sign 0 and zero payload for each
// width. Go's own math.NaN() has payload 1, not 0, so it can't be reused
// directly where bit-exact canonicalization matters.
const (
	canonicalNaN64Bits = 0x7FF8000000000000
	canonicalNaN32Bits = 0x7FC00000
)

// canonNaN rewrites any NaN result to the canonical quiet NaN: any
// NaN-producing operation must normalize before the value is observable.
func canonNaN(f float64) float64 {
	if math.IsNaN(f) {
		return math.Float64frombits(canonicalNaN64Bits)
	}
	return f
}

func divRem(kind wazeroir.OperationKind, t wazeroir.NumType, signed bool, a, b uint64) (uint64, error) {
	switch t {
	case wazeroir.NumTypeI32:
		return divRem32(kind, signed, uint32(a), uint32(b))
	case wazeroir.NumTypeI64:
		return divRem64(kind, signed, a, b)
	case wazeroir.NumTypeF32:
		return api.EncodeF32(canonNaNF32(api.DecodeF32(a) / api.DecodeF32(b))), nil
	default:
		return api.EncodeF64(canonNaN(api.DecodeF64(a) / api.DecodeF64(b))), nil
	}
}

func canonNaNF32(f float32) float32 {
	if math.IsNaN(float64(f)) {
		return math.Float32frombits(canonicalNaN32Bits)
	}
	return f
}

func divRem32(kind wazeroir.OperationKind, signed bool, a, b uint32) (uint64, error) {
	if b == 0 {
		return 0, wasmerrors.NewTrap(wasmerrors.TrapIntegerDivideByZero)
	}
	if signed {
		sa, sb := int32(a), int32(b)
		if kind == wazeroir.OperationKindDiv {
			if sa == math.MinInt32 && sb == -1 {
				return 0, wasmerrors.NewTrap(wasmerrors.TrapIntegerOverflow)
			}
			return uint64(uint32(sa / sb)), nil
		}
		if sa == math.MinInt32 && sb == -1 {
			return 0, nil
		}
		return uint64(uint32(sa % sb)), nil
	}
	if kind == wazeroir.OperationKindDiv {
		return uint64(a / b), nil
	}
	return uint64(a % b), nil
}

func divRem64(kind wazeroir.OperationKind, signed bool, a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, wasmerrors.NewTrap(wasmerrors.TrapIntegerDivideByZero)
	}
	if signed {
		sa, sb := int64(a), int64(b)
		if kind == wazeroir.OperationKindDiv {
			if sa == math.MinInt64 && sb == -1 {
				return 0, wasmerrors.NewTrap(wasmerrors.TrapIntegerOverflow)
			}
			return uint64(sa / sb), nil
		}
		if sa == math.MinInt64 && sb == -1 {
			return 0, nil
		}
		return uint64(sa % sb), nil
	}
	if kind == wazeroir.OperationKindDiv {
		return a / b, nil
	}
	return a % b, nil
}

// truncFromFloat implements the trapping i32/i64.trunc_f32/f64_s/u family:
// NaN, infinities and magnitudes that don't fit the destination all trap.
func truncFromFloat(srcType wazeroir.NumType, signed, destI64 bool, raw uint64) (uint64, error) {
	var f float64
	if srcType == wazeroir.NumTypeF32 {
		f = float64(api.DecodeF32(raw))
	} else {
		f = api.DecodeF64(raw)
	}
	if math.IsNaN(f) {
		return 0, wasmerrors.NewTrap(wasmerrors.TrapInvalidConversionToInteger)
	}
	t := math.Trunc(f)
	if destI64 {
		if signed {
			if t < math.MinInt64 || t >= math.MaxInt64+1 {
				return 0, wasmerrors.NewTrap(wasmerrors.TrapIntegerOverflow)
			}
			return uint64(int64(t)), nil
		}
		if t < 0 || t >= math.MaxUint64+1 {
			return 0, wasmerrors.NewTrap(wasmerrors.TrapIntegerOverflow)
		}
		return uint64(t), nil
	}
	if signed {
		if t < math.MinInt32 || t > math.MaxInt32 {
			return 0, wasmerrors.NewTrap(wasmerrors.TrapIntegerOverflow)
		}
		return api.EncodeI32(int32(t)), nil
	}
	if t < 0 || t > math.MaxUint32 {
		return 0, wasmerrors.NewTrap(wasmerrors.TrapIntegerOverflow)
	}
	return api.EncodeU32(uint32(t)), nil
}

// truncSatFromFloat implements the non-trapping *_sat_* conversions: out of
// range saturates to the destination's min/max, NaN becomes 0.
func truncSatFromFloat(sub int, raw uint64) uint64 {
	destI64 := sub >= 4
	signed := sub%2 == 0
	isF64 := sub == 2 || sub == 3 || sub == 6 || sub == 7
	var f float64
	if isF64 {
		f = api.DecodeF64(raw)
	} else {
		f = float64(api.DecodeF32(raw))
	}
	if math.IsNaN(f) {
		return 0
	}
	t := math.Trunc(f)
	if destI64 {
		if signed {
			if t <= math.MinInt64 {
				var i64 int64 = math.MinInt64
				return uint64(i64)
			}
			if t >= math.MaxInt64 {
				return uint64(int64(math.MaxInt64))
			}
			return uint64(int64(t))
		}
		if t <= 0 {
			return 0
		}
		if t >= math.MaxUint64 {
			return math.MaxUint64
		}
		return uint64(t)
	}
	if signed {
		if t <= math.MinInt32 {
			return api.EncodeI32(math.MinInt32)
		}
		if t >= math.MaxInt32 {
			return api.EncodeI32(math.MaxInt32)
		}
		return api.EncodeI32(int32(t))
	}
	if t <= 0 {
		return 0
	}
	if t >= math.MaxUint32 {
		return api.EncodeU32(math.MaxUint32)
	}
	return api.EncodeU32(uint32(t))
}

func convertFromInt(srcType wazeroir.NumType, signed, destF64 bool, raw uint64) uint64 {
	var f float64
	if srcType == wazeroir.NumTypeI32 {
		if signed {
			f = float64(api.DecodeI32(raw))
		} else {
			f = float64(api.DecodeU32(raw))
		}
	} else {
		if signed {
			f = float64(api.DecodeI64(raw))
		} else {
			f = float64(raw)
		}
	}
	if destF64 {
		return api.EncodeF64(f)
	}
	return api.EncodeF32(float32(f))
}

func signExtend(t wazeroir.NumType, fromBits int, raw uint64) uint64 {
	if t == wazeroir.NumTypeI32 {
		shift := 32 - fromBits
		return api.EncodeI32(int32(uint32(raw)<<shift) >> shift)
	}
	shift := 64 - fromBits
	return api.EncodeI64(int64(raw<<shift) >> shift)
}
