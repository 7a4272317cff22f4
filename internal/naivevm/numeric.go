package naivevm

import (
	"math"
	"math/bits"

	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/wazeroir"
)

// binaryInt and compareInt reimplement the same arithmetic
// internal/interpreter's numeric_ops.go covers, independently, so a
// shared bug in both wouldn't be a shared bug at all: two different
// expressions of the same Wasm semantics, checked against each other.

func binaryInt(kind wazeroir.OperationKind, t wazeroir.NumType, signed bool, a, b uint64) (uint64, error) {
	switch t {
	case wazeroir.NumTypeF32:
		return binaryF32(kind, math.Float32frombits(uint32(a)), math.Float32frombits(uint32(b)))
	case wazeroir.NumTypeF64:
		return binaryF64(kind, math.Float64frombits(a), math.Float64frombits(b))
	case wazeroir.NumTypeI64:
		return binary64(kind, signed, a, b)
	default:
		return binary32(kind, signed, uint32(a), uint32(b))
	}
}

func binary32(kind wazeroir.OperationKind, signed bool, a, b uint32) (uint64, error) {
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
	case wazeroir.OperationKindRotr:
		return uint64(bits.RotateLeft32(a, -int(b%32))), nil
	case wazeroir.OperationKindDiv, wazeroir.OperationKindRem:
		return divRem32(kind, signed, a, b)
	default:
		return 0, &wasmerrors.UnsupportedFeature{Feature: "naivevm binary32 op"}
	}
}

func binary64(kind wazeroir.OperationKind, signed bool, a, b uint64) (uint64, error) {
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
	case wazeroir.OperationKindRotr:
		return bits.RotateLeft64(a, -int(b%64)), nil
	case wazeroir.OperationKindDiv, wazeroir.OperationKindRem:
		return divRem64(kind, signed, a, b)
	default:
		return 0, &wasmerrors.UnsupportedFeature{Feature: "naivevm binary64 op"}
	}
}

func divRem32(kind wazeroir.OperationKind, signed bool, a, b uint32) (uint64, error) {
	if b == 0 {
		return 0, wasmerrors.NewTrap(wasmerrors.TrapIntegerDivideByZero)
	}
	if !signed {
		if kind == wazeroir.OperationKindDiv {
			return uint64(a / b), nil
		}
		return uint64(a % b), nil
	}
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

func divRem64(kind wazeroir.OperationKind, signed bool, a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, wasmerrors.NewTrap(wasmerrors.TrapIntegerDivideByZero)
	}
	if !signed {
		if kind == wazeroir.OperationKindDiv {
			return a / b, nil
		}
		return a % b, nil
	}
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

func binaryF32(kind wazeroir.OperationKind, a, b float32) (uint64, error) {
	var r float32
	switch kind {
	case wazeroir.OperationKindAdd:
		r = a + b
	case wazeroir.OperationKindSub:
		r = a - b
	case wazeroir.OperationKindMul:
		r = a * b
	case wazeroir.OperationKindDiv:
		r = a / b
	default:
		return 0, &wasmerrors.UnsupportedFeature{Feature: "naivevm f32 op"}
	}
	return api.EncodeF32(r), nil
}

func binaryF64(kind wazeroir.OperationKind, a, b float64) (uint64, error) {
	var r float64
	switch kind {
	case wazeroir.OperationKindAdd:
		r = a + b
	case wazeroir.OperationKindSub:
		r = a - b
	case wazeroir.OperationKindMul:
		r = a * b
	case wazeroir.OperationKindDiv:
		r = a / b
	default:
		return 0, &wasmerrors.UnsupportedFeature{Feature: "naivevm f64 op"}
	}
	return api.EncodeF64(r), nil
}

func compareInt(kind wazeroir.OperationKind, t wazeroir.NumType, signed bool, a, b uint64) bool {
	switch t {
	case wazeroir.NumTypeF32:
		return compareF32(kind, math.Float32frombits(uint32(a)), math.Float32frombits(uint32(b)))
	case wazeroir.NumTypeF64:
		return compareF64(kind, math.Float64frombits(a), math.Float64frombits(b))
	case wazeroir.NumTypeI64:
		if signed {
			return compareOrdered(kind, int64(a), int64(b))
		}
		return compareOrdered(kind, a, b)
	default:
		if signed {
			return compareOrdered(kind, int32(a), int32(b))
		}
		return compareOrdered(kind, uint32(a), uint32(b))
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
	case wazeroir.OperationKindGe:
		return a >= b
	default:
		return false
	}
}

func compareF32(kind wazeroir.OperationKind, a, b float32) bool { return compareOrdered(kind, a, b) }
func compareF64(kind wazeroir.OperationKind, a, b float64) bool { return compareOrdered(kind, a, b) }
