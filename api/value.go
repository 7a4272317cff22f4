// Package api defines the types exposed across the boundary between an
// embedder and the engine: value types, extern kinds and the handles
// returned from an instantiated module.
package api

import "math"

// ValueType describes the shape of a single value on the operand stack, a
// local, a global, or a parameter/result of a FunctionType. Signedness is
// carried by the instruction that produces or consumes a value, never by
// the type itself.
type ValueType byte

const (
	ValueTypeI32 ValueType = iota
	ValueTypeI64
	ValueTypeF32
	ValueTypeF64
	ValueTypeV128
	ValueTypeFuncref
	ValueTypeExternref
)

func (v ValueType) String() string {
	switch v {
	case ValueTypeI32:
		return "i32"
	case ValueTypeI64:
		return "i64"
	case ValueTypeF32:
		return "f32"
	case ValueTypeF64:
		return "f64"
	case ValueTypeV128:
		return "v128"
	case ValueTypeFuncref:
		return "funcref"
	case ValueTypeExternref:
		return "externref"
	default:
		return "unknown"
	}
}

// IsReference reports whether v occupies the raw word as a nullable
// reference rather than a scalar.
func (v ValueType) IsReference() bool {
	return v == ValueTypeFuncref || v == ValueTypeExternref
}

// RefNull is the sentinel raw-word value for a null funcref/externref.
const RefNull uint64 = math.MaxUint64

// The engine keeps every scalar and reference value in a uniform 64-bit
// word on the operand stack; only v128 values occupy the wider lane. The
// Encode/Decode pairs below are the only place that uniform-word layout is
// named, so callers never need to know it.

func EncodeI32(v int32) uint64 { return uint64(uint32(v)) }
func DecodeI32(w uint64) int32 { return int32(uint32(w)) }

func EncodeU32(v uint32) uint64 { return uint64(v) }
func DecodeU32(w uint64) uint32 { return uint32(w) }

func EncodeI64(v int64) uint64 { return uint64(v) }
func DecodeI64(w uint64) int64 { return int64(w) }

func EncodeF32(v float32) uint64 { return uint64(math.Float32bits(v)) }
func DecodeF32(w uint64) float32 { return math.Float32frombits(uint32(w)) }

func EncodeF64(v float64) uint64 { return math.Float64bits(v) }
func DecodeF64(w uint64) float64 { return math.Float64frombits(w) }

// EncodeV128 packs a 128-bit lane into its two-word wire form (low, high).
func EncodeV128(lo, hi uint64) [2]uint64 { return [2]uint64{lo, hi} }
func DecodeV128(v [2]uint64) (lo, hi uint64) { return v[0], v[1] }
