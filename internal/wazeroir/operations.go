// Package wazeroir is the preprocessed instruction set: a flat, tagged
// sequence with branch offsets, block arities and immediates already
// resolved, produced once by Compile from a raw Wasm function body.
// Because every Operation is a plain value (no pointers into the source
// bytes), a compiled function's body is memory-mappable and trivially
// archivable.
package wazeroir

import "github.com/tinywasm-go/tinywasm/api"

type OperationKind byte

const (
	OperationKindUnreachable OperationKind = iota
	OperationKindNop
	OperationKindBlock // marker only; control state is resolved into Br/BrIf targets, see Compile.
	OperationKindBr
	OperationKindBrIf
	OperationKindBrTable
	OperationKindReturn
	OperationKindCall
	OperationKindCallIndirect
	OperationKindDrop
	OperationKindSelect
	OperationKindLocalGet
	OperationKindLocalSet
	OperationKindLocalTee
	OperationKindGlobalGet
	OperationKindGlobalSet
	OperationKindLoad
	OperationKindLoad8
	OperationKindLoad16
	OperationKindLoad32
	OperationKindStore
	OperationKindStore8
	OperationKindStore16
	OperationKindStore32
	OperationKindMemorySize
	OperationKindMemoryGrow
	OperationKindMemoryCopy
	OperationKindMemoryFill
	OperationKindMemoryInit
	OperationKindDataDrop
	OperationKindTableGet
	OperationKindTableSet
	OperationKindTableSize
	OperationKindTableGrow
	OperationKindTableFill
	OperationKindTableCopy
	OperationKindTableInit
	OperationKindElemDrop
	OperationKindRefNull
	OperationKindRefIsNull
	OperationKindRefFunc
	OperationKindConstI32
	OperationKindConstI64
	OperationKindConstF32
	OperationKindConstF64
	OperationKindEq
	OperationKindNe
	OperationKindEqz
	OperationKindLt
	OperationKindGt
	OperationKindLe
	OperationKindGe
	OperationKindAdd
	OperationKindSub
	OperationKindMul
	OperationKindClz
	OperationKindCtz
	OperationKindPopcnt
	OperationKindDiv
	OperationKindRem
	OperationKindAnd
	OperationKindOr
	OperationKindXor
	OperationKindShl
	OperationKindShr
	OperationKindRotl
	OperationKindRotr
	OperationKindAbs
	OperationKindNeg
	OperationKindCeil
	OperationKindFloor
	OperationKindTrunc
	OperationKindNearest
	OperationKindSqrt
	OperationKindMin
	OperationKindMax
	OperationKindCopysign
	OperationKindI32WrapFromI64
	OperationKindITruncFromF
	OperationKindITruncSatFromF
	OperationKindFConvertFromI
	OperationKindF32DemoteFromF64
	OperationKindF64PromoteFromF32
	OperationKindExtend // i32 -> i64, signed or unsigned per B2
	OperationKindSignExtend
)

// NumType distinguishes the operand width/kind a numeric op variant acts
// on; stored in Operation.B1 for every arithmetic/comparison/conversion op.
type NumType byte

const (
	NumTypeI32 NumType = iota
	NumTypeI64
	NumTypeF32
	NumTypeF64
)

// Signedness, stored in Operation.B2 where an op's behavior depends on it
// (division, shifts, comparisons, conversions, loads).
type Signedness byte

const (
	Unsigned Signedness = iota
	Signed
)

// MemArg is the resolved memory immediate for loads and stores: the static
// offset only (alignment is discarded; a narrow variant's width comes from
// its Kind and its signedness from B2).
type MemArg struct {
	Offset uint32
}

// Operation is the flat tagged-union instruction. Only the fields relevant
// to Kind are meaningful; the rest are zero. This shape (small fixed
// fields instead of a pointer per variant) keeps a compiled body one
// contiguous, copyable slice.
type Operation struct {
	Kind OperationKind

	B1, B2, B3 byte // NumType / Signedness / misc per-kind flags

	U1, U2 uint64 // generic immediate slots: branch target op-index, counts, indices
	U3     uint64

	I64 int64   // ConstI64, and sign-extended ConstI32
	F32 float32 // ConstF32
	F64 float64 // ConstF64

	Mem MemArg

	// BrTable only: Targets[i] is the branch taken for index i; the last
	// entry is the default. Each target is (opIndex, keepArity, dropCount)
	// packed the same way Br uses U1/U2/U3.
	Targets []BrTarget
}

// BrTarget is a resolved branch destination: jump to OpIndex after
// preserving the top Keep values and discarding Drop values beneath them.
type BrTarget struct {
	OpIndex uint64
	Keep    uint32
	Drop    uint32
}

// FunctionType is a pre-dereferenced block or function type: the module
// type section has already been resolved into these at compile time, so
// the interpreter never looks up a type index. Block types and function
// types share this representation; two are equal iff both lists are
// pointwise equal.
type FunctionType struct {
	Params  []api.ValueType
	Results []api.ValueType
}

func (ft *FunctionType) Equal(other *FunctionType) bool {
	if ft == other {
		return true
	}
	if ft == nil || other == nil {
		return false
	}
	return valueTypesEqual(ft.Params, other.Params) && valueTypesEqual(ft.Results, other.Results)
}

func valueTypesEqual(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
