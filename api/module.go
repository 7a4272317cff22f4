package api

import "context"

// ExternType is the kind of a module's import or export.
type ExternType byte

const (
	ExternTypeFunc ExternType = iota
	ExternTypeTable
	ExternTypeMemory
	ExternTypeGlobal
)

func (e ExternType) String() string {
	switch e {
	case ExternTypeFunc:
		return "func"
	case ExternTypeTable:
		return "table"
	case ExternTypeMemory:
		return "memory"
	case ExternTypeGlobal:
		return "global"
	default:
		return "unknown"
	}
}

// RefType restricts ValueType to the two reference types tables hold.
type RefType = ValueType

const (
	RefTypeFuncref   = ValueTypeFuncref
	RefTypeExternref = ValueTypeExternref
)

// Closer is implemented by any resource that releases engine-owned state.
type Closer interface {
	Close(ctx context.Context) error
}

// Function is an invocable export or import. Results are returned in the
// declared order; a non-nil error is either a Trap or a host error and
// never accompanied by partial results.
type Function interface {
	Definition() FunctionDefinition
	Call(ctx context.Context, params ...uint64) ([]uint64, error)
}

// FunctionDefinition exposes a Function's static shape without requiring
// an instantiated module.
type FunctionDefinition interface {
	ParamTypes() []ValueType
	ResultTypes() []ValueType
}

// Global is a mutable-or-not single value exported or imported by a module.
type Global interface {
	Type() ValueType
	Get() uint64
}

// MutableGlobal additionally allows writing, and is returned only when the
// global's declared mutability flag is set.
type MutableGlobal interface {
	Global
	Set(uint64)
}

// Memory is a linear byte buffer growable in 64KiB pages.
type Memory interface {
	Size() uint32
	Grow(deltaPages uint32) (previousPages uint32, ok bool)
	Read(offset, byteCount uint32) ([]byte, bool)
	Write(offset uint32, v []byte) bool
	ReadByte(offset uint32) (byte, bool)
	WriteByte(offset uint32, v byte) bool
	ReadUint32Le(offset uint32) (uint32, bool)
	WriteUint32Le(offset uint32, v uint32) bool
	ReadUint64Le(offset uint32) (uint64, bool)
	WriteUint64Le(offset uint32, v uint64) bool
}

// Table is an indexed sequence of nullable references.
type Table interface {
	Type() RefType
	Size() uint32
	Grow(delta uint32, init uint64) (previous uint32, ok bool)
	Get(i uint32) (uint64, bool)
	Set(i uint32, v uint64) bool
}

// Module is a handle to an instantiated module: its name, and typed lookups
// into its export table.
type Module interface {
	Closer
	Name() string
	ExportedFunction(name string) Function
	ExportedMemory(name string) Memory
	ExportedTable(name string) Table
	ExportedGlobal(name string) Global
}
