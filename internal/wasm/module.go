package wasm

import "github.com/tinywasm-go/tinywasm/api"

// Module is the static, decoded input Instantiate consumes. Function bodies
// are still raw, uncompiled bytecode at this point (see Function.Body);
// wazeroir.Compile runs over each one during Instantiate, so a Module can be
// instantiated more than once without re-running that pass's results.
type Module struct {
	Types []FunctionType

	Imports []Import

	FunctionTypeIndexes []Index // function address -> Types index, parallel to Functions
	Functions           []Function

	Tables  []Table
	Memory  *Memory // at most one memory; nil if the module declares none

	Globals []Global

	ElementSegments []ElementSegment
	DataSegments    []DataSegment

	Exports []Export

	// StartFunction, if non-negative, is the function address invoked
	// once at the end of instantiation, before Instantiate returns.
	StartFunction int32
}

// Import describes one entry of the import section: the two-part name the
// Linker resolves against, and which section the resolved extern must
// belong to (with that section's declared shape, for compatibility checks).
type Import struct {
	Module, Name string
	Type         api.ExternType

	// Exactly one of these is meaningful, selected by Type.
	FuncTypeIndex Index
	Table         Table
	Memory        Memory
	Global        Global
}

// Function is a module-local function: either defined in the code section
// (Body non-nil) or left nil when it is filled in by linking an import (the
// Module's Functions entry is a placeholder whose TypeIndex still names its
// required signature).
type Function struct {
	TypeIndex Index
	Body      []byte // raw, not-yet-compiled Wasm bytecode; nil for an imported function
	Locals    []api.ValueType
	Name      string // from the name section or import name, for traces; may be empty
}

// Table is the static declaration of a table: its element type and limits.
// A table holding live references is TableInstance, allocated from this at
// instantiation. Tables, like Globals, occupy a combined index space with
// their imports: the first len(Imports of ExternTypeTable) entries are
// placeholders for imported tables (their Limits/Type are advisory only —
// the real shape comes from the Import entry), the rest are allocated
// fresh. Functions carry this same convention via a nil Body instead,
// since a placeholder function has no other field to stand in for.
type Table struct {
	Type   api.RefType
	Limits Limits
}

// Memory is the static declaration of a memory's limits, in 64KiB pages.
// A module has at most one memory (single-memory MVP); Memory is nil when
// that memory is imported rather than locally declared.
type Memory struct {
	Limits Limits
}

// Global is the static declaration of a global: its type, mutability and
// constant initializer expression (a const initializer is already a raw
// word by the time the Module is built; a global.get initializer is kept
// as a FromGlobal reference and read during Instantiate).
// Shares Table's import-placeholder convention: the first len(Imports of
// ExternTypeGlobal) entries stand in for imported globals and their Init
// is unused.
type Global struct {
	Type    api.ValueType
	Mutable bool
	Init    GlobalInit
}

// GlobalInit is a global's initializer: either a literal raw word or a
// reference to an earlier global in the index space (an imported one, or a
// local one declared before this global), which must already be initialized.
type GlobalInit struct {
	Value      uint64
	FromGlobal *Index // non-nil for `global.get` initializers
}

// ElementSegment is a static element segment: active segments carry a table
// index and constant offset; passive and declared segments carry neither
// and are only reachable via table.init / elem.drop.
type ElementSegment struct {
	Mode      SegmentMode
	TableIndex Index
	Offset     uint32
	Type       api.RefType
	// FuncIndices holds one entry per element: a function address for a
	// `ref.func`-initialized element, or nil for a null entry.
	FuncIndices []*Index
}

// DataSegment is a static data segment: active segments carry a constant
// offset into the module's single memory; passive segments carry none and
// are only reachable via memory.init.
type DataSegment struct {
	Mode   SegmentMode
	Offset uint32
	Init   []byte
}

type SegmentMode byte

const (
	SegmentModeActive SegmentMode = iota
	SegmentModePassive
	SegmentModeDeclared
)

// Export is one entry of the export section.
type Export struct {
	Name  string
	Type  api.ExternType
	Index Index
}
