package wasm

import "github.com/tinywasm-go/tinywasm/api"

// ElementSegmentInstance is a store-owned element segment: the live,
// possibly-dropped view of a Module's ElementSegment used by table.init.
// Active segments are applied to their target table during instantiation
// and then behave exactly like a passive one for any later table.init.
type ElementSegmentInstance struct {
	Type    api.RefType
	Refs    []uint64 // api.RefNull or a packed reference, one per element
	Dropped bool
}

// DataSegmentInstance is a store-owned data segment: the live,
// possibly-dropped view of a Module's DataSegment used by memory.init.
type DataSegmentInstance struct {
	Bytes   []byte
	Dropped bool
}
