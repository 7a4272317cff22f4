package wasm

import "github.com/tinywasm-go/tinywasm/api"

// TableInstance is a store-owned table: a slice of raw reference words,
// each either api.RefNull or a packed reference value. For funcref tables
// a non-null entry is a function address (cast to uint64); externref
// entries are opaque host-supplied words the engine never interprets.
type TableInstance struct {
	Type    api.RefType
	Refs    []uint64
	Max     *uint32
}

func NewTableInstance(t api.RefType, min uint32, max *uint32) *TableInstance {
	refs := make([]uint64, min)
	for i := range refs {
		refs[i] = api.RefNull
	}
	return &TableInstance{Type: t, Refs: refs, Max: max}
}

func (t *TableInstance) Size() uint32 { return uint32(len(t.Refs)) }

func (t *TableInstance) Grow(delta uint32, init uint64) (previous uint32, ok bool) {
	previous = t.Size()
	next := uint64(previous) + uint64(delta)
	if t.Max != nil && next > uint64(*t.Max) {
		return previous, false
	}
	if next > 1<<32-1 {
		return previous, false
	}
	grown := make([]uint64, delta)
	for i := range grown {
		grown[i] = init
	}
	t.Refs = append(t.Refs, grown...)
	return previous, true
}

func (t *TableInstance) Get(i uint32) (uint64, bool) {
	if i >= t.Size() {
		return 0, false
	}
	return t.Refs[i], true
}

func (t *TableInstance) Set(i uint32, v uint64) bool {
	if i >= t.Size() {
		return false
	}
	t.Refs[i] = v
	return true
}
