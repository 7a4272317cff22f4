// Package wasm holds the store data model: the owning container of every
// runtime object (functions, memories, tables, globals, segments) plus the
// static, already-preprocessed Module value the engine consumes.
package wasm

import "github.com/tinywasm-go/tinywasm/internal/wazeroir"

// Index is a module-local index (into a section) or, once resolved, a
// store address. The two are distinct uses of the same representation;
// callers must not mix indices from different modules or addresses from
// different stores.
type Index = uint32

// FunctionType is shared with the preprocessed instruction set: a block
// type and a function type are the same shape, and the compiler needs to
// resolve both against the same type section.
type FunctionType = wazeroir.FunctionType

// Limits is the [Min, Max] pair governing how far a memory or table may
// grow. A nil Max means unbounded (subject to any host-imposed ceiling).
type Limits struct {
	Min uint32
	Max *uint32
}

// Satisfies reports whether this (the imported/offered limits) is at least
// as permissive as required, per the Wasm limits-matching rule: the
// offered minimum must be >= the required minimum, and if the required
// limits bound the maximum, the offered limits must too, with an offered
// maximum no greater than required.
func (l Limits) Satisfies(required Limits) bool {
	if l.Min < required.Min {
		return false
	}
	if required.Max == nil {
		return true
	}
	return l.Max != nil && *l.Max <= *required.Max
}
