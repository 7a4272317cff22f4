package wasm

import "github.com/tinywasm-go/tinywasm/api"

// GlobalInstance is a store-owned global variable: a single raw word plus
// its declared type and mutability. Set does not check Mutable, and
// neither Compile nor the linker rejects a global.set on an immutable
// global.
type GlobalInstance struct {
	Type    api.ValueType
	Mutable bool
	Value   uint64
}

func (g *GlobalInstance) Get() uint64 { return g.Value }

func (g *GlobalInstance) Set(v uint64) { g.Value = v }
