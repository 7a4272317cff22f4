package wasm

import (
	"context"

	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
)

// Engine runs a compiled function's body. The store data model depends on
// this interface rather than the interpreter package directly, so that
// internal/interpreter can depend on internal/wasm without a cycle.
type Engine interface {
	Call(ctx context.Context, f *FunctionInstance, params []uint64) ([]uint64, error)
}

// ModuleInstance is one instantiation's view into the Store: the name it
// was registered under, and the index tables resolving its own local
// indices to store-owned instances (after imports have been spliced in at
// the front of each table, per the Wasm index-space rule).
type ModuleInstance struct {
	ModuleName string

	Engine Engine

	Types     []FunctionType
	Functions []*FunctionInstance
	Tables    []*TableInstance
	Memory    *MemoryInstance
	Globals   []*GlobalInstance

	Elements []*ElementSegmentInstance
	Data     []*DataSegmentInstance

	exports map[string]Export

	closed bool
}

func (m *ModuleInstance) Exports() map[string]Export { return m.exports }

func (m *ModuleInstance) SetExports(e map[string]Export) { m.exports = e }

func (m *ModuleInstance) ExportedFunction(name string) api.Function {
	e, ok := m.exports[name]
	if !ok || e.Type != api.ExternTypeFunc {
		return nil
	}
	return &exportedFunction{engine: m.Engine, inst: m.Functions[e.Index]}
}

func (m *ModuleInstance) ExportedMemory(name string) api.Memory {
	e, ok := m.exports[name]
	if !ok || e.Type != api.ExternTypeMemory || m.Memory == nil {
		return nil
	}
	return m.Memory
}

func (m *ModuleInstance) ExportedTable(name string) api.Table {
	e, ok := m.exports[name]
	if !ok || e.Type != api.ExternTypeTable {
		return nil
	}
	return tableView{m.Tables[e.Index]}
}

func (m *ModuleInstance) ExportedGlobal(name string) api.Global {
	e, ok := m.exports[name]
	if !ok || e.Type != api.ExternTypeGlobal {
		return nil
	}
	g := m.Globals[e.Index]
	if g.Mutable {
		return mutableGlobalView{g}
	}
	return globalView{g}
}

// tableView, globalView and mutableGlobalView adapt the store's pointer
// types to the api interfaces without exposing the pointers themselves.
type tableView struct{ t *TableInstance }

func (v tableView) Type() api.RefType                        { return v.t.Type }
func (v tableView) Size() uint32                              { return v.t.Size() }
func (v tableView) Grow(delta uint32, init uint64) (uint32, bool) { return v.t.Grow(delta, init) }
func (v tableView) Get(i uint32) (uint64, bool)               { return v.t.Get(i) }
func (v tableView) Set(i uint32, x uint64) bool               { return v.t.Set(i, x) }

type globalView struct{ g *GlobalInstance }

func (v globalView) Type() api.ValueType { return v.g.Type }
func (v globalView) Get() uint64         { return v.g.Get() }

type mutableGlobalView struct{ g *GlobalInstance }

func (v mutableGlobalView) Type() api.ValueType { return v.g.Type }
func (v mutableGlobalView) Get() uint64         { return v.g.Get() }
func (v mutableGlobalView) Set(x uint64)        { v.g.Set(x) }

// exportedFunction adapts a store-owned FunctionInstance plus the engine
// that runs it into api.Function.
type exportedFunction struct {
	engine Engine
	inst   *FunctionInstance
}

func (f *exportedFunction) Definition() api.FunctionDefinition { return f.inst.Definition() }

func (f *exportedFunction) Call(ctx context.Context, params ...uint64) ([]uint64, error) {
	want := len(f.inst.Type.Params)
	if len(params) != want {
		return nil, &wasmerrors.InvocationError{Want: want, Have: len(params)}
	}
	return f.engine.Call(ctx, f.inst, params)
}

// Name reports the name this instance was registered under, satisfying
// api.Module together with Close below.
func (m *ModuleInstance) Name() string { return m.ModuleName }

func (m *ModuleInstance) Close(ctx context.Context) error {
	m.closed = true
	return nil
}
