package linker

import (
	"errors"
	"testing"

	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/testing/require"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
)

func i32i32() wasm.FunctionType {
	return wasm.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
}

func TestResolve_MissingImport(t *testing.T) {
	l := New()
	_, err := l.Resolve(wasm.Import{Module: "env", Name: "missing", Type: api.ExternTypeFunc}, nil)
	require.Error(t, err)
	var missing *wasmerrors.MissingImport
	require.True(t, errors.As(err, &missing))
}

func TestResolve_Function_Match(t *testing.T) {
	l := New()
	sig := i32i32()
	fn := &wasm.FunctionInstance{Type: sig}
	l.DefineFunction("env", "double", fn)

	ext, err := l.Resolve(wasm.Import{Module: "env", Name: "double", Type: api.ExternTypeFunc, FuncTypeIndex: 0}, []wasm.FunctionType{sig})
	require.NoError(t, err)
	require.Equal(t, fn, ext.Func)
}

func TestResolve_Function_SignatureMismatch(t *testing.T) {
	l := New()
	fn := &wasm.FunctionInstance{Type: i32i32()}
	l.DefineFunction("env", "double", fn)

	other := wasm.FunctionType{Results: []api.ValueType{api.ValueTypeI32}}
	_, err := l.Resolve(wasm.Import{Module: "env", Name: "double", Type: api.ExternTypeFunc, FuncTypeIndex: 0}, []wasm.FunctionType{other})
	require.Error(t, err)
}

func TestResolve_Function_KindMismatch(t *testing.T) {
	l := New()
	l.DefineMemory("env", "mem", wasm.NewMemoryInstance(1, nil))

	_, err := l.Resolve(wasm.Import{Module: "env", Name: "mem", Type: api.ExternTypeFunc}, nil)
	require.Error(t, err)
}

func TestResolve_Memory_LimitsSatisfy(t *testing.T) {
	l := New()
	mem := wasm.NewMemoryInstance(2, nil)
	l.DefineMemory("env", "mem", mem)

	ext, err := l.Resolve(wasm.Import{
		Module: "env", Name: "mem", Type: api.ExternTypeMemory,
		Memory: wasm.Memory{Limits: wasm.Limits{Min: 1}},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, mem, ext.Memory)
}

func TestResolve_Memory_LimitsUnsatisfied(t *testing.T) {
	l := New()
	l.DefineMemory("env", "mem", wasm.NewMemoryInstance(1, nil))

	_, err := l.Resolve(wasm.Import{
		Module: "env", Name: "mem", Type: api.ExternTypeMemory,
		Memory: wasm.Memory{Limits: wasm.Limits{Min: 4}},
	}, nil)
	require.Error(t, err)
}

func TestResolve_Global_MutabilityMismatch(t *testing.T) {
	l := New()
	l.DefineGlobal("env", "g", &wasm.GlobalInstance{Type: api.ValueTypeI32, Mutable: false})

	_, err := l.Resolve(wasm.Import{
		Module: "env", Name: "g", Type: api.ExternTypeGlobal,
		Global: wasm.Global{Type: api.ValueTypeI32, Mutable: true},
	}, nil)
	require.Error(t, err)
}

func TestResolveAll_OrderAndFailFast(t *testing.T) {
	l := New()
	sig := i32i32()
	fn := &wasm.FunctionInstance{Type: sig}
	l.DefineFunction("env", "a", fn)

	mod := &wasm.Module{
		Types: []wasm.FunctionType{sig},
		Imports: []wasm.Import{
			{Module: "env", Name: "a", Type: api.ExternTypeFunc, FuncTypeIndex: 0},
			{Module: "env", Name: "missing", Type: api.ExternTypeFunc, FuncTypeIndex: 0},
		},
	}
	_, err := l.ResolveAll(mod)
	require.Error(t, err)
}

func TestDefineInstance_ReexportsAsCandidates(t *testing.T) {
	l := New()
	sig := i32i32()
	fn := &wasm.FunctionInstance{Type: sig}
	inner := &wasm.ModuleInstance{ModuleName: "inner"}
	inner.SetExports(map[string]wasm.Export{"f": {Name: "f", Type: api.ExternTypeFunc, Index: 0}})
	inner.Functions = []*wasm.FunctionInstance{fn}

	l.DefineInstance("inner", inner)

	ext, err := l.Resolve(wasm.Import{Module: "inner", Name: "f", Type: api.ExternTypeFunc, FuncTypeIndex: 0}, []wasm.FunctionType{sig})
	require.NoError(t, err)
	require.Equal(t, fn, ext.Func)
}
