package tinywasm

import (
	"context"
	"testing"

	"github.com/tinywasm-go/tinywasm/api"
	"github.com/tinywasm-go/tinywasm/internal/testing/require"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
)

// addModule is the minimal module every top-level test instantiates
// against: one function, local.get 0 + local.get 1, exported as "add".
func addModule() *wasm.Module {
	sig := wasm.FunctionType{Params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	return &wasm.Module{
		Types:               []wasm.FunctionType{sig},
		FunctionTypeIndexes: []wasm.Index{0},
		Functions: []wasm.Function{
			{TypeIndex: 0, Body: []byte{0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}, Locals: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}},
		},
		Exports:       []wasm.Export{{Name: "add", Type: api.ExternTypeFunc, Index: 0}},
		StartFunction: -1,
	}
}

func TestNewRuntime_EmptyStore(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	require.Nil(t, rt.Module("missing"))
}

func TestRuntime_InstantiateAndLookup(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	inst, err := rt.Instantiate(ctx, addModule(), "math")
	require.NoError(t, err)
	require.Equal(t, inst, rt.Module("math"))

	results, err := inst.ExportedFunction("add").Call(ctx, 4, 5)
	require.NoError(t, err)
	require.Equal(t, []uint64{9}, results)
}

func TestRuntime_InstantiateAnonymous(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	_, err := rt.Instantiate(ctx, addModule(), "")
	require.NoError(t, err)
	require.Nil(t, rt.Module(""))
}

func TestRuntime_Close(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())

	_, err := rt.Instantiate(ctx, addModule(), "math")
	require.NoError(t, err)

	require.NoError(t, rt.Close(ctx))
	require.Nil(t, rt.Module("math"))
}

func TestRuntimeConfig_CallStackCeilingDefault(t *testing.T) {
	cfg := RuntimeConfig{}
	require.Equal(t, DefaultCallStackCeiling, cfg.callStackCeiling())

	cfg.CallStackCeiling = 64
	require.Equal(t, 64, cfg.callStackCeiling())
}
