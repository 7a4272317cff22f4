package tinywasm

import (
	"context"
	"errors"
	"testing"

	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/testing/require"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
)

// callerModule builds a module that imports one env function of the given
// signature at index 0 and re-exports a wrapper that just calls through to
// it, passing its own params straight on.
func callerModule(sig wasm.FunctionType) *wasm.Module {
	var getLocals []byte
	for i := range sig.Params {
		getLocals = append(getLocals, 0x20, byte(i))
	}
	body := append(getLocals, 0x10, 0x00, 0x0b) // call 0; end
	return &wasm.Module{
		Types:               []wasm.FunctionType{sig},
		Imports:             []wasm.Import{{Module: "env", Name: "f", Type: api.ExternTypeFunc, FuncTypeIndex: 0}},
		FunctionTypeIndexes: []wasm.Index{0, 0},
		Functions: []wasm.Function{
			{TypeIndex: 0},
			{TypeIndex: 0, Body: body, Locals: sig.Params},
		},
		Exports:       []wasm.Export{{Name: "call", Type: api.ExternTypeFunc, Index: 1}},
		StartFunction: -1,
	}
}

func TestHostModuleBuilder_WithGoFunction(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	var gotParams []uint64
	rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithSignature([]api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		WithGoFunction(func(ctx context.Context, mod api.Module, params []uint64) ([]uint64, error) {
			gotParams = params
			return []uint64{params[0] + 1}, nil
		}).
		Export("f")

	sig := wasm.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	inst, err := rt.Instantiate(ctx, callerModule(sig), "m")
	require.NoError(t, err)

	results, err := inst.ExportedFunction("call").Call(ctx, 41)
	require.NoError(t, err)
	require.Equal(t, []uint64{42}, results)
	require.Equal(t, []uint64{41}, gotParams)
}

func TestHostFunctionBuilder_WithFunc_NativeTypes(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(a, b int32) int32 { return a * b }).
		Export("f")

	sig := wasm.FunctionType{Params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	inst, err := rt.Instantiate(ctx, callerModule(sig), "m")
	require.NoError(t, err)

	results, err := inst.ExportedFunction("call").Call(ctx, 6, 7)
	require.NoError(t, err)
	require.Equal(t, []uint64{42}, results)
}

func TestHostFunctionBuilder_WithFunc_ErrorPropagates(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	boom := errors.New("boom")
	rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(a int32) (int32, error) { return 0, boom }).
		Export("f")

	sig := wasm.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	inst, err := rt.Instantiate(ctx, callerModule(sig), "m")
	require.NoError(t, err)

	_, err = inst.ExportedFunction("call").Call(ctx, 1)
	require.Error(t, err)
	require.True(t, errors.Is(err, boom))
}

func TestHostFunctionBuilder_WithGoFunction_ResultCountMismatchTraps(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithSignature([]api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		WithGoFunction(func(ctx context.Context, mod api.Module, params []uint64) ([]uint64, error) {
			return nil, nil // wrong arity: declared one i32 result
		}).
		Export("f")

	sig := wasm.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	inst, err := rt.Instantiate(ctx, callerModule(sig), "m")
	require.NoError(t, err)

	_, err = inst.ExportedFunction("call").Call(ctx, 1)
	require.Error(t, err)
	var invErr *wasmerrors.InvocationError
	require.True(t, errors.As(err, &invErr))
}
