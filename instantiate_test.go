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

func TestInstantiate_MissingImportFails(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	mod := &wasm.Module{
		Types:   []wasm.FunctionType{{Results: []api.ValueType{api.ValueTypeI32}}},
		Imports: []wasm.Import{{Module: "env", Name: "missing", Type: api.ExternTypeFunc, FuncTypeIndex: 0}},
		Functions: []wasm.Function{
			{TypeIndex: 0}, // import placeholder
		},
		StartFunction: -1,
	}
	_, err := rt.Instantiate(ctx, mod, "m")
	require.Error(t, err)
	var linkErr *wasmerrors.LinkingError
	require.True(t, errors.As(err, &linkErr))
}

func TestInstantiate_HostFunctionSatisfiesImport(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().
		WithFunc(func(a, b int32) int32 { return a + b }).
		Export("add")

	sig := wasm.FunctionType{Params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	mod := &wasm.Module{
		Types:   []wasm.FunctionType{sig},
		Imports: []wasm.Import{{Module: "env", Name: "add", Type: api.ExternTypeFunc, FuncTypeIndex: 0}},
		Functions: []wasm.Function{
			{TypeIndex: 0}, // import placeholder, index 0
			{TypeIndex: 0, Body: []byte{0x20, 0x00, 0x20, 0x01, 0x10, 0x00, 0x0b}, Locals: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}},
		},
		FunctionTypeIndexes: []wasm.Index{0, 0},
		Exports:             []wasm.Export{{Name: "delegate", Type: api.ExternTypeFunc, Index: 1}},
		StartFunction:       -1,
	}
	inst, err := rt.Instantiate(ctx, mod, "caller")
	require.NoError(t, err)

	results, err := inst.ExportedFunction("delegate").Call(ctx, 7, 8)
	require.NoError(t, err)
	require.Equal(t, []uint64{15}, results)
}

func TestInstantiate_DataSegmentInitializesMemory(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	mod := &wasm.Module{
		Memory: &wasm.Memory{Limits: wasm.Limits{Min: 1}},
		DataSegments: []wasm.DataSegment{
			{Mode: wasm.SegmentModeActive, Offset: 4, Init: []byte{1, 2, 3, 4}},
		},
		StartFunction: -1,
	}
	inst, err := rt.Instantiate(ctx, mod, "m")
	require.NoError(t, err)

	raw := inst.(*wasm.ModuleInstance)
	require.Equal(t, []byte{1, 2, 3, 4}, raw.Memory.Buffer[4:8])
}

func TestInstantiate_DataSegmentOutOfBoundsFails(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	mod := &wasm.Module{
		Memory: &wasm.Memory{Limits: wasm.Limits{Min: 1}},
		DataSegments: []wasm.DataSegment{
			{Mode: wasm.SegmentModeActive, Offset: 65533, Init: []byte{1, 2, 3, 4}},
		},
		StartFunction: -1,
	}
	_, err := rt.Instantiate(ctx, mod, "m")
	require.Error(t, err)
	var instErr *wasmerrors.InstantiationError
	require.True(t, errors.As(err, &instErr))
}

func TestInstantiate_GlobalInitializerChain(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	base := wasm.Index(0)
	mod := &wasm.Module{
		Globals: []wasm.Global{
			{Type: api.ValueTypeI32, Mutable: false, Init: wasm.GlobalInit{Value: 41}},
			{Type: api.ValueTypeI32, Mutable: false, Init: wasm.GlobalInit{FromGlobal: &base}},
		},
		StartFunction: -1,
	}
	inst, err := rt.Instantiate(ctx, mod, "m")
	require.NoError(t, err)

	raw := inst.(*wasm.ModuleInstance)
	require.Equal(t, uint64(41), raw.Globals[1].Get())
}

func TestInstantiate_StartFunctionRuns(t *testing.T) {
	ctx := context.Background()
	rt := NewRuntime(ctx, NewRuntimeConfig())
	defer rt.Close(ctx)

	mod := &wasm.Module{
		Memory: &wasm.Memory{Limits: wasm.Limits{Min: 1}},
		Types:  []wasm.FunctionType{{}},
		Functions: []wasm.Function{
			{TypeIndex: 0, Body: []byte{0x41, 0x00, 0x41, 0x07, 0x36, 0x02, 0x00, 0x0b}}, // store 7 at address 0
		},
		FunctionTypeIndexes: []wasm.Index{0},
		StartFunction:       0,
	}
	inst, err := rt.Instantiate(ctx, mod, "m")
	require.NoError(t, err)

	raw := inst.(*wasm.ModuleInstance)
	v, ok := raw.Memory.ReadUint32Le(0)
	require.True(t, ok)
	require.Equal(t, uint32(7), v)
}
