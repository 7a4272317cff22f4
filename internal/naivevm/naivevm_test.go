package naivevm

import (
	"context"
	"errors"
	"testing"

	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/testing/require"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
	"github.com/tinywasm-go/tinywasm/internal/wazeroir"
)

func compileFn(t *testing.T, sig wazeroir.FunctionType, locals []api.ValueType, body []byte, types []wazeroir.FunctionType, funcTypeIdx []uint32) *wasm.FunctionInstance {
	ops, err := wazeroir.Compile(sig, locals, body, types, funcTypeIdx)
	require.NoError(t, err)
	return &wasm.FunctionInstance{
		Type:   wasm.FunctionType{Params: sig.Params, Results: sig.Results},
		Locals: locals,
		Body:   ops,
	}
}

func TestRun_Add(t *testing.T) {
	sig := wazeroir.FunctionType{Params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	fn := compileFn(t, sig, sig.Params, []byte{0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b}, nil, nil)

	results, err := Run(context.Background(), fn, []uint64{2, 3})
	require.NoError(t, err)
	require.Equal(t, []uint64{5}, results)
}

func TestRun_RecursiveCall(t *testing.T) {
	sig := wazeroir.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	body := []byte{
		0x20, 0x00,
		0x41, 0x02,
		0x48,
		0x04, 0x7f,
		0x20, 0x00,
		0x05,
		0x20, 0x00, 0x41, 0x01, 0x6b, 0x10, 0x00,
		0x20, 0x00, 0x41, 0x02, 0x6b, 0x10, 0x00,
		0x6a,
		0x0b,
		0x0b,
	}
	fn := compileFn(t, sig, sig.Params, body, []wazeroir.FunctionType{sig}, []uint32{0})
	fn.Module = &wasm.ModuleInstance{Functions: []*wasm.FunctionInstance{fn}}

	results, err := Run(context.Background(), fn, []uint64{10})
	require.NoError(t, err)
	require.Equal(t, []uint64{55}, results)
}

func TestRun_DivByZeroTraps(t *testing.T) {
	sig := wazeroir.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	fn := compileFn(t, sig, sig.Params, []byte{0x41, 0x64, 0x20, 0x00, 0x6d, 0x0b}, nil, nil)

	_, err := Run(context.Background(), fn, []uint64{0})
	require.Error(t, err)
	var trap *wasmerrors.Trap
	require.True(t, errors.As(err, &trap))
	require.Equal(t, wasmerrors.TrapIntegerDivideByZero, trap.Code)
}

func TestRun_MemoryOutOfBoundsTraps(t *testing.T) {
	sig := wazeroir.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	fn := compileFn(t, sig, sig.Params, []byte{0x20, 0x00, 0x28, 0x02, 0x00, 0x0b}, nil, nil)
	fn.Module = &wasm.ModuleInstance{Memory: wasm.NewMemoryInstance(1, nil)}

	_, err := Run(context.Background(), fn, []uint64{65533})
	require.Error(t, err)
	var trap *wasmerrors.Trap
	require.True(t, errors.As(err, &trap))
	require.Equal(t, wasmerrors.TrapMemoryOutOfBounds, trap.Code)
}

func TestRun_HostFunction(t *testing.T) {
	fn := &wasm.FunctionInstance{
		Type: wasm.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}},
		GoFunc: func(ctx context.Context, mod api.Module, params []uint64) ([]uint64, error) {
			return []uint64{params[0] + 1}, nil
		},
	}

	results, err := Run(context.Background(), fn, []uint64{41})
	require.NoError(t, err)
	require.Equal(t, []uint64{42}, results)
}

func TestRun_StackOverflowTraps(t *testing.T) {
	sig := wazeroir.FunctionType{}
	fn := compileFn(t, sig, nil, []byte{0x10, 0x00, 0x0b}, []wazeroir.FunctionType{sig}, []uint32{0})
	fn.Module = &wasm.ModuleInstance{Functions: []*wasm.FunctionInstance{fn}}

	_, err := Run(context.Background(), fn, nil)
	require.Error(t, err)
	var trap *wasmerrors.Trap
	require.True(t, errors.As(err, &trap))
	require.Equal(t, wasmerrors.TrapCallStackOverflow, trap.Code)
}
