package interpreter

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

func compileFn(t *testing.T, sig wazeroir.FunctionType, locals []api.ValueType, body []byte) *wasm.FunctionInstance {
	return compileFnWithCalls(t, sig, locals, body, nil, nil)
}

// compileFnWithCalls additionally resolves a body's own `call` targets
// against types/funcTypeIdx, needed whenever the body calls another
// function by index (including recursive self-calls).
func compileFnWithCalls(t *testing.T, sig wazeroir.FunctionType, locals []api.ValueType, body []byte, types []wazeroir.FunctionType, funcTypeIdx []uint32) *wasm.FunctionInstance {
	ops, err := wazeroir.Compile(sig, locals, body, types, funcTypeIdx)
	require.NoError(t, err)
	return &wasm.FunctionInstance{
		Type:   wasm.FunctionType{Params: sig.Params, Results: sig.Results},
		Locals: locals,
		Body:   ops,
	}
}

func TestEngine_Call_Add(t *testing.T) {
	sig := wazeroir.FunctionType{Params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	fn := compileFn(t, sig, sig.Params, []byte{0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b})

	e := New()
	results, err := e.Call(context.Background(), fn, []uint64{2, 3})
	require.NoError(t, err)
	require.Equal(t, []uint64{5}, results)
}

func TestEngine_Call_RecursiveCall(t *testing.T) {
	// fn 0: if n < 2 return n; else return fn0(n-1) + fn0(n-2)
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
	fn := compileFnWithCalls(t, sig, sig.Params, body, []wazeroir.FunctionType{sig}, []uint32{0})
	mod := &wasm.ModuleInstance{Functions: []*wasm.FunctionInstance{fn}}
	fn.Module = mod

	e := New()
	results, err := e.Call(context.Background(), fn, []uint64{10})
	require.NoError(t, err)
	require.Equal(t, []uint64{55}, results) // fib(10)
}

func TestEngine_Call_DivByZeroTraps(t *testing.T) {
	sig := wazeroir.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	fn := compileFn(t, sig, sig.Params, []byte{0x41, 0x64, 0x20, 0x00, 0x6d, 0x0b})

	e := New()
	_, err := e.Call(context.Background(), fn, []uint64{0})
	require.Error(t, err)
	var trap *wasmerrors.Trap
	require.True(t, errors.As(err, &trap))
	require.Equal(t, wasmerrors.TrapIntegerDivideByZero, trap.Code)
}

func TestEngine_Call_MemoryOutOfBoundsTraps(t *testing.T) {
	sig := wazeroir.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	fn := compileFn(t, sig, sig.Params, []byte{0x20, 0x00, 0x28, 0x02, 0x00, 0x0b})
	fn.Module = &wasm.ModuleInstance{Memory: wasm.NewMemoryInstance(1, nil)}

	e := New()
	_, err := e.Call(context.Background(), fn, []uint64{65533})
	require.Error(t, err)
	var trap *wasmerrors.Trap
	require.True(t, errors.As(err, &trap))
	require.Equal(t, wasmerrors.TrapMemoryOutOfBounds, trap.Code)
}

func TestEngine_Call_HostFunction(t *testing.T) {
	fn := &wasm.FunctionInstance{
		Type: wasm.FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}},
		GoFunc: func(ctx context.Context, mod api.Module, params []uint64) ([]uint64, error) {
			return []uint64{params[0] + 1}, nil
		},
	}

	e := New()
	results, err := e.Call(context.Background(), fn, []uint64{41})
	require.NoError(t, err)
	require.Equal(t, []uint64{42}, results)
}

func TestEngine_Call_StackOverflowTraps(t *testing.T) {
	sig := wazeroir.FunctionType{}
	fn := compileFnWithCalls(t, sig, nil, []byte{0x10, 0x00, 0x0b}, []wazeroir.FunctionType{sig}, []uint32{0}) // call self, never returns
	mod := &wasm.ModuleInstance{Functions: []*wasm.FunctionInstance{fn}}
	fn.Module = mod

	e := New()
	e.MaxCallStack = 8
	_, err := e.Call(context.Background(), fn, nil)
	require.Error(t, err)
	var trap *wasmerrors.Trap
	require.True(t, errors.As(err, &trap))
	require.Equal(t, wasmerrors.TrapCallStackOverflow, trap.Code)
}
