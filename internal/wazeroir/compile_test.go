package wazeroir

import (
	"testing"

	"github.com/tinywasm-go/tinywasm/api"
	"github.com/tinywasm-go/tinywasm/internal/testing/require"
)

func i32i32i32() FunctionType {
	return FunctionType{Params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
}

func TestCompile_Add(t *testing.T) {
	sig := i32i32i32()
	body := []byte{
		0x20, 0x00, // local.get 0
		0x20, 0x01, // local.get 1
		0x6a, // i32.add
		0x0b, // end
	}
	ops, err := Compile(sig, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, body, nil, nil)
	require.NoError(t, err)

	require.Equal(t, 3, len(ops))
	require.Equal(t, OperationKindLocalGet, ops[0].Kind)
	require.Equal(t, uint64(0), ops[0].U1)
	require.Equal(t, OperationKindLocalGet, ops[1].Kind)
	require.Equal(t, uint64(1), ops[1].U1)
	require.Equal(t, OperationKindAdd, ops[2].Kind)
	require.Equal(t, NumTypeI32, NumType(ops[2].B1))
}

func TestCompile_IfElse(t *testing.T) {
	sig := FunctionType{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}}
	body := []byte{
		0x20, 0x00, // local.get 0
		0x41, 0x02, // i32.const 2
		0x48,       // i32.lt_s
		0x04, 0x7f, // if (result i32)
		0x20, 0x00, //   local.get 0
		0x05,       // else
		0x41, 0x00, //   i32.const 0
		0x0b, // end (if)
		0x0b, // end (function)
	}
	ops, err := Compile(sig, []api.ValueType{api.ValueTypeI32}, body, nil, nil)
	require.NoError(t, err)

	var kinds []OperationKind
	for _, op := range ops {
		kinds = append(kinds, op.Kind)
	}
	require.Equal(t, []OperationKind{
		OperationKindLocalGet,
		OperationKindConstI32,
		OperationKindLt,
		OperationKindBrIf,
		OperationKindLocalGet,
		OperationKindBr,
		OperationKindConstI32,
	}, kinds)
}

func TestCompile_Call(t *testing.T) {
	sig := FunctionType{Results: []api.ValueType{api.ValueTypeI32}}
	body := []byte{
		0x10, 0x02, // call 2
		0x0b, // end
	}
	ops, err := Compile(sig, nil, body, []FunctionType{sig, sig, sig}, []uint32{0, 0, 0})
	require.NoError(t, err)

	require.Equal(t, 1, len(ops))
	require.Equal(t, OperationKindCall, ops[0].Kind)
	require.Equal(t, uint64(2), ops[0].U1)
}

func TestCompile_MemoryLoadStore(t *testing.T) {
	sig := FunctionType{Params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}}
	body := []byte{
		0x20, 0x00, // local.get 0
		0x20, 0x01, // local.get 1
		0x36, 0x02, 0x04, // i32.store align=2 offset=4
		0x0b, // end
	}
	ops, err := Compile(sig, []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, body, nil, nil)
	require.NoError(t, err)

	require.Equal(t, 3, len(ops))
	require.Equal(t, OperationKindStore, ops[2].Kind)
	require.Equal(t, uint32(4), ops[2].Mem.Offset)
}
