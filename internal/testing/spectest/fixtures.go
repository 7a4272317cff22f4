// Package spectest is TinyWasm's conformance harness (C12): a set of
// hand-built seed scenarios exercising the full decode/compile/instantiate/
// call path end to end, plus a minimal JSON fixture format for cases
// expressed as raw .wasm bytes rather than Go literals. It deliberately
// does not parse the `.wast` text grammar — see SPEC_FULL.md's AMBIENT
// STACK section for why that narrowing is acceptable here.
package spectest

import (
	"github.com/tinywasm-go/tinywasm/api"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
)

func u32(v uint32) *uint32 { return &v }

func idx(v wasm.Index) *wasm.Index { return &v }

// SeedAdd is S1: add(a, b) = a + b, exported as "add".
func SeedAdd() *wasm.Module {
	return &wasm.Module{
		StartFunction: -1,
		Types: []wasm.FunctionType{
			{Params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}},
		},
		FunctionTypeIndexes: []wasm.Index{0},
		Functions: []wasm.Function{
			{TypeIndex: 0, Name: "add", Body: []byte{
				0x20, 0x00, // local.get 0
				0x20, 0x01, // local.get 1
				0x6a, // i32.add
				0x0b, // end
			}},
		},
		Exports: []wasm.Export{{Name: "add", Type: api.ExternTypeFunc, Index: 0}},
	}
}

// SeedFib is S2: a recursive fib(n), exported as "fib". fib(10) == 55.
func SeedFib() *wasm.Module {
	return &wasm.Module{
		StartFunction: -1,
		Types: []wasm.FunctionType{
			{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}},
		},
		FunctionTypeIndexes: []wasm.Index{0},
		Functions: []wasm.Function{
			{TypeIndex: 0, Name: "fib", Body: []byte{
				0x20, 0x00, // local.get 0
				0x41, 0x02, // i32.const 2
				0x48,       // i32.lt_s
				0x04, 0x7f, // if (result i32)
				0x20, 0x00, //   local.get 0
				0x05,       // else
				0x20, 0x00, //   local.get 0
				0x41, 0x01, //   i32.const 1
				0x6b,       //   i32.sub
				0x10, 0x00, //   call 0 (fib)
				0x20, 0x00, //   local.get 0
				0x41, 0x02, //   i32.const 2
				0x6b,       //   i32.sub
				0x10, 0x00, //   call 0 (fib)
				0x6a, // i32.add
				0x0b, // end (if)
				0x0b, // end (function)
			}},
		},
		Exports: []wasm.Export{{Name: "fib", Type: api.ExternTypeFunc, Index: 0}},
	}
}

// SeedOOB is S3: oob(addr) loads an i32 at addr. One page (64KiB) of
// memory; oob(65533) reads 4 bytes starting three bytes before the end, so
// the last byte falls one past it, and traps MemoryOutOfBounds.
func SeedOOB() *wasm.Module {
	return &wasm.Module{
		StartFunction: -1,
		Types: []wasm.FunctionType{
			{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}},
		},
		FunctionTypeIndexes: []wasm.Index{0},
		Functions: []wasm.Function{
			{TypeIndex: 0, Name: "oob", Body: []byte{
				0x20, 0x00, // local.get 0
				0x28, 0x02, 0x00, // i32.load align=2 offset=0
				0x0b, // end
			}},
		},
		Memory:  &wasm.Memory{Limits: wasm.Limits{Min: 1, Max: u32(1)}},
		Exports: []wasm.Export{{Name: "oob", Type: api.ExternTypeFunc, Index: 0}},
	}
}

// SeedDivZero is S4: divz(b) = 100 / b. divz(0) traps IntegerDivideByZero.
func SeedDivZero() *wasm.Module {
	return &wasm.Module{
		StartFunction: -1,
		Types: []wasm.FunctionType{
			{Params: []api.ValueType{api.ValueTypeI32}, Results: []api.ValueType{api.ValueTypeI32}},
		},
		FunctionTypeIndexes: []wasm.Index{0},
		Functions: []wasm.Function{
			{TypeIndex: 0, Name: "divz", Body: []byte{
				0x41, 0x64, // i32.const 100
				0x20, 0x00, // local.get 0
				0x6d, // i32.div_s
				0x0b, // end
			}},
		},
		Exports: []wasm.Export{{Name: "divz", Type: api.ExternTypeFunc, Index: 0}},
	}
}

// SeedCallIndirect is S5: a one-entry funcref table pointing at a function
// returning 42, invoked through call_indirect. run() == 42.
func SeedCallIndirect() *wasm.Module {
	return &wasm.Module{
		StartFunction: -1,
		Types: []wasm.FunctionType{
			{Results: []api.ValueType{api.ValueTypeI32}},
		},
		FunctionTypeIndexes: []wasm.Index{0, 0},
		Functions: []wasm.Function{
			{TypeIndex: 0, Name: "target", Body: []byte{
				0x41, 0x2a, // i32.const 42
				0x0b, // end
			}},
			{TypeIndex: 0, Name: "run", Body: []byte{
				0x41, 0x00, // i32.const 0 (table index)
				0x11, 0x00, 0x00, // call_indirect (type 0, table 0)
				0x0b, // end
			}},
		},
		Tables: []wasm.Table{
			{Type: api.RefTypeFuncref, Limits: wasm.Limits{Min: 1, Max: u32(1)}},
		},
		ElementSegments: []wasm.ElementSegment{
			{Mode: wasm.SegmentModeActive, TableIndex: 0, Offset: 0, Type: api.RefTypeFuncref, FuncIndices: []*wasm.Index{idx(0)}},
		},
		Exports: []wasm.Export{{Name: "run", Type: api.ExternTypeFunc, Index: 1}},
	}
}

// SeedMutableGlobal is S6: a mutable i32 global starting at 0, and inc()
// that increments it and returns the new value. Two successive calls
// return 1, then 2.
func SeedMutableGlobal() *wasm.Module {
	return &wasm.Module{
		StartFunction: -1,
		Types: []wasm.FunctionType{
			{Results: []api.ValueType{api.ValueTypeI32}},
		},
		FunctionTypeIndexes: []wasm.Index{0},
		Functions: []wasm.Function{
			{TypeIndex: 0, Name: "inc", Body: []byte{
				0x23, 0x00, // global.get 0
				0x41, 0x01, // i32.const 1
				0x6a,       // i32.add
				0x24, 0x00, // global.set 0
				0x23, 0x00, // global.get 0
				0x0b, // end
			}},
		},
		Globals: []wasm.Global{
			{Type: api.ValueTypeI32, Mutable: true, Init: wasm.GlobalInit{Value: 0}},
		},
		Exports: []wasm.Export{{Name: "inc", Type: api.ExternTypeFunc, Index: 0}},
	}
}
