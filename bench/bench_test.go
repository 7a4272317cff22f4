// Package bench benchmarks TinyWasm's production interpreter against
// internal/naivevm on the same seed scenarios, rather than against a
// second third-party Wasm engine (wasmtime-go/wasmer-go, as the teacher's
// own vs/ package does) — shipping a dependency on a second engine just to
// benchmark against it would contradict "tiny, embeddable". See
// SPEC_FULL.md's DOMAIN STACK section.
package bench

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinywasm-go/tinywasm"
	"github.com/tinywasm-go/tinywasm/internal/naivevm"
	"github.com/tinywasm-go/tinywasm/internal/testing/spectest"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
)

// instantiated returns the freshly-instantiated module's concrete
// *wasm.ModuleInstance, so both engines under benchmark can reach the
// same *wasm.FunctionInstance directly rather than through the narrower
// api.Function handle embedders use.
func instantiated(ctx context.Context, mod *wasm.Module, name string) (*wasm.ModuleInstance, func()) {
	rt := tinywasm.NewRuntime(ctx, tinywasm.NewRuntimeConfig())
	inst, err := rt.Instantiate(ctx, mod, name)
	if err != nil {
		panic(err)
	}
	return inst.(*wasm.ModuleInstance), func() { rt.Close(ctx) }
}

// TestEnginesAgree is the correctness half of this package: before trusting
// a benchmark's relative numbers, confirm naivevm and the production
// interpreter compute the same result on every seed scenario.
func TestEnginesAgree(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name   string
		mod    *wasm.Module
		fn     string
		params []uint64
	}{
		{"add", spectest.SeedAdd(), "add", []uint64{2, 3}},
		{"fib", spectest.SeedFib(), "fib", []uint64{10}},
		{"call_indirect", spectest.SeedCallIndirect(), "run", nil},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			inst, closeRt := instantiated(ctx, c.mod, c.name)
			defer closeRt()

			exp, ok := inst.Exports()[c.fn]
			require.True(t, ok)
			f := inst.Functions[exp.Index]

			naiveResult, err := naivevm.Run(ctx, f, c.params)
			require.NoError(t, err)

			engineResult, err := inst.Engine.Call(ctx, f, c.params)
			require.NoError(t, err)

			require.Equal(t, engineResult, naiveResult)
		})
	}
}

func BenchmarkFib(b *testing.B) {
	ctx := context.Background()
	inst, closeRt := instantiated(ctx, spectest.SeedFib(), "fib")
	defer closeRt()
	f := inst.Functions[0]

	b.Run("interpreter", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := inst.Engine.Call(ctx, f, []uint64{15}); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("naivevm", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := naivevm.Run(ctx, f, []uint64{15}); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkAdd(b *testing.B) {
	ctx := context.Background()
	inst, closeRt := instantiated(ctx, spectest.SeedAdd(), "add")
	defer closeRt()
	f := inst.Functions[0]

	b.Run("interpreter", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := inst.Engine.Call(ctx, f, []uint64{2, 3}); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("naivevm", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if _, err := naivevm.Run(ctx, f, []uint64{2, 3}); err != nil {
				b.Fatal(err)
			}
		}
	})
}
