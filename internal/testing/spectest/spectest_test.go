package spectest

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/tinywasm-go/tinywasm"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/testing/require"
)

func newRuntime(ctx context.Context) *tinywasm.Runtime {
	return tinywasm.NewRuntime(ctx, tinywasm.NewRuntimeConfig())
}

func TestSeedAdd(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(ctx)
	defer rt.Close(ctx)

	inst, err := rt.Instantiate(ctx, SeedAdd(), "add")
	require.NoError(t, err)

	results, err := inst.ExportedFunction("add").Call(ctx, 2, 3)
	require.NoError(t, err)
	require.Equal(t, []uint64{5}, results)
}

func TestSeedFib(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(ctx)
	defer rt.Close(ctx)

	inst, err := rt.Instantiate(ctx, SeedFib(), "fib")
	require.NoError(t, err)

	results, err := inst.ExportedFunction("fib").Call(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []uint64{55}, results)
}

func TestSeedOOB(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(ctx)
	defer rt.Close(ctx)

	inst, err := rt.Instantiate(ctx, SeedOOB(), "oob")
	require.NoError(t, err)

	_, err = inst.ExportedFunction("oob").Call(ctx, 65533)
	require.Error(t, err)
	var trap *wasmerrors.Trap
	if !errors.As(err, &trap) {
		t.Fatalf("expected a Trap, got %v (%T)", err, err)
	}
	require.Equal(t, wasmerrors.TrapMemoryOutOfBounds, trap.Code)
}

func TestSeedDivZero(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(ctx)
	defer rt.Close(ctx)

	inst, err := rt.Instantiate(ctx, SeedDivZero(), "divz")
	require.NoError(t, err)

	_, err = inst.ExportedFunction("divz").Call(ctx, 0)
	require.Error(t, err)
	var trap *wasmerrors.Trap
	if !errors.As(err, &trap) {
		t.Fatalf("expected a Trap, got %v (%T)", err, err)
	}
	require.Equal(t, wasmerrors.TrapIntegerDivideByZero, trap.Code)
}

func TestSeedCallIndirect(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(ctx)
	defer rt.Close(ctx)

	inst, err := rt.Instantiate(ctx, SeedCallIndirect(), "callind")
	require.NoError(t, err)

	results, err := inst.ExportedFunction("run").Call(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint64{42}, results)
}

func TestSeedMutableGlobal(t *testing.T) {
	ctx := context.Background()
	rt := newRuntime(ctx)
	defer rt.Close(ctx)

	inst, err := rt.Instantiate(ctx, SeedMutableGlobal(), "counter")
	require.NoError(t, err)

	fn := inst.ExportedFunction("inc")
	first, err := fn.Call(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, first)

	second, err := fn.Call(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint64{2}, second)
}

func TestJSONFixtures(t *testing.T) {
	f, err := os.Open("testdata/basic.json")
	require.NoError(t, err)
	defer f.Close()

	suite, err := LoadSuite(f)
	require.NoError(t, err)

	ctx := context.Background()
	for _, c := range suite.Cases {
		c := c
		t.Run(c.Name, func(t *testing.T) {
			if err := c.Run(ctx); err != nil {
				t.Fatal(err)
			}
		})
	}
}
