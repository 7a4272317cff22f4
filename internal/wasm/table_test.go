package wasm

import (
	"testing"

	"github.com/tinywasm-go/tinywasm/api"
	"github.com/tinywasm-go/tinywasm/internal/testing/require"
)

func TestNewTableInstance(t *testing.T) {
	tbl := NewTableInstance(api.RefTypeFuncref, 3, nil)
	require.Equal(t, uint32(3), tbl.Size())
	for i := uint32(0); i < 3; i++ {
		v, ok := tbl.Get(i)
		require.True(t, ok)
		require.Equal(t, api.RefNull, v)
	}
}

func TestTableInstance_GetSet(t *testing.T) {
	tbl := NewTableInstance(api.RefTypeFuncref, 2, nil)
	require.True(t, tbl.Set(0, 7))
	v, ok := tbl.Get(0)
	require.True(t, ok)
	require.Equal(t, uint64(7), v)

	require.False(t, tbl.Set(5, 1))
	_, ok = tbl.Get(5)
	require.False(t, ok)
}

func TestTableInstance_Grow(t *testing.T) {
	max := uint32(3)
	tbl := NewTableInstance(api.RefTypeFuncref, 1, &max)

	prev, ok := tbl.Grow(2, api.RefNull)
	require.True(t, ok)
	require.Equal(t, uint32(1), prev)
	require.Equal(t, uint32(3), tbl.Size())

	_, ok = tbl.Grow(1, api.RefNull)
	require.False(t, ok)
	require.Equal(t, uint32(3), tbl.Size())
}
