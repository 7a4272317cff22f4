package wasm

import (
	"context"
	"testing"

	"github.com/tinywasm-go/tinywasm/internal/testing/require"
)

func TestStore_RegisterAndLookup(t *testing.T) {
	s := NewStore()
	require.Nil(t, s.Module("a"))

	m := &ModuleInstance{ModuleName: "a"}
	s.Register("a", m)
	require.Equal(t, m, s.Module("a"))
}

func TestStore_RegisterAnonymous(t *testing.T) {
	s := NewStore()
	s.Register("", &ModuleInstance{})
	require.Nil(t, s.Module(""))
}

func TestStore_RegisterReplaces(t *testing.T) {
	s := NewStore()
	first := &ModuleInstance{ModuleName: "a"}
	second := &ModuleInstance{ModuleName: "a"}
	s.Register("a", first)
	s.Register("a", second)
	require.Equal(t, second, s.Module("a"))
}

func TestStore_Close(t *testing.T) {
	s := NewStore()
	s.Register("a", &ModuleInstance{ModuleName: "a"})
	s.Register("b", &ModuleInstance{ModuleName: "b"})

	require.NoError(t, s.Close(context.Background()))
	require.Nil(t, s.Module("a"))
	require.Nil(t, s.Module("b"))
}
