package wasm

import (
	"testing"

	"github.com/tinywasm-go/tinywasm/internal/testing/require"
)

func TestNewMemoryInstance(t *testing.T) {
	m := NewMemoryInstance(1, nil)
	require.Equal(t, uint32(1), m.PageCount())
	require.Equal(t, MemoryPageSize, len(m.Buffer))
}

func TestNewMemoryInstanceWithCapacity(t *testing.T) {
	max := uint32(4)
	m := NewMemoryInstanceWithCapacity(1, &max, 4)
	require.Equal(t, uint32(1), m.PageCount())
	require.Equal(t, MemoryPageSize, len(m.Buffer))
	require.Equal(t, 4*MemoryPageSize, cap(m.Buffer))
}

func TestMemoryInstance_Grow(t *testing.T) {
	tests := []struct {
		name          string
		min           uint32
		max           *uint32
		delta         uint32
		expectGrew    bool
		expectPrev    uint32
		expectPageCnt uint32
	}{
		{name: "no max, grows freely", min: 1, max: nil, delta: 3, expectGrew: true, expectPrev: 1, expectPageCnt: 4},
		{name: "within max", min: 1, max: u32p(2), delta: 1, expectGrew: true, expectPrev: 1, expectPageCnt: 2},
		{name: "exceeds max", min: 1, max: u32p(1), delta: 1, expectGrew: false, expectPrev: 1, expectPageCnt: 1},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m := NewMemoryInstance(tc.min, tc.max)
			prev, ok := m.Grow(tc.delta)
			require.Equal(t, tc.expectGrew, ok)
			require.Equal(t, tc.expectPrev, prev)
			require.Equal(t, tc.expectPageCnt, m.PageCount())
		})
	}
}

func TestMemoryInstance_ReadWrite(t *testing.T) {
	m := NewMemoryInstance(1, nil)

	require.True(t, m.Write(0, []byte{1, 2, 3, 4}))
	b, ok := m.Read(0, 4)
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3, 4}, b)

	_, ok = m.Read(MemoryPageSize-3, 4)
	require.False(t, ok)

	require.True(t, m.WriteUint32Le(8, 0xdeadbeef))
	v, ok := m.ReadUint32Le(8)
	require.True(t, ok)
	require.Equal(t, uint32(0xdeadbeef), v)

	require.True(t, m.WriteUint64Le(16, 0x0102030405060708))
	v64, ok := m.ReadUint64Le(16)
	require.True(t, ok)
	require.Equal(t, uint64(0x0102030405060708), v64)
}

func TestMemoryInstance_InBoundsRange(t *testing.T) {
	m := NewMemoryInstance(1, nil)
	require.True(t, m.InBoundsRange(0, MemoryPageSize))
	require.False(t, m.InBoundsRange(1, MemoryPageSize))
	require.True(t, m.InBoundsRange(MemoryPageSize, 0))
}

func u32p(v uint32) *uint32 { return &v }
