package wasm

const MemoryPageSize = 65536

// MemoryInstance is a store-owned linear memory: a byte slice grown by
// whole 64KiB pages up to an optional maximum. Every access goes through
// Read/Write/ReadByte/etc. so the interpreter never indexes Buffer directly
// outside a bounds check.
type MemoryInstance struct {
	Buffer []byte
	Max    *uint32 // page count ceiling; nil means bounded only by MaxMemoryPages
}

// MaxMemoryPages is the hard ceiling imposed regardless of a module's own
// declared maximum, matching the 32-bit address space MVP memories live in.
const MaxMemoryPages = 65536

func NewMemoryInstance(min uint32, max *uint32) *MemoryInstance {
	return NewMemoryInstanceWithCapacity(min, max, min)
}

// NewMemoryInstanceWithCapacity pre-allocates capacityPages worth of
// backing storage while keeping the logical (bounds-checked) size at min
// pages, so a RuntimeConfig.MemorySizer that front-loads to the declared
// maximum avoids a reallocation on every later memory.grow.
func NewMemoryInstanceWithCapacity(min uint32, max *uint32, capacityPages uint32) *MemoryInstance {
	if capacityPages < min {
		capacityPages = min
	}
	buf := make([]byte, uint64(min)*MemoryPageSize, uint64(capacityPages)*MemoryPageSize)
	return &MemoryInstance{Buffer: buf, Max: max}
}

func (m *MemoryInstance) PageCount() uint32 { return uint32(len(m.Buffer) / MemoryPageSize) }

// Size satisfies api.Memory, which exposes the page count under this name.
func (m *MemoryInstance) Size() uint32 { return m.PageCount() }

// Grow adds delta pages if doing so stays within Max (or MaxMemoryPages
// when Max is nil), returning the previous page count and whether it grew.
func (m *MemoryInstance) Grow(delta uint32) (previous uint32, ok bool) {
	previous = m.PageCount()
	next := uint64(previous) + uint64(delta)
	ceiling := uint64(MaxMemoryPages)
	if m.Max != nil && uint64(*m.Max) < ceiling {
		ceiling = uint64(*m.Max)
	}
	if next > ceiling {
		return previous, false
	}
	m.Buffer = append(m.Buffer, make([]byte, uint64(delta)*MemoryPageSize)...)
	return previous, true
}

// InBoundsRange reports whether [offset, offset+length) lies within
// Buffer, for callers that need to bounds-check a whole bulk operation
// before performing any part of it.
func (m *MemoryInstance) InBoundsRange(offset, length uint32) bool {
	return m.inBounds(uint64(offset), uint64(length))
}

// inBounds reports whether [offset, offset+length) lies within Buffer
// without overflowing the 32-bit address space.
func (m *MemoryInstance) inBounds(offset, length uint64) bool {
	if length == 0 {
		return offset <= uint64(len(m.Buffer))
	}
	end := offset + length
	return end >= offset && end <= uint64(len(m.Buffer))
}

func (m *MemoryInstance) Read(offset, byteCount uint32) ([]byte, bool) {
	if !m.inBounds(uint64(offset), uint64(byteCount)) {
		return nil, false
	}
	return m.Buffer[offset : offset+byteCount], true
}

func (m *MemoryInstance) Write(offset uint32, v []byte) bool {
	if !m.inBounds(uint64(offset), uint64(len(v))) {
		return false
	}
	copy(m.Buffer[offset:], v)
	return true
}

func (m *MemoryInstance) ReadByte(offset uint32) (byte, bool) {
	if !m.inBounds(uint64(offset), 1) {
		return 0, false
	}
	return m.Buffer[offset], true
}

func (m *MemoryInstance) WriteByte(offset uint32, v byte) bool {
	if !m.inBounds(uint64(offset), 1) {
		return false
	}
	m.Buffer[offset] = v
	return true
}

func (m *MemoryInstance) ReadUint32Le(offset uint32) (uint32, bool) {
	if !m.inBounds(uint64(offset), 4) {
		return 0, false
	}
	b := m.Buffer[offset : offset+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, true
}

func (m *MemoryInstance) WriteUint32Le(offset uint32, v uint32) bool {
	if !m.inBounds(uint64(offset), 4) {
		return false
	}
	b := m.Buffer[offset : offset+4]
	b[0], b[1], b[2], b[3] = byte(v), byte(v>>8), byte(v>>16), byte(v>>24)
	return true
}

func (m *MemoryInstance) ReadUint64Le(offset uint32) (uint64, bool) {
	lo, ok := m.ReadUint32Le(offset)
	if !ok {
		return 0, false
	}
	hi, _ := m.ReadUint32Le(offset + 4)
	return uint64(lo) | uint64(hi)<<32, true
}

func (m *MemoryInstance) WriteUint64Le(offset uint32, v uint64) bool {
	if !m.inBounds(uint64(offset), 8) {
		return false
	}
	m.WriteUint32Le(offset, uint32(v))
	m.WriteUint32Le(offset+4, uint32(v>>32))
	return true
}
