package interpreter

import (
	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
	"github.com/tinywasm-go/tinywasm/internal/wazeroir"
)

func isMemoryKind(k wazeroir.OperationKind) bool {
	switch k {
	case wazeroir.OperationKindLoad, wazeroir.OperationKindLoad8, wazeroir.OperationKindLoad16, wazeroir.OperationKindLoad32,
		wazeroir.OperationKindStore, wazeroir.OperationKindStore8, wazeroir.OperationKindStore16, wazeroir.OperationKindStore32,
		wazeroir.OperationKindMemorySize, wazeroir.OperationKindMemoryGrow,
		wazeroir.OperationKindMemoryCopy, wazeroir.OperationKindMemoryFill,
		wazeroir.OperationKindMemoryInit, wazeroir.OperationKindDataDrop:
		return true
	}
	return false
}

// effectiveAddr adds the instruction's static offset to the popped
// dynamic address, trapping on the 32-bit overflow Wasm defines as an
// out-of-bounds access rather than wrapping.
func effectiveAddr(dynamic, static uint32) (uint32, bool) {
	eff := uint64(dynamic) + uint64(static)
	if eff > 0xffffffff {
		return 0, false
	}
	return uint32(eff), true
}

func (m *machine) execMemory(f *frame, op *wazeroir.Operation) error {
	mem := f.fn.Module.Memory
	switch op.Kind {
	case wazeroir.OperationKindLoad:
		return m.load(mem, op, widthOf(wazeroir.NumType(op.B1)), false)
	case wazeroir.OperationKindLoad8:
		return m.load(mem, op, 1, wazeroir.Signedness(op.B2) == wazeroir.Signed)
	case wazeroir.OperationKindLoad16:
		return m.load(mem, op, 2, wazeroir.Signedness(op.B2) == wazeroir.Signed)
	case wazeroir.OperationKindLoad32:
		return m.load(mem, op, 4, wazeroir.Signedness(op.B2) == wazeroir.Signed)

	case wazeroir.OperationKindStore:
		return m.store(mem, op, widthOf(wazeroir.NumType(op.B1)))
	case wazeroir.OperationKindStore8:
		return m.store(mem, op, 1)
	case wazeroir.OperationKindStore16:
		return m.store(mem, op, 2)
	case wazeroir.OperationKindStore32:
		return m.store(mem, op, 4)

	case wazeroir.OperationKindMemorySize:
		m.push(uint64(mem.PageCount()))
	case wazeroir.OperationKindMemoryGrow:
		delta := api.DecodeU32(m.pop())
		prev, ok := mem.Grow(delta)
		if !ok {
			m.push(uint64(api.EncodeI32(-1)))
		} else {
			m.push(uint64(prev))
		}

	case wazeroir.OperationKindMemoryCopy:
		n, src, dst := api.DecodeU32(m.pop()), api.DecodeU32(m.pop()), api.DecodeU32(m.pop())
		return memCopy(mem, dst, src, n)
	case wazeroir.OperationKindMemoryFill:
		n, val, dst := api.DecodeU32(m.pop()), byte(m.pop()), api.DecodeU32(m.pop())
		return memFill(mem, dst, val, n)
	case wazeroir.OperationKindMemoryInit:
		n, src, dst := api.DecodeU32(m.pop()), api.DecodeU32(m.pop()), api.DecodeU32(m.pop())
		return memInit(mem, f.fn.Module.Data[op.U1], dst, src, n)
	case wazeroir.OperationKindDataDrop:
		f.fn.Module.Data[op.U1].Dropped = true
		f.fn.Module.Data[op.U1].Bytes = nil
	}
	return nil
}

func widthOf(t wazeroir.NumType) uint32 {
	switch t {
	case wazeroir.NumTypeI32, wazeroir.NumTypeF32:
		return 4
	default:
		return 8
	}
}

func (m *machine) load(mem *wasm.MemoryInstance, op *wazeroir.Operation, width uint32, signed bool) error {
	addr := api.DecodeU32(m.pop())
	eff, ok := effectiveAddr(addr, op.Mem.Offset)
	if !ok {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapMemoryOutOfBounds, addr, width, mem.PageCount()*wasm.MemoryPageSize)
	}
	b, ok := mem.Read(eff, width)
	if !ok {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapMemoryOutOfBounds, eff, width, uint32(len(mem.Buffer)))
	}
	var raw uint64
	for i := uint32(0); i < width; i++ {
		raw |= uint64(b[i]) << (8 * i)
	}
	if op.Kind == wazeroir.OperationKindLoad {
		m.push(raw)
		return nil
	}
	// narrow load: sign- or zero-extend to the destination int width.
	destI64 := wazeroir.NumType(op.B1) == wazeroir.NumTypeI64
	bits := width * 8
	if !signed {
		m.push(raw)
		return nil
	}
	shift := 64 - bits
	ext := uint64(int64(raw<<shift) >> shift)
	if !destI64 {
		ext = uint64(uint32(ext))
	}
	m.push(ext)
	return nil
}

func (m *machine) store(mem *wasm.MemoryInstance, op *wazeroir.Operation, width uint32) error {
	raw := m.pop()
	addr := api.DecodeU32(m.pop())
	eff, ok := effectiveAddr(addr, op.Mem.Offset)
	if !ok {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapMemoryOutOfBounds, addr, width, mem.PageCount()*wasm.MemoryPageSize)
	}
	b := make([]byte, width)
	for i := uint32(0); i < width; i++ {
		b[i] = byte(raw >> (8 * i))
	}
	if !mem.Write(eff, b) {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapMemoryOutOfBounds, eff, width, uint32(len(mem.Buffer)))
	}
	return nil
}

// memCopy, memFill and memInit check bounds for the whole run before
// writing anything, so a trap never leaves a partial write behind.
func memCopy(mem *wasm.MemoryInstance, dst, src, n uint32) error {
	if !mem.InBoundsRange(dst, n) || !mem.InBoundsRange(src, n) {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapMemoryOutOfBounds, dst, n, uint32(len(mem.Buffer)))
	}
	copy(mem.Buffer[dst:dst+n], mem.Buffer[src:src+n])
	return nil
}

func memFill(mem *wasm.MemoryInstance, dst uint32, val byte, n uint32) error {
	if !mem.InBoundsRange(dst, n) {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapMemoryOutOfBounds, dst, n, uint32(len(mem.Buffer)))
	}
	region := mem.Buffer[dst : dst+n]
	for i := range region {
		region[i] = val
	}
	return nil
}

func memInit(mem *wasm.MemoryInstance, data *wasm.DataSegmentInstance, dst, src, n uint32) error {
	if !mem.InBoundsRange(dst, n) || uint64(src)+uint64(n) > uint64(len(data.Bytes)) {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapMemoryOutOfBounds, dst, n, uint32(len(mem.Buffer)))
	}
	copy(mem.Buffer[dst:dst+n], data.Bytes[src:src+n])
	return nil
}
