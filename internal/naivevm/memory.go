package naivevm

import (
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
	"github.com/tinywasm-go/tinywasm/internal/wazeroir"
)

func widthOf(t wazeroir.NumType, kind wazeroir.OperationKind) uint32 {
	switch kind {
	case wazeroir.OperationKindLoad8, wazeroir.OperationKindStore8:
		return 1
	case wazeroir.OperationKindLoad16, wazeroir.OperationKindStore16:
		return 2
	case wazeroir.OperationKindLoad32, wazeroir.OperationKindStore32:
		return 4
	default:
		if t == wazeroir.NumTypeI64 || t == wazeroir.NumTypeF64 {
			return 8
		}
		return 4
	}
}

func loadMem(mem *wasm.MemoryInstance, op *wazeroir.Operation, addr uint32) (uint64, error) {
	t := wazeroir.NumType(op.B1)
	width := widthOf(t, op.Kind)
	bytes, ok := mem.Read(addr, width)
	if !ok {
		return 0, wasmerrors.NewBoundsTrap(wasmerrors.TrapMemoryOutOfBounds, addr, width, uint32(len(mem.Buffer)))
	}
	var raw uint64
	for i := uint32(0); i < width; i++ {
		raw |= uint64(bytes[i]) << (8 * i)
	}
	narrow := op.Kind == wazeroir.OperationKindLoad8 || op.Kind == wazeroir.OperationKindLoad16 || op.Kind == wazeroir.OperationKindLoad32
	if !narrow || op.B2 != byte(wazeroir.Signed) {
		return raw, nil
	}
	// sign-extend the narrow loaded width up to the destination NumType.
	shift := 64 - width*8
	v := uint64(int64(raw<<shift) >> shift)
	if t != wazeroir.NumTypeI64 {
		v = uint64(uint32(v))
	}
	return v, nil
}

func storeMem(mem *wasm.MemoryInstance, op *wazeroir.Operation, addr uint32, val uint64) error {
	t := wazeroir.NumType(op.B1)
	width := widthOf(t, op.Kind)
	buf := make([]byte, width)
	for i := uint32(0); i < width; i++ {
		buf[i] = byte(val >> (8 * i))
	}
	if !mem.Write(addr, buf) {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapMemoryOutOfBounds, addr, width, uint32(len(mem.Buffer)))
	}
	return nil
}
