package interpreter

import (
	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
	"github.com/tinywasm-go/tinywasm/internal/wazeroir"
)

func isTableKind(k wazeroir.OperationKind) bool {
	switch k {
	case wazeroir.OperationKindTableGet, wazeroir.OperationKindTableSet, wazeroir.OperationKindTableSize,
		wazeroir.OperationKindTableGrow, wazeroir.OperationKindTableFill, wazeroir.OperationKindTableCopy,
		wazeroir.OperationKindTableInit, wazeroir.OperationKindElemDrop:
		return true
	}
	return false
}

func (m *machine) execTable(f *frame, op *wazeroir.Operation) error {
	mod := f.fn.Module
	switch op.Kind {
	case wazeroir.OperationKindTableGet:
		t := mod.Tables[op.U1]
		i := api.DecodeU32(m.pop())
		v, ok := t.Get(i)
		if !ok {
			return wasmerrors.NewBoundsTrap(wasmerrors.TrapTableOutOfBounds, i, 1, t.Size())
		}
		m.push(v)

	case wazeroir.OperationKindTableSet:
		t := mod.Tables[op.U1]
		v := m.pop()
		i := api.DecodeU32(m.pop())
		if !t.Set(i, v) {
			return wasmerrors.NewBoundsTrap(wasmerrors.TrapTableOutOfBounds, i, 1, t.Size())
		}

	case wazeroir.OperationKindTableSize:
		m.push(uint64(mod.Tables[op.U1].Size()))

	case wazeroir.OperationKindTableGrow:
		t := mod.Tables[op.U1]
		delta := api.DecodeU32(m.pop())
		init := m.pop()
		prev, ok := t.Grow(delta, init)
		if !ok {
			m.push(uint64(api.EncodeI32(-1)))
		} else {
			m.push(uint64(prev))
		}

	case wazeroir.OperationKindTableFill:
		t := mod.Tables[op.U1]
		n := api.DecodeU32(m.pop())
		v := m.pop()
		i := api.DecodeU32(m.pop())
		return tableFill(t, i, v, n)

	case wazeroir.OperationKindTableCopy:
		dstT, srcT := mod.Tables[op.U1], mod.Tables[op.U2]
		n := api.DecodeU32(m.pop())
		src := api.DecodeU32(m.pop())
		dst := api.DecodeU32(m.pop())
		return tableCopy(dstT, srcT, dst, src, n)

	case wazeroir.OperationKindTableInit:
		elem := mod.Elements[op.U1]
		t := mod.Tables[op.U2]
		n := api.DecodeU32(m.pop())
		src := api.DecodeU32(m.pop())
		dst := api.DecodeU32(m.pop())
		return tableInit(t, elem, dst, src, n)

	case wazeroir.OperationKindElemDrop:
		mod.Elements[op.U1].Dropped = true
		mod.Elements[op.U1].Refs = nil
	}
	return nil
}

func tableFill(t *wasm.TableInstance, i uint32, v uint64, n uint32) error {
	if uint64(i)+uint64(n) > uint64(t.Size()) {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapTableOutOfBounds, i, n, t.Size())
	}
	for k := uint32(0); k < n; k++ {
		t.Refs[i+k] = v
	}
	return nil
}

func tableCopy(dst, src *wasm.TableInstance, d, s, n uint32) error {
	if uint64(d)+uint64(n) > uint64(dst.Size()) || uint64(s)+uint64(n) > uint64(src.Size()) {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapTableOutOfBounds, d, n, dst.Size())
	}
	copy(dst.Refs[d:d+n], src.Refs[s:s+n])
	return nil
}

func tableInit(t *wasm.TableInstance, elem *wasm.ElementSegmentInstance, d, s, n uint32) error {
	if uint64(d)+uint64(n) > uint64(t.Size()) || uint64(s)+uint64(n) > uint64(len(elem.Refs)) {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapTableOutOfBounds, d, n, t.Size())
	}
	copy(t.Refs[d:d+n], elem.Refs[s:s+n])
	return nil
}
