// Package binary decodes a raw .wasm module into the engine's input
// contract, internal/wasm.Module. It is not a validator: spec.md §1 puts
// the binary parser/validator's correctness checking out of scope, so this
// package trusts its input the way §6 mandates — a malformed module
// produces a decode error or garbage, never a crash recovered from, but it
// never re-derives the checks a real Wasm validator performs (type
// checking of instruction sequences, stack-polymorphism rules, and so
// on). It exists so the CLI and the conformance harness have something to
// feed the engine with.
package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/tinywasm-go/tinywasm/api"
	"github.com/tinywasm-go/tinywasm/internal/leb128"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
)

const (
	magic   = 0x6d736100 // "\0asm"
	version = uint32(1)
)

type sectionID byte

const (
	sectionCustom sectionID = iota
	sectionType
	sectionImport
	sectionFunction
	sectionTable
	sectionMemory
	sectionGlobal
	sectionExport
	sectionStart
	sectionElement
	sectionCode
	sectionData
)

// DecodeModule parses a complete .wasm binary, section by section, into a
// wasm.Module. Code section entries are kept as raw bytes per function;
// wazeroir.Compile runs on them later, at Instantiate time, not here.
func DecodeModule(r io.Reader) (*wasm.Module, error) {
	d := &decoder{r: bufReader(r)}
	if err := d.header(); err != nil {
		return nil, err
	}
	m := &wasm.Module{StartFunction: -1}

	var funcTypeIndices []wasm.Index
	var codeBodies [][]byte
	var codeLocals [][]api.ValueType
	var localTables []wasm.Table
	var localGlobals []wasm.Global

	for {
		id, err := d.r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		size, err := d.u32()
		if err != nil {
			return nil, err
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(d.r, body); err != nil {
			return nil, err
		}
		sd := &decoder{r: bufReader(bytes.NewReader(body))}

		switch sectionID(id) {
		case sectionType:
			if m.Types, err = sd.typeSection(); err != nil {
				return nil, fmt.Errorf("type section: %w", err)
			}
		case sectionImport:
			if m.Imports, err = sd.importSection(); err != nil {
				return nil, fmt.Errorf("import section: %w", err)
			}
		case sectionFunction:
			if funcTypeIndices, err = sd.functionSection(); err != nil {
				return nil, fmt.Errorf("function section: %w", err)
			}
		case sectionTable:
			if localTables, err = sd.tableSection(); err != nil {
				return nil, fmt.Errorf("table section: %w", err)
			}
		case sectionMemory:
			if m.Memory, err = sd.memorySection(); err != nil {
				return nil, fmt.Errorf("memory section: %w", err)
			}
		case sectionGlobal:
			if localGlobals, err = sd.globalSection(); err != nil {
				return nil, fmt.Errorf("global section: %w", err)
			}
		case sectionExport:
			if m.Exports, err = sd.exportSection(); err != nil {
				return nil, fmt.Errorf("export section: %w", err)
			}
		case sectionStart:
			idx, err := sd.u32()
			if err != nil {
				return nil, fmt.Errorf("start section: %w", err)
			}
			m.StartFunction = int32(idx)
		case sectionElement:
			if m.ElementSegments, err = sd.elementSection(); err != nil {
				return nil, fmt.Errorf("element section: %w", err)
			}
		case sectionCode:
			if codeBodies, codeLocals, err = sd.codeSection(); err != nil {
				return nil, fmt.Errorf("code section: %w", err)
			}
		case sectionData:
			if m.DataSegments, err = sd.dataSection(); err != nil {
				return nil, fmt.Errorf("data section: %w", err)
			}
		case sectionCustom:
			// Name section and others: not needed to execute; skipped.
		}
	}

	// Every kind with an import-placeholder convention (Functions, Tables,
	// Globals) gets its locally-declared entries appended after one
	// placeholder per import of that kind, matching the combined index
	// space internal/wasm.Module documents.
	for _, imp := range m.Imports {
		if imp.Type == api.ExternTypeFunc {
			m.Functions = append(m.Functions, wasm.Function{TypeIndex: imp.FuncTypeIndex, Name: imp.Name})
			m.FunctionTypeIndexes = append(m.FunctionTypeIndexes, imp.FuncTypeIndex)
		}
	}
	for i, typeIdx := range funcTypeIndices {
		m.Functions = append(m.Functions, wasm.Function{
			TypeIndex: typeIdx,
			Body:      codeBodies[i],
			Locals:    append(append([]api.ValueType(nil), m.Types[typeIdx].Params...), codeLocals[i]...),
		})
		m.FunctionTypeIndexes = append(m.FunctionTypeIndexes, typeIdx)
	}

	for _, imp := range m.Imports {
		if imp.Type == api.ExternTypeTable {
			m.Tables = append(m.Tables, imp.Table)
		}
	}
	m.Tables = append(m.Tables, localTables...)

	for _, imp := range m.Imports {
		if imp.Type == api.ExternTypeGlobal {
			m.Globals = append(m.Globals, imp.Global)
		}
	}
	m.Globals = append(m.Globals, localGlobals...)

	return m, nil
}

func bufReader(r io.Reader) *byteReader { return &byteReader{Reader: r} }

// byteReader adds ReadByte to an io.Reader that might not have it, which
// leb128's decoders require.
type byteReader struct{ io.Reader }

func (b *byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(b, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

type decoder struct{ r *byteReader }

func (d *decoder) header() error {
	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != magic {
		return fmt.Errorf("not a wasm module: bad magic")
	}
	if binary.LittleEndian.Uint32(buf[4:8]) != version {
		return fmt.Errorf("unsupported wasm version %d", binary.LittleEndian.Uint32(buf[4:8]))
	}
	return nil
}

func (d *decoder) u32() (uint32, error)   { v, _, err := leb128.DecodeUint32(d.r); return v, err }
func (d *decoder) i32() (int32, error)    { v, _, err := leb128.DecodeInt32(d.r); return v, err }
func (d *decoder) i64() (int64, error)    { v, _, err := leb128.DecodeInt64(d.r); return v, err }
func (d *decoder) byte() (byte, error)    { return d.r.ReadByte() }

func (d *decoder) name() (string, error) {
	n, err := d.u32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (d *decoder) valueType() (api.ValueType, error) {
	b, err := d.byte()
	return decodeValueType(b), err
}

func decodeValueType(b byte) api.ValueType {
	switch b {
	case 0x7f:
		return api.ValueTypeI32
	case 0x7e:
		return api.ValueTypeI64
	case 0x7d:
		return api.ValueTypeF32
	case 0x7c:
		return api.ValueTypeF64
	case 0x7b:
		return api.ValueTypeV128
	case 0x70:
		return api.ValueTypeFuncref
	case 0x6f:
		return api.ValueTypeExternref
	default:
		return api.ValueTypeI32
	}
}

func (d *decoder) funcType() (wasm.FunctionType, error) {
	form, err := d.byte()
	if err != nil || form != 0x60 {
		return wasm.FunctionType{}, fmt.Errorf("expected func type form 0x60, got %#x (err=%v)", form, err)
	}
	np, err := d.u32()
	if err != nil {
		return wasm.FunctionType{}, err
	}
	params := make([]api.ValueType, np)
	for i := range params {
		if params[i], err = d.valueType(); err != nil {
			return wasm.FunctionType{}, err
		}
	}
	nr, err := d.u32()
	if err != nil {
		return wasm.FunctionType{}, err
	}
	results := make([]api.ValueType, nr)
	for i := range results {
		if results[i], err = d.valueType(); err != nil {
			return wasm.FunctionType{}, err
		}
	}
	return wasm.FunctionType{Params: params, Results: results}, nil
}

func (d *decoder) limits() (wasm.Limits, error) {
	flag, err := d.byte()
	if err != nil {
		return wasm.Limits{}, err
	}
	min, err := d.u32()
	if err != nil {
		return wasm.Limits{}, err
	}
	l := wasm.Limits{Min: min}
	if flag == 1 {
		max, err := d.u32()
		if err != nil {
			return wasm.Limits{}, err
		}
		l.Max = &max
	}
	return l, nil
}

func (d *decoder) typeSection() ([]wasm.FunctionType, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.FunctionType, n)
	for i := range out {
		if out[i], err = d.funcType(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) importSection() ([]wasm.Import, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Import, n)
	for i := range out {
		mod, err := d.name()
		if err != nil {
			return nil, err
		}
		nm, err := d.name()
		if err != nil {
			return nil, err
		}
		kind, err := d.byte()
		if err != nil {
			return nil, err
		}
		imp := wasm.Import{Module: mod, Name: nm, Type: api.ExternType(kind)}
		switch api.ExternType(kind) {
		case api.ExternTypeFunc:
			if imp.FuncTypeIndex, err = d.u32(); err != nil {
				return nil, err
			}
		case api.ExternTypeTable:
			rt, err := d.byte()
			if err != nil {
				return nil, err
			}
			lim, err := d.limits()
			if err != nil {
				return nil, err
			}
			imp.Table = wasm.Table{Type: decodeValueType(rt), Limits: lim}
		case api.ExternTypeMemory:
			lim, err := d.limits()
			if err != nil {
				return nil, err
			}
			imp.Memory = wasm.Memory{Limits: lim}
		case api.ExternTypeGlobal:
			vt, err := d.valueType()
			if err != nil {
				return nil, err
			}
			mut, err := d.byte()
			if err != nil {
				return nil, err
			}
			imp.Global = wasm.Global{Type: vt, Mutable: mut == 1}
		}
		out[i] = imp
	}
	return out, nil
}

func (d *decoder) functionSection() ([]wasm.Index, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Index, n)
	for i := range out {
		if out[i], err = d.u32(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (d *decoder) tableSection() ([]wasm.Table, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Table, n)
	for i := range out {
		rt, err := d.byte()
		if err != nil {
			return nil, err
		}
		lim, err := d.limits()
		if err != nil {
			return nil, err
		}
		out[i] = wasm.Table{Type: decodeValueType(rt), Limits: lim}
	}
	return out, nil
}

func (d *decoder) memorySection() (*wasm.Memory, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	lim, err := d.limits()
	if err != nil {
		return nil, err
	}
	return &wasm.Memory{Limits: lim}, nil
}

// constExpr reads a constant initializer expression terminated by 0x0B
// (`end`): the only forms the MVP-plus-post-MVP constant-expression
// grammar permits are *.const, ref.null, ref.func and global.get of an
// already-initialized immutable global.
func (d *decoder) constExpr() (wasm.GlobalInit, error) {
	op, err := d.byte()
	if err != nil {
		return wasm.GlobalInit{}, err
	}
	var init wasm.GlobalInit
	switch op {
	case 0x41: // i32.const
		v, err := d.i32()
		if err != nil {
			return wasm.GlobalInit{}, err
		}
		init.Value = api.EncodeI32(v)
	case 0x42: // i64.const
		v, err := d.i64()
		if err != nil {
			return wasm.GlobalInit{}, err
		}
		init.Value = api.EncodeI64(v)
	case 0x43: // f32.const
		var buf [4]byte
		if _, err := io.ReadFull(d.r, buf[:]); err != nil {
			return wasm.GlobalInit{}, err
		}
		init.Value = api.EncodeF32(math.Float32frombits(binary.LittleEndian.Uint32(buf[:])))
	case 0x44: // f64.const
		var buf [8]byte
		if _, err := io.ReadFull(d.r, buf[:]); err != nil {
			return wasm.GlobalInit{}, err
		}
		init.Value = api.EncodeF64(math.Float64frombits(binary.LittleEndian.Uint64(buf[:])))
	case 0xd0: // ref.null
		if _, err := d.byte(); err != nil { // reftype, unused (null is the same word for both)
			return wasm.GlobalInit{}, err
		}
		init.Value = api.RefNull
	case 0xd2: // ref.func
		idx, err := d.u32()
		if err != nil {
			return wasm.GlobalInit{}, err
		}
		init.Value = uint64(idx)
	case 0x23: // global.get
		idx, err := d.u32()
		if err != nil {
			return wasm.GlobalInit{}, err
		}
		init.FromGlobal = &idx
	default:
		return wasm.GlobalInit{}, fmt.Errorf("unsupported constant expression opcode %#x", op)
	}
	end, err := d.byte()
	if err != nil {
		return wasm.GlobalInit{}, err
	}
	if end != 0x0b {
		return wasm.GlobalInit{}, fmt.Errorf("constant expression not terminated by end (got %#x)", end)
	}
	return init, nil
}

func (d *decoder) globalSection() ([]wasm.Global, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Global, n)
	for i := range out {
		vt, err := d.valueType()
		if err != nil {
			return nil, err
		}
		mut, err := d.byte()
		if err != nil {
			return nil, err
		}
		init, err := d.constExpr()
		if err != nil {
			return nil, err
		}
		out[i] = wasm.Global{Type: vt, Mutable: mut == 1, Init: init}
	}
	return out, nil
}

func (d *decoder) exportSection() ([]wasm.Export, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.Export, n)
	for i := range out {
		nm, err := d.name()
		if err != nil {
			return nil, err
		}
		kind, err := d.byte()
		if err != nil {
			return nil, err
		}
		idx, err := d.u32()
		if err != nil {
			return nil, err
		}
		out[i] = wasm.Export{Name: nm, Type: api.ExternType(kind), Index: idx}
	}
	return out, nil
}

func (d *decoder) elementSection() ([]wasm.ElementSegment, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.ElementSegment, n)
	for i := range out {
		flags, err := d.u32()
		if err != nil {
			return nil, err
		}
		seg := wasm.ElementSegment{Type: api.ValueTypeFuncref}
		switch flags {
		case 0: // active, table 0, expr offset, vec(funcidx)
			off, err := d.constExpr()
			if err != nil {
				return nil, err
			}
			seg.Mode = wasm.SegmentModeActive
			seg.Offset = uint32(off.Value)
			if seg.FuncIndices, err = d.funcIndexVec(); err != nil {
				return nil, err
			}
		case 1: // passive, vec(funcidx)
			seg.Mode = wasm.SegmentModePassive
			if _, err := d.byte(); err != nil { // elemkind, always 0x00 (funcref)
				return nil, err
			}
			if seg.FuncIndices, err = d.funcIndexVec(); err != nil {
				return nil, err
			}
		case 2: // active, explicit table, vec(funcidx)
			ti, err := d.u32()
			if err != nil {
				return nil, err
			}
			off, err := d.constExpr()
			if err != nil {
				return nil, err
			}
			seg.Mode = wasm.SegmentModeActive
			seg.TableIndex = ti
			seg.Offset = uint32(off.Value)
			if _, err := d.byte(); err != nil {
				return nil, err
			}
			if seg.FuncIndices, err = d.funcIndexVec(); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unsupported element segment flags %d", flags)
		}
		out[i] = seg
	}
	return out, nil
}

func (d *decoder) funcIndexVec() ([]*wasm.Index, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]*wasm.Index, n)
	for i := range out {
		idx, err := d.u32()
		if err != nil {
			return nil, err
		}
		v := idx
		out[i] = &v
	}
	return out, nil
}

func (d *decoder) codeSection() (bodies [][]byte, locals [][]api.ValueType, err error) {
	n, err := d.u32()
	if err != nil {
		return nil, nil, err
	}
	bodies = make([][]byte, n)
	locals = make([][]api.ValueType, n)
	for i := range bodies {
		size, err := d.u32()
		if err != nil {
			return nil, nil, err
		}
		raw := make([]byte, size)
		if _, err := io.ReadFull(d.r, raw); err != nil {
			return nil, nil, err
		}
		fd := &decoder{r: bufReader(bytes.NewReader(raw))}
		numLocalDecls, err := fd.u32()
		if err != nil {
			return nil, nil, err
		}
		var ls []api.ValueType
		for j := uint32(0); j < numLocalDecls; j++ {
			count, err := fd.u32()
			if err != nil {
				return nil, nil, err
			}
			vt, err := fd.valueType()
			if err != nil {
				return nil, nil, err
			}
			for k := uint32(0); k < count; k++ {
				ls = append(ls, vt)
			}
		}
		rest, err := io.ReadAll(fd.r)
		if err != nil {
			return nil, nil, err
		}
		bodies[i] = rest
		locals[i] = ls
	}
	return bodies, locals, nil
}

func (d *decoder) dataSection() ([]wasm.DataSegment, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	out := make([]wasm.DataSegment, n)
	for i := range out {
		flag, err := d.u32()
		if err != nil {
			return nil, err
		}
		seg := wasm.DataSegment{}
		switch flag {
		case 0:
			off, err := d.constExpr()
			if err != nil {
				return nil, err
			}
			seg.Mode = wasm.SegmentModeActive
			seg.Offset = uint32(off.Value)
		case 1:
			seg.Mode = wasm.SegmentModePassive
		case 2:
			if _, err := d.u32(); err != nil { // memory index, always 0 (single-memory MVP)
				return nil, err
			}
			off, err := d.constExpr()
			if err != nil {
				return nil, err
			}
			seg.Mode = wasm.SegmentModeActive
			seg.Offset = uint32(off.Value)
		default:
			return nil, fmt.Errorf("unsupported data segment flag %d", flag)
		}
		size, err := d.u32()
		if err != nil {
			return nil, err
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return nil, err
		}
		seg.Init = buf
		out[i] = seg
	}
	return out, nil
}
