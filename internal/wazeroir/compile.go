package wazeroir

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/tinywasm-go/tinywasm/api"
	"github.com/tinywasm-go/tinywasm/internal/leb128"
)

// pendingBranch is a branch instruction emitted before its destination is
// known; it is patched once the destination's Compile-time position is
// reached (at a matching End, or at Else for the if-false jump).
type pendingBranch struct {
	opIndex     int
	targetIndex int // -1 patches Operation.U1/U2/U3 directly (Br/BrIf); >=0 patches Targets[targetIndex] (BrTable)
}

type controlFrame struct {
	sig         FunctionType
	isLoop      bool
	isIf        bool
	base        int // stack height (above locals) when this frame's body began executing
	startOpIdx  int // loop header / if-false jump site, per kind
	elseJumpIdx int // index of the if-false jump Operation, -1 once patched or absent
	pending     []pendingBranch
}

// Compile lowers a raw Wasm function body into a flat, pre-resolved
// Operation sequence. types is the module's type section, used to
// dereference block types and call_indirect/call targets; sig is this
// function's own type; locals is params followed by declared locals (the
// full local slot layout, params at the front).
func Compile(sig FunctionType, locals []api.ValueType, body []byte, types []FunctionType, funcTypeIdx []uint32) ([]Operation, error) {
	c := &compiler{
		types:       types,
		funcTypeIdx: funcTypeIdx,
		locals:      locals,
		r:           bytes.NewReader(body),
	}
	c.controlStack = append(c.controlStack, &controlFrame{sig: sig, base: 0})
	if err := c.compile(); err != nil {
		return nil, err
	}
	return c.out, nil
}

type compiler struct {
	types       []FunctionType
	funcTypeIdx []uint32 // function address -> type index, for `call`
	locals      []api.ValueType
	r           *bytes.Reader

	out          []Operation
	stackHeight  int
	controlStack []*controlFrame
}

func (c *compiler) emit(op Operation) int {
	c.out = append(c.out, op)
	return len(c.out) - 1
}

func (c *compiler) readByte() (byte, error) { return c.r.ReadByte() }

func (c *compiler) readU32() (uint32, error) {
	v, _, err := leb128.DecodeUint32(c.r)
	return v, err
}

func (c *compiler) readI32() (int32, error) {
	v, _, err := leb128.DecodeInt32(c.r)
	return v, err
}

func (c *compiler) readI64() (int64, error) {
	v, _, err := leb128.DecodeInt64(c.r)
	return v, err
}

func (c *compiler) readF32() (float32, error) {
	var b [4]byte
	if _, err := io.ReadFull(c.r, b[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24), nil
}

func (c *compiler) readF64() (float64, error) {
	var b [8]byte
	if _, err := io.ReadFull(c.r, b[:]); err != nil {
		return 0, err
	}
	lo := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24
	hi := uint64(b[4]) | uint64(b[5])<<8 | uint64(b[6])<<16 | uint64(b[7])<<24
	return math.Float64frombits(lo | hi<<32), nil
}

// readMemArg consumes the (align, offset) memory immediate; alignment is
// a hint only and is discarded.
func (c *compiler) readMemArg() (MemArg, error) {
	if _, err := c.readU32(); err != nil { // align
		return MemArg{}, err
	}
	off, err := c.readU32()
	return MemArg{Offset: off}, err
}

// readBlockType decodes the LEB128-signed-33 encoded block type: a
// negative single-byte valtype, the empty type (-0x40), or a non-negative
// index into the module's type section.
func (c *compiler) readBlockType() (FunctionType, error) {
	raw, _, err := leb128.DecodeInt33AsInt64(c.r)
	if err != nil {
		return FunctionType{}, err
	}
	switch raw {
	case -64: // 0x40 empty
		return FunctionType{}, nil
	case -1:
		return FunctionType{Results: []api.ValueType{api.ValueTypeI32}}, nil
	case -2:
		return FunctionType{Results: []api.ValueType{api.ValueTypeI64}}, nil
	case -3:
		return FunctionType{Results: []api.ValueType{api.ValueTypeF32}}, nil
	case -4:
		return FunctionType{Results: []api.ValueType{api.ValueTypeF64}}, nil
	case -5:
		return FunctionType{Results: []api.ValueType{api.ValueTypeV128}}, nil
	case -16:
		return FunctionType{Results: []api.ValueType{api.ValueTypeFuncref}}, nil
	case -17:
		return FunctionType{Results: []api.ValueType{api.ValueTypeExternref}}, nil
	default:
		idx := int(raw)
		if idx < 0 || idx >= len(c.types) {
			return FunctionType{}, fmt.Errorf("block type index %d out of range", idx)
		}
		return c.types[idx], nil
	}
}

func (c *compiler) pop(n int)  { c.stackHeight -= n }
func (c *compiler) push(n int) { c.stackHeight += n }

func (c *compiler) top() *controlFrame { return c.controlStack[len(c.controlStack)-1] }

// resolveLabel returns the control frame L levels up from the innermost
// (0 = innermost), along with the keep/drop needed to branch to it right
// now, given the current compile-time stack height.
func (c *compiler) resolveLabel(l uint32) (*controlFrame, uint32, uint32, error) {
	if int(l) >= len(c.controlStack) {
		return nil, 0, 0, fmt.Errorf("branch depth %d exceeds control stack", l)
	}
	f := c.controlStack[len(c.controlStack)-1-int(l)]
	var keep int
	if f.isLoop {
		keep = len(f.sig.Params)
	} else {
		keep = len(f.sig.Results)
	}
	drop := c.stackHeight - f.base - keep
	if drop < 0 {
		drop = 0
	}
	return f, uint32(keep), uint32(drop), nil
}

func (c *compiler) compile() error {
	for {
		b, err := c.readByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := c.compileOne(opcode(b)); err != nil {
			return err
		}
		if len(c.controlStack) == 0 {
			return nil // matched the function's own End.
		}
	}
}

func binOp(kind OperationKind, t NumType) Operation { return Operation{Kind: kind, B1: byte(t)} }
func unOp(kind OperationKind, t NumType) Operation   { return Operation{Kind: kind, B1: byte(t)} }
