package wazeroir

import "fmt"

// compileOne consumes one instruction (and any trailing immediates) from
// c.r, emits zero or more Operations, and updates c.stackHeight /
// c.controlStack accordingly.
func (c *compiler) compileOne(op opcode) error {
	switch op {
	case opUnreachable:
		c.emit(Operation{Kind: OperationKindUnreachable})
	case opNop:
		// no-op: not emitted, it has no observable effect.

	case opBlock, opLoop, opIf:
		sig, err := c.readBlockType()
		if err != nil {
			return err
		}
		frame := &controlFrame{sig: sig, isLoop: op == opLoop, isIf: op == opIf, elseJumpIdx: -1}
		if op == opIf {
			c.pop(1) // condition
		}
		frame.base = c.stackHeight
		if op == opLoop {
			frame.startOpIdx = len(c.out)
		}
		if op == opIf {
			idx := c.emit(Operation{Kind: OperationKindBrIf, B3: 1}) // B3=1: branch-if-zero
			frame.elseJumpIdx = idx
		}
		c.controlStack = append(c.controlStack, frame)

	case opElse:
		f := c.top()
		// Skip over the else body when the then-arm fell through.
		end := c.emit(Operation{Kind: OperationKindBr})
		c.registerEndPatch(f, end, -1)
		// The pending if-false jump now targets right here.
		c.out[f.elseJumpIdx].U1 = uint64(len(c.out))
		c.out[f.elseJumpIdx].U2 = 0
		c.out[f.elseJumpIdx].U3 = 0
		f.elseJumpIdx = -1
		c.stackHeight = f.base

	case opEnd:
		f := c.controlStack[len(c.controlStack)-1]
		if f.isIf && f.elseJumpIdx >= 0 {
			c.out[f.elseJumpIdx].U1 = uint64(len(c.out))
			c.out[f.elseJumpIdx].U2 = 0
			c.out[f.elseJumpIdx].U3 = 0
		}
		for _, p := range f.pending {
			if p.targetIndex < 0 {
				c.out[p.opIndex].U1 = uint64(len(c.out))
			} else {
				c.out[p.opIndex].Targets[p.targetIndex].OpIndex = uint64(len(c.out))
			}
		}
		c.controlStack = c.controlStack[:len(c.controlStack)-1]
		c.stackHeight = f.base + len(f.sig.Results)

	case opBr, opBrIf:
		l, err := c.readU32()
		if err != nil {
			return err
		}
		if op == opBrIf {
			c.pop(1)
		}
		target, keep, drop, err := c.resolveLabel(l)
		if err != nil {
			return err
		}
		kind := OperationKindBr
		if op == opBrIf {
			kind = OperationKindBrIf
		}
		idx := c.emit(Operation{Kind: kind, U2: uint64(keep), U3: uint64(drop)})
		c.registerBranch(target, idx, -1)
		if op == opBr {
			c.stackHeight = c.top().base // unreachable after an unconditional branch; reset for the rest of this frame.
		}

	case opBrTable:
		count, err := c.readU32()
		if err != nil {
			return err
		}
		targets := make([]BrTarget, 0, count+1)
		refs := make([]*controlFrame, 0, count+1)
		for i := uint32(0); i < count; i++ {
			l, err := c.readU32()
			if err != nil {
				return err
			}
			f, keep, drop, err := c.resolveLabel(l)
			if err != nil {
				return err
			}
			targets = append(targets, BrTarget{Keep: keep, Drop: drop})
			refs = append(refs, f)
		}
		defIdx, err := c.readU32()
		if err != nil {
			return err
		}
		defFrame, keep, drop, err := c.resolveLabel(defIdx)
		if err != nil {
			return err
		}
		targets = append(targets, BrTarget{Keep: keep, Drop: drop})
		refs = append(refs, defFrame)
		c.pop(1) // index operand
		idx := c.emit(Operation{Kind: OperationKindBrTable, Targets: targets})
		for i, f := range refs {
			c.registerBranch(f, idx, i)
		}
		c.stackHeight = c.top().base

	case opReturn:
		keep := len(c.controlStack[0].sig.Results)
		drop := c.stackHeight - keep
		if drop < 0 {
			drop = 0
		}
		c.emit(Operation{Kind: OperationKindReturn, U2: uint64(keep), U3: uint64(drop)})
		c.stackHeight = c.top().base

	case opCall:
		idx, err := c.readU32()
		if err != nil {
			return err
		}
		if int(idx) >= len(c.funcTypeIdx) {
			return fmt.Errorf("call target %d out of range", idx)
		}
		ft := c.types[c.funcTypeIdx[idx]]
		c.pop(len(ft.Params))
		c.emit(Operation{Kind: OperationKindCall, U1: uint64(idx)})
		c.push(len(ft.Results))

	case opCallIndir:
		typeIdx, err := c.readU32()
		if err != nil {
			return err
		}
		tableIdx, err := c.readU32()
		if err != nil {
			return err
		}
		if int(typeIdx) >= len(c.types) {
			return fmt.Errorf("call_indirect type %d out of range", typeIdx)
		}
		ft := c.types[typeIdx]
		c.pop(len(ft.Params) + 1) // + table index operand
		c.emit(Operation{Kind: OperationKindCallIndirect, U1: uint64(typeIdx), U2: uint64(tableIdx)})
		c.push(len(ft.Results))

	case opDrop:
		c.pop(1)
		c.emit(Operation{Kind: OperationKindDrop})
	case opSelect:
		c.pop(3)
		c.push(1)
		c.emit(Operation{Kind: OperationKindSelect})

	case opLocalGet:
		i, err := c.readU32()
		if err != nil {
			return err
		}
		c.push(1)
		c.emit(Operation{Kind: OperationKindLocalGet, U1: uint64(i)})
	case opLocalSet:
		i, err := c.readU32()
		if err != nil {
			return err
		}
		c.pop(1)
		c.emit(Operation{Kind: OperationKindLocalSet, U1: uint64(i)})
	case opLocalTee:
		i, err := c.readU32()
		if err != nil {
			return err
		}
		c.emit(Operation{Kind: OperationKindLocalTee, U1: uint64(i)})
	case opGlobalGet:
		i, err := c.readU32()
		if err != nil {
			return err
		}
		c.push(1)
		c.emit(Operation{Kind: OperationKindGlobalGet, U1: uint64(i)})
	case opGlobalSet:
		i, err := c.readU32()
		if err != nil {
			return err
		}
		c.pop(1)
		c.emit(Operation{Kind: OperationKindGlobalSet, U1: uint64(i)})

	case opTableGet:
		i, err := c.readU32()
		if err != nil {
			return err
		}
		c.emit(Operation{Kind: OperationKindTableGet, U1: uint64(i)})
	case opTableSet:
		i, err := c.readU32()
		if err != nil {
			return err
		}
		c.pop(2)
		c.emit(Operation{Kind: OperationKindTableSet, U1: uint64(i)})

	case opI32Load, opI64Load, opF32Load, opF64Load,
		opI32Load8S, opI32Load8U, opI32Load16S, opI32Load16U,
		opI64Load8S, opI64Load8U, opI64Load16S, opI64Load16U, opI64Load32S, opI64Load32U:
		return c.compileLoad(op)

	case opI32Store, opI64Store, opF32Store, opF64Store,
		opI32Store8, opI32Store16, opI64Store8, opI64Store16, opI64Store32:
		return c.compileStore(op)

	case opMemorySize:
		if _, err := c.readByte(); err != nil { // reserved memory index
			return err
		}
		c.push(1)
		c.emit(Operation{Kind: OperationKindMemorySize})
	case opMemoryGrow:
		if _, err := c.readByte(); err != nil {
			return err
		}
		c.emit(Operation{Kind: OperationKindMemoryGrow})

	case opI32Const:
		v, err := c.readI32()
		if err != nil {
			return err
		}
		c.push(1)
		c.emit(Operation{Kind: OperationKindConstI32, I64: int64(v)})
	case opI64Const:
		v, err := c.readI64()
		if err != nil {
			return err
		}
		c.push(1)
		c.emit(Operation{Kind: OperationKindConstI64, I64: v})
	case opF32Const:
		v, err := c.readF32()
		if err != nil {
			return err
		}
		c.push(1)
		c.emit(Operation{Kind: OperationKindConstF32, F32: v})
	case opF64Const:
		v, err := c.readF64()
		if err != nil {
			return err
		}
		c.push(1)
		c.emit(Operation{Kind: OperationKindConstF64, F64: v})

	case opRefNull:
		if _, err := c.readByte(); err != nil { // ref type byte
			return err
		}
		c.push(1)
		c.emit(Operation{Kind: OperationKindRefNull})
	case opRefIsNull:
		c.emit(Operation{Kind: OperationKindRefIsNull})
	case opRefFunc:
		i, err := c.readU32()
		if err != nil {
			return err
		}
		c.push(1)
		c.emit(Operation{Kind: OperationKindRefFunc, U1: uint64(i)})

	case opMisc:
		return c.compileMisc()

	default:
		return c.compileNumeric(op)
	}
	return nil
}

func (c *compiler) compileLoad(op opcode) error {
	mem, err := c.readMemArg()
	if err != nil {
		return err
	}
	var kind OperationKind
	var t NumType
	var signed Signedness
	switch op {
	case opI32Load:
		kind, t = OperationKindLoad, NumTypeI32
	case opI64Load:
		kind, t = OperationKindLoad, NumTypeI64
	case opF32Load:
		kind, t = OperationKindLoad, NumTypeF32
	case opF64Load:
		kind, t = OperationKindLoad, NumTypeF64
	case opI32Load8S, opI32Load8U:
		kind, t = OperationKindLoad8, NumTypeI32
		signed = signOf(op == opI32Load8S)
	case opI32Load16S, opI32Load16U:
		kind, t = OperationKindLoad16, NumTypeI32
		signed = signOf(op == opI32Load16S)
	case opI64Load8S, opI64Load8U:
		kind, t = OperationKindLoad8, NumTypeI64
		signed = signOf(op == opI64Load8S)
	case opI64Load16S, opI64Load16U:
		kind, t = OperationKindLoad16, NumTypeI64
		signed = signOf(op == opI64Load16S)
	case opI64Load32S, opI64Load32U:
		kind, t = OperationKindLoad32, NumTypeI64
		signed = signOf(op == opI64Load32S)
	}
	c.emit(Operation{Kind: kind, B1: byte(t), B2: byte(signed), Mem: mem})
	return nil
}

func (c *compiler) compileStore(op opcode) error {
	mem, err := c.readMemArg()
	if err != nil {
		return err
	}
	c.pop(2)
	var kind OperationKind
	var t NumType
	switch op {
	case opI32Store:
		kind, t = OperationKindStore, NumTypeI32
	case opI64Store:
		kind, t = OperationKindStore, NumTypeI64
	case opF32Store:
		kind, t = OperationKindStore, NumTypeF32
	case opF64Store:
		kind, t = OperationKindStore, NumTypeF64
	case opI32Store8:
		kind, t = OperationKindStore8, NumTypeI32
	case opI32Store16:
		kind, t = OperationKindStore16, NumTypeI32
	case opI64Store8:
		kind, t = OperationKindStore8, NumTypeI64
	case opI64Store16:
		kind, t = OperationKindStore16, NumTypeI64
	case opI64Store32:
		kind, t = OperationKindStore32, NumTypeI64
	}
	c.emit(Operation{Kind: kind, B1: byte(t), Mem: mem})
	return nil
}

func signOf(isSigned bool) Signedness {
	if isSigned {
		return Signed
	}
	return Unsigned
}

func (c *compiler) compileMisc() error {
	sub, err := c.readU32()
	if err != nil {
		return err
	}
	switch sub {
	case miscI32TruncSatF32S, miscI32TruncSatF32U, miscI32TruncSatF64S, miscI32TruncSatF64U,
		miscI64TruncSatF32S, miscI64TruncSatF32U, miscI64TruncSatF64S, miscI64TruncSatF64U:
		c.emit(Operation{Kind: OperationKindITruncSatFromF, U1: uint64(sub)})
	case miscMemoryInit:
		dataIdx, err := c.readU32()
		if err != nil {
			return err
		}
		if _, err := c.readByte(); err != nil {
			return err
		}
		c.pop(3)
		c.emit(Operation{Kind: OperationKindMemoryInit, U1: uint64(dataIdx)})
	case miscDataDrop:
		idx, err := c.readU32()
		if err != nil {
			return err
		}
		c.emit(Operation{Kind: OperationKindDataDrop, U1: uint64(idx)})
	case miscMemoryCopy:
		if _, err := c.readByte(); err != nil {
			return err
		}
		if _, err := c.readByte(); err != nil {
			return err
		}
		c.pop(3)
		c.emit(Operation{Kind: OperationKindMemoryCopy})
	case miscMemoryFill:
		if _, err := c.readByte(); err != nil {
			return err
		}
		c.pop(3)
		c.emit(Operation{Kind: OperationKindMemoryFill})
	case miscTableInit:
		elemIdx, err := c.readU32()
		if err != nil {
			return err
		}
		tableIdx, err := c.readU32()
		if err != nil {
			return err
		}
		c.pop(3)
		c.emit(Operation{Kind: OperationKindTableInit, U1: uint64(elemIdx), U2: uint64(tableIdx)})
	case miscElemDrop:
		idx, err := c.readU32()
		if err != nil {
			return err
		}
		c.emit(Operation{Kind: OperationKindElemDrop, U1: uint64(idx)})
	case miscTableCopy:
		dstIdx, err := c.readU32()
		if err != nil {
			return err
		}
		srcIdx, err := c.readU32()
		if err != nil {
			return err
		}
		c.pop(3)
		c.emit(Operation{Kind: OperationKindTableCopy, U1: uint64(dstIdx), U2: uint64(srcIdx)})
	case miscTableGrow:
		idx, err := c.readU32()
		if err != nil {
			return err
		}
		c.pop(2)
		c.push(1)
		c.emit(Operation{Kind: OperationKindTableGrow, U1: uint64(idx)})
	case miscTableSize:
		idx, err := c.readU32()
		if err != nil {
			return err
		}
		c.push(1)
		c.emit(Operation{Kind: OperationKindTableSize, U1: uint64(idx)})
	case miscTableFill:
		idx, err := c.readU32()
		if err != nil {
			return err
		}
		c.pop(3)
		c.emit(Operation{Kind: OperationKindTableFill, U1: uint64(idx)})
	default:
		return fmt.Errorf("unsupported 0xfc sub-opcode %d", sub)
	}
	return nil
}

// registerBranch resolves a branch immediately if its target (a loop
// header) is already known, otherwise defers resolution to the target
// frame's matching End/Else.
func (c *compiler) registerBranch(f *controlFrame, opIndex, targetIndex int) {
	if f.isLoop {
		if targetIndex < 0 {
			c.out[opIndex].U1 = uint64(f.startOpIdx)
		} else {
			c.out[opIndex].Targets[targetIndex].OpIndex = uint64(f.startOpIdx)
		}
		return
	}
	c.registerEndPatch(f, opIndex, targetIndex)
}

func (c *compiler) registerEndPatch(f *controlFrame, opIndex, targetIndex int) {
	f.pending = append(f.pending, pendingBranch{opIndex: opIndex, targetIndex: targetIndex})
}
