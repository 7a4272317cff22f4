package wazeroir

import "fmt"

// compileNumeric handles every comparison, arithmetic, conversion and
// sign-extension opcode that isn't a load/store/const/control instruction.
// Each variant pops/pushes a fixed, statically-known arity: binary ops and
// two-operand comparisons lower the stack height by one, every other case
// leaves it unchanged.
func (c *compiler) compileNumeric(op opcode) error {
	switch op {
	// comparisons: eqz pops 1 pushes 1 (i32 result); the rest pop 2 push 1.
	case opI32Eqz:
		c.emit(unaryCmp(OperationKindEqz, NumTypeI32))
	case opI64Eqz:
		c.emit(unaryCmp(OperationKindEqz, NumTypeI64))

	case opI32Eq, opI32Ne, opI32LtS, opI32LtU, opI32GtS, opI32GtU, opI32LeS, opI32LeU, opI32GeS, opI32GeU:
		c.pop(1)
		c.emit(cmpOp(op, NumTypeI32))
	case opI64Eq, opI64Ne, opI64LtS, opI64LtU, opI64GtS, opI64GtU, opI64LeS, opI64LeU, opI64GeS, opI64GeU:
		c.pop(1)
		c.emit(cmpOp(op, NumTypeI64))
	case opF32Eq, opF32Ne, opF32Lt, opF32Gt, opF32Le, opF32Ge:
		c.pop(1)
		c.emit(cmpOp(op, NumTypeF32))
	case opF64Eq, opF64Ne, opF64Lt, opF64Gt, opF64Le, opF64Ge:
		c.pop(1)
		c.emit(cmpOp(op, NumTypeF64))

	// unary: pop1 push1
	case opI32Clz, opI32Ctz, opI32Popcnt:
		c.emit(unOp(unaryKind(op), NumTypeI32))
	case opI64Clz, opI64Ctz, opI64Popcnt:
		c.emit(unOp(unaryKind(op), NumTypeI64))
	case opF32Abs, opF32Neg, opF32Ceil, opF32Floor, opF32Trunc, opF32Nearest, opF32Sqrt:
		c.emit(unOp(unaryKind(op), NumTypeF32))
	case opF64Abs, opF64Neg, opF64Ceil, opF64Floor, opF64Trunc, opF64Nearest, opF64Sqrt:
		c.emit(unOp(unaryKind(op), NumTypeF64))

	// binary: pop2 push1
	case opI32Add, opI32Sub, opI32Mul, opI32DivS, opI32DivU, opI32RemS, opI32RemU,
		opI32And, opI32Or, opI32Xor, opI32Shl, opI32ShrS, opI32ShrU, opI32Rotl, opI32Rotr:
		c.pop(1)
		c.emit(binaryOp(op, NumTypeI32))
	case opI64Add, opI64Sub, opI64Mul, opI64DivS, opI64DivU, opI64RemS, opI64RemU,
		opI64And, opI64Or, opI64Xor, opI64Shl, opI64ShrS, opI64ShrU, opI64Rotl, opI64Rotr:
		c.pop(1)
		c.emit(binaryOp(op, NumTypeI64))
	case opF32Add, opF32Sub, opF32Mul, opF32Div, opF32Min, opF32Max, opF32Copysign:
		c.pop(1)
		c.emit(binaryOp(op, NumTypeF32))
	case opF64Add, opF64Sub, opF64Mul, opF64Div, opF64Min, opF64Max, opF64Copysign:
		c.pop(1)
		c.emit(binaryOp(op, NumTypeF64))

	// conversions: pop1 push1, type changes but arity stays 1-in-1-out.
	case opI32WrapI64:
		c.emit(Operation{Kind: OperationKindI32WrapFromI64})
	case opI32TruncF32S, opI32TruncF32U, opI32TruncF64S, opI32TruncF64U,
		opI64TruncF32S, opI64TruncF32U, opI64TruncF64S, opI64TruncF64U:
		c.emit(truncOp(op))
	case opI64ExtendI32S:
		c.emit(Operation{Kind: OperationKindExtend, B2: byte(Signed)})
	case opI64ExtendI32U:
		c.emit(Operation{Kind: OperationKindExtend, B2: byte(Unsigned)})
	case opF32ConvertI32S, opF32ConvertI32U, opF32ConvertI64S, opF32ConvertI64U,
		opF64ConvertI32S, opF64ConvertI32U, opF64ConvertI64S, opF64ConvertI64U:
		c.emit(convertOp(op))
	case opF32DemoteF64:
		c.emit(Operation{Kind: OperationKindF32DemoteFromF64})
	case opF64PromoteF32:
		c.emit(Operation{Kind: OperationKindF64PromoteFromF32})
	case opI32ReinterpF32, opI64ReinterpF64, opF32ReinterpI32, opF64ReinterpI64:
		// The uniform 64-bit raw word makes a reinterpret a strict no-op.
	case opI32Extend8S:
		c.emit(Operation{Kind: OperationKindSignExtend, B1: byte(NumTypeI32), U1: 8})
	case opI32Extend16S:
		c.emit(Operation{Kind: OperationKindSignExtend, B1: byte(NumTypeI32), U1: 16})
	case opI64Extend8S:
		c.emit(Operation{Kind: OperationKindSignExtend, B1: byte(NumTypeI64), U1: 8})
	case opI64Extend16S:
		c.emit(Operation{Kind: OperationKindSignExtend, B1: byte(NumTypeI64), U1: 16})
	case opI64Extend32S:
		c.emit(Operation{Kind: OperationKindSignExtend, B1: byte(NumTypeI64), U1: 32})

	default:
		return fmt.Errorf("unsupported opcode 0x%x", byte(op))
	}
	return nil
}

func unaryCmp(kind OperationKind, t NumType) Operation { return Operation{Kind: kind, B1: byte(t)} }

func unaryKind(op opcode) OperationKind {
	switch op {
	case opI32Clz, opI64Clz:
		return OperationKindClz
	case opI32Ctz, opI64Ctz:
		return OperationKindCtz
	case opI32Popcnt, opI64Popcnt:
		return OperationKindPopcnt
	case opF32Abs, opF64Abs:
		return OperationKindAbs
	case opF32Neg, opF64Neg:
		return OperationKindNeg
	case opF32Ceil, opF64Ceil:
		return OperationKindCeil
	case opF32Floor, opF64Floor:
		return OperationKindFloor
	case opF32Trunc, opF64Trunc:
		return OperationKindTrunc
	case opF32Nearest, opF64Nearest:
		return OperationKindNearest
	case opF32Sqrt, opF64Sqrt:
		return OperationKindSqrt
	}
	panic("unreachable")
}

func cmpOp(op opcode, t NumType) Operation {
	var kind OperationKind
	var signed Signedness
	switch op {
	case opI32Eq, opI64Eq, opF32Eq, opF64Eq:
		kind = OperationKindEq
	case opI32Ne, opI64Ne, opF32Ne, opF64Ne:
		kind = OperationKindNe
	case opI32LtS, opI64LtS:
		kind, signed = OperationKindLt, Signed
	case opI32LtU, opI64LtU, opF32Lt, opF64Lt:
		kind = OperationKindLt
	case opI32GtS, opI64GtS:
		kind, signed = OperationKindGt, Signed
	case opI32GtU, opI64GtU, opF32Gt, opF64Gt:
		kind = OperationKindGt
	case opI32LeS, opI64LeS:
		kind, signed = OperationKindLe, Signed
	case opI32LeU, opI64LeU, opF32Le, opF64Le:
		kind = OperationKindLe
	case opI32GeS, opI64GeS:
		kind, signed = OperationKindGe, Signed
	case opI32GeU, opI64GeU, opF32Ge, opF64Ge:
		kind = OperationKindGe
	}
	return Operation{Kind: kind, B1: byte(t), B2: byte(signed)}
}

func binaryOp(op opcode, t NumType) Operation {
	var kind OperationKind
	var signed Signedness
	switch op {
	case opI32Add, opI64Add, opF32Add, opF64Add:
		kind = OperationKindAdd
	case opI32Sub, opI64Sub, opF32Sub, opF64Sub:
		kind = OperationKindSub
	case opI32Mul, opI64Mul, opF32Mul, opF64Mul:
		kind = OperationKindMul
	case opI32DivS, opI64DivS:
		kind, signed = OperationKindDiv, Signed
	case opI32DivU, opI64DivU, opF32Div, opF64Div:
		kind = OperationKindDiv
	case opI32RemS, opI64RemS:
		kind, signed = OperationKindRem, Signed
	case opI32RemU, opI64RemU:
		kind = OperationKindRem
	case opI32And, opI64And:
		kind = OperationKindAnd
	case opI32Or, opI64Or:
		kind = OperationKindOr
	case opI32Xor, opI64Xor:
		kind = OperationKindXor
	case opI32Shl, opI64Shl:
		kind = OperationKindShl
	case opI32ShrS, opI64ShrS:
		kind, signed = OperationKindShr, Signed
	case opI32ShrU, opI64ShrU:
		kind = OperationKindShr
	case opI32Rotl, opI64Rotl:
		kind = OperationKindRotl
	case opI32Rotr, opI64Rotr:
		kind = OperationKindRotr
	case opF32Min, opF64Min:
		kind = OperationKindMin
	case opF32Max, opF64Max:
		kind = OperationKindMax
	case opF32Copysign, opF64Copysign:
		kind = OperationKindCopysign
	}
	return Operation{Kind: kind, B1: byte(t), B2: byte(signed)}
}

// truncOp encodes source/destination width and signedness into B1 (source
// NumType), B2 (signedness), B3 (1 if the destination is i64).
func truncOp(op opcode) Operation {
	o := Operation{Kind: OperationKindITruncFromF}
	switch op {
	case opI32TruncF32S:
		o.B1, o.B2 = byte(NumTypeF32), byte(Signed)
	case opI32TruncF32U:
		o.B1 = byte(NumTypeF32)
	case opI32TruncF64S:
		o.B1, o.B2 = byte(NumTypeF64), byte(Signed)
	case opI32TruncF64U:
		o.B1 = byte(NumTypeF64)
	case opI64TruncF32S:
		o.B1, o.B2, o.B3 = byte(NumTypeF32), byte(Signed), 1
	case opI64TruncF32U:
		o.B1, o.B3 = byte(NumTypeF32), 1
	case opI64TruncF64S:
		o.B1, o.B2, o.B3 = byte(NumTypeF64), byte(Signed), 1
	case opI64TruncF64U:
		o.B1, o.B3 = byte(NumTypeF64), 1
	}
	return o
}

// convertOp encodes source int width/signedness (B1/B2) and destination
// float width (B3: 0=f32, 1=f64).
func convertOp(op opcode) Operation {
	o := Operation{Kind: OperationKindFConvertFromI}
	switch op {
	case opF32ConvertI32S:
		o.B1, o.B2 = byte(NumTypeI32), byte(Signed)
	case opF32ConvertI32U:
		o.B1 = byte(NumTypeI32)
	case opF32ConvertI64S:
		o.B1, o.B2 = byte(NumTypeI64), byte(Signed)
	case opF32ConvertI64U:
		o.B1 = byte(NumTypeI64)
	case opF64ConvertI32S:
		o.B1, o.B2, o.B3 = byte(NumTypeI32), byte(Signed), 1
	case opF64ConvertI32U:
		o.B1, o.B3 = byte(NumTypeI32), 1
	case opF64ConvertI64S:
		o.B1, o.B2, o.B3 = byte(NumTypeI64), byte(Signed), 1
	case opF64ConvertI64U:
		o.B1, o.B3 = byte(NumTypeI64), 1
	}
	return o
}
