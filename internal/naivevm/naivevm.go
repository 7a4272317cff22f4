// Package naivevm is a second, independently-written evaluator over the
// same compiled wazeroir.Operation sequence internal/interpreter runs. It
// exists purely for differential testing: walk a function with simple
// recursion and a growable Go slice for the operand stack, compare the
// result against the production Engine, and let any divergence point at a
// bug in one implementation or the other. It intentionally covers only
// the operations a realistic test module exercises — arithmetic, control
// flow, locals, globals, and basic memory access — and reports an
// explicit error for anything else rather than guessing.
package naivevm

import (
	"context"
	"fmt"

	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
	"github.com/tinywasm-go/tinywasm/internal/wazeroir"
)

// Run evaluates f with the given params and returns its results, using a
// recursive walk rather than interpreter's flat dispatch loop: a Br/BrIf/
// BrTable target is reached by returning a branchSignal to the enclosing
// eval invocation and jumping its local program counter, instead
// of a single shared frame stack.
func Run(ctx context.Context, f *wasm.FunctionInstance, params []uint64) ([]uint64, error) {
	if f.IsHost() {
		return f.GoFunc(ctx, nil, params)
	}
	stack := append([]uint64(nil), params...)
	for len(stack) < len(params)+len(f.Locals) {
		stack = append(stack, 0)
	}
	e := &evaluator{ctx: ctx, stack: stack, depth: 0}
	if err := e.eval(f, 0); err != nil {
		return nil, err
	}
	results := make([]uint64, len(f.Type.Results))
	copy(results, e.stack)
	return results, nil
}

const maxDepth = 2048

type evaluator struct {
	ctx   context.Context
	stack []uint64
	depth int
}

// branchSignal is returned by exec to the eval loop running the same
// function, which applies its keep/drop and moves its pc to target (or
// returns from the function when target is negative). It never crosses
// an eval call: recursion is used only for Wasm calls.
type branchSignal struct {
	target     int
	keep, drop int
}

func (e *evaluator) push(v uint64) { e.stack = append(e.stack, v) }
func (e *evaluator) pop() uint64 {
	v := e.stack[len(e.stack)-1]
	e.stack = e.stack[:len(e.stack)-1]
	return v
}

func (e *evaluator) dropKeep(at, keep int) {
	top := len(e.stack)
	src := top - keep
	if at < 0 || src < at {
		return
	}
	copy(e.stack[at:at+keep], e.stack[src:top])
	e.stack = e.stack[:at+keep]
}

// eval runs fn's body starting at pc 0 within a fresh local-base on the
// shared stack, returning once the body falls off its end or a `return`
// unwinds to it.
func (e *evaluator) eval(fn *wasm.FunctionInstance, base int) error {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxDepth {
		return wasmerrors.NewTrap(wasmerrors.TrapCallStackOverflow)
	}

	pc := 0
	for pc < len(fn.Body) {
		op := &fn.Body[pc]
		pc++
		if err := e.exec(fn, base, op); err != nil {
			if bs, ok := err.(*branchSignal); ok {
				if bs.target < 0 {
					e.dropKeep(base, bs.keep)
					return nil // `return`: caller already popped args off base
				}
				e.dropKeep(len(e.stack)-bs.keep-bs.drop, bs.keep)
				pc = bs.target
				continue
			}
			return err
		}
	}
	e.dropKeep(base, len(fn.Type.Results))
	return nil
}

func (e *branchSignal) Error() string { return "branch" }

func (e *evaluator) exec(fn *wasm.FunctionInstance, base int, op *wazeroir.Operation) error {
	switch op.Kind {
	case wazeroir.OperationKindUnreachable:
		return wasmerrors.NewTrap(wasmerrors.TrapUnreachable)

	case wazeroir.OperationKindNop, wazeroir.OperationKindBlock:
		// Block is a marker only; branch targets already resolved at compile time.

	case wazeroir.OperationKindBr:
		return &branchSignal{target: int(op.U1), keep: int(op.U2), drop: int(op.U3)}

	case wazeroir.OperationKindBrIf:
		cond := e.pop()
		taken := cond != 0
		if op.B3 == 1 {
			taken = cond == 0
		}
		if taken {
			return &branchSignal{target: int(op.U1), keep: int(op.U2), drop: int(op.U3)}
		}

	case wazeroir.OperationKindBrTable:
		idx := int(api.DecodeU32(e.pop()))
		if idx < 0 || idx >= len(op.Targets)-1 {
			idx = len(op.Targets) - 1
		}
		t := op.Targets[idx]
		return &branchSignal{target: int(t.OpIndex), keep: int(t.Keep), drop: int(t.Drop)}

	case wazeroir.OperationKindReturn:
		return &branchSignal{target: -1, keep: int(op.U2)}

	case wazeroir.OperationKindCall:
		callee := fn.Module.Functions[op.U1]
		return e.call(fn.Module, callee)

	case wazeroir.OperationKindCallIndirect:
		entryIdx := api.DecodeU32(e.pop())
		table := fn.Module.Tables[op.U2]
		ref, ok := table.Get(entryIdx)
		if !ok {
			return wasmerrors.NewBoundsTrap(wasmerrors.TrapTableOutOfBounds, entryIdx, 1, table.Size())
		}
		if ref == api.RefNull {
			return wasmerrors.NewTrap(wasmerrors.TrapUninitializedElement)
		}
		callee := fn.Module.Functions[ref]
		want := fn.Module.Types[op.U1]
		if !callee.Type.Equal(&want) {
			return wasmerrors.NewTrap(wasmerrors.TrapIndirectCallTypeMismatch)
		}
		return e.call(fn.Module, callee)

	case wazeroir.OperationKindDrop:
		e.pop()

	case wazeroir.OperationKindSelect:
		cond := e.pop()
		b := e.pop()
		a := e.pop()
		if cond != 0 {
			e.push(a)
		} else {
			e.push(b)
		}

	case wazeroir.OperationKindLocalGet:
		e.push(e.stack[base+int(op.U1)])
	case wazeroir.OperationKindLocalSet:
		e.stack[base+int(op.U1)] = e.pop()
	case wazeroir.OperationKindLocalTee:
		e.stack[base+int(op.U1)] = e.stack[len(e.stack)-1]

	case wazeroir.OperationKindGlobalGet:
		e.push(fn.Module.Globals[op.U1].Get())
	case wazeroir.OperationKindGlobalSet:
		fn.Module.Globals[op.U1].Set(e.pop())

	case wazeroir.OperationKindConstI32, wazeroir.OperationKindConstI64:
		e.push(uint64(op.I64))
	case wazeroir.OperationKindConstF32:
		e.push(api.EncodeF32(op.F32))
	case wazeroir.OperationKindConstF64:
		e.push(api.EncodeF64(op.F64))

	case wazeroir.OperationKindRefNull:
		e.push(api.RefNull)
	case wazeroir.OperationKindRefIsNull:
		if e.pop() == api.RefNull {
			e.push(1)
		} else {
			e.push(0)
		}
	case wazeroir.OperationKindRefFunc:
		e.push(op.U1)

	case wazeroir.OperationKindAdd, wazeroir.OperationKindSub, wazeroir.OperationKindMul,
		wazeroir.OperationKindDiv, wazeroir.OperationKindRem,
		wazeroir.OperationKindAnd, wazeroir.OperationKindOr, wazeroir.OperationKindXor,
		wazeroir.OperationKindShl, wazeroir.OperationKindShr, wazeroir.OperationKindRotl, wazeroir.OperationKindRotr:
		b := e.pop()
		a := e.pop()
		v, err := binaryInt(op.Kind, wazeroir.NumType(op.B1), op.B2 == byte(wazeroir.Signed), a, b)
		if err != nil {
			return err
		}
		e.push(v)

	case wazeroir.OperationKindEq, wazeroir.OperationKindNe, wazeroir.OperationKindLt,
		wazeroir.OperationKindGt, wazeroir.OperationKindLe, wazeroir.OperationKindGe:
		b := e.pop()
		a := e.pop()
		e.push(boolWord(compareInt(op.Kind, wazeroir.NumType(op.B1), op.B2 == byte(wazeroir.Signed), a, b)))

	case wazeroir.OperationKindEqz:
		e.push(boolWord(e.pop() == 0))

	case wazeroir.OperationKindLoad, wazeroir.OperationKindLoad8, wazeroir.OperationKindLoad16, wazeroir.OperationKindLoad32:
		addrOff := api.DecodeU32(e.pop())
		addr := addrOff + op.Mem.Offset
		mem := fn.Module.Memory
		v, err := loadMem(mem, op, addr)
		if err != nil {
			return err
		}
		e.push(v)

	case wazeroir.OperationKindStore, wazeroir.OperationKindStore8, wazeroir.OperationKindStore16, wazeroir.OperationKindStore32:
		val := e.pop()
		addrOff := api.DecodeU32(e.pop())
		addr := addrOff + op.Mem.Offset
		mem := fn.Module.Memory
		if err := storeMem(mem, op, addr, val); err != nil {
			return err
		}

	case wazeroir.OperationKindMemorySize:
		e.push(uint64(fn.Module.Memory.PageCount()))
	case wazeroir.OperationKindMemoryGrow:
		delta := api.DecodeU32(e.pop())
		old, ok := fn.Module.Memory.Grow(delta)
		if !ok {
			e.push(uint64(0xffffffff))
		} else {
			e.push(uint64(old))
		}

	default:
		return fmt.Errorf("naivevm: unsupported operation kind %v", op.Kind)
	}
	return nil
}

func (e *evaluator) call(callerMod *wasm.ModuleInstance, callee *wasm.FunctionInstance) error {
	if callee.IsHost() {
		argc := len(callee.Type.Params)
		args := append([]uint64(nil), e.stack[len(e.stack)-argc:]...)
		e.stack = e.stack[:len(e.stack)-argc]
		var mod api.Module
		if callerMod != nil {
			mod = callerMod
		}
		results, err := callee.GoFunc(e.ctx, mod, args)
		if err != nil {
			return err
		}
		e.stack = append(e.stack, results...)
		return nil
	}
	base := len(e.stack) - len(callee.Type.Params)
	for len(e.stack) < base+len(callee.Type.Params)+len(callee.Locals) {
		e.stack = append(e.stack, 0)
	}
	return e.eval(callee, base)
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
