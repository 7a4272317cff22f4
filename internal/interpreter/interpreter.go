// Package interpreter is the single dispatch loop (C8) that executes a
// compiled function body: a flat wazeroir.Operation sequence with every
// branch target, arity and immediate already resolved at compile time.
// There is no label stack here — that work happened once, in
// wazeroir.Compile — so a branch here is a slice index plus a keep/drop
// count, never a search.
package interpreter

import (
	"context"
	"fmt"

	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
	"github.com/tinywasm-go/tinywasm/internal/wazeroir"
)

// DefaultMaxCallStack bounds the explicit frame stack depth; exceeding it
// traps with TrapCallStackOverflow rather than overflowing the host stack
// (the frame stack is a Go slice, not Go call recursion).
const DefaultMaxCallStack = 8192

// Engine runs compiled Wasm function bodies. It holds no per-call state
// between invocations; every Call gets its own value/frame stacks.
type Engine struct {
	MaxCallStack int
}

func New() *Engine {
	return &Engine{MaxCallStack: DefaultMaxCallStack}
}

var _ wasm.Engine = (*Engine)(nil)

// frame is one activation record: the function running, its instruction
// pointer, and where its locals begin in the shared value stack. Locals
// (params then declared locals) occupy valueStack[base:base+len(fn.Locals)];
// any further pushes during execution grow past that point and are popped
// back down to it by the time this frame ends.
type frame struct {
	fn   *wasm.FunctionInstance
	pc   int
	base int
}

// machine is the live state of one Call: shared across every frame pushed
// and popped during it.
type machine struct {
	ctx    context.Context
	engine *Engine
	values []uint64
	frames []frame
}

func (e *Engine) Call(ctx context.Context, f *wasm.FunctionInstance, params []uint64) ([]uint64, error) {
	if f.IsHost() {
		return f.GoFunc(ctx, nil, params)
	}
	m := &machine{ctx: ctx, engine: e}
	m.values = append(m.values, params...)
	m.pushFrame(f, 0)
	if err := m.run(); err != nil {
		return nil, err
	}
	results := make([]uint64, len(f.Type.Results))
	copy(results, m.values)
	return results, nil
}

// pushFrame extends the value stack so a new frame's declared locals
// (beyond the params already sitting on top of the stack) are zeroed, and
// activates the frame.
func (m *machine) pushFrame(fn *wasm.FunctionInstance, base int) error {
	if len(m.frames)+1 > m.engine.MaxCallStack {
		return wasmerrors.NewTrap(wasmerrors.TrapCallStackOverflow)
	}
	need := base + len(fn.Locals)
	for len(m.values) < need {
		m.values = append(m.values, 0)
	}
	m.frames = append(m.frames, frame{fn: fn, pc: 0, base: base})
	return nil
}

func (m *machine) top() *frame { return &m.frames[len(m.frames)-1] }

// run drives the dispatch loop until the outermost frame returns, leaving
// its results as the top len(fn.Type.Results) values of m.values.
func (m *machine) run() error {
	for len(m.frames) > 0 {
		f := m.top()
		if f.pc >= len(f.fn.Body) {
			if err := m.doReturn(len(f.fn.Type.Results)); err != nil {
				return err
			}
			continue
		}
		op := &f.fn.Body[f.pc]
		f.pc++
		if err := m.exec(f, op); err != nil {
			if trap, ok := err.(*wasmerrors.Trap); ok && trap.Backtrace == nil {
				for i := len(m.frames) - 1; i >= 0; i-- {
					trap.Backtrace = append(trap.Backtrace, m.frames[i].fn.DebugName)
				}
			}
			return err
		}
	}
	return nil
}

// exec executes one Operation against the top frame. Most cases live in
// sibling files (numeric, memory, table); this switch only holds control
// flow, calls and the simplest stack/local/global ops so the hot path for
// those stays in one place.
func (m *machine) exec(f *frame, op *wazeroir.Operation) error {
	switch op.Kind {
	case wazeroir.OperationKindUnreachable:
		return wasmerrors.NewTrap(wasmerrors.TrapUnreachable)

	case wazeroir.OperationKindBr:
		m.branch(f, int(op.U1), int(op.U2), int(op.U3))

	case wazeroir.OperationKindBrIf:
		cond := m.pop()
		taken := cond != 0
		if op.B3 == 1 { // inverted: this is an `if`'s false-jump
			taken = cond == 0
		}
		if taken {
			m.branch(f, int(op.U1), int(op.U2), int(op.U3))
		}

	case wazeroir.OperationKindBrTable:
		idx := int(api.DecodeU32(m.pop()))
		if idx < 0 || idx >= len(op.Targets)-1 {
			idx = len(op.Targets) - 1 // default
		}
		t := op.Targets[idx]
		m.branch(f, int(t.OpIndex), int(t.Keep), int(t.Drop))

	case wazeroir.OperationKindReturn:
		return m.doReturn(int(op.U2))

	case wazeroir.OperationKindCall:
		callee := f.fn.Module.Functions[op.U1]
		return m.call(f.fn.Module, callee)

	case wazeroir.OperationKindCallIndirect:
		return m.callIndirect(f, op)

	case wazeroir.OperationKindDrop:
		m.pop()
	case wazeroir.OperationKindSelect:
		cond := m.pop()
		b := m.pop()
		a := m.pop()
		if cond != 0 {
			m.push(a)
		} else {
			m.push(b)
		}

	case wazeroir.OperationKindLocalGet:
		m.push(m.values[f.base+int(op.U1)])
	case wazeroir.OperationKindLocalSet:
		m.values[f.base+int(op.U1)] = m.pop()
	case wazeroir.OperationKindLocalTee:
		m.values[f.base+int(op.U1)] = m.top1()

	case wazeroir.OperationKindGlobalGet:
		m.push(f.fn.Module.Globals[op.U1].Get())
	case wazeroir.OperationKindGlobalSet:
		f.fn.Module.Globals[op.U1].Set(m.pop())

	case wazeroir.OperationKindConstI32, wazeroir.OperationKindConstI64:
		m.push(uint64(op.I64))
	case wazeroir.OperationKindConstF32:
		m.push(api.EncodeF32(op.F32))
	case wazeroir.OperationKindConstF64:
		m.push(api.EncodeF64(op.F64))

	case wazeroir.OperationKindRefNull:
		m.push(api.RefNull)
	case wazeroir.OperationKindRefIsNull:
		if m.pop() == api.RefNull {
			m.push(1)
		} else {
			m.push(0)
		}
	case wazeroir.OperationKindRefFunc:
		m.push(op.U1)

	default:
		if isNumericKind(op.Kind) {
			return m.execNumeric(op)
		}
		if isMemoryKind(op.Kind) {
			return m.execMemory(f, op)
		}
		if isTableKind(op.Kind) {
			return m.execTable(f, op)
		}
		return fmt.Errorf("unhandled operation kind %v", op.Kind)
	}
	return nil
}

// branch preserves the top `keep` values, discards `drop` values beneath
// them, and jumps the current frame's instruction pointer to target.
func (m *machine) branch(f *frame, target, keep, drop int) {
	m.dropKeep(len(m.values)-keep-drop, keep)
	f.pc = target
}

// dropKeep removes drop values starting at index `at`, sliding the `keep`
// values above them down to close the gap.
func (m *machine) dropKeep(at, keep int) {
	top := len(m.values)
	src := top - keep
	if src < 0 || at < 0 || at > src {
		return
	}
	copy(m.values[at:at+keep], m.values[src:top])
	m.values = m.values[:at+keep]
}

// doReturn pops the current frame, retaining only its top `keep` results
// (sliding them down to the frame's base) so the caller's stack resumes
// exactly where the call instruction left it.
func (m *machine) doReturn(keep int) error {
	f := m.top()
	m.dropKeep(f.base, keep)
	m.frames = m.frames[:len(m.frames)-1]
	return nil
}

// call dispatches to callee, which was invoked from callerMod's code (the
// module instance whose memories/tables/globals a host callee's Module
// parameter exposes, per the caller-context contract in the host adapter).
func (m *machine) call(callerMod *wasm.ModuleInstance, callee *wasm.FunctionInstance) error {
	if callee.IsHost() {
		argc := len(callee.Type.Params)
		args := append([]uint64(nil), m.values[len(m.values)-argc:]...)
		m.values = m.values[:len(m.values)-argc]
		var mod api.Module
		if callerMod != nil {
			mod = callerMod
		}
		results, err := callee.GoFunc(m.ctx, mod, args)
		if err != nil {
			return &hostError{err}
		}
		m.values = append(m.values, results...)
		return nil
	}
	base := len(m.values) - len(callee.Type.Params)
	return m.pushFrame(callee, base)
}

func (m *machine) callIndirect(f *frame, op *wazeroir.Operation) error {
	entryIdx := api.DecodeU32(m.pop())
	table := f.fn.Module.Tables[op.U2]
	ref, ok := table.Get(entryIdx)
	if !ok {
		return wasmerrors.NewBoundsTrap(wasmerrors.TrapTableOutOfBounds, entryIdx, 1, table.Size())
	}
	if ref == api.RefNull {
		return wasmerrors.NewTrap(wasmerrors.TrapUninitializedElement)
	}
	callee := f.fn.Module.Functions[ref]
	want := f.fn.Module.Types[op.U1]
	if !callee.Type.Equal(&want) {
		return wasmerrors.NewTrap(wasmerrors.TrapIndirectCallTypeMismatch)
	}
	return m.call(f.fn.Module, callee)
}

func (m *machine) push(v uint64) { m.values = append(m.values, v) }

func (m *machine) pop() uint64 {
	v := m.values[len(m.values)-1]
	m.values = m.values[:len(m.values)-1]
	return v
}

func (m *machine) top1() uint64 { return m.values[len(m.values)-1] }

// hostError wraps an error returned by a host function so it is
// distinguishable from a trap raised directly by Wasm execution.
type hostError struct{ err error }

func (h *hostError) Error() string { return fmt.Sprintf("wasm error: %v", h.err) }
func (h *hostError) Unwrap() error { return h.err }
