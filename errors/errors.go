// Package errors defines the error and trap taxonomy returned by the
// engine. Values here are returned, never logged: the engine has no
// internal logger, so every failure must travel back to the caller as
// an error value.
package errors

import "fmt"

// TrapCode identifies the kind of trap that aborted execution. It is a
// closed set mirroring the WebAssembly specification's trap conditions,
// not a free-form string, so callers can switch on it.
type TrapCode int

const (
	TrapUnreachable TrapCode = iota
	TrapMemoryOutOfBounds
	TrapTableOutOfBounds
	TrapIntegerDivideByZero
	TrapInvalidConversionToInteger
	TrapIntegerOverflow
	TrapCallStackOverflow
	TrapIndirectCallTypeMismatch
	TrapUninitializedElement
)

func (c TrapCode) String() string {
	switch c {
	case TrapUnreachable:
		return "unreachable"
	case TrapMemoryOutOfBounds:
		return "out of bounds memory access"
	case TrapTableOutOfBounds:
		return "out of bounds table access"
	case TrapIntegerDivideByZero:
		return "integer divide by zero"
	case TrapInvalidConversionToInteger:
		return "invalid conversion to integer"
	case TrapIntegerOverflow:
		return "integer overflow"
	case TrapCallStackOverflow:
		return "call stack exhausted"
	case TrapIndirectCallTypeMismatch:
		return "indirect call type mismatch"
	case TrapUninitializedElement:
		return "uninitialized element"
	default:
		return "unknown trap"
	}
}

// Trap is a runtime trap: a Wasm-defined abnormal termination of the
// current invocation. Unlike Go panics, a Trap is always converted to
// an error before it reaches a caller of Function.Call.
type Trap struct {
	Code TrapCode

	// Offset, Len and Max are populated for TrapMemoryOutOfBounds and
	// TrapTableOutOfBounds; zero otherwise.
	Offset, Len, Max uint32

	// Backtrace holds one line per call frame active when the trap
	// fired, innermost first.
	Backtrace []string
}

func (t *Trap) Error() string {
	switch t.Code {
	case TrapMemoryOutOfBounds, TrapTableOutOfBounds:
		return fmt.Sprintf("trap: %s (offset=%d len=%d max=%d)", t.Code, t.Offset, t.Len, t.Max)
	default:
		return fmt.Sprintf("trap: %s", t.Code)
	}
}

func NewTrap(code TrapCode) *Trap {
	return &Trap{Code: code}
}

func NewBoundsTrap(code TrapCode, offset, len, max uint32) *Trap {
	return &Trap{Code: code, Offset: offset, Len: len, Max: max}
}

// StackUnderflow is returned when an operation pops more values than the
// operand stack holds. A well-formed preprocessed function body can never
// trigger this; seeing it indicates a malformed module slipped past the
// "pre-validated input" contract.
type StackUnderflow struct{ Want, Have int }

func (e *StackUnderflow) Error() string {
	return fmt.Sprintf("stack underflow: want %d operands, have %d", e.Want, e.Have)
}

// LabelStackUnderflow mirrors StackUnderflow for the control-frame stack.
type LabelStackUnderflow struct{}

func (e *LabelStackUnderflow) Error() string { return "label stack underflow" }

// CallStackEmpty is returned by operations that require an active call
// frame (e.g. resolving a local) when none exists.
type CallStackEmpty struct{}

func (e *CallStackEmpty) Error() string { return "call stack empty" }

// InvalidStore is returned when a Function, Memory, Table or Global handle
// is used against a Store other than the one it was instantiated in.
type InvalidStore struct{}

func (e *InvalidStore) Error() string { return "handle does not belong to this store" }

// FuncDidNotReturn is returned when a compiled function body falls off
// its end without hitting a return or an implicit return at the outermost
// label — only reachable from a malformed (non-conforming) module.
type FuncDidNotReturn struct{ FuncName string }

func (e *FuncDidNotReturn) Error() string {
	return fmt.Sprintf("function %q did not return", e.FuncName)
}

// UnsupportedFeature is returned when a module requires a post-MVP
// feature the RuntimeConfig did not enable.
type UnsupportedFeature struct{ Feature string }

func (e *UnsupportedFeature) Error() string {
	return fmt.Sprintf("unsupported feature: %s", e.Feature)
}

// MissingImport is returned when a module declares an import that the
// Linker has no candidate for at all.
type MissingImport struct{ Module, Name string }

func (e *MissingImport) Error() string {
	return fmt.Sprintf("missing import: %s.%s", e.Module, e.Name)
}

// CouldNotResolveImport is returned when every registered candidate for
// an import failed to satisfy it.
type CouldNotResolveImport struct{ Module, Name string }

func (e *CouldNotResolveImport) Error() string {
	return fmt.Sprintf("could not resolve import: %s.%s", e.Module, e.Name)
}

// InvalidImportType is returned when a candidate for an import exists but
// is the wrong extern kind or has an incompatible signature/limits.
type InvalidImportType struct{ Module, Name, Reason string }

func (e *InvalidImportType) Error() string {
	return fmt.Sprintf("invalid import type: %s.%s: %s", e.Module, e.Name, e.Reason)
}

// LinkingError wraps any failure to resolve a module's import section:
// a missing name, an unsatisfied candidate, or an incompatible shape.
// Instantiate always returns one of these (never a bare Trap) when linking
// fails before any store allocation has happened.
type LinkingError struct{ Cause error }

func (e *LinkingError) Error() string { return fmt.Sprintf("linking error: %v", e.Cause) }
func (e *LinkingError) Unwrap() error { return e.Cause }

// InstantiationError covers the steps after linking succeeds but before a
// ModuleInstance is usable: an invalid constant expression, an
// out-of-bounds segment initializer, or a trap inside the start function.
type InstantiationError struct{ Cause error }

func (e *InstantiationError) Error() string { return fmt.Sprintf("instantiation error: %v", e.Cause) }
func (e *InstantiationError) Unwrap() error { return e.Cause }

// InvocationError is returned by Function.Call when the supplied argument
// count doesn't match the function's declared arity, before any Wasm code
// runs.
type InvocationError struct{ Want, Have int }

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invocation error: want %d arguments, have %d", e.Want, e.Have)
}
