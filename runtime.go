// Package tinywasm is the embedder-facing entry point: create a Runtime,
// register host functions, instantiate a preprocessed Module, and invoke
// its exports. It plays the role of wazero.go at the teacher's repo root,
// narrowed to TinyWasm's interpreter-only scope.
package tinywasm

import (
	"context"

	"github.com/tinywasm-go/tinywasm/api"
	"github.com/tinywasm-go/tinywasm/internal/interpreter"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
	"github.com/tinywasm-go/tinywasm/linker"
)

// Runtime owns one Store and the Linker that resolves imports into it.
// A Runtime is not safe for concurrent instantiation or invocation, per
// spec.md §5's single-threaded-executor model.
type Runtime struct {
	config RuntimeConfig
	store  *wasm.Store
	engine *interpreter.Engine
	linker *linker.Linker
}

// NewRuntime creates an empty Store with no registered modules and no
// resolvable imports. ctx is accepted for symmetry with the rest of the
// API and to leave room for a future close-on-cancel hook; it is not
// retained.
func NewRuntime(ctx context.Context, config RuntimeConfig) *Runtime {
	eng := interpreter.New()
	eng.MaxCallStack = config.callStackCeiling()
	return &Runtime{
		config: config,
		store:  wasm.NewStore(),
		engine: eng,
		linker: linker.New(),
	}
}

// Close releases every module instantiated against this Runtime.
func (r *Runtime) Close(ctx context.Context) error {
	return r.store.Close(ctx)
}

// Module looks up an already-instantiated, named module.
func (r *Runtime) Module(name string) api.Module {
	m := r.store.Module(name)
	if m == nil {
		return nil
	}
	return m
}

// NewHostModuleBuilder starts defining a set of host functions/memories/
// tables/globals under moduleName, the namespace Wasm imports resolve
// against.
func (r *Runtime) NewHostModuleBuilder(moduleName string) *HostModuleBuilder {
	return &HostModuleBuilder{rt: r, moduleName: moduleName}
}
