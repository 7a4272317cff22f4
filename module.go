package tinywasm

import (
	"context"

	"github.com/tinywasm-go/tinywasm/api"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
)

// Module is the decoded, input-contract module value: function bodies are
// still raw bytecode, compiled by wazeroir.Compile during Instantiate.
// Building one from a .wasm binary is internal/binary's job; tests and
// embedders that already have a Module value in hand can pass it to
// Instantiate directly.
type Module = wasm.Module

// Instantiate is sugar for the package-level Instantiate bound to rt,
// matching the Engine API's instantiate(store, module, imports) shape from
// spec.md §6 (imports live in rt's Linker rather than a separate argument).
func (rt *Runtime) Instantiate(ctx context.Context, mod *Module, moduleName string) (api.Module, error) {
	return Instantiate(ctx, rt, mod, moduleName)
}
