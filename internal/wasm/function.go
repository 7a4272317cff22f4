package wasm

import (
	"context"

	"github.com/tinywasm-go/tinywasm/api"
	"github.com/tinywasm-go/tinywasm/internal/wazeroir"
)

// FunctionInstance is a function address's live binding in a Store: either
// a compiled Wasm body or a host function, never both. The interpreter
// dispatches on GoFunc being non-nil rather than carrying a separate kind
// tag, mirroring how a `call` to an imported function and a `call` to a
// locally-defined one differ only in what's behind the address.
type FunctionInstance struct {
	Type   FunctionType
	Module *ModuleInstance // owning instance, for globals/memory/table access during Body execution

	// Body is the compiled operation sequence; nil for a host function.
	Body   []wazeroir.Operation
	Locals []api.ValueType // params followed by declared locals; len(Locals) >= len(Type.Params)

	// GoFunc is set instead of Body for a host import. It receives the
	// owning instance's Module so host code can reach back into the
	// instantiated module that's calling it (e.g. to read memory).
	GoFunc func(ctx context.Context, mod api.Module, params []uint64) ([]uint64, error)

	Name string
	DebugName string // module.name, for backtraces
}

func (f *FunctionInstance) IsHost() bool { return f.GoFunc != nil }

// funcDefinition adapts a FunctionInstance to api.FunctionDefinition.
type funcDefinition struct{ t *FunctionType }

func (d funcDefinition) ParamTypes() []api.ValueType  { return d.t.Params }
func (d funcDefinition) ResultTypes() []api.ValueType { return d.t.Results }

func (f *FunctionInstance) Definition() api.FunctionDefinition {
	return funcDefinition{&f.Type}
}
