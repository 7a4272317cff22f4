// Package linker resolves a Module's import section against a set of
// registered externs: host-defined functions/memories/tables/globals, or
// another instantiated module's exports. This is C5 in the store data
// model — it runs before C6 (the instantiator) allocates anything, and
// produces the exact extern values C6 splices into a ModuleInstance's
// index spaces.
package linker

import (
	"sync"

	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
)

// Extern is one resolved import candidate: exactly one of the typed fields
// is populated, selected by Type, mirroring wasm.Import's own shape.
type Extern struct {
	Type api.ExternType

	Func     *wasm.FunctionInstance
	FuncType wasm.FunctionType // Func's declared signature, for the compatibility check

	Table  *wasm.TableInstance
	Memory *wasm.MemoryInstance
	Global *wasm.GlobalInstance
}

// Linker holds every extern an Instantiate call may resolve imports
// against, namespaced the same way the import section is: module name,
// then field name.
type Linker struct {
	mu      sync.Mutex
	modules map[string]map[string]Extern
}

func New() *Linker {
	return &Linker{modules: map[string]map[string]Extern{}}
}

func (l *Linker) define(moduleName, name string, e Extern) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ns, ok := l.modules[moduleName]
	if !ok {
		ns = map[string]Extern{}
		l.modules[moduleName] = ns
	}
	ns[name] = e
}

// DefineFunction registers a host or already-compiled function under
// moduleName.name, satisfying imports declared with that two-part name.
func (l *Linker) DefineFunction(moduleName, name string, fn *wasm.FunctionInstance) {
	l.define(moduleName, name, Extern{Type: api.ExternTypeFunc, Func: fn, FuncType: fn.Type})
}

func (l *Linker) DefineMemory(moduleName, name string, mem *wasm.MemoryInstance) {
	l.define(moduleName, name, Extern{Type: api.ExternTypeMemory, Memory: mem})
}

func (l *Linker) DefineTable(moduleName, name string, tbl *wasm.TableInstance) {
	l.define(moduleName, name, Extern{Type: api.ExternTypeTable, Table: tbl})
}

func (l *Linker) DefineGlobal(moduleName, name string, g *wasm.GlobalInstance) {
	l.define(moduleName, name, Extern{Type: api.ExternTypeGlobal, Global: g})
}

// DefineInstance exposes every export of an already-instantiated module as
// candidates under moduleName, the module-linking-module case: one module's
// start function populates state another module then imports.
func (l *Linker) DefineInstance(moduleName string, inst *wasm.ModuleInstance) {
	for name, exp := range inst.Exports() {
		switch exp.Type {
		case api.ExternTypeFunc:
			l.DefineFunction(moduleName, name, inst.Functions[exp.Index])
		case api.ExternTypeMemory:
			l.DefineMemory(moduleName, name, inst.Memory)
		case api.ExternTypeTable:
			l.DefineTable(moduleName, name, inst.Tables[exp.Index])
		case api.ExternTypeGlobal:
			l.DefineGlobal(moduleName, name, inst.Globals[exp.Index])
		}
	}
}

// Resolve looks up imp's candidate and checks it structurally matches the
// required shape, per spec: exact signature equality for functions, exact
// type+mutability for globals, and a limits-satisfies check (offered >=
// required minimum, and no looser maximum than required) for memories and
// tables.
func (l *Linker) Resolve(imp wasm.Import, types []wasm.FunctionType) (Extern, error) {
	l.mu.Lock()
	ns, ok := l.modules[imp.Module]
	l.mu.Unlock()
	if !ok {
		return Extern{}, &wasmerrors.MissingImport{Module: imp.Module, Name: imp.Name}
	}
	l.mu.Lock()
	ext, ok := ns[imp.Name]
	l.mu.Unlock()
	if !ok {
		return Extern{}, &wasmerrors.MissingImport{Module: imp.Module, Name: imp.Name}
	}
	if ext.Type != imp.Type {
		return Extern{}, &wasmerrors.InvalidImportType{
			Module: imp.Module, Name: imp.Name,
			Reason: "extern kind mismatch: wanted " + imp.Type.String() + ", got " + ext.Type.String(),
		}
	}

	switch imp.Type {
	case api.ExternTypeFunc:
		want := types[imp.FuncTypeIndex]
		if !ext.FuncType.Equal(&want) {
			return Extern{}, &wasmerrors.InvalidImportType{Module: imp.Module, Name: imp.Name, Reason: "function signature mismatch"}
		}
	case api.ExternTypeMemory:
		offered := wasm.Limits{Min: ext.Memory.PageCount(), Max: ext.Memory.Max}
		if !offered.Satisfies(imp.Memory.Limits) {
			return Extern{}, &wasmerrors.CouldNotResolveImport{Module: imp.Module, Name: imp.Name}
		}
	case api.ExternTypeTable:
		if ext.Table.Type != imp.Table.Type {
			return Extern{}, &wasmerrors.InvalidImportType{Module: imp.Module, Name: imp.Name, Reason: "table element type mismatch"}
		}
		offered := wasm.Limits{Min: ext.Table.Size(), Max: ext.Table.Max}
		if !offered.Satisfies(imp.Table.Limits) {
			return Extern{}, &wasmerrors.CouldNotResolveImport{Module: imp.Module, Name: imp.Name}
		}
	case api.ExternTypeGlobal:
		if ext.Global.Type != imp.Global.Type || ext.Global.Mutable != imp.Global.Mutable {
			return Extern{}, &wasmerrors.InvalidImportType{Module: imp.Module, Name: imp.Name, Reason: "global type or mutability mismatch"}
		}
	}
	return ext, nil
}

// ResolveAll resolves every import of mod in declaration order, the order
// C6 needs them to splice imported functions/tables/memories/globals in at
// the front of each index space. It stops at the first failure: a module
// either links completely or not at all.
func (l *Linker) ResolveAll(mod *wasm.Module) ([]Extern, error) {
	out := make([]Extern, len(mod.Imports))
	for i, imp := range mod.Imports {
		ext, err := l.Resolve(imp, mod.Types)
		if err != nil {
			return nil, err
		}
		out[i] = ext
	}
	return out, nil
}
