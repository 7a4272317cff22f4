package tinywasm

import (
	"context"
	"fmt"

	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
	"github.com/tinywasm-go/tinywasm/internal/wazeroir"
	"github.com/tinywasm-go/tinywasm/linker"
)

// Instantiate runs C6's seven steps against mod, registering the result
// under moduleName in rt's Store (anonymous if moduleName is ""). Wasm
// imports declared by mod are resolved against every host module and
// every previously instantiated module registered with rt's Linker.
//
// mod.Functions/Tables/Globals already carry one entry per index in that
// kind's combined index space — imports first, then local declarations,
// matching the binary format's index-space rule — so allocation only
// needs to know, per kind, how many of the leading entries an import
// satisfies versus how many are allocated fresh.
func Instantiate(ctx context.Context, rt *Runtime, mod *wasm.Module, moduleName string) (api.Module, error) {
	// Step 1: resolve imports in declared order.
	externs, err := rt.linker.ResolveAll(mod)
	if err != nil {
		return nil, &wasmerrors.LinkingError{Cause: err}
	}

	inst := &wasm.ModuleInstance{
		ModuleName: moduleName,
		Engine:     rt.engine,
		Types:      mod.Types,
	}

	funcExterns := externsByKind(externs, mod.Imports, api.ExternTypeFunc)
	tableExterns := externsByKind(externs, mod.Imports, api.ExternTypeTable)
	globalExterns := externsByKind(externs, mod.Imports, api.ExternTypeGlobal)
	memoryExterns := externsByKind(externs, mod.Imports, api.ExternTypeMemory)

	// Step 2 (functions): imported placeholders are spliced at the front
	// of the index space (Body == nil marks one); everything after is
	// compiled from its raw body.
	inst.Functions = make([]*wasm.FunctionInstance, len(mod.Functions))
	funcImportCursor := 0
	for i, fn := range mod.Functions {
		if fn.Body == nil {
			inst.Functions[i] = nextExtern(funcExterns, &funcImportCursor).Func
			continue
		}
		sig := mod.Types[fn.TypeIndex]
		ops, err := wazeroir.Compile(sig, fn.Locals, fn.Body, mod.Types, mod.FunctionTypeIndexes)
		if err != nil {
			return nil, &wasmerrors.InstantiationError{Cause: fmt.Errorf("compiling function %d: %w", i, err)}
		}
		inst.Functions[i] = &wasm.FunctionInstance{
			Type: sig, Module: inst, Body: ops, Locals: fn.Locals,
			Name: fn.Name, DebugName: moduleName + "." + fn.Name,
		}
	}

	// Step 2 (tables).
	inst.Tables = make([]*wasm.TableInstance, len(mod.Tables))
	tableImportCursor := 0
	for i, t := range mod.Tables {
		if i < len(tableExterns) {
			inst.Tables[i] = nextExtern(tableExterns, &tableImportCursor).Table
			continue
		}
		inst.Tables[i] = wasm.NewTableInstance(t.Type, t.Limits.Min, t.Limits.Max)
	}

	// Step 2 (memory): at most one memory, imported xor locally declared.
	if len(memoryExterns) > 0 {
		inst.Memory = memoryExterns[0].Memory
	} else if mod.Memory != nil {
		capPages := rt.config.memoryCapacityPages(mod.Memory.Limits.Min, mod.Memory.Limits.Max)
		inst.Memory = wasm.NewMemoryInstanceWithCapacity(mod.Memory.Limits.Min, mod.Memory.Limits.Max, capPages)
	}

	// Step 2+3 (globals): imports first, then locals evaluated in
	// declaration order so a later global.get initializer can reference
	// an earlier local global. Only *.const / ref.null / ref.func / an
	// imported-immutable-global's current value reach here, already
	// reduced to a raw word or a FromGlobal back-reference by the input
	// contract (§6) — there is no expression evaluator to run.
	inst.Globals = make([]*wasm.GlobalInstance, len(mod.Globals))
	globalImportCursor := 0
	for i, g := range mod.Globals {
		if i < len(globalExterns) {
			inst.Globals[i] = nextExtern(globalExterns, &globalImportCursor).Global
			continue
		}
		value := g.Init.Value
		if g.Init.FromGlobal != nil {
			src := inst.Globals[*g.Init.FromGlobal]
			if src == nil {
				return nil, &wasmerrors.InstantiationError{Cause: fmt.Errorf("global %d initializer references unresolved global %d", i, *g.Init.FromGlobal)}
			}
			value = src.Get()
		}
		inst.Globals[i] = &wasm.GlobalInstance{Type: g.Type, Mutable: g.Mutable, Value: value}
	}

	// Segments are copied into the instance now so steps 4/5 mutate a
	// per-instantiation copy, leaving the Module's static template
	// reusable across repeated Instantiate calls.
	inst.Elements = make([]*wasm.ElementSegmentInstance, len(mod.ElementSegments))
	for i, es := range mod.ElementSegments {
		refs := make([]uint64, len(es.FuncIndices))
		for j, fi := range es.FuncIndices {
			if fi == nil {
				refs[j] = api.RefNull
			} else {
				refs[j] = uint64(*fi)
			}
		}
		inst.Elements[i] = &wasm.ElementSegmentInstance{Type: es.Type, Refs: refs}
	}
	inst.Data = make([]*wasm.DataSegmentInstance, len(mod.DataSegments))
	for i, ds := range mod.DataSegments {
		inst.Data[i] = &wasm.DataSegmentInstance{Bytes: append([]byte(nil), ds.Init...)}
	}

	// Step 4: active element segments.
	for i, es := range mod.ElementSegments {
		if es.Mode != wasm.SegmentModeActive {
			continue
		}
		t := inst.Tables[es.TableIndex]
		refs := inst.Elements[i].Refs
		if uint64(es.Offset)+uint64(len(refs)) > uint64(t.Size()) {
			return nil, &wasmerrors.InstantiationError{Cause: wasmerrors.NewBoundsTrap(wasmerrors.TrapTableOutOfBounds, es.Offset, uint32(len(refs)), t.Size())}
		}
		copy(t.Refs[es.Offset:], refs)
	}

	// Step 5: active data segments.
	for i, ds := range mod.DataSegments {
		if ds.Mode != wasm.SegmentModeActive {
			continue
		}
		data := inst.Data[i].Bytes
		if !inst.Memory.InBoundsRange(ds.Offset, uint32(len(data))) {
			return nil, &wasmerrors.InstantiationError{Cause: wasmerrors.NewBoundsTrap(wasmerrors.TrapMemoryOutOfBounds, ds.Offset, uint32(len(data)), uint32(len(inst.Memory.Buffer)))}
		}
		copy(inst.Memory.Buffer[ds.Offset:], data)
	}

	// Step 6: export table.
	exports := make(map[string]wasm.Export, len(mod.Exports))
	for _, e := range mod.Exports {
		exports[e.Name] = e
	}
	inst.SetExports(exports)

	rt.store.Register(moduleName, inst)

	// Step 7: start function.
	if mod.StartFunction >= 0 {
		if _, err := rt.engine.Call(ctx, inst.Functions[mod.StartFunction], nil); err != nil {
			return nil, &wasmerrors.InstantiationError{Cause: fmt.Errorf("start function: %w", err)}
		}
	}

	return inst, nil
}

// externsByKind filters externs down to the ones matching kind, in import
// declaration order — the same order Module.Functions/Tables/Globals
// expect their leading, import-satisfied entries to appear in.
func externsByKind(externs []linker.Extern, imports []wasm.Import, kind api.ExternType) []linker.Extern {
	var out []linker.Extern
	for i, imp := range imports {
		if imp.Type == kind {
			out = append(out, externs[i])
		}
	}
	return out
}

// nextExtern pops the next extern off a per-kind list prepared by
// externsByKind, advancing cursor.
func nextExtern(list []linker.Extern, cursor *int) linker.Extern {
	ext := list[*cursor]
	*cursor++
	return ext
}
