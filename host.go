package tinywasm

import (
	"context"
	"fmt"
	"reflect"

	"github.com/tinywasm-go/tinywasm/api"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/wasm"
)

// HostModuleBuilder accumulates host functions under one import namespace
// before they're registered with the Runtime's Linker. Grounded in
// wazero's HostModuleBuilder, narrowed to functions — TinyWasm's Non-goals
// don't call for host-defined memories/tables/globals, so those go through
// linker.Linker's Define* directly instead of a builder.
type HostModuleBuilder struct {
	rt         *Runtime
	moduleName string
}

// NewFunctionBuilder begins defining one function exported into this
// host module's namespace.
func (b *HostModuleBuilder) NewFunctionBuilder() *HostFunctionBuilder {
	return &HostFunctionBuilder{b: b}
}

// HostFunctionBuilder binds a Go callback to a Wasm-visible signature.
// Two ways to finish it: WithGoFunction for spec.md §4.7's untyped
// convention (caller_context plus a raw []uint64), or WithFunc for a
// native Go function signature the builder derives a FunctionType from —
// §4.7's typed convention, a convenience with no semantic difference.
type HostFunctionBuilder struct {
	b      *HostModuleBuilder
	sig    wasm.FunctionType
	goFunc func(ctx context.Context, mod api.Module, params []uint64) ([]uint64, error)
}

func (f *HostFunctionBuilder) WithSignature(params, results []api.ValueType) *HostFunctionBuilder {
	f.sig = wasm.FunctionType{Params: params, Results: results}
	return f
}

// WithGoFunction binds the untyped calling convention directly: the
// callback receives the caller's module (for memory/table/global access)
// and the raw argument words, and returns raw result words.
func (f *HostFunctionBuilder) WithGoFunction(fn func(ctx context.Context, mod api.Module, params []uint64) ([]uint64, error)) *HostFunctionBuilder {
	f.goFunc = fn
	return f
}

// WithFunc derives params/results from fn's own Go signature (ignoring a
// leading context.Context and/or api.Module parameter) and wraps it in the
// untyped convention at bind time, converting raw words to native scalars
// per call. Supported native types: int32, uint32, int64, uint64, float32,
// float64; fn's error return, if present, must be the last result.
func (f *HostFunctionBuilder) WithFunc(fn interface{}) *HostFunctionBuilder {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		panic(fmt.Sprintf("WithFunc: %T is not a function", fn))
	}

	in := 0
	passCtx, passMod := false, false
	if in < t.NumIn() && t.In(in) == reflect.TypeOf((*context.Context)(nil)).Elem() {
		passCtx = true
		in++
	}
	if in < t.NumIn() && t.In(in) == reflect.TypeOf((*api.Module)(nil)).Elem() {
		passMod = true
		in++
	}

	var params []api.ValueType
	for ; in < t.NumIn(); in++ {
		params = append(params, nativeValueType(t.In(in)))
	}

	numOut := t.NumOut()
	returnsErr := numOut > 0 && t.Out(numOut-1) == reflect.TypeOf((*error)(nil)).Elem()
	if returnsErr {
		numOut--
	}
	var results []api.ValueType
	for i := 0; i < numOut; i++ {
		results = append(results, nativeValueType(t.Out(i)))
	}
	f.sig = wasm.FunctionType{Params: params, Results: results}

	f.goFunc = func(ctx context.Context, mod api.Module, rawArgs []uint64) ([]uint64, error) {
		args := make([]reflect.Value, 0, t.NumIn())
		if passCtx {
			args = append(args, reflect.ValueOf(ctx))
		}
		if passMod {
			args = append(args, reflect.ValueOf(mod))
		}
		for i, pt := range params {
			args = append(args, decodeNative(t.In(len(args)), pt, rawArgs[i]))
		}
		out := v.Call(args)
		if returnsErr {
			if errv := out[len(out)-1]; !errv.IsNil() {
				return nil, errv.Interface().(error)
			}
			out = out[:len(out)-1]
		}
		results := make([]uint64, len(out))
		for i, rv := range out {
			results[i] = encodeNative(rv)
		}
		return results, nil
	}
	return f
}

func nativeValueType(t reflect.Type) api.ValueType {
	switch t.Kind() {
	case reflect.Int32, reflect.Uint32:
		return api.ValueTypeI32
	case reflect.Int64, reflect.Uint64:
		return api.ValueTypeI64
	case reflect.Float32:
		return api.ValueTypeF32
	case reflect.Float64:
		return api.ValueTypeF64
	default:
		panic(fmt.Sprintf("WithFunc: unsupported native type %s", t))
	}
}

func decodeNative(t reflect.Type, vt api.ValueType, raw uint64) reflect.Value {
	switch vt {
	case api.ValueTypeI32:
		if t.Kind() == reflect.Uint32 {
			return reflect.ValueOf(api.DecodeU32(raw))
		}
		return reflect.ValueOf(api.DecodeI32(raw))
	case api.ValueTypeI64:
		if t.Kind() == reflect.Uint64 {
			return reflect.ValueOf(raw)
		}
		return reflect.ValueOf(api.DecodeI64(raw))
	case api.ValueTypeF32:
		return reflect.ValueOf(api.DecodeF32(raw))
	default:
		return reflect.ValueOf(api.DecodeF64(raw))
	}
}

func encodeNative(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Int32:
		return api.EncodeI32(int32(v.Int()))
	case reflect.Uint32:
		return api.EncodeU32(uint32(v.Uint()))
	case reflect.Int64:
		return api.EncodeI64(v.Int())
	case reflect.Uint64:
		return v.Uint()
	case reflect.Float32:
		return api.EncodeF32(float32(v.Float()))
	default:
		return api.EncodeF64(v.Float())
	}
}

// Export registers the function under name in the owning HostModuleBuilder
// and returns it for chaining further NewFunctionBuilder calls.
func (f *HostFunctionBuilder) Export(name string) *HostModuleBuilder {
	sig := f.sig
	goFn := f.goFunc
	inst := &wasm.FunctionInstance{
		Type: sig,
		GoFunc: func(ctx context.Context, mod api.Module, params []uint64) ([]uint64, error) {
			results, err := goFn(ctx, mod, params)
			if err != nil {
				return nil, err
			}
			if len(results) != len(sig.Results) {
				return nil, &wasmerrors.InvocationError{Want: len(sig.Results), Have: len(results)}
			}
			return results, nil
		},
		Name:      name,
		DebugName: f.b.moduleName + "." + name,
	}
	f.b.rt.linker.DefineFunction(f.b.moduleName, name, inst)
	return f.b
}
