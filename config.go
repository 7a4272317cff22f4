package tinywasm

// RuntimeConfig carries the knobs that affect instantiation and execution
// but not the module data model itself: which post-MVP features are
// enabled, how deep the call stack may grow, and how memory is
// pre-allocated. Grounded in wazero's RuntimeConfig builder; trimmed to
// the MVP-plus-post-MVP surface §6 lists as in Conformance scope.
//
// The Feature* fields record which proposals a configuration names; no
// code path reads them. Linking, Compile and the interpreter accept every
// import and instruction they know whatever these fields hold.
type RuntimeConfig struct {
	// FeatureMutableGlobals names imports/exports of mutable globals
	// (MVP Wasm only allows immutable ones). The linker does not consult
	// it: a mutable global import resolves whenever the offered global's
	// type and mutability match.
	FeatureMutableGlobals bool

	// FeatureSignExtensionOps names i32/i64.extend8_s/16_s/32_s.
	FeatureSignExtensionOps bool

	// FeatureNonTrappingFloatToIntConversion names the *.trunc_sat_* family.
	FeatureNonTrappingFloatToIntConversion bool

	// FeatureMultiValue names block/function types with more than one
	// result and multiple function results.
	FeatureMultiValue bool

	// FeatureBulkMemoryOperations names memory.copy/fill/init,
	// table.copy/fill/init and the elem.drop/data.drop pair.
	FeatureBulkMemoryOperations bool

	// FeatureReferenceTypes names funcref/externref as first-class value
	// types, ref.null/ref.is_null/ref.func, and passive element segments.
	FeatureReferenceTypes bool

	// FeatureMultiMemory names more than one memory per module. TinyWasm's
	// store model caps a module at one memory even with this set; see
	// DESIGN.md.
	FeatureMultiMemory bool

	// CallStackCeiling is the maximum number of live call frames before a
	// StackOverflow trap fires; 0 uses DefaultCallStackCeiling.
	CallStackCeiling int

	// MemorySizer decides a memory's initial backing capacity given its
	// declared [min, max] page limits, letting a caller pre-allocate to
	// max to avoid reallocation on every memory.grow.
	MemorySizer func(minPages uint32, maxPages *uint32) (capacityPages uint32)
}

// DefaultCallStackCeiling matches internal/interpreter.DefaultMaxCallStack.
const DefaultCallStackCeiling = 8192

// NewRuntimeConfig returns every feature flag except FeatureMultiMemory
// set, and the default call-stack ceiling. There is no MVP-only
// constructor; the zero RuntimeConfig has every flag cleared.
func NewRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		FeatureMutableGlobals:                  true,
		FeatureSignExtensionOps:                true,
		FeatureNonTrappingFloatToIntConversion:  true,
		FeatureMultiValue:                       true,
		FeatureBulkMemoryOperations:             true,
		FeatureReferenceTypes:                   true,
		CallStackCeiling:                        DefaultCallStackCeiling,
	}
}

func (c RuntimeConfig) callStackCeiling() int {
	if c.CallStackCeiling <= 0 {
		return DefaultCallStackCeiling
	}
	return c.CallStackCeiling
}

func (c RuntimeConfig) memoryCapacityPages(min uint32, max *uint32) uint32 {
	if c.MemorySizer == nil {
		return min
	}
	return c.MemorySizer(min, max)
}
