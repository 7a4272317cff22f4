package spectest

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tinywasm-go/tinywasm"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/binary"
)

// Case is one entry of a JSON fixture: a module given as raw .wasm bytes
// (hex-encoded, so the fixture file stays plain JSON) plus one invocation
// and its expected outcome. Exactly one of Results or Trap is meaningful.
type Case struct {
	Name     string   `json:"name"`
	WasmHex  string   `json:"wasm_hex"`
	Function string   `json:"function"`
	Args     []uint64 `json:"args"`
	Results  []uint64 `json:"results,omitempty"`
	Trap     string   `json:"trap,omitempty"`
}

// Suite is a named group of Cases, the top-level shape of a fixture file.
type Suite struct {
	Name  string `json:"name"`
	Cases []Case `json:"cases"`
}

// LoadSuite parses a fixture file. It does not run anything.
func LoadSuite(r io.Reader) (*Suite, error) {
	var s Suite
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("spectest: decoding suite: %w", err)
	}
	return &s, nil
}

// Run decodes c's module, instantiates it fresh, invokes Function with
// Args, and reports whether the outcome matched Results or Trap. It never
// calls t.Fatal itself, so callers can format the mismatch however their
// test style prefers.
func (c Case) Run(ctx context.Context) error {
	raw, err := hex.DecodeString(c.WasmHex)
	if err != nil {
		return fmt.Errorf("%s: decoding wasm_hex: %w", c.Name, err)
	}
	mod, err := binary.DecodeModule(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%s: decoding module: %w", c.Name, err)
	}

	rt := tinywasm.NewRuntime(ctx, tinywasm.NewRuntimeConfig())
	defer rt.Close(ctx)

	inst, err := rt.Instantiate(ctx, mod, c.Name)
	if err != nil {
		return fmt.Errorf("%s: instantiating: %w", c.Name, err)
	}
	fn := inst.ExportedFunction(c.Function)
	if fn == nil {
		return fmt.Errorf("%s: no exported function %q", c.Name, c.Function)
	}

	results, callErr := fn.Call(ctx, c.Args...)
	if c.Trap != "" {
		var trap *wasmerrors.Trap
		if !errors.As(callErr, &trap) {
			return fmt.Errorf("%s: expected trap %q, got %v", c.Name, c.Trap, callErr)
		}
		if trap.Code.String() != c.Trap {
			return fmt.Errorf("%s: expected trap %q, got %q", c.Name, c.Trap, trap.Code.String())
		}
		return nil
	}
	if callErr != nil {
		return fmt.Errorf("%s: unexpected error: %w", c.Name, callErr)
	}
	if len(results) != len(c.Results) {
		return fmt.Errorf("%s: expected %d results, got %d", c.Name, len(c.Results), len(results))
	}
	for i, want := range c.Results {
		if results[i] != want {
			return fmt.Errorf("%s: result %d: expected %d, got %d", c.Name, i, want, results[i])
		}
	}
	return nil
}
