// Command tinywasm is a minimal CLI wrapper around the engine: load a
// .wasm file, instantiate it, invoke one exported function with integer
// arguments, and print the result. It is explicitly out of core scope
// (spec.md §1) — a convenience for exercising the engine by hand, built
// the way wippyai-wasm-runtime's host CLI wires its own logging and
// terminal-detection stack, narrowed to TinyWasm's own engine instead of
// wazero.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/tinywasm-go/tinywasm"
	wasmerrors "github.com/tinywasm-go/tinywasm/errors"
	"github.com/tinywasm-go/tinywasm/internal/binary"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	if err := run(logger, os.Args[1:]); err != nil {
		logger.Error("tinywasm", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		cfg.Encoding = "json"
	}
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}

func run(logger *zap.Logger, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: tinywasm <file.wasm> <function> [args...]")
	}
	path, fnName, rawArgs := args[0], args[1], args[2:]

	wasmArgs := make([]uint64, len(rawArgs))
	for i, a := range rawArgs {
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return fmt.Errorf("argument %d (%q): %w", i, a, err)
		}
		wasmArgs[i] = uint64(v)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	mod, err := binary.DecodeModule(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	logger.Debug("decoded module", zap.String("path", path), zap.Int("functions", len(mod.Functions)))

	ctx := context.Background()
	rt := tinywasm.NewRuntime(ctx, tinywasm.NewRuntimeConfig())
	defer rt.Close(ctx)

	inst, err := rt.Instantiate(ctx, mod, "main")
	if err != nil {
		return fmt.Errorf("instantiating: %w", err)
	}

	fn := inst.ExportedFunction(fnName)
	if fn == nil {
		return fmt.Errorf("no exported function %q", fnName)
	}

	results, err := fn.Call(ctx, wasmArgs...)
	if err != nil {
		return reportTrap(err)
	}

	for _, r := range results {
		fmt.Println(r)
	}
	return nil
}

// reportTrap prints a colorized backtrace when stderr is a terminal,
// plain text otherwise, matching how a CLI should degrade when piped.
func reportTrap(err error) error {
	var trap *wasmerrors.Trap
	if !errors.As(err, &trap) {
		return err
	}
	colorize := term.IsTerminal(int(os.Stderr.Fd()))
	const red, reset = "\x1b[31m", "\x1b[0m"
	header := fmt.Sprintf("trap: %s", trap.Code)
	if colorize {
		header = red + header + reset
	}
	fmt.Fprintln(os.Stderr, header)
	for _, frame := range trap.Backtrace {
		fmt.Fprintf(os.Stderr, "\tat %s\n", frame)
	}
	return err
}
