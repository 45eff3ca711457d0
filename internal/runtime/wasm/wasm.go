// Package wasm hosts strategy code compiled to WebAssembly. It is the
// production loader: guest code gets no filesystem, no network, and no clock
// beyond what the harness passes in explicitly.
package wasm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/systrade-bench/internal/card"
	"github.com/rxtech-lab/systrade-bench/internal/runtime"
	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// initSuffix names the optional initialization export. A guest exporting
// `<symbol>_init` is the instantiable variant and receives the normalized
// configuration before the first run.
const initSuffix = "_init"

// Loader loads WebAssembly strategy modules with wazero.
type Loader struct{}

// NewLoader creates a WebAssembly strategy loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load compiles and instantiates the entry file and resolves the entry
// symbol. A missing file and a present file without the symbol are distinct
// failures so callers can report them differently.
func (l *Loader) Load(ctx context.Context, codeDir string, entry card.EntryFunction) (runtime.StrategyRuntime, error) {
	path := filepath.Join(codeDir, entry.File)

	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrCodeStrategyFileNotFound, err,
				"strategy file not found: %s", entry.File)
		}

		return nil, errors.Wrapf(errors.ErrCodeStrategyFileNotFound, err,
			"failed to read strategy file: %s", entry.File)
	}

	r := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	mod, err := r.InstantiateWithConfig(ctx, wasmBytes,
		wazero.NewModuleConfig().WithName(entry.File).WithStartFunctions("_initialize", "_start"))
	if err != nil {
		_ = r.Close(ctx)

		return nil, errors.Wrapf(errors.ErrCodeGuestABIError, err,
			"failed to instantiate strategy module: %s", entry.File)
	}

	run := mod.ExportedFunction(entry.Symbol)
	if run == nil {
		_ = r.Close(ctx)

		return nil, errors.Newf(errors.ErrCodeEntrySymbolNotFound,
			"module %s does not export symbol %q", entry.File, entry.Symbol)
	}

	malloc := mod.ExportedFunction("malloc")
	if malloc == nil {
		_ = r.Close(ctx)

		return nil, errors.Newf(errors.ErrCodeGuestABIError,
			"module %s does not export malloc", entry.File)
	}

	return &strategyModule{
		runtime: r,
		mod:     mod,
		run:     run,
		init:    mod.ExportedFunction(entry.Symbol + initSuffix),
		malloc:  malloc,
		symbol:  entry.Symbol,
	}, nil
}

// strategyModule is one instantiated guest. Each Load call gets its own
// wazero runtime, so two instances never share linear memory.
type strategyModule struct {
	runtime wazero.Runtime
	mod     api.Module
	run     api.Function
	init    api.Function
	malloc  api.Function
	symbol  string
}

type runRequest struct {
	Bars           []types.Bar `json:"bars"`
	InitialCapital float64     `json:"initial_capital"`
}

// guestResponse is the envelope every exported call returns. A non-empty
// error field is a strategy-raised failure with the guest's own message.
type guestResponse struct {
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Initialize passes the normalized configuration to the guest's init export.
// Callable guests without an init export accept any configuration silently.
func (s *strategyModule) Initialize(config string) error {
	if s.init == nil {
		return nil
	}

	resp, err := s.call(context.Background(), s.init, []byte(config))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyInitFailed, err,
			"%s%s failed", s.symbol, initSuffix)
	}

	if resp.Error != "" {
		return errors.Newf(errors.ErrCodeStrategyInitFailed, "%s", resp.Error)
	}

	return nil
}

func (s *strategyModule) Run(ctx context.Context, bars []types.Bar, initialCapital float64) (*types.RunResult, error) {
	payload, err := json.Marshal(runRequest{Bars: bars, InitialCapital: initialCapital})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeGuestABIError, "failed to encode run request", err)
	}

	resp, err := s.call(ctx, s.run, payload)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyRunFailed, err, "%s trapped", s.symbol)
	}

	if resp.Error != "" {
		return nil, errors.Newf(errors.ErrCodeStrategyRunFailed, "%s", resp.Error)
	}

	return types.DecodeRunResult(resp.Result)
}

func (s *strategyModule) Name() string {
	return s.symbol
}

func (s *strategyModule) Close(ctx context.Context) error {
	return s.runtime.Close(ctx)
}

// call copies payload into guest memory via malloc, invokes fn(ptr, len), and
// decodes the packed (ptr << 32 | len) response the guest returns.
func (s *strategyModule) call(ctx context.Context, fn api.Function, payload []byte) (*guestResponse, error) {
	allocated, err := s.malloc.Call(ctx, uint64(len(payload)))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeGuestABIError, "guest malloc failed", err)
	}

	ptr := uint32(allocated[0])
	if !s.mod.Memory().Write(ptr, payload) {
		return nil, errors.Newf(errors.ErrCodeGuestABIError,
			"guest memory write of %d bytes at %d out of range", len(payload), ptr)
	}

	results, err := fn.Call(ctx, uint64(ptr), uint64(len(payload)))
	if err != nil {
		return nil, err
	}

	if len(results) != 1 {
		return nil, errors.Newf(errors.ErrCodeGuestABIError,
			"guest returned %d values, want packed ptr/len", len(results))
	}

	outPtr := uint32(results[0] >> 32)
	outLen := uint32(results[0])

	data, ok := s.mod.Memory().Read(outPtr, outLen)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeGuestABIError,
			"guest memory read of %d bytes at %d out of range", outLen, outPtr)
	}

	var resp guestResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrap(errors.ErrCodeGuestABIError, "guest response is not valid JSON", err)
	}

	return &resp, nil
}
