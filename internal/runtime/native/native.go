// Package native runs strategies compiled into the harness binary. It backs
// the shipped reference strategies and the test suite; submissions load
// through the WebAssembly runtime instead.
package native

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/rxtech-lab/systrade-bench/internal/card"
	"github.com/rxtech-lab/systrade-bench/internal/runtime"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
)

// Factory builds a fresh strategy instance. Every Load call gets a new
// instance so repeated runs never observe each other's state.
type Factory func() runtime.StrategyRuntime

// Registry maps entry symbols to strategy factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register binds symbol to a factory, replacing any previous binding.
func (r *Registry) Register(symbol string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[symbol] = factory
}

// Lookup returns the factory bound to symbol.
func (r *Registry) Lookup(symbol string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[symbol]

	return factory, ok
}

// Loader resolves entry points against a registry. The entry file must still
// exist on disk so a submission without code fails the same way it would
// under the WebAssembly loader.
type Loader struct {
	registry *Registry
}

// NewLoader creates a loader over the given registry.
func NewLoader(registry *Registry) *Loader {
	return &Loader{registry: registry}
}

// Load checks the entry file exists, then resolves the entry symbol.
func (l *Loader) Load(ctx context.Context, codeDir string, entry card.EntryFunction) (runtime.StrategyRuntime, error) {
	path := filepath.Join(codeDir, entry.File)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrCodeStrategyFileNotFound, err,
				"strategy file not found: %s", entry.File)
		}

		return nil, errors.Wrapf(errors.ErrCodeStrategyFileNotFound, err,
			"failed to stat strategy file: %s", entry.File)
	}

	factory, ok := l.registry.Lookup(entry.Symbol)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeEntrySymbolNotFound,
			"file %s loaded but symbol %q is not registered", entry.File, entry.Symbol)
	}

	return factory(), nil
}
