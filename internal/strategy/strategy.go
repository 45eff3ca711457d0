// Package strategy ships the reference strategies bundled with the harness.
// They run on the native runtime and double as fixtures for the pipeline's
// own tests.
package strategy

import (
	"time"

	"github.com/rxtech-lab/systrade-bench/internal/runtime/native"
	"github.com/rxtech-lab/systrade-bench/internal/types"
)

// Entry symbols the bundled strategies register under.
const (
	SymbolBollinger = "run"
	SymbolNoisy     = "run_noisy"
	SymbolPairs     = "run_pairs"
)

func formatTime(t time.Time) string {
	return types.FormatTime(t)
}

// Register binds every bundled strategy into the given registry.
func Register(registry *native.Registry) {
	registry.Register(SymbolBollinger, NewBollingerMeanReversion)
	registry.Register(SymbolNoisy, NewNoisy)
	registry.Register(SymbolPairs, NewPairs)
}

// NewRegistry returns a registry preloaded with the bundled strategies.
func NewRegistry() *native.Registry {
	registry := native.NewRegistry()
	Register(registry)

	return registry
}
