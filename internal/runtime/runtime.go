// Package runtime defines the contract between the harness and hosted
// strategy code, independent of how that code is loaded.
package runtime

import (
	"context"

	"github.com/rxtech-lab/systrade-bench/internal/card"
	"github.com/rxtech-lab/systrade-bench/internal/types"
)

// StrategyRuntime is one loaded strategy instance. Initialize is optional for
// plain callable entry points; Run executes the strategy over the full bar
// series and returns its logs in wire form.
type StrategyRuntime interface {
	Initialize(config string) error
	Run(ctx context.Context, bars []types.Bar, initialCapital float64) (*types.RunResult, error)
	Name() string
	Close(ctx context.Context) error
}

// Loader resolves a strategy card's entry point against a submission's code
// directory and returns a runnable instance. Loading the same entry twice
// must yield independent instances with no shared state.
type Loader interface {
	Load(ctx context.Context, codeDir string, entry card.EntryFunction) (StrategyRuntime, error)
}
