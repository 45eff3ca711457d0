package strategy

import (
	"context"
	"math/rand"
	"time"

	"github.com/rxtech-lab/systrade-bench/internal/runtime"
	"github.com/rxtech-lab/systrade-bench/internal/types"
)

// Noisy is a deliberately non-reproducible strategy: it perturbs every exit
// price with a wall-clock-seeded random jitter, so two runs over identical
// bars never produce identical trade logs. It exists to exercise the
// determinism gate.
type Noisy struct {
	rng *rand.Rand
}

// NewNoisy creates the strategy with a fresh wall-clock seed.
func NewNoisy() runtime.StrategyRuntime {
	return &Noisy{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *Noisy) Initialize(config string) error { return nil }

func (s *Noisy) Run(ctx context.Context, bars []types.Bar, initialCapital float64) (*types.RunResult, error) {
	sorted := sortBars(bars)

	tradeLog := types.NewTable(tradeLogColumns...)
	auditLog := types.NewTable("datetime", "equity", "signal", "message")

	equity := initialCapital

	// One round trip per ten bars, entry at open, exit at jittered close.
	for i := 0; i+9 < len(sorted); i += 10 {
		entry := sorted[i]
		exit := sorted[i+9]

		exitPrice := exit.Close + s.rng.Float64()*1e-6
		pnl := (exitPrice - entry.Open) * (initialCapital / entry.Open)
		equity += pnl

		_ = tradeLog.AppendRow(
			tradeLog.NumRows()+1, entry.Symbol, "long",
			formatTime(entry.Time), entry.Open,
			formatTime(exit.Time), exitPrice,
			pnl, (exitPrice-entry.Open)/entry.Open*100,
		)
		_ = auditLog.AppendRow(formatTime(exit.Time), equity, "exit", "round trip closed")
	}

	return &types.RunResult{TradeLog: *tradeLog, AuditLog: *auditLog}, nil
}

func (s *Noisy) Name() string { return "noisy" }

func (s *Noisy) Close(ctx context.Context) error { return nil }
