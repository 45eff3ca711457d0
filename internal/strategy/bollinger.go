package strategy

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"github.com/rxtech-lab/systrade-bench/internal/runtime"
	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"github.com/shopspring/decimal"
)

// tradeLogColumns is the trade log shape every bundled strategy emits.
var tradeLogColumns = []string{
	"trade_id", "instrument", "side", "entry_time", "entry_price",
	"exit_time", "exit_price", "pnl", "pnl_pct",
}

// BollingerMeanReversion enters long when the close crosses below the lower
// band and exits at the middle band or the stop. Long-only, one position at
// a time, fixed notional sized off initial capital.
type BollingerMeanReversion struct {
	n           int
	k           float64
	stopLossPct float64
}

// NewBollingerMeanReversion creates the strategy with its default parameters.
func NewBollingerMeanReversion() runtime.StrategyRuntime {
	return &BollingerMeanReversion{n: 20, k: 2.0, stopLossPct: 0.10}
}

func (s *BollingerMeanReversion) Initialize(config string) error {
	cfg, err := decodeConfig(config)
	if err != nil {
		return err
	}

	s.n = cfg.intDefault("N", s.n)
	s.k = cfg.floatDefault("k", s.k)
	s.stopLossPct = cfg.floatDefault("stop_loss_pct", s.stopLossPct)

	if s.n < 1 {
		return errors.Newf(errors.ErrCodeStrategyInitFailed, "window N must be positive, got %d", s.n)
	}

	return nil
}

func (s *BollingerMeanReversion) Run(ctx context.Context, bars []types.Bar, initialCapital float64) (*types.RunResult, error) {
	sorted := sortBars(bars)
	n := len(sorted)

	tradeLog := types.NewTable(tradeLogColumns...)

	// Too little history to form a single band: no trades, flat audit trail.
	if n < s.n+1 {
		auditLog := types.NewTable("datetime", "close", "equity", "signal", "position_state")
		for _, bar := range sorted {
			_ = auditLog.AppendRow(formatTime(bar.Time), bar.Close, initialCapital, "none", "flat")
		}

		return &types.RunResult{TradeLog: *tradeLog, AuditLog: *auditLog}, nil
	}

	close_ := make([]float64, n)
	for i, bar := range sorted {
		close_[i] = bar.Close
	}

	mb, std := rollingStats(close_, s.n)
	ub := make([]float64, n)
	lb := make([]float64, n)

	for i := range close_ {
		width := std[i]
		if math.IsNaN(width) {
			width = 0
		}

		ub[i] = mb[i] + s.k*width
		lb[i] = mb[i] - s.k*width
	}

	auditLog := types.NewTable("datetime", "close", "MB", "UB", "LB", "signal", "position_state", "equity")

	position := 0
	entryPrice := 0.0
	entryTime := ""
	equity := decimal.NewFromFloat(initialCapital)
	capital := decimal.NewFromFloat(initialCapital)

	for i := s.n; i < n; i++ {
		dt := formatTime(sorted[i].Time)
		c := close_[i]
		sig := "none"

		if position == 0 {
			if c < lb[i] && close_[i-1] >= lb[i-1] {
				position = 1
				entryPrice = c
				entryTime = dt
				sig = "enter"
			}
		} else {
			exit := false

			switch {
			case c <= entryPrice*(1-s.stopLossPct):
				sig = "exit_stop"
				exit = true
			case c >= mb[i]:
				sig = "exit_mb"
				exit = true
			}

			if exit {
				entry := decimal.NewFromFloat(entryPrice)
				pnl := decimal.NewFromFloat(c).Sub(entry).Mul(capital.Div(entry))
				equity = equity.Add(pnl)
				pnlPct := decimal.NewFromFloat(c).Sub(entry).Div(entry).Mul(decimal.NewFromInt(100))

				_ = tradeLog.AppendRow(
					tradeLog.NumRows()+1, "symbol", "long",
					entryTime, entryPrice, dt, c,
					pnl.InexactFloat64(), pnlPct.InexactFloat64(),
				)
				position = 0
			}
		}

		state := "flat"
		if position != 0 {
			state = "long"
		}

		_ = auditLog.AppendRow(dt, c, mb[i], ub[i], lb[i], sig, state, equity.InexactFloat64())
	}

	return &types.RunResult{TradeLog: *tradeLog, AuditLog: *auditLog}, nil
}

func (s *BollingerMeanReversion) Name() string { return "bollinger_mean_reversion" }

func (s *BollingerMeanReversion) Close(ctx context.Context) error { return nil }

// sortBars returns a copy of bars in ascending time order.
func sortBars(bars []types.Bar) []types.Bar {
	sorted := make([]types.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	return sorted
}

// rollingStats computes the trailing window mean and sample standard
// deviation. Entries before a full window are NaN.
func rollingStats(values []float64, window int) (mean, std []float64) {
	mean = make([]float64, len(values))
	std = make([]float64, len(values))

	for i := range values {
		if i < window-1 {
			mean[i] = math.NaN()
			std[i] = math.NaN()

			continue
		}

		sum := 0.0
		for j := i - window + 1; j <= i; j++ {
			sum += values[j]
		}

		m := sum / float64(window)
		mean[i] = m

		if window < 2 {
			std[i] = math.NaN()

			continue
		}

		sq := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - m
			sq += d * d
		}

		std[i] = math.Sqrt(sq / float64(window-1))
	}

	return mean, std
}

// strategyConfig is the decoded normalized configuration document.
type strategyConfig map[string]any

func decodeConfig(config string) (strategyConfig, error) {
	if config == "" {
		return strategyConfig{}, nil
	}

	var cfg strategyConfig
	if err := json.Unmarshal([]byte(config), &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStrategyInitFailed, "configuration is not valid JSON", err)
	}

	return cfg, nil
}

func (c strategyConfig) floatDefault(key string, def float64) float64 {
	if v, ok := c[key].(float64); ok {
		return v
	}

	return def
}

func (c strategyConfig) intDefault(key string, def int) int {
	if v, ok := c[key].(float64); ok {
		return int(v)
	}

	return def
}
