package evaluator

import (
	"math"

	"github.com/rxtech-lab/systrade-bench/internal/types"
)

// annualizationFactor annualizes per-trade return statistics assuming daily
// bars.
const annualizationFactor = 252

// evaluateRobustness is the D4 soft check: a Sharpe-style robustness score
// from the out-of-sample trade log. It never fails the submission; a log
// without enough signal simply scores zero.
func (e *Evaluator) evaluateRobustness(tradeLog *types.Table) types.DimensionResult {
	performance := map[string]any{}
	score := 0.0

	if tradeLog != nil {
		if pnl, ok := columnFloats(tradeLog, "pnl"); ok {
			performance["total_pnl"] = sum(pnl)
			performance["max_drawdown"] = maxDrawdown(pnl)
			performance["num_trades"] = tradeLog.NumRows()

			returns := pctChange(pnl)
			if stdev := sampleStd(returns); stdev > 0 {
				sharpe := mean(returns) / stdev * math.Sqrt(annualizationFactor)
				if !math.IsNaN(sharpe) && !math.IsInf(sharpe, 0) {
					performance["sharpe_ratio"] = sharpe
					score = math.Min(100, math.Max(0, sharpe*50))
				}
			}
		}
	}

	return types.DimensionResult{
		Score:  score,
		Passed: true,
		Details: map[string]any{
			"oos_performance":  performance,
			"cost_sensitivity": map[string]any{},
			"stability_score":  0.0,
		},
	}
}

// columnFloats extracts a numeric column, skipping cells that do not parse.
func columnFloats(table *types.Table, name string) ([]float64, bool) {
	cells, ok := table.Column(name)
	if !ok {
		return nil, false
	}

	values := make([]float64, 0, len(cells))

	for _, cell := range cells {
		if v, ok := cellFloat(cell); ok {
			values = append(values, v)
		}
	}

	return values, true
}

// pctChange is the period-over-period relative change, dropping undefined
// leading entries. A zero base yields an infinite entry, which downstream
// statistics reject.
func pctChange(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}

	changes := make([]float64, 0, len(values)-1)

	for i := 1; i < len(values); i++ {
		changes = append(changes, (values[i]-values[i-1])/values[i-1])
	}

	return changes
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}

	return total
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	return sum(values) / float64(len(values))
}

// sampleStd is the standard deviation with one delta degree of freedom. It
// is NaN-propagating: any infinite change poisons the result, matching the
// "no score without clean signal" policy.
func sampleStd(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}

	m := mean(values)
	sq := 0.0

	for _, v := range values {
		d := v - m
		sq += d * d
	}

	return math.Sqrt(sq / float64(len(values)-1))
}

// maxDrawdown is the most negative gap between cumulative pnl and its
// running peak.
func maxDrawdown(pnl []float64) float64 {
	if len(pnl) == 0 {
		return 0
	}

	cum := 0.0
	peak := math.Inf(-1)
	drawdown := math.Inf(1)

	for _, v := range pnl {
		cum += v
		if cum > peak {
			peak = cum
		}

		if gap := cum - peak; gap < drawdown {
			drawdown = gap
		}
	}

	return drawdown
}
