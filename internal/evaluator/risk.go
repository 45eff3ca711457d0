package evaluator

import (
	"math"
	"strconv"

	"github.com/rxtech-lab/systrade-bench/internal/card"
	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
)

// ConstraintViolation is one detected breach of a declared constraint.
type ConstraintViolation struct {
	Type     string
	Count    int
	Severity string
}

// ConstraintCheck inspects a trade log against the declaration's constraints.
// Checks are registered by name so experiment-specific constraints can be
// added without touching the scoring.
type ConstraintCheck func(tradeLog *types.Table, c *card.StrategyCard) []ConstraintViolation

// Violation-rate thresholds: above softCap the score degrades gently, above
// hardCap the dimension fails with a steeper penalty.
const (
	violationHardCap   = 0.1
	hardPenaltyPerRate = 500.0
	softPenaltyPerRate = 200.0
)

// evaluateRiskDiscipline is the D2 soft check: trades must respect the
// constraints the declaration itself promised.
func (e *Evaluator) evaluateRiskDiscipline(tradeLog *types.Table, c *card.StrategyCard) types.DimensionResult {
	severity := map[string]int{"critical": 0, "major": 0, "minor": 0}
	violationTypes := map[string]int{}

	totalViolations := 0

	for _, check := range e.constraints {
		for _, v := range check(tradeLog, c) {
			totalViolations += v.Count
			severity[v.Severity] += v.Count
			violationTypes[v.Type] += v.Count
		}
	}

	violationRate := 0.0
	if tradeLog.NumRows() > 0 {
		violationRate = float64(totalViolations) / float64(tradeLog.NumRows())
	}

	score := 100.0
	passed := true

	switch {
	case violationRate > violationHardCap:
		score = math.Max(0, 100-violationRate*hardPenaltyPerRate)
		passed = false
	case violationRate > 0:
		score = 100 - violationRate*softPenaltyPerRate
	}

	details := map[string]any{
		"total_violations":   totalViolations,
		"violation_rate":     violationRate,
		"severity_breakdown": severity,
		"violation_types":    violationTypes,
	}

	if !passed {
		details["error"] = errors.Newf(errors.ErrCodeConstraintViolated,
			"violation rate %.3f exceeds hard cap %.1f", violationRate, violationHardCap).Error()
	}

	return types.DimensionResult{
		Score:   score,
		Passed:  passed,
		Details: details,
	}
}

// positionLimitCheck flags trades whose position after fill exceeds the
// declared max_position_size. Logs without a position_after column are not
// penalized.
func positionLimitCheck(tradeLog *types.Table, c *card.StrategyCard) []ConstraintViolation {
	positions, ok := tradeLog.Column("position_after")
	if !ok {
		return nil
	}

	maxPosition := c.MaxPositionSize(1.0)
	count := 0

	for _, cell := range positions {
		position, ok := cellFloat(cell)
		if ok && math.Abs(position) > maxPosition {
			count++
		}
	}

	if count == 0 {
		return nil
	}

	return []ConstraintViolation{{Type: "position_limit", Count: count, Severity: "critical"}}
}

// cellFloat coerces a log cell to a float64. Cells read back from CSV are
// text; cells from in-memory tables may already be numeric.
func cellFloat(cell any) (float64, bool) {
	switch v := cell.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}
