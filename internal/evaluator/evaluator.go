// Package evaluator computes the four-dimension scorecard for an executed
// submission: D1 spec fidelity, D2 risk discipline, D3 reliability and
// auditability, D4 out-of-sample robustness. D1 and D3 are hard gates that
// short-circuit the sequence; D2 and D4 only shape the score.
package evaluator

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/systrade-bench/internal/card"
	"github.com/rxtech-lab/systrade-bench/internal/executor"
	"github.com/rxtech-lab/systrade-bench/internal/logger"
	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"go.uber.org/zap"
)

// Missing-artifact errors surfaced in dimension details.
var (
	errTradeLogMissing = errors.New(errors.ErrCodeTradeLogNotFound, "trade_log.csv not found")
	errAuditLogMissing = errors.New(errors.ErrCodeAuditLogNotFound, "audit_log.csv not found")
)

// Evaluator scores submissions against their frozen spec.
type Evaluator struct {
	logger      *logger.Logger
	store       *executor.LogStore
	constraints map[string]ConstraintCheck
	lookahead   LookaheadCheck
}

// NewEvaluator wires an evaluator with the default constraint checks and the
// default-pass lookahead check.
func NewEvaluator(logger *logger.Logger, store *executor.LogStore) *Evaluator {
	e := &Evaluator{
		logger:      logger,
		store:       store,
		constraints: make(map[string]ConstraintCheck),
		lookahead:   defaultLookaheadCheck,
	}
	e.RegisterConstraintCheck("position_limit", positionLimitCheck)

	return e
}

// RegisterConstraintCheck adds or replaces a named D2 constraint check.
func (e *Evaluator) RegisterConstraintCheck(name string, check ConstraintCheck) {
	e.constraints[name] = check
}

// SetLookaheadCheck replaces the D3 lookahead check.
func (e *Evaluator) SetLookaheadCheck(check LookaheadCheck) {
	e.lookahead = check
}

// EvaluateSubmission scores one executed submission. The determinism outcome
// comes from the determinism gate when it ran; when absent, D3 gives
// determinism the benefit of the doubt. The call always returns a structured
// scorecard: evaluation failures land in the Error field, never a panic.
func (e *Evaluator) EvaluateSubmission(submissionDir string, spec *card.StrategySpec, determinism optional.Option[bool]) (scorecard *types.Scorecard) {
	scorecard = &types.Scorecard{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		IsValid:    false,
		Dimensions: make(map[types.Dimension]types.DimensionResult),
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("evaluation panicked", zap.Any("panic", r))
			scorecard.IsValid = false
			scorecard.Error = fmt.Sprintf("evaluation failed: %v", r)
		}
	}()

	c, err := card.LoadCard(filepath.Join(submissionDir, card.CardFileName))
	if err != nil {
		scorecard.Error = err.Error()

		return scorecard
	}

	tradeLogPath := executor.TradeLogPath(submissionDir)
	auditLogPath := executor.AuditLogPath(submissionDir)

	d1 := e.evaluateSpecFidelity(c, spec)
	scorecard.Dimensions[types.DimensionSpecFidelity] = d1

	if !d1.Passed {
		e.logger.Warn("spec fidelity gate failed", zap.String("strategy_id", c.StrategyID))

		return scorecard
	}

	var tradeLog *types.Table

	if _, statErr := os.Stat(tradeLogPath); statErr == nil {
		tradeLog, err = e.store.ReadCSV(tradeLogPath)
		if err != nil {
			scorecard.Error = err.Error()

			return scorecard
		}

		scorecard.Dimensions[types.DimensionRiskDiscipline] = e.evaluateRiskDiscipline(tradeLog, c)
	} else {
		scorecard.Dimensions[types.DimensionRiskDiscipline] = types.DimensionResult{
			Score:   0,
			Passed:  false,
			Details: map[string]any{"error": errTradeLogMissing.Error()},
		}
	}

	d3 := e.evaluateReliability(submissionDir, tradeLogPath, auditLogPath, tradeLog, determinism)
	scorecard.Dimensions[types.DimensionReliability] = d3

	if !d3.Passed {
		e.logger.Warn("reliability gate failed", zap.String("strategy_id", c.StrategyID))

		return scorecard
	}

	scorecard.Dimensions[types.DimensionOOSRobustness] = e.evaluateRobustness(tradeLog)

	scorecard.IsValid = true
	scorecard.OverallScore = overallScore(scorecard)

	e.logger.Info("evaluation complete",
		zap.String("strategy_id", c.StrategyID),
		zap.Float64("overall_score", scorecard.OverallScore))

	return scorecard
}

// dimensionWeights are all equal: no dimension dominates the overall score.
var dimensionWeights = map[types.Dimension]float64{
	types.DimensionSpecFidelity:   1.0,
	types.DimensionRiskDiscipline: 1.0,
	types.DimensionReliability:    1.0,
	types.DimensionOOSRobustness:  1.0,
}

func overallScore(scorecard *types.Scorecard) float64 {
	totalWeight := 0.0
	for _, w := range dimensionWeights {
		totalWeight += w
	}

	weighted := 0.0

	for dim, w := range dimensionWeights {
		if result, ok := scorecard.Dimensions[dim]; ok {
			weighted += result.Score * w
		}
	}

	return weighted / totalWeight
}
