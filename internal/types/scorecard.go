package types

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Dimension identifies one of the four evaluation dimensions.
type Dimension string

const (
	DimensionSpecFidelity   Dimension = "D1"
	DimensionRiskDiscipline Dimension = "D2"
	DimensionReliability    Dimension = "D3"
	DimensionOOSRobustness  Dimension = "D4"
)

// DimensionResult holds the outcome of a single dimension check.
type DimensionResult struct {
	// Score in [0, 100].
	Score float64 `json:"score"`
	// Passed reports whether the dimension's pass condition held.
	Passed bool `json:"passed"`
	// Details carries per-dimension diagnostics (violations, errors, metrics).
	Details map[string]any `json:"details"`
}

// Scorecard is the single output artifact of one evaluation.
// It is created fresh per evaluation call and immutable once returned.
type Scorecard struct {
	// ID is the unique identifier for this evaluation run.
	ID string `json:"id"`
	// Timestamp is when the evaluation was executed.
	Timestamp time.Time `json:"timestamp"`
	// IsValid is false whenever a hard gate failed or evaluation errored.
	IsValid bool `json:"is_valid"`
	// Dimensions maps D1..D4 to their results. Dimensions skipped by a
	// hard-gate short circuit are absent.
	Dimensions map[Dimension]DimensionResult `json:"dimensions"`
	// OverallScore is the unweighted mean of the computed dimension scores.
	OverallScore float64 `json:"overall_score"`
	// Error captures any failure of the evaluation itself, so callers always
	// receive a structured result.
	Error string `json:"error,omitempty"`
}

// WriteScorecard serializes the scorecard to a JSON file.
func WriteScorecard(path string, card *Scorecard) error {
	data, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scorecard to JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scorecard to file: %w", err)
	}

	return nil
}
