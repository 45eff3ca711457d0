package evaluator

import (
	"fmt"
	"strings"

	"github.com/rxtech-lab/systrade-bench/internal/card"
	"github.com/rxtech-lab/systrade-bench/internal/types"
)

// evaluateSpecFidelity is the D1 gate: the declaration must be semantically
// equivalent to the frozen spec. Four checks, each worth a quarter of the
// score; the gate passes only when all four hold.
func (e *Evaluator) evaluateSpecFidelity(c *card.StrategyCard, spec *card.StrategySpec) types.DimensionResult {
	var violations []string

	if c.StrategyID != spec.StrategyID {
		violations = append(violations, "strategy_id mismatch")
	}

	for name, paramSpec := range spec.Parameters {
		declared, ok := c.Parameters[name]
		if !ok {
			if paramSpec.IsRequired() {
				violations = append(violations, fmt.Sprintf("Missing required parameter: %s", name))
			}

			continue
		}

		if paramSpec.Type != "" && declared.DeclaredType() != paramSpec.Type {
			violations = append(violations, fmt.Sprintf("Parameter type mismatch: %s", name))
		}
	}

	for name := range c.Parameters {
		if _, ok := spec.Parameters[name]; !ok {
			violations = append(violations, fmt.Sprintf("Unauthorized parameter: %s", name))
		}
	}

	details := map[string]any{
		"semantic_equivalence":      false,
		"no_unauthorized_additions": false,
		"parameter_consistency":     false,
		"output_format_correct":     false,
		"violations":                violations,
	}

	passedChecks := 0

	if c.StrategyID == spec.StrategyID {
		details["semantic_equivalence"] = true
		passedChecks++
	}

	if !anyContains(violations, "Unauthorized") {
		details["no_unauthorized_additions"] = true
		passedChecks++
	}

	// Any violation mentioning a parameter, unauthorized ones included,
	// breaks parameter consistency.
	if !anyContainsFold(violations, "parameter") {
		details["parameter_consistency"] = true
		passedChecks++
	}

	if c.OutputSpec.TradeLogColumns != nil && c.OutputSpec.AuditLogColumns != nil {
		details["output_format_correct"] = true
		passedChecks++
	}

	return types.DimensionResult{
		Score:   float64(passedChecks) / 4 * 100,
		Passed:  passedChecks == 4,
		Details: details,
	}
}

func anyContains(values []string, substr string) bool {
	for _, v := range values {
		if strings.Contains(v, substr) {
			return true
		}
	}

	return false
}

func anyContainsFold(values []string, substr string) bool {
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), strings.ToLower(substr)) {
			return true
		}
	}

	return false
}
