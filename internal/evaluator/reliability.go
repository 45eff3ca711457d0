package evaluator

import (
	"os"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/systrade-bench/internal/types"
)

// LookaheadCheck inspects a submission for lookahead bias. The default check
// passes unconditionally; experiments with bar-by-bar replay infrastructure
// can plug in a real detector.
type LookaheadCheck func(submissionDir string, tradeLog *types.Table) bool

func defaultLookaheadCheck(submissionDir string, tradeLog *types.Table) bool {
	return true
}

// Weighted checks of the reliability gate. Schema and lookahead are worth
// half a point each.
const (
	reliabilityTotalWeight = 5.0
	reliabilityPassFloor   = 60.0
)

// evaluateReliability is the D3 gate: the submission must be runnable,
// reproducible, and auditable. An absent determinism outcome is treated as a
// pass so evaluation of a single run stays possible.
func (e *Evaluator) evaluateReliability(submissionDir, tradeLogPath, auditLogPath string, tradeLog *types.Table, determinism optional.Option[bool]) types.DimensionResult {
	var errs []string

	passedChecks := 0.0
	runnable := false

	if _, err := os.Stat(tradeLogPath); err == nil {
		runnable = true
		passedChecks++
	} else {
		errs = append(errs, errTradeLogMissing.Error())
	}

	deterministic := determinism.TakeOr(true)
	if deterministic {
		passedChecks++
	} else {
		errs = append(errs, "trade logs differ across runs")
	}

	auditComplete := false
	auditSchemaOK := false

	if _, err := os.Stat(auditLogPath); err == nil {
		auditComplete = true
		passedChecks++

		auditLog, err := e.store.ReadCSV(auditLogPath)
		if err != nil {
			errs = append(errs, "Failed to parse audit_log.csv: "+err.Error())
		} else if len(auditLog.MissingColumns(types.AuditLogColumns)) == 0 {
			auditSchemaOK = true
			passedChecks += 0.5
		}
	} else {
		errs = append(errs, errAuditLogMissing.Error())
	}

	noLookahead := e.lookahead(submissionDir, tradeLog)
	if noLookahead {
		passedChecks += 0.5
	} else {
		errs = append(errs, "lookahead bias detected")
	}

	score := passedChecks / reliabilityTotalWeight * 100

	return types.DimensionResult{
		Score:  score,
		Passed: runnable && score >= reliabilityPassFloor,
		Details: map[string]any{
			"runnable":           runnable,
			"deterministic":      deterministic,
			"no_lookahead_bias":  noLookahead,
			"audit_log_complete": auditComplete,
			"audit_schema_ok":    auditSchemaOK,
			"errors":             errs,
		},
	}
}
