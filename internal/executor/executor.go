// Package executor drives one strategy execution end to end: load, run,
// normalize, persist. Callers read the persisted files on success, never a
// returned in-memory object, because the determinism check needs the on-disk
// artifact as ground truth.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/rxtech-lab/systrade-bench/internal/card"
	"github.com/rxtech-lab/systrade-bench/internal/logger"
	"github.com/rxtech-lab/systrade-bench/internal/runtime"
	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/rxtech-lab/systrade-bench/internal/version"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"go.uber.org/zap"
)

// DefaultInitialCapital is the starting capital when none is configured.
const DefaultInitialCapital = 100000.0

// Canonical artifact locations inside a submission directory.
const (
	CodeDirName  = "code"
	LogsDirName  = "logs"
	TradeLogName = "trade_log.csv"
	AuditLogName = "audit_log.csv"
)

// multiAssetSignatures are error fragments that mark a strategy as
// architecturally requiring paired-symbol input. Such strategies are
// inapplicable to single-asset data, which is a data mismatch and not a code
// defect.
var multiAssetSignatures = []string{
	"'close_x'", "'close_y'", "close_x", "close_y",
	"keys 'X' and 'Y'", "keys 'near' and 'far'", "'near'", "'far'",
	"MultiIndex columns", "multiple assets", "both assets", "two assets",
}

func isMultiAssetError(err error) bool {
	msg := strings.ToLower(err.Error())

	for _, signature := range multiAssetSignatures {
		if strings.Contains(msg, strings.ToLower(signature)) {
			return true
		}
	}

	return false
}

// Executor runs submissions through a pluggable strategy loader and persists
// their logs.
type Executor struct {
	logger         *logger.Logger
	loader         runtime.Loader
	store          *LogStore
	initialCapital float64
}

// NewExecutor wires an executor. An initialCapital of zero selects the
// default.
func NewExecutor(logger *logger.Logger, loader runtime.Loader, store *LogStore, initialCapital float64) *Executor {
	if initialCapital == 0 {
		initialCapital = DefaultInitialCapital
	}

	return &Executor{
		logger:         logger,
		loader:         loader,
		store:          store,
		initialCapital: initialCapital,
	}
}

// TradeLogPath returns the canonical trade log location for a submission.
func TradeLogPath(submissionDir string) string {
	return filepath.Join(submissionDir, LogsDirName, TradeLogName)
}

// AuditLogPath returns the canonical audit log location for a submission.
func AuditLogPath(submissionDir string) string {
	return filepath.Join(submissionDir, LogsDirName, AuditLogName)
}

// ExecuteStrategy loads the declared entry point, runs it over bars, and
// persists both logs, overwriting any prior run's output. The returned
// message is empty on success and carries the failure reason otherwise.
// Strategy panics are captured with their stack, never silently suppressed.
func (e *Executor) ExecuteStrategy(ctx context.Context, submissionDir string, bars []types.Bar, c *card.StrategyCard) (success bool, message string) {
	defer func() {
		if r := recover(); r != nil {
			success = false
			message = fmt.Sprintf("Strategy execution failed: %v\n%s", r, debug.Stack())
			e.logger.Error("strategy panicked", zap.Any("panic", r))
		}
	}()

	if err := version.CheckABICompatibility(version.GetVersion(), c.ABIVersion); err != nil {
		return false, err.Error()
	}

	e.logger.Info("loading strategy code",
		zap.String("strategy_id", c.StrategyID),
		zap.String("file", c.EntryFunction.File),
		zap.String("symbol", c.EntryFunction.Symbol))

	strategy, err := e.loader.Load(ctx, filepath.Join(submissionDir, CodeDirName), c.EntryFunction)
	if err != nil {
		return false, err.Error()
	}
	defer func() {
		if err := strategy.Close(ctx); err != nil {
			e.logger.Warn("failed to close strategy", zap.Error(err))
		}
	}()

	config, err := card.NewConfig(c).NormalizedJSON()
	if err != nil {
		return false, err.Error()
	}

	if err := strategy.Initialize(config); err != nil {
		return false, err.Error()
	}

	e.logger.Info("running strategy", zap.Int("bars", len(bars)))

	result, err := strategy.Run(ctx, bars, e.initialCapital)
	if err != nil {
		if !isMultiAssetError(err) {
			return false, fmt.Sprintf("Strategy execution failed: %s", err.Error())
		}

		e.logger.Warn("strategy requires multi-asset data, returning empty logs",
			zap.String("error", err.Error()))
		result = e.inapplicableResult(bars, err)
	}

	if err := result.TradeLog.Validate(); err != nil {
		return false, fmt.Sprintf("trade_log is not a valid columnar table: %s", err.Error())
	}

	if err := result.AuditLog.Validate(); err != nil {
		return false, fmt.Sprintf("audit_log is not a valid columnar table: %s", err.Error())
	}

	logsDir := filepath.Join(submissionDir, LogsDirName)
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return false, errors.Wrap(errors.ErrCodeLogDirNotFound, "failed to create logs directory", err).Error()
	}

	if err := e.store.WriteCSV(&result.TradeLog, filepath.Join(logsDir, TradeLogName)); err != nil {
		return false, err.Error()
	}

	if err := e.store.WriteCSV(&result.AuditLog, filepath.Join(logsDir, AuditLogName)); err != nil {
		return false, err.Error()
	}

	e.logger.Info("strategy executed successfully", zap.Int("trades", result.TradeLog.NumRows()))

	return true, ""
}

// inapplicableResult is the well-formed empty result pair recorded when a
// multi-asset strategy meets single-asset data.
func (e *Executor) inapplicableResult(bars []types.Bar, cause error) *types.RunResult {
	tradeLog := types.NewTable(types.TradeLogColumns...)
	auditLog := types.NewTable("datetime", "equity", "signal", "message")

	firstDT := ""
	if len(bars) > 0 {
		firstDT = types.FormatTime(bars[0].Time)
	}

	msg := cause.Error()
	if len(msg) > 100 {
		msg = msg[:100]
	}

	_ = auditLog.AppendRow(firstDT, e.initialCapital, "not_applicable",
		"Strategy requires multi-asset data: "+msg)

	return &types.RunResult{TradeLog: *tradeLog, AuditLog: *auditLog}
}

// RunDeterminismTest executes the strategy twice over identical inputs and
// compares the persisted trade logs cell for cell. Only the trade log defines
// determinism; audit logs may carry timing-sensitive fields.
func (e *Executor) RunDeterminismTest(ctx context.Context, submissionDir string, bars []types.Bar, c *card.StrategyCard) (bool, string) {
	e.logger.Info("running determinism test", zap.String("strategy_id", c.StrategyID))

	if ok, errMsg := e.ExecuteStrategy(ctx, submissionDir, bars, c); !ok {
		return false, "First run failed: " + errMsg
	}

	first, err := e.store.ReadCSV(TradeLogPath(submissionDir))
	if err != nil {
		return false, "Determinism test error: " + err.Error()
	}

	if ok, errMsg := e.ExecuteStrategy(ctx, submissionDir, bars, c); !ok {
		return false, "Second run failed: " + errMsg
	}

	second, err := e.store.ReadCSV(TradeLogPath(submissionDir))
	if err != nil {
		return false, "Determinism test error: " + err.Error()
	}

	if tablesEqual(first, second) {
		e.logger.Info("determinism test passed")

		return true, "Results are identical across runs"
	}

	e.logger.Warn("determinism test failed")

	return false, diffReport(first, second)
}

// tablesEqual reports exact row-for-row, column-for-column equality.
func tablesEqual(a, b *types.Table) bool {
	if len(a.Columns) != len(b.Columns) {
		return false
	}

	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}

	if len(a.Rows) != len(b.Rows) {
		return false
	}

	for i := range a.Rows {
		for j := range a.Rows[i] {
			if a.Rows[i][j] != b.Rows[i][j] {
				return false
			}
		}
	}

	return true
}

// maxDiffSamples bounds the diff report to three sample rows per column.
const maxDiffSamples = 3

// diffReport renders a bounded human-readable diff between two trade logs.
func diffReport(a, b *types.Table) string {
	report := []string{"Trade logs differ between runs:"}

	if a.NumRows() != b.NumRows() {
		report = append(report, fmt.Sprintf("- Row count: %d vs %d", a.NumRows(), b.NumRows()))
	}

	rows := a.NumRows()
	if b.NumRows() < rows {
		rows = b.NumRows()
	}

	for _, column := range a.Columns {
		if !b.HasColumn(column) {
			continue
		}

		var samples []string

		for i := 0; i < rows && len(samples) < maxDiffSamples; i++ {
			av, _ := a.Cell(i, column)
			bv, _ := b.Cell(i, column)

			if av != bv {
				samples = append(samples, fmt.Sprintf("  Row %d: %v vs %v", i, av, bv))
			}
		}

		if len(samples) > 0 {
			report = append(report, fmt.Sprintf("- Column '%s' differs", column))
			report = append(report, samples...)
		}
	}

	return strings.Join(report, "\n")
}
