package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/systrade-bench/internal/card"
	"github.com/rxtech-lab/systrade-bench/internal/datasource"
	"github.com/rxtech-lab/systrade-bench/internal/evaluator"
	"github.com/rxtech-lab/systrade-bench/internal/executor"
	"github.com/rxtech-lab/systrade-bench/internal/experiment"
	"github.com/rxtech-lab/systrade-bench/internal/logger"
	"github.com/rxtech-lab/systrade-bench/internal/runtime"
	"github.com/rxtech-lab/systrade-bench/internal/runtime/native"
	"github.com/rxtech-lab/systrade-bench/internal/runtime/wasm"
	"github.com/rxtech-lab/systrade-bench/internal/sanitize"
	"github.com/rxtech-lab/systrade-bench/internal/strategy"
	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// evaluateAction runs the full pipeline for one submission: load data,
// execute, check determinism, score, write the scorecard.
func evaluateAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	manifestPath := cmd.String("manifest")
	submissionDir := cmd.String("submission")
	strategyID := cmd.String("strategy")
	symbol := cmd.String("symbol")
	splitName := cmd.String("split")
	runtimeFlag := cmd.String("runtime")
	outputPath := cmd.String("output")

	baseLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer baseLogger.Sync()

	// Everything downstream logs through the sanitizing core so host paths
	// never leak into persisted artifacts or terminal output.
	sanitizer := sanitize.NewSanitizer(filepath.Dir(configPath))
	appLogger := sanitize.NewLogger(baseLogger, sanitizer)

	experimentConfig, err := experiment.LoadConfig(configPath)
	if err != nil {
		return err
	}

	strategyConfig, err := experimentConfig.Strategy(strategyID)
	if err != nil {
		return err
	}

	spec, err := card.LoadSpec(filepath.Join(strategyConfig.SpecPath, "spec.json"))
	if err != nil {
		return err
	}

	split, err := experimentConfig.Split(splitName)
	if err != nil {
		return err
	}

	marketID := "us_daily"
	if len(strategyConfig.Markets) > 0 {
		marketID = strategyConfig.Markets[0]
	}

	bar := progressbar.NewOptions(4,
		progressbar.OptionSetDescription("Loading market data"),
		progressbar.OptionShowCount())

	loader, err := datasource.NewLoader(manifestPath, optional.None[string](), appLogger)
	if err != nil {
		return err
	}
	defer loader.Close()

	if symbol == "" {
		symbols := loader.AvailableSymbols(marketID)
		if len(symbols) == 0 {
			return fmt.Errorf("no symbols available for market %s", marketID)
		}

		symbol = symbols[0]
	}

	bars, err := loader.LoadMarketData(marketID, symbol, split.Range())
	if err != nil {
		return err
	}

	if err := datasource.RequireQuality(bars); err != nil {
		return err
	}

	_ = bar.Add(1)
	bar.Describe("Loading strategy card")

	strategyCard, err := card.LoadCard(filepath.Join(submissionDir, card.CardFileName))
	if err != nil {
		return err
	}

	store, err := executor.NewLogStore(appLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	strategyLoader, err := loaderForRuntime(runtimeFlag)
	if err != nil {
		return err
	}

	exec := executor.NewExecutor(appLogger, strategyLoader, store, experimentConfig.Evaluation.InitialCapital)

	_ = bar.Add(1)
	bar.Describe("Running determinism test")

	deterministic, report := exec.RunDeterminismTest(ctx, submissionDir, bars, strategyCard)
	if !deterministic && looksLikeRunFailure(report) {
		sanitized := sanitizer.Sanitize(report)
		errorPath := filepath.Join(submissionDir, "execution_error.txt")

		if writeErr := os.WriteFile(errorPath, []byte(sanitized), 0644); writeErr != nil {
			appLogger.Warn("failed to write execution error", zap.Error(writeErr))
		}

		return fmt.Errorf("strategy execution failed: %s", sanitized)
	}

	_ = bar.Add(1)
	bar.Describe("Scoring submission")

	eval := evaluator.NewEvaluator(appLogger, store)
	scorecard := eval.EvaluateSubmission(submissionDir, spec, optional.Some(deterministic))

	if outputPath == "" {
		reportsDir := filepath.Join(submissionDir, "reports")
		if err := os.MkdirAll(reportsDir, 0755); err != nil {
			return fmt.Errorf("failed to create reports directory: %w", err)
		}

		outputPath = filepath.Join(reportsDir, "scorecard.json")
	}

	if err := types.WriteScorecard(outputPath, scorecard); err != nil {
		return err
	}

	_ = bar.Add(1)
	_ = bar.Finish()

	fmt.Printf("\nScorecard written to %s\n", outputPath)
	fmt.Printf("Valid: %v  Overall score: %.2f\n", scorecard.IsValid, scorecard.OverallScore)

	if !deterministic {
		fmt.Printf("Determinism: %s\n", report)
	}

	return nil
}

func loaderForRuntime(runtimeFlag string) (runtime.Loader, error) {
	switch runtimeFlag {
	case "native":
		return native.NewLoader(strategy.NewRegistry()), nil
	case "wasm":
		return wasm.NewLoader(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported runtime %q", runtimeFlag)
	}
}

func looksLikeRunFailure(report string) bool {
	return strings.HasPrefix(report, "First run failed:") ||
		strings.HasPrefix(report, "Second run failed:") ||
		strings.HasPrefix(report, "Determinism test error:")
}

func main() {
	cmd := &cli.Command{
		Name:  "evaluate",
		Usage: "Execute and score a strategy submission",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to experiment.yaml",
				Value:   "configs/experiment.yaml",
			},
			&cli.StringFlag{
				Name:    "manifest",
				Aliases: []string{"m"},
				Usage:   "Path to data_manifest.yaml",
				Value:   "configs/data_manifest.yaml",
			},
			&cli.StringFlag{
				Name:     "submission",
				Aliases:  []string{"d"},
				Usage:    "Submission directory with strategy_card.json, code/ and logs/",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "strategy",
				Aliases:  []string{"s"},
				Usage:    "Strategy ID as configured in experiment.yaml",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "symbol",
				Usage: "Symbol to evaluate on. Defaults to the market's first symbol",
			},
			&cli.StringFlag{
				Name:  "split",
				Usage: "Time split to evaluate on",
				Value: "public_test",
			},
			&cli.StringFlag{
				Name:  "runtime",
				Usage: "Strategy runtime (wasm or native)",
				Value: "wasm",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Scorecard output path. Defaults to <submission>/reports/scorecard.json",
			},
		},
		Action: evaluateAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
