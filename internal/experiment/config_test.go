package experiment

import (
	"testing"
	"time"

	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
experiment_name: bench-2026q1
time_splits:
  train:
    time_min: "2022-01-01"
    time_max: "2024-01-01"
  public_test:
    time_min: "2024-01-01"
    time_max: "2025-01-01"
  private_oos:
    time_min: "2025-01-01 00:00:00"
evaluation:
  cost_sweep: [0.0, 0.0005, 0.001]
  initial_capital: 100000
strategies:
  - strategy_id: bollinger_mean_reversion
    spec_path: specs/bollinger
    markets: [us_daily]
`

func TestParseConfig(t *testing.T) {
	config, err := ParseConfig([]byte(validConfig))
	require.NoError(t, err)

	assert.Equal(t, "bench-2026q1", config.ExperimentName)
	assert.Len(t, config.TimeSplits, 3)
	assert.Equal(t, 100000.0, config.Evaluation.InitialCapital)

	train, err := config.Split("train")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), train.TimeMin.Unwrap())
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), train.TimeMax.Unwrap())

	oos, err := config.Split("private_oos")
	require.NoError(t, err)
	assert.True(t, oos.TimeMax.IsNone(), "open-ended window")

	bounds := train.Range()
	assert.True(t, bounds.Min.IsSome())
	assert.True(t, bounds.Max.IsSome())
}

func TestParseConfigRejectsInvertedSplit(t *testing.T) {
	raw := `
time_splits:
  train:
    time_min: "2024-01-01"
    time_max: "2022-01-01"
`
	_, err := ParseConfig([]byte(raw))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSplitConfig))
}

func TestParseConfigRejectsBadTimestamp(t *testing.T) {
	raw := `
time_splits:
  train:
    time_min: "next tuesday"
`
	_, err := ParseConfig([]byte(raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparseable split time")
}

func TestParseConfigRequiresSplits(t *testing.T) {
	_, err := ParseConfig([]byte(`experiment_name: empty`))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSplitConfig))
}

func TestSplitLookupMiss(t *testing.T) {
	config, err := ParseConfig([]byte(validConfig))
	require.NoError(t, err)

	_, err = config.Split("shadow_test")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidSplitConfig))
}

func TestStrategyLookup(t *testing.T) {
	config, err := ParseConfig([]byte(validConfig))
	require.NoError(t, err)

	s, err := config.Strategy("bollinger_mean_reversion")
	require.NoError(t, err)
	assert.Equal(t, "specs/bollinger", s.SpecPath)

	_, err = config.Strategy("momentum")
	assert.Error(t, err)
}

func TestGenerateSchemaJSON(t *testing.T) {
	config := &Config{}

	schema, err := config.GenerateSchemaJSON()
	require.NoError(t, err)
	assert.Contains(t, schema, "experiment-config")
	assert.Contains(t, schema, "time_splits")
}
