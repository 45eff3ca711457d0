package datasource

import (
	"math"
	"sort"

	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
)

// ValidateDataQuality runs the basic quality checks over a loaded series and
// returns each check's outcome by name.
func ValidateDataQuality(bars []types.Bar) map[string]bool {
	checks := map[string]bool{
		"column_completeness":   true,
		"datetime_sorted":       true,
		"no_duplicate_datetime": true,
		"no_missing_ohlc":       true,
		"price_consistency":     true,
	}

	for i, bar := range bars {
		if bar.Time.IsZero() {
			checks["column_completeness"] = false
		}

		if i > 0 {
			if bar.Time.Before(bars[i-1].Time) {
				checks["datetime_sorted"] = false
			}

			if bar.Time.Equal(bars[i-1].Time) {
				checks["no_duplicate_datetime"] = false
			}
		}

		if anyNaN(bar.Open, bar.High, bar.Low, bar.Close) {
			checks["no_missing_ohlc"] = false

			continue
		}

		if bar.Low > bar.Open || bar.Low > bar.Close || bar.Open > bar.High || bar.Close > bar.High {
			checks["price_consistency"] = false
		}
	}

	if !checks["no_missing_ohlc"] {
		checks["price_consistency"] = false
	}

	return checks
}

// RequireQuality returns an error naming every failed check.
func RequireQuality(bars []types.Bar) error {
	checks := ValidateDataQuality(bars)

	var failed []string

	for name, ok := range checks {
		if !ok {
			failed = append(failed, name)
		}
	}

	if len(failed) == 0 {
		return nil
	}

	// Map iteration order is random; keep the message stable across runs.
	sort.Strings(failed)

	return errors.Newf(errors.ErrCodeDataQualityFailed, "data quality checks failed: %v", failed)
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}
