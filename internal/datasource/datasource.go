package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/systrade-bench/internal/logger"
	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"go.uber.org/zap"
)

// TimeRange bounds a load: Min is inclusive, Max is exclusive. Unset bounds
// leave that side open.
type TimeRange struct {
	Min optional.Option[time.Time]
	Max optional.Option[time.Time]
}

// Loader reads market data files through DuckDB per the manifest.
type Loader struct {
	manifest *Manifest
	dataRoot string
	db       *sql.DB
	logger   *logger.Logger
}

// NewLoader opens a loader for the given manifest. dataRoot overrides the
// manifest's own data_root when set.
func NewLoader(manifestPath string, dataRoot optional.Option[string], logger *logger.Logger) (*Loader, error) {
	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	root := dataRoot.TakeOr(manifest.DataRoot)
	root = resolveDataRoot(manifestPath, root)

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to open database", err)
	}

	logger.Info("data loader ready", zap.String("data_root", root))

	return &Loader{
		manifest: manifest,
		dataRoot: root,
		db:       db,
		logger:   logger,
	}, nil
}

// Close releases the backing database.
func (l *Loader) Close() error {
	return l.db.Close()
}

// AvailableSymbols returns all symbols of a market, empty when the market is
// unknown.
func (l *Loader) AvailableSymbols(marketID string) []string {
	market, ok := l.manifest.Markets[marketID]
	if !ok {
		return nil
	}

	symbols := make([]string, 0, len(market.Instruments))
	for _, instrument := range market.Instruments {
		symbols = append(symbols, instrument.Symbol)
	}

	return symbols
}

// LoadMarketData loads the OHLCV series for one symbol, sorted by time with
// duplicate timestamps dropped (first occurrence wins).
func (l *Loader) LoadMarketData(marketID, symbol string, bounds TimeRange) ([]types.Bar, error) {
	market, ok := l.manifest.Markets[marketID]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeMarketNotFound, "market %s not found in manifest", marketID)
	}

	if !market.IsEnabled() {
		return nil, errors.Newf(errors.ErrCodeMarketNotFound, "market %s is disabled", marketID)
	}

	if market.DerivedFrom != "" {
		return l.loadDerived(marketID, market, symbol, bounds)
	}

	instrument, ok := market.Instrument(symbol)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeSymbolNotFound, "symbol %s not found in market %s", symbol, marketID)
	}

	path := filepath.Join(l.dataRoot, market.BasePath, instrument.CSVFile)

	bars, err := l.readBars(path, symbol, market.CSVFormat.Columns, bounds)
	if err != nil {
		return nil, err
	}

	l.logger.Info("loaded market data",
		zap.String("market", marketID),
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)))

	return bars, nil
}

// TimeSpan returns the first and last bar timestamps for a symbol.
func (l *Loader) TimeSpan(marketID, symbol string) (time.Time, time.Time, error) {
	bars, err := l.LoadMarketData(marketID, symbol, TimeRange{})
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if len(bars) == 0 {
		return time.Time{}, time.Time{}, errors.Newf(errors.ErrCodeDataNotFound,
			"no bars for %s in %s", symbol, marketID)
	}

	return bars[0].Time, bars[len(bars)-1].Time, nil
}

// loadDerived serves a derived market from its precomputed file when one
// exists, otherwise resamples the source market on the fly.
func (l *Loader) loadDerived(marketID string, market *Market, symbol string, bounds TimeRange) ([]types.Bar, error) {
	path := filepath.Join(l.dataRoot, market.BasePath, symbol+".csv")
	if _, err := os.Stat(path); err == nil {
		return l.readBars(path, symbol, nil, bounds)
	}

	if market.ResampleConfig == nil {
		return nil, errors.Newf(errors.ErrCodeInvalidSplitConfig,
			"derived market %s has no resample_config", marketID)
	}

	l.logger.Info("derived data not found, resampling from source",
		zap.String("market", marketID),
		zap.String("source", market.DerivedFrom))

	source, err := l.LoadMarketData(market.DerivedFrom, symbol, bounds)
	if err != nil {
		return nil, err
	}

	freq, err := parseFrequency(market.ResampleConfig.TargetFreq)
	if err != nil {
		return nil, err
	}

	return Resample(source, freq), nil
}

// readBars queries one CSV file, applying sort, dedup, and time bounds in
// SQL so every caller gets identical normalization.
func (l *Loader) readBars(path, symbol string, expectedColumns []string, bounds TimeRange) ([]types.Bar, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "data file not found: %s", filepath.Base(path))
	}

	if len(expectedColumns) > 0 {
		l.checkColumns(path, expectedColumns)
	}

	var conditions []string

	var args []any

	if bounds.Min.IsSome() {
		conditions = append(conditions, "datetime >= ?")
		args = append(args, bounds.Min.Unwrap())
	}

	if bounds.Max.IsSome() {
		conditions = append(conditions, "datetime < ?")
		args = append(args, bounds.Max.Unwrap())
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT datetime::TIMESTAMP, open::DOUBLE, high::DOUBLE, low::DOUBLE, close::DOUBLE, volume::DOUBLE
		FROM read_csv('%s', header=true)
		%s
		QUALIFY ROW_NUMBER() OVER (PARTITION BY datetime ORDER BY datetime) = 1
		ORDER BY datetime`, escapeLiteral(path), where)

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataQueryFailed, err, "failed to query %s", filepath.Base(path))
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		bar := types.Bar{Symbol: symbol}
		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataQueryFailed, "failed to iterate bars", err)
	}

	return bars, nil
}

// checkColumns warns when a file's header drifts from the manifest's
// declared layout. Drift is not fatal; the typed query surfaces real
// incompatibilities.
func (l *Loader) checkColumns(path string, expected []string) {
	rows, err := l.db.Query(fmt.Sprintf("SELECT * FROM read_csv('%s', header=true) LIMIT 0", escapeLiteral(path)))
	if err != nil {
		return
	}
	defer rows.Close()

	actual, err := rows.Columns()
	if err != nil {
		return
	}

	if !equalStrings(actual, expected) {
		l.logger.Warn("column mismatch in data file",
			zap.String("file", filepath.Base(path)),
			zap.Strings("expected", expected),
			zap.Strings("actual", actual))
	}
}

// FilterByRange returns the bars within bounds, preserving order.
func FilterByRange(bars []types.Bar, bounds TimeRange) []types.Bar {
	filtered := make([]types.Bar, 0, len(bars))

	for _, bar := range bars {
		if bounds.Min.IsSome() && bar.Time.Before(bounds.Min.Unwrap()) {
			continue
		}

		if bounds.Max.IsSome() && !bar.Time.Before(bounds.Max.Unwrap()) {
			continue
		}

		filtered = append(filtered, bar)
	}

	return filtered
}

// Resample aggregates bars into buckets of the given width: first open,
// max high, min low, last close, summed volume. Empty buckets are dropped.
func Resample(bars []types.Bar, bucket time.Duration) []types.Bar {
	buckets := make(map[time.Time]*types.Bar)

	for _, bar := range bars {
		key := bar.Time.Truncate(bucket)

		agg, ok := buckets[key]
		if !ok {
			b := bar
			b.Time = key
			buckets[key] = &b

			continue
		}

		if bar.High > agg.High {
			agg.High = bar.High
		}

		if bar.Low < agg.Low {
			agg.Low = bar.Low
		}

		agg.Close = bar.Close
		agg.Volume += bar.Volume
	}

	resampled := make([]types.Bar, 0, len(buckets))
	for _, bar := range buckets {
		resampled = append(resampled, *bar)
	}

	sort.Slice(resampled, func(i, j int) bool { return resampled[i].Time.Before(resampled[j].Time) })

	return resampled
}

// parseFrequency maps manifest frequency strings to bucket widths.
func parseFrequency(freq string) (time.Duration, error) {
	normalized := strings.ToLower(strings.TrimSpace(freq))

	units := map[string]time.Duration{
		"min": time.Minute,
		"m":   time.Minute,
		"h":   time.Hour,
		"d":   24 * time.Hour,
	}

	for suffix, unit := range units {
		if !strings.HasSuffix(normalized, suffix) {
			continue
		}

		count := strings.TrimSuffix(normalized, suffix)
		if count == "" {
			count = "1"
		}

		var n int
		if _, err := fmt.Sscanf(count, "%d", &n); err != nil || n < 1 {
			break
		}

		return time.Duration(n) * unit, nil
	}

	return 0, errors.Newf(errors.ErrCodeInvalidSplitConfig, "unsupported resample frequency: %s", freq)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func escapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
