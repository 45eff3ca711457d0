package datasource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/systrade-bench/internal/logger"
	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/rxtech-lab/systrade-bench/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DataSourceTestSuite struct {
	suite.Suite

	loader *Loader
}

func TestDataSourceSuite(t *testing.T) {
	suite.Run(t, new(DataSourceTestSuite))
}

const manifestTemplate = `
data_root: ./rawdata
markets:
  us_daily:
    base_path: us_daily
    frequency: 1d
    timezone: UTC
    csv_format:
      columns: [datetime, open, high, low, close, volume]
    instruments:
      - symbol: AAPL
        csv_file: AAPL.csv
      - symbol: MSFT
        csv_file: MSFT.csv
  us_disabled:
    enabled: false
    base_path: us_daily
    instruments:
      - symbol: AAPL
        csv_file: AAPL.csv
  us_weekly:
    derived_from: us_daily
    base_path: us_weekly
    resample_config:
      target_freq: 1d
`

// AAPL.csv is deliberately unsorted and carries a duplicate timestamp.
const aaplCSV = `datetime,open,high,low,close,volume
2024-01-03 00:00:00,102,103,101,102.5,1200
2024-01-01 00:00:00,100,101,99,100.5,1000
2024-01-02 00:00:00,101,102,100,101.5,1100
2024-01-02 00:00:00,999,999,999,999,9999
2024-01-04 00:00:00,103,104,102,103.5,1300
`

func (suite *DataSourceTestSuite) SetupTest() {
	root := suite.T().TempDir()
	configDir := filepath.Join(root, "configs")
	dataDir := filepath.Join(root, "rawdata", "us_daily")
	suite.Require().NoError(os.MkdirAll(configDir, 0755))
	suite.Require().NoError(os.MkdirAll(dataDir, 0755))

	manifestPath := filepath.Join(configDir, "data_manifest.yaml")
	suite.Require().NoError(os.WriteFile(manifestPath, []byte(manifestTemplate), 0644))
	suite.Require().NoError(os.WriteFile(filepath.Join(dataDir, "AAPL.csv"), []byte(aaplCSV), 0644))

	loader, err := NewLoader(manifestPath, optional.None[string](), logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.loader = loader
}

func (suite *DataSourceTestSuite) TearDownTest() {
	suite.Require().NoError(suite.loader.Close())
}

func (suite *DataSourceTestSuite) TestLoadSortsAndDeduplicates() {
	bars, err := suite.loader.LoadMarketData("us_daily", "AAPL", TimeRange{})
	suite.Require().NoError(err)
	suite.Require().Len(bars, 4)

	for i := 1; i < len(bars); i++ {
		suite.True(bars[i-1].Time.Before(bars[i].Time))
	}

	suite.Equal("AAPL", bars[0].Symbol)
	suite.Equal(100.5, bars[0].Close)
}

func (suite *DataSourceTestSuite) TestLoadAppliesTimeBounds() {
	bounds := TimeRange{
		Min: optional.Some(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		Max: optional.Some(time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)),
	}

	bars, err := suite.loader.LoadMarketData("us_daily", "AAPL", bounds)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2, "min is inclusive, max is exclusive")
}

func (suite *DataSourceTestSuite) TestLoadUnknownMarket() {
	_, err := suite.loader.LoadMarketData("fx_tick", "AAPL", TimeRange{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketNotFound))
}

func (suite *DataSourceTestSuite) TestLoadDisabledMarket() {
	_, err := suite.loader.LoadMarketData("us_disabled", "AAPL", TimeRange{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketNotFound))
	suite.Contains(err.Error(), "disabled")
}

func (suite *DataSourceTestSuite) TestLoadUnknownSymbol() {
	_, err := suite.loader.LoadMarketData("us_daily", "TSLA", TimeRange{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSymbolNotFound))
}

func (suite *DataSourceTestSuite) TestLoadMissingFile() {
	_, err := suite.loader.LoadMarketData("us_daily", "MSFT", TimeRange{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *DataSourceTestSuite) TestDerivedMarketResamplesFromSource() {
	bars, err := suite.loader.LoadMarketData("us_weekly", "AAPL", TimeRange{})
	suite.Require().NoError(err)
	suite.Len(bars, 4, "daily source resampled at daily width is unchanged")
}

func (suite *DataSourceTestSuite) TestAvailableSymbols() {
	suite.Equal([]string{"AAPL", "MSFT"}, suite.loader.AvailableSymbols("us_daily"))
	suite.Empty(suite.loader.AvailableSymbols("fx_tick"))
}

func (suite *DataSourceTestSuite) TestTimeSpan() {
	first, last, err := suite.loader.TimeSpan("us_daily", "AAPL")
	suite.Require().NoError(err)
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), first.UTC())
	suite.Equal(time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), last.UTC())
}

func TestResampleAggregatesBuckets(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	bars := []types.Bar{
		{Time: start, Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		{Time: start.Add(time.Minute), Open: 11, High: 15, Low: 10, Close: 14, Volume: 200},
		{Time: start.Add(time.Hour), Open: 14, High: 16, Low: 13, Close: 15, Volume: 300},
	}

	got := Resample(bars, time.Hour)
	if len(got) != 2 {
		t.Fatalf("want 2 buckets, got %d", len(got))
	}

	first := got[0]
	if first.Open != 10 || first.High != 15 || first.Low != 9 || first.Close != 14 || first.Volume != 300 {
		t.Fatalf("unexpected first bucket: %+v", first)
	}
}

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		freq    string
		want    time.Duration
		wantErr bool
	}{
		{freq: "1min", want: time.Minute},
		{freq: "5min", want: 5 * time.Minute},
		{freq: "1h", want: time.Hour},
		{freq: "1d", want: 24 * time.Hour},
		{freq: "fortnight", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseFrequency(tt.freq)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseFrequency(%q): want error", tt.freq)
			}

			continue
		}

		if err != nil || got != tt.want {
			t.Fatalf("parseFrequency(%q) = %v, %v; want %v", tt.freq, got, err, tt.want)
		}
	}
}

func TestFilterByRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, 5)

	for i := range bars {
		bars[i] = types.Bar{Time: start.AddDate(0, 0, i)}
	}

	got := FilterByRange(bars, TimeRange{
		Min: optional.Some(start.AddDate(0, 0, 1)),
		Max: optional.Some(start.AddDate(0, 0, 4)),
	})

	if len(got) != 3 {
		t.Fatalf("want 3 bars, got %d", len(got))
	}
}
