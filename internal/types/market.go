package types

import "time"

// Bar represents a single OHLCV price bar.
type Bar struct {
	// Time is the bar timestamp (start of the period).
	Time time.Time `json:"datetime" yaml:"datetime"`
	// Symbol is the instrument this bar belongs to.
	Symbol string  `json:"symbol" yaml:"symbol"`
	Open   float64 `json:"open" yaml:"open"`
	High   float64 `json:"high" yaml:"high"`
	Low    float64 `json:"low" yaml:"low"`
	Close  float64 `json:"close" yaml:"close"`
	Volume float64 `json:"volume" yaml:"volume"`
}

// BarColumns is the fixed column set of a price-bar table.
var BarColumns = []string{"datetime", "open", "high", "low", "close", "volume"}

// TimeLayout is the datetime format used in persisted log cells.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTime renders a timestamp in the canonical log format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
