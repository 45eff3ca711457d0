package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/systrade-bench/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeBars builds a daily bar series from the given closes.
func makeBars(closes []float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Time:   start.AddDate(0, 0, i),
			Symbol: "TEST",
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}

	return bars
}

// dipAndRecover is flat at 100, dips to 90, then climbs back past the mean.
func dipAndRecover() []float64 {
	closes := make([]float64, 0, 60)
	for i := 0; i < 30; i++ {
		closes = append(closes, 100)
	}

	closes = append(closes, 90)
	for i := 1; i <= 29; i++ {
		closes = append(closes, 90+float64(i))
	}

	return closes
}

func TestBollingerEntersOnLowerBandCross(t *testing.T) {
	s := NewBollingerMeanReversion()
	require.NoError(t, s.Initialize(`{"N": 20, "k": 2.0, "stop_loss_pct": 0.10}`))

	result, err := s.Run(context.Background(), makeBars(dipAndRecover()), 100000)
	require.NoError(t, err)

	require.Equal(t, 1, result.TradeLog.NumRows())
	side, _ := result.TradeLog.Cell(0, "side")
	assert.Equal(t, "long", side)
	entryPrice, _ := result.TradeLog.Cell(0, "entry_price")
	assert.Equal(t, 90.0, entryPrice)
	pnl, _ := result.TradeLog.Cell(0, "pnl")
	assert.Greater(t, pnl.(float64), 0.0)

	signals, ok := result.AuditLog.Column("signal")
	require.True(t, ok)
	assert.Contains(t, signals, "enter")
	assert.Contains(t, signals, "exit_mb")
}

func TestBollingerStopLoss(t *testing.T) {
	closes := make([]float64, 0, 40)
	for i := 0; i < 30; i++ {
		closes = append(closes, 100)
	}

	// Cross below the band, then crash through the stop.
	closes = append(closes, 90, 75, 75, 75)

	s := NewBollingerMeanReversion()
	require.NoError(t, s.Initialize(`{"N": 20, "k": 2.0, "stop_loss_pct": 0.10}`))

	result, err := s.Run(context.Background(), makeBars(closes), 100000)
	require.NoError(t, err)

	require.Equal(t, 1, result.TradeLog.NumRows())
	pnl, _ := result.TradeLog.Cell(0, "pnl")
	assert.Less(t, pnl.(float64), 0.0)

	signals, _ := result.AuditLog.Column("signal")
	assert.Contains(t, signals, "exit_stop")
}

func TestBollingerShortSeriesIsFlat(t *testing.T) {
	s := NewBollingerMeanReversion()
	require.NoError(t, s.Initialize(`{"N": 20}`))

	result, err := s.Run(context.Background(), makeBars([]float64{100, 101, 102}), 100000)
	require.NoError(t, err)

	assert.Equal(t, 0, result.TradeLog.NumRows())
	assert.Equal(t, 3, result.AuditLog.NumRows())

	equities, _ := result.AuditLog.Column("equity")
	for _, e := range equities {
		assert.Equal(t, 100000.0, e)
	}
}

func TestBollingerIsReproducible(t *testing.T) {
	bars := makeBars(dipAndRecover())

	first := NewBollingerMeanReversion()
	require.NoError(t, first.Initialize(`{"N": 20, "k": 2.0}`))
	second := NewBollingerMeanReversion()
	require.NoError(t, second.Initialize(`{"N": 20, "k": 2.0}`))

	a, err := first.Run(context.Background(), bars, 100000)
	require.NoError(t, err)
	b, err := second.Run(context.Background(), bars, 100000)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestBollingerHandlesUnsortedInput(t *testing.T) {
	bars := makeBars(dipAndRecover())
	reversed := make([]types.Bar, len(bars))
	for i, bar := range bars {
		reversed[len(bars)-1-i] = bar
	}

	s := NewBollingerMeanReversion()
	require.NoError(t, s.Initialize(`{"N": 20, "k": 2.0}`))

	result, err := s.Run(context.Background(), reversed, 100000)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TradeLog.NumRows())
}

func TestBollingerRejectsBadWindow(t *testing.T) {
	s := NewBollingerMeanReversion()
	assert.Error(t, s.Initialize(`{"N": 0}`))
}

func TestRollingStats(t *testing.T) {
	mean, std := rollingStats([]float64{1, 2, 3, 4, 5}, 3)

	assert.InDelta(t, 2.0, mean[2], 1e-12)
	assert.InDelta(t, 4.0, mean[4], 1e-12)
	assert.InDelta(t, 1.0, std[2], 1e-12)
}
