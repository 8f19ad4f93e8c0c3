package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"CryptoPilot/internal/model"
)

func histAsset(symbol string, prices []float64) model.Asset {
	hist := make([]model.PricePoint, len(prices))
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		hist[i] = model.PricePoint{Time: day.AddDate(0, 0, i), Price: p}
	}
	return model.Asset{
		Symbol:  symbol,
		Name:    symbol,
		Price:   prices[len(prices)-1],
		History: hist,
	}
}

func trendingPrices(start, dailyPct float64, n int) []float64 {
	out := make([]float64, n)
	p := start
	for i := range out {
		out[i] = p
		p *= 1 + dailyPct
	}
	return out
}

func TestRun_SkipsInsufficientHistory(t *testing.T) {
	e := NewEngine(500, zap.NewNop())
	assets := []model.Asset{
		histAsset("BTC", trendingPrices(50000, 0.001, 60)),
		histAsset("NEW", trendingPrices(10, 0.001, 5)),
	}
	results, err := e.Run(context.Background(), assets)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "BTC", results[0].Symbol)
}

func TestRun_Deterministic(t *testing.T) {
	e := NewEngine(500, zap.NewNop())
	assets := []model.Asset{histAsset("ETH", trendingPrices(3000, 0.002, 60))}

	a, err := e.Run(context.Background(), assets)
	require.NoError(t, err)
	b, err := e.Run(context.Background(), assets)
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].AvgReturn, b[0].AvgReturn)
	assert.Equal(t, a[0].P10, b[0].P10)
	assert.Equal(t, a[0].P90, b[0].P90)
}

func TestRun_UpwardDriftYieldsPositiveExpectation(t *testing.T) {
	e := NewEngine(2000, zap.NewNop())
	assets := []model.Asset{histAsset("SOL", trendingPrices(100, 0.005, 60))}

	results, err := e.Run(context.Background(), assets)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Positive(t, r.AvgReturn)
	assert.Less(t, r.P10, r.P90)
	assert.LessOrEqual(t, r.P10, r.MedianReturn)
	assert.LessOrEqual(t, r.MedianReturn, r.P90)
	assert.LessOrEqual(t, r.P10, r.AvgReturn, "mean bounded below by the 10th percentile")
	assert.LessOrEqual(t, r.AvgReturn, r.P90, "mean bounded above by the 90th percentile")
	assert.Len(t, r.Returns, 2000)
	assert.GreaterOrEqual(t, r.ProbLoss, 0.0)
	assert.LessOrEqual(t, r.ProbLoss, 100.0)
}

func TestRun_PreservesInputOrder(t *testing.T) {
	e := NewEngine(200, zap.NewNop())
	assets := []model.Asset{
		histAsset("BTC", trendingPrices(50000, 0.001, 60)),
		histAsset("ETH", trendingPrices(3000, 0.002, 60)),
		histAsset("SOL", trendingPrices(100, 0.003, 60)),
	}
	results, err := e.Run(context.Background(), assets)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "BTC", results[0].Symbol)
	assert.Equal(t, "ETH", results[1].Symbol)
	assert.Equal(t, "SOL", results[2].Symbol)
}

func TestRun_CancelledContext(t *testing.T) {
	e := NewEngine(200, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Run(ctx, []model.Asset{histAsset("BTC", trendingPrices(50000, 0.001, 60))})
	assert.ErrorIs(t, err, context.Canceled)
}
