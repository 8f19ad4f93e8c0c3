package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"CryptoPilot/internal/model"
)

func writeUniverse(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "universe.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadUniverse(t *testing.T) {
	path := writeUniverse(t, `
assets:
  - symbol: BTC
    name: Bitcoin
    seed_price: 50000
    daily_drift: 0.001
    daily_volatility: 0.03
  - symbol: ETH
    name: Ethereum
    seed_price: 3000
    daily_drift: 0.0015
    daily_volatility: 0.04
`)
	universe, err := LoadUniverse(path)
	require.NoError(t, err)
	require.Len(t, universe, 2)
	assert.Equal(t, "BTC", universe[0].Symbol)
	assert.Equal(t, 50000.0, universe[0].SeedPrice)
	assert.Equal(t, 0.04, universe[1].DailyVolatility)
}

func TestLoadUniverse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"empty", "assets: []", "no assets"},
		{"missing symbol", "assets:\n  - name: X\n    seed_price: 1", "missing symbol"},
		{"duplicate", "assets:\n  - symbol: BTC\n    seed_price: 1\n  - symbol: BTC\n    seed_price: 2", "duplicate symbol"},
		{"bad seed price", "assets:\n  - symbol: BTC\n    seed_price: 0", "seed_price"},
		{"negative vol", "assets:\n  - symbol: BTC\n    seed_price: 1\n    daily_volatility: -0.1", "daily_volatility"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadUniverse(writeUniverse(t, tt.content))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestLoadUniverse_MissingFile(t *testing.T) {
	_, err := LoadUniverse("/nonexistent/universe.yaml")
	assert.ErrorContains(t, err, "read universe file")
}

func TestSyntheticFeed_Deterministic(t *testing.T) {
	universe := []UniverseEntry{{Symbol: "BTC", SeedPrice: 50000, DailyDrift: 0.001, DailyVolatility: 0.03}}
	ctx := context.Background()

	a := NewSyntheticFeed(universe)
	b := NewSyntheticFeed(universe)

	histA, err := a.History(ctx, "BTC", 60)
	require.NoError(t, err)
	histB, err := b.History(ctx, "BTC", 60)
	require.NoError(t, err)
	require.Len(t, histA, 60)
	assert.Equal(t, histA[59].Price, histB[59].Price)

	pa, err := a.Price(ctx, "BTC")
	require.NoError(t, err)
	pb, err := b.Price(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
	assert.Positive(t, pa)
}

func TestSyntheticFeed_UnknownSymbol(t *testing.T) {
	f := NewSyntheticFeed(nil)
	_, err := f.Price(context.Background(), "DOGE")
	assert.ErrorContains(t, err, "not in universe")
	_, err = f.History(context.Background(), "DOGE", 60)
	assert.ErrorContains(t, err, "not in universe")
}

// scriptedFeed fails on demand to exercise the collector's degradation.
type scriptedFeed struct {
	prices   map[string]float64
	histErr  map[string]bool
	priceErr map[string]bool
}

func (s *scriptedFeed) Name() string { return "scripted" }

func (s *scriptedFeed) History(_ context.Context, symbol string, days int) ([]model.PricePoint, error) {
	if s.histErr[symbol] {
		return nil, fmt.Errorf("history down")
	}
	points := make([]model.PricePoint, days)
	for i := range points {
		points[i] = model.PricePoint{Price: s.prices[symbol]}
	}
	return points, nil
}

func (s *scriptedFeed) Price(_ context.Context, symbol string) (float64, error) {
	if s.priceErr[symbol] {
		return 0, fmt.Errorf("quote down")
	}
	return s.prices[symbol], nil
}

func testUniverse() []UniverseEntry {
	return []UniverseEntry{
		{Symbol: "BTC", Name: "Bitcoin", SeedPrice: 50000},
		{Symbol: "ETH", Name: "Ethereum", SeedPrice: 3000},
	}
}

func TestCollect_ReturnsUniverseOrder(t *testing.T) {
	feed := &scriptedFeed{prices: map[string]float64{"BTC": 50000, "ETH": 3000}}
	c := New(feed, testUniverse(), zap.NewNop())

	assets, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "BTC", assets[0].Symbol)
	assert.Equal(t, "ETH", assets[1].Symbol)
	assert.Equal(t, 50000.0, assets[0].Price)
	assert.Equal(t, 61, len(assets[0].History), "bootstrap plus the fresh quote")
}

func TestCollect_QuoteFailureFallsBackToLastKnown(t *testing.T) {
	feed := &scriptedFeed{
		prices:   map[string]float64{"BTC": 50000, "ETH": 3000},
		priceErr: map[string]bool{"ETH": true},
	}
	c := New(feed, testUniverse(), zap.NewNop())

	assets, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, 3000.0, assets[1].Price, "last bootstrap close")
}

func TestCollect_HistoryFailureSkipsSymbol(t *testing.T) {
	feed := &scriptedFeed{
		prices:  map[string]float64{"BTC": 50000, "ETH": 3000},
		histErr: map[string]bool{"BTC": true},
	}
	c := New(feed, testUniverse(), zap.NewNop())

	assets, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "ETH", assets[0].Symbol)
}

func TestCollect_AllSymbolsFailed(t *testing.T) {
	feed := &scriptedFeed{histErr: map[string]bool{"BTC": true, "ETH": true}}
	c := New(feed, testUniverse(), zap.NewNop())

	_, err := c.Collect(context.Background())
	assert.ErrorContains(t, err, "market data unavailable")
}

func TestCollect_HistoryBootstrapsOnce(t *testing.T) {
	feed := &scriptedFeed{prices: map[string]float64{"BTC": 50000, "ETH": 3000}}
	c := New(feed, testUniverse(), zap.NewNop())

	ctx := context.Background()
	_, err := c.Collect(ctx)
	require.NoError(t, err)
	first := c.Prices()

	feed.prices["BTC"] = 51000
	_, err = c.Collect(ctx)
	require.NoError(t, err)

	assert.Equal(t, 50000.0, first["BTC"])
	assert.Equal(t, 51000.0, c.Prices()["BTC"])
}

func TestCollect_RollingWindowCapped(t *testing.T) {
	feed := &scriptedFeed{prices: map[string]float64{"BTC": 50000, "ETH": 3000}}
	c := New(feed, testUniverse(), zap.NewNop())

	ctx := context.Background()
	var assets []model.Asset
	var err error
	for i := 0; i < 40; i++ {
		assets, err = c.Collect(ctx)
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, len(assets[0].History), historyCap)
}
