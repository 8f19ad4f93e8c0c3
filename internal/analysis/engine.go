// Package analysis runs Monte Carlo return simulations over the tracked
// asset universe and summarizes each distribution into the statistics the
// scoring layer consumes.
package analysis

import (
	"context"
	"hash/fnv"
	"math/rand"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"CryptoPilot/internal/model"
)

const (
	// horizonDays is the simulated holding period.
	horizonDays = 30
	// minHistory is the minimum number of price points an asset needs
	// before its drift and volatility can be calibrated.
	minHistory = 30
)

// Engine simulates forward return distributions with a geometric
// Brownian motion model calibrated per asset from recent history.
type Engine struct {
	simulations int
	logger      *zap.Logger
}

func NewEngine(simulations int, logger *zap.Logger) *Engine {
	if simulations <= 0 {
		simulations = 2000
	}
	return &Engine{simulations: simulations, logger: logger}
}

// Run simulates every asset in the universe in parallel. Assets with fewer
// than minHistory price points are skipped rather than failing the batch.
// Results come back in the input order of the assets that qualified.
func (e *Engine) Run(ctx context.Context, assets []model.Asset) ([]model.SimulationResult, error) {
	results := make([]*model.SimulationResult, len(assets))

	g, ctx := errgroup.WithContext(ctx)
	for i, asset := range assets {
		i, asset := i, asset
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			res, ok := e.simulate(asset)
			if !ok {
				e.logger.Warn("skipping asset with insufficient history",
					zap.String("symbol", asset.Symbol),
					zap.Int("points", len(asset.History)),
					zap.Int("required", minHistory))
				return nil
			}
			results[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.SimulationResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// simulate runs the Monte Carlo paths for one asset. The RNG is seeded from
// the symbol so repeated runs over the same history are reproducible.
func (e *Engine) simulate(asset model.Asset) (model.SimulationResult, bool) {
	closes := asset.HistoryCloses()
	if len(closes) < minHistory || asset.Price <= 0 {
		return model.SimulationResult{}, false
	}

	drift, volatility := calibrate(logReturns(closes))
	rng := rand.New(rand.NewSource(symbolSeed(asset.Symbol)))

	returns := make([]float64, e.simulations)
	for i := 0; i < e.simulations; i++ {
		price := asset.Price
		for day := 0; day < horizonDays; day++ {
			price *= 1 + drift + volatility*rng.NormFloat64()
			if price <= 0 {
				// a path cannot recover from a non-positive price
				price = 0
				break
			}
		}
		returns[i] = (price - asset.Price) / asset.Price * 100
	}

	sorted := sortedCopy(returns)
	avg := mean(returns)
	sd := stdDev(returns, avg)

	return model.SimulationResult{
		Symbol:       asset.Symbol,
		Name:         asset.Name,
		Price:        asset.Price,
		Returns:      returns,
		AvgReturn:    avg,
		MedianReturn: percentile(sorted, 0.50),
		P10:          percentile(sorted, 0.10),
		P90:          percentile(sorted, 0.90),
		StdDev:       sd,
		ProbLoss:     probLoss(returns),
		Sharpe:       sharpeRatio(avg, sd),
		Sortino:      sortinoRatio(returns, avg),
	}, true
}

func symbolSeed(symbol string) int64 {
	h := fnv.New64a()
	h.Write([]byte(symbol))
	return int64(h.Sum64())
}
