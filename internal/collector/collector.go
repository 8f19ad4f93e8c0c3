package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"CryptoPilot/internal/model"
)

const (
	// lookbackDays is how much daily history is kept for calibration.
	lookbackDays = 60
	// historyCap bounds the rolling window as live quotes are appended.
	historyCap = 90
)

// Collector keeps the tracked universe fresh: it bootstraps historical
// closes once per symbol, then appends the latest quote on every poll.
type Collector struct {
	feed     Feed
	universe []UniverseEntry
	history  map[string][]model.PricePoint
	logger   *zap.Logger
	now      func() time.Time
}

func New(feed Feed, universe []UniverseEntry, logger *zap.Logger) *Collector {
	return &Collector{
		feed:     feed,
		universe: universe,
		history:  make(map[string][]model.PricePoint),
		logger:   logger,
		now:      time.Now,
	}
}

// Collect returns the universe with fresh prices and rolling history, in
// universe order. A symbol whose quote fails is returned from its last
// known state; a symbol with no state at all is skipped for the round.
func (c *Collector) Collect(ctx context.Context) ([]model.Asset, error) {
	assets := make([]model.Asset, 0, len(c.universe))
	var failures int

	for _, entry := range c.universe {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hist, err := c.ensureHistory(ctx, entry.Symbol)
		if err != nil {
			failures++
			c.logger.Warn("history bootstrap failed, skipping symbol",
				zap.String("symbol", entry.Symbol),
				zap.String("feed", c.feed.Name()),
				zap.Error(err))
			continue
		}

		price, err := c.feed.Price(ctx, entry.Symbol)
		if err != nil {
			failures++
			price = hist[len(hist)-1].Price
			c.logger.Warn("quote failed, using last known price",
				zap.String("symbol", entry.Symbol),
				zap.Float64("price", price),
				zap.Error(err))
		} else {
			hist = c.appendQuote(entry.Symbol, price)
		}

		assets = append(assets, model.Asset{
			Symbol:  entry.Symbol,
			Name:    entry.Name,
			Price:   price,
			History: hist,
		})
	}

	if len(assets) == 0 {
		return nil, fmt.Errorf("market data unavailable: all %d symbols failed", len(c.universe))
	}
	if failures > 0 {
		c.logger.Warn("partial market data round",
			zap.Int("ok", len(assets)),
			zap.Int("failed", failures))
	}
	return assets, nil
}

// Prices returns the latest known quote per symbol.
func (c *Collector) Prices() map[string]float64 {
	out := make(map[string]float64, len(c.history))
	for sym, hist := range c.history {
		if len(hist) > 0 {
			out[sym] = hist[len(hist)-1].Price
		}
	}
	return out
}

func (c *Collector) ensureHistory(ctx context.Context, symbol string) ([]model.PricePoint, error) {
	if hist, ok := c.history[symbol]; ok && len(hist) > 0 {
		return hist, nil
	}
	hist, err := c.feed.History(ctx, symbol, lookbackDays)
	if err != nil {
		return nil, err
	}
	if len(hist) == 0 {
		return nil, fmt.Errorf("feed %s returned empty history", c.feed.Name())
	}
	c.history[symbol] = hist
	return hist, nil
}

func (c *Collector) appendQuote(symbol string, price float64) []model.PricePoint {
	hist := append(c.history[symbol], model.PricePoint{Time: c.now(), Price: price})
	if len(hist) > historyCap {
		hist = hist[len(hist)-historyCap:]
	}
	c.history[symbol] = hist
	return hist
}
