package collector

import (
	"context"

	"CryptoPilot/internal/model"
)

// Feed supplies market data for one symbol.
type Feed interface {
	Name() string
	// History returns up to days of daily closes, oldest first.
	History(ctx context.Context, symbol string, days int) ([]model.PricePoint, error)
	// Price returns the current quote.
	Price(ctx context.Context, symbol string) (float64, error)
}
