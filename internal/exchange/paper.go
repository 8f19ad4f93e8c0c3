package exchange

import (
	"context"
	"fmt"
	"sync"

	"CryptoPilot/internal/model"
)

// paperFeeRate mirrors a typical spot taker fee.
const paperFeeRate = 0.002

// Paper simulates an exchange: orders fill instantly and completely at the
// last known price for the symbol. It never opens a network connection.
type Paper struct {
	mu       sync.Mutex
	prices   map[string]float64
	holdings map[string]float64
}

var _ Client = (*Paper)(nil)

func NewPaper() *Paper {
	return &Paper{
		prices:   make(map[string]float64),
		holdings: make(map[string]float64),
	}
}

func (p *Paper) Name() string { return "paper" }

// SetPrices replaces the quote table fills are executed against.
func (p *Paper) SetPrices(prices map[string]float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for sym, price := range prices {
		p.prices[sym] = price
	}
}

// GetTicker returns the last price set for the symbol.
func (p *Paper) GetTicker(_ context.Context, symbol string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	price, ok := p.prices[symbol]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("no quote for %s", symbol)
	}
	return price, nil
}

// GetBalances returns the simulated venue holdings accumulated from fills.
func (p *Paper) GetBalances(context.Context) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]float64, len(p.holdings))
	for sym, qty := range p.holdings {
		out[sym] = qty
	}
	return out, nil
}

func (p *Paper) PlaceOrder(_ context.Context, order model.Order) (Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	price, ok := p.prices[order.Symbol]

	if !ok || price <= 0 {
		return Fill{}, &RejectError{OrderID: order.ID, Reason: fmt.Sprintf("no quote for %s", order.Symbol)}
	}
	if order.Quantity <= 0 {
		return Fill{}, &RejectError{OrderID: order.ID, Reason: "non-positive quantity"}
	}

	if order.Side == model.SideBuy {
		p.holdings[order.Symbol] += order.Quantity
	} else {
		p.holdings[order.Symbol] -= order.Quantity
		if p.holdings[order.Symbol] <= 0 {
			delete(p.holdings, order.Symbol)
		}
	}

	return Fill{
		OrderID:  order.ID,
		Symbol:   order.Symbol,
		Side:     order.Side,
		Quantity: order.Quantity,
		Price:    price,
		Fee:      order.Quantity * price * paperFeeRate,
	}, nil
}

// CancelOrder is a no-op: paper orders fill synchronously, so there is
// never an open order to cancel.
func (p *Paper) CancelOrder(context.Context, string) error { return nil }
