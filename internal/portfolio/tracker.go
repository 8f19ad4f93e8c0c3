// Package portfolio tracks cash, open positions, and realized profit for
// a trading session. Cost basis is weighted-average; partial exits realize
// profit against the average entry price and leave the basis unchanged.
package portfolio

import (
	"fmt"
	"sort"
	"time"

	"CryptoPilot/internal/model"
)

// dustThreshold is the quantity below which a position is considered
// fully closed; it absorbs float drift from proportional sells.
const dustThreshold = 1e-4

// Tracker is not safe for concurrent use; the trading loop owns it.
type Tracker struct {
	cash        float64
	positions   map[string]*model.Position
	realizedPnL float64
	feesPaid    float64
	trades      int
	wins        int
}

func NewTracker(initialCash float64) *Tracker {
	return &Tracker{
		cash:      initialCash,
		positions: make(map[string]*model.Position),
	}
}

// Restore rebuilds a tracker from persisted state.
func Restore(cash float64, positions []model.Position) *Tracker {
	t := NewTracker(cash)
	for i := range positions {
		p := positions[i]
		t.positions[p.Symbol] = &p
	}
	return t
}

func (t *Tracker) Cash() float64        { return t.cash }
func (t *Tracker) RealizedPnL() float64 { return t.realizedPnL }
func (t *Tracker) FeesPaid() float64    { return t.feesPaid }
func (t *Tracker) NumPositions() int    { return len(t.positions) }

// WinRate is the share of closed or reduced positions sold at a profit,
// in percent. Zero before any sell has happened.
func (t *Tracker) WinRate() float64 {
	if t.trades == 0 {
		return 0
	}
	return float64(t.wins) / float64(t.trades) * 100
}

// Position returns a copy of the open position for symbol, if any.
func (t *Tracker) Position(symbol string) (model.Position, bool) {
	p, ok := t.positions[symbol]
	if !ok {
		return model.Position{}, false
	}
	return *p, true
}

// Positions returns copies of all open positions, sorted by symbol.
func (t *Tracker) Positions() []model.Position {
	out := make([]model.Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// ApplyFill applies a filled trade. Buys move the average price toward the
// fill price weighted by quantity; sells realize PnL against the average.
// Returns the realized PnL of the fill (zero for buys).
// ValidateFill reports whether the trade could be applied to the current
// book, without mutating it. Live fills can land at a different price than
// the one the order was sized against, so applicability is re-checked at
// the executed price.
func (t *Tracker) ValidateFill(trade model.Trade) error {
	switch trade.Side {
	case model.SideBuy:
		if cost := trade.Value + trade.Fee; cost > t.cash+dustThreshold {
			return fmt.Errorf("insufficient cash: need %.2f, have %.2f", cost, t.cash)
		}
	case model.SideSell:
		pos, ok := t.positions[trade.Symbol]
		if !ok {
			return fmt.Errorf("sell %s: no open position", trade.Symbol)
		}
		if trade.Quantity > pos.Quantity+dustThreshold {
			return fmt.Errorf("sell %s: quantity %.8f exceeds held %.8f",
				trade.Symbol, trade.Quantity, pos.Quantity)
		}
	default:
		return fmt.Errorf("unknown trade side %q", trade.Side)
	}
	return nil
}

func (t *Tracker) ApplyFill(trade model.Trade) (float64, error) {
	switch trade.Side {
	case model.SideBuy:
		return 0, t.applyBuy(trade)
	case model.SideSell:
		return t.applySell(trade)
	default:
		return 0, fmt.Errorf("unknown trade side %q", trade.Side)
	}
}

func (t *Tracker) applyBuy(trade model.Trade) error {
	cost := trade.Value + trade.Fee
	if cost > t.cash+dustThreshold {
		return fmt.Errorf("insufficient cash: need %.2f, have %.2f", cost, t.cash)
	}
	t.cash -= cost
	t.feesPaid += trade.Fee

	pos, ok := t.positions[trade.Symbol]
	if !ok {
		t.positions[trade.Symbol] = &model.Position{
			Symbol:    trade.Symbol,
			Quantity:  trade.Quantity,
			AvgPrice:  trade.Price,
			EntryTime: trade.Timestamp,
			UpdatedAt: trade.Timestamp,
		}
		return nil
	}

	newQty := pos.Quantity + trade.Quantity
	pos.AvgPrice = (pos.AvgPrice*pos.Quantity + trade.Price*trade.Quantity) / newQty
	pos.Quantity = newQty
	pos.UpdatedAt = trade.Timestamp
	return nil
}

func (t *Tracker) applySell(trade model.Trade) (float64, error) {
	pos, ok := t.positions[trade.Symbol]
	if !ok {
		return 0, fmt.Errorf("sell %s: no open position", trade.Symbol)
	}
	if trade.Quantity > pos.Quantity+dustThreshold {
		return 0, fmt.Errorf("sell %s: quantity %.8f exceeds held %.8f",
			trade.Symbol, trade.Quantity, pos.Quantity)
	}

	t.cash += trade.Value - trade.Fee
	t.feesPaid += trade.Fee

	realized := (trade.Price-pos.AvgPrice)*trade.Quantity - trade.Fee
	t.realizedPnL += realized
	t.trades++
	if realized > 0 {
		t.wins++
	}

	pos.Quantity -= trade.Quantity
	pos.UpdatedAt = trade.Timestamp
	if pos.Quantity < dustThreshold {
		delete(t.positions, trade.Symbol)
	}
	return realized, nil
}

// CryptoValue marks open positions to the given prices. Positions without
// a quote are valued at their average entry price.
func (t *Tracker) CryptoValue(prices map[string]float64) float64 {
	total := 0.0
	for _, pos := range t.positions {
		price, ok := prices[pos.Symbol]
		if !ok || price <= 0 {
			price = pos.AvgPrice
		}
		total += pos.Value(price)
	}
	return total
}

// TotalValue is cash plus marked crypto value.
func (t *Tracker) TotalValue(prices map[string]float64) float64 {
	return t.cash + t.CryptoValue(prices)
}

// Snapshot captures the portfolio valuation at a point in time.
func (t *Tracker) Snapshot(prices map[string]float64, now time.Time) model.BalanceSnapshot {
	crypto := t.CryptoValue(prices)
	return model.BalanceSnapshot{
		Timestamp:    now,
		TotalValue:   t.cash + crypto,
		CashBalance:  t.cash,
		CryptoValue:  crypto,
		NumPositions: len(t.positions),
	}
}
