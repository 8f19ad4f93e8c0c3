package model

import "time"

// Position is an open holding. Quantity is always >= 0 (no shorting);
// a fill that fully closes a position removes it entirely.
type Position struct {
	Symbol    string
	Quantity  float64
	AvgPrice  float64 // weighted-average cost basis
	EntryTime time.Time
	UpdatedAt time.Time
}

// Value returns the position's worth at the given price.
func (p *Position) Value(price float64) float64 {
	return p.Quantity * price
}

// UnrealizedPnL returns the open profit or loss at the given price.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return (price - p.AvgPrice) * p.Quantity
}

// BalanceSnapshot is a point-in-time portfolio valuation, written once per
// iteration for audit and circuit-breaker drawdown computation.
type BalanceSnapshot struct {
	Timestamp    time.Time
	TotalValue   float64
	CashBalance  float64
	CryptoValue  float64
	NumPositions int
}
