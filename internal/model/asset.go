package model

import "time"

// PricePoint is a single observed (or bootstrapped) daily closing price.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// Asset is the read-only market view of one tradeable coin for an iteration.
type Asset struct {
	Symbol  string // exchange trading pair, e.g. "btcusdt"
	Name    string // display name, e.g. "Bitcoin"
	Base    string
	Quote   string
	Price   float64      // last known price
	History []PricePoint // trailing daily closes, oldest first
}

// HistoryCloses returns the closing prices of the history window, oldest first.
func (a *Asset) HistoryCloses() []float64 {
	closes := make([]float64, len(a.History))
	for i, p := range a.History {
		closes[i] = p.Price
	}
	return closes
}
