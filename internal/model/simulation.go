package model

// SimulationResult holds the Monte Carlo outcome for one asset.
// It is recomputed from scratch every iteration and never mutated in place.
type SimulationResult struct {
	Symbol string
	Name   string
	Price  float64

	// Returns holds the N simulated 30-day terminal returns, in percent,
	// in simulation order.
	Returns []float64

	AvgReturn    float64 // mean terminal return, percent
	MedianReturn float64
	P10          float64 // 10th percentile (downside)
	P90          float64 // 90th percentile (upside)
	StdDev       float64 // volatility of terminal returns, percent
	ProbLoss     float64 // share of simulations ending below zero, percent
	Sharpe       float64 // mean / total stddev, 0% risk-free
	Sortino      float64 // mean / downside deviation
}
