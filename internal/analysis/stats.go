package analysis

import (
	"math"
	"sort"
)

// sortinoCap bounds the Sortino ratio when a simulation produces no losing
// paths; an unbounded value would destabilize cross-universe normalization.
const sortinoCap = 1000

// logReturns converts a price series into daily log-returns.
// len(out) == len(prices) - 1.
func logReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		out = append(out, math.Log(prices[i]/prices[i-1]))
	}
	return out
}

// calibrate estimates daily drift and volatility as the mean and population
// standard deviation of the log-return series.
func calibrate(returns []float64) (drift, volatility float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	drift = mean(returns)
	volatility = stdDev(returns, drift)
	return drift, volatility
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation around the given mean.
func stdDev(xs []float64, mu float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	variance := 0.0
	for _, x := range xs {
		d := x - mu
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(xs)))
}

// percentile returns sorted[int(n*q)], the index method the return
// distributions are specified with. sorted must be ascending.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)) * q)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// probLoss is the share of returns below zero, in percent.
func probLoss(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	losses := 0
	for _, r := range returns {
		if r < 0 {
			losses++
		}
	}
	return float64(losses) / float64(len(returns)) * 100
}

// sharpeRatio is mean excess return over total standard deviation,
// with a zero risk-free rate.
func sharpeRatio(avg, sd float64) float64 {
	if sd <= 0 {
		return 0
	}
	return avg / sd
}

// sortinoRatio is mean excess return over downside deviation, which only
// penalizes losing outcomes. With no losses and a positive mean the ratio
// is clamped to sortinoCap rather than reported as infinite.
func sortinoRatio(returns []float64, avg float64) float64 {
	downSq := 0.0
	n := 0
	for _, r := range returns {
		if r < 0 {
			downSq += r * r
			n++
		}
	}
	if n == 0 {
		if avg > 0 {
			return sortinoCap
		}
		return 0
	}
	dd := math.Sqrt(downSq / float64(n))
	if dd <= 0 {
		return 0
	}
	ratio := avg / dd
	if ratio > sortinoCap {
		return sortinoCap
	}
	return ratio
}

// sortedCopy returns an ascending copy, leaving the input untouched.
func sortedCopy(xs []float64) []float64 {
	cp := make([]float64, len(xs))
	copy(cp, xs)
	sort.Float64s(cp)
	return cp
}
