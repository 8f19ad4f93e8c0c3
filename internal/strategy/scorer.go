// Package strategy ranks simulated assets with a weighted multi-factor
// composite score and turns the ranking into portfolio allocation targets.
package strategy

import (
	"sort"

	"CryptoPilot/internal/model"
)

// Factor weights. They sum to 1.0; expected return dominates, with upside
// potential and downside protection splitting most of the remainder.
const (
	weightExpectedReturn = 0.35
	weightUpside         = 0.25
	weightSortino        = 0.20
	weightDownside       = 0.15
	weightSharpe         = 0.05
)

// Score computes a composite score per asset. Each factor is min-max
// normalized across the batch to [0,100] before weighting, so scores are
// only meaningful relative to the other assets scored in the same run.
func Score(sims []model.SimulationResult) []model.Score {
	if len(sims) == 0 {
		return nil
	}

	expected := factorValues(sims, func(s model.SimulationResult) float64 { return s.AvgReturn })
	upside := factorValues(sims, func(s model.SimulationResult) float64 { return s.P90 })
	sortino := factorValues(sims, func(s model.SimulationResult) float64 { return s.Sortino })
	// downside is inverted: a less negative P10 means better protection
	downside := factorValues(sims, func(s model.SimulationResult) float64 { return -s.P10 })
	sharpe := factorValues(sims, func(s model.SimulationResult) float64 { return s.Sharpe })

	normalize(expected)
	normalize(upside)
	normalize(sortino)
	normalize(downside)
	normalize(sharpe)

	scores := make([]model.Score, len(sims))
	for i, sim := range sims {
		factors := []model.FactorScore{
			factor("expected_return", sim.AvgReturn, expected[i], weightExpectedReturn),
			factor("p90_upside", sim.P90, upside[i], weightUpside),
			factor("sortino", sim.Sortino, sortino[i], weightSortino),
			factor("p10_protection", sim.P10, downside[i], weightDownside),
			factor("sharpe", sim.Sharpe, sharpe[i], weightSharpe),
		}
		composite := 0.0
		for _, f := range factors {
			composite += f.Weighted
		}
		scores[i] = model.Score{
			Symbol:         sim.Symbol,
			Name:           sim.Name,
			Factors:        factors,
			Composite:      composite,
			ExpectedReturn: sim.AvgReturn,
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Composite != scores[j].Composite {
			return scores[i].Composite > scores[j].Composite
		}
		if scores[i].ExpectedReturn != scores[j].ExpectedReturn {
			return scores[i].ExpectedReturn > scores[j].ExpectedReturn
		}
		return scores[i].Symbol < scores[j].Symbol
	})
	return scores
}

func factor(name string, raw, normalized, weight float64) model.FactorScore {
	return model.FactorScore{
		Name:       name,
		Raw:        raw,
		Normalized: normalized,
		Weight:     weight,
		Weighted:   normalized * weight,
	}
}

func factorValues(sims []model.SimulationResult, pick func(model.SimulationResult) float64) []float64 {
	out := make([]float64, len(sims))
	for i, s := range sims {
		out[i] = pick(s)
	}
	return out
}

// normalize rescales in place to [0,100]. A degenerate batch where every
// value is equal maps to the midpoint so no factor dominates by accident.
func normalize(xs []float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if hi == lo {
		for i := range xs {
			xs[i] = 50
		}
		return
	}
	for i := range xs {
		xs[i] = (xs[i] - lo) / (hi - lo) * 100
	}
}
