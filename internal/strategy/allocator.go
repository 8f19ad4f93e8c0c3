package strategy

import (
	"CryptoPilot/internal/model"
)

// Allocate turns a ranked score list into target portfolio weights.
// The top-K assets with a positive composite split the investable fraction
// (1 - cashReserve) in proportion to their scores; everything else, plus
// the reserve, stays in cash. Input must already be sorted by Score.
func Allocate(scores []model.Score, topK int, cashReserve float64) []model.AllocationTarget {
	if topK <= 0 || cashReserve >= 1 {
		return nil
	}
	if cashReserve < 0 {
		cashReserve = 0
	}

	selected := make([]model.Score, 0, topK)
	total := 0.0
	for _, s := range scores {
		if len(selected) == topK {
			break
		}
		if s.Composite <= 0 {
			continue
		}
		selected = append(selected, s)
		total += s.Composite
	}
	if total <= 0 {
		return nil
	}

	investable := 1 - cashReserve
	targets := make([]model.AllocationTarget, len(selected))
	for i, s := range selected {
		targets[i] = model.AllocationTarget{
			Symbol: s.Symbol,
			Name:   s.Name,
			Weight: s.Composite / total * investable,
		}
	}
	return targets
}
