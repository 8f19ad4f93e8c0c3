package strategy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoPilot/internal/model"
)

func sim(symbol string, avg, p10, p90, sortino, sharpe float64) model.SimulationResult {
	return model.SimulationResult{
		Symbol:  symbol,
		Name:    symbol,
		Price:   100,
		AvgReturn: avg,
		P10:     p10,
		P90:     p90,
		Sortino: sortino,
		Sharpe:  sharpe,
	}
}

func TestScore_RanksDominantAssetFirst(t *testing.T) {
	sims := []model.SimulationResult{
		sim("LOSER", -5, -30, 5, -0.5, -0.3),
		sim("WINNER", 12, -8, 40, 2.0, 1.1),
		sim("MID", 3, -15, 20, 0.8, 0.4),
	}
	scores := Score(sims)
	require.Len(t, scores, 3)
	assert.Equal(t, "WINNER", scores[0].Symbol)
	assert.Equal(t, "MID", scores[1].Symbol)
	assert.Equal(t, "LOSER", scores[2].Symbol)

	// WINNER dominates every factor, so after min-max normalization it
	// scores the maximum on all of them.
	assert.InDelta(t, 100.0, scores[0].Composite, 1e-9)
	assert.InDelta(t, 0.0, scores[2].Composite, 1e-9)
}

func TestScore_FactorWeightsSumToOne(t *testing.T) {
	scores := Score([]model.SimulationResult{
		sim("A", 5, -10, 20, 1, 0.5),
		sim("B", 2, -12, 15, 0.5, 0.3),
	})
	require.Len(t, scores, 2)
	require.Len(t, scores[0].Factors, 5)

	sum := 0.0
	for _, f := range scores[0].Factors {
		sum += f.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestScore_DownsideFactorInverted(t *testing.T) {
	// SAFE has the shallower P10, so it must win the protection factor
	scores := Score([]model.SimulationResult{
		sim("SAFE", 5, -5, 20, 1, 0.5),
		sim("RISKY", 5, -40, 20, 1, 0.5),
	})
	require.Len(t, scores, 2)
	assert.Equal(t, "SAFE", scores[0].Symbol)

	var protection model.FactorScore
	for _, f := range scores[0].Factors {
		if f.Name == "p10_protection" {
			protection = f
		}
	}
	assert.Equal(t, 100.0, protection.Normalized)
}

func TestScore_TieBreaksByExpectedReturnThenSymbol(t *testing.T) {
	// identical on every factor: symbols break the tie
	scores := Score([]model.SimulationResult{
		sim("ZZZ", 5, -10, 20, 1, 0.5),
		sim("AAA", 5, -10, 20, 1, 0.5),
	})
	require.Len(t, scores, 2)
	assert.Equal(t, "AAA", scores[0].Symbol)
	assert.Equal(t, scores[0].Composite, scores[1].Composite)
}

func TestScore_SingleAssetGetsMidpoint(t *testing.T) {
	scores := Score([]model.SimulationResult{sim("ONLY", 5, -10, 20, 1, 0.5)})
	require.Len(t, scores, 1)
	assert.InDelta(t, 50.0, scores[0].Composite, 1e-9)
}

func TestScore_EmptyInput(t *testing.T) {
	assert.Nil(t, Score(nil))
}

func TestAllocate_TopKProportional(t *testing.T) {
	scores := []model.Score{
		{Symbol: "A", Composite: 80},
		{Symbol: "B", Composite: 40},
		{Symbol: "C", Composite: 20},
	}
	targets := Allocate(scores, 2, 0.10)
	require.Len(t, targets, 2)
	assert.Equal(t, "A", targets[0].Symbol)
	assert.Equal(t, "B", targets[1].Symbol)

	// 0.90 investable split 80:40
	assert.InDelta(t, 0.60, targets[0].Weight, 1e-12)
	assert.InDelta(t, 0.30, targets[1].Weight, 1e-12)

	sum := 0.0
	for _, tgt := range targets {
		sum += tgt.Weight
	}
	assert.InDelta(t, 0.90, sum, 1e-12)
}

func TestAllocate_SkipsNonPositiveComposites(t *testing.T) {
	scores := []model.Score{
		{Symbol: "A", Composite: 50},
		{Symbol: "B", Composite: 0},
		{Symbol: "C", Composite: -10},
	}
	targets := Allocate(scores, 3, 0)
	require.Len(t, targets, 1)
	assert.Equal(t, "A", targets[0].Symbol)
	assert.InDelta(t, 1.0, targets[0].Weight, 1e-12)
}

func TestAllocate_AllNegativeMeansAllCash(t *testing.T) {
	scores := []model.Score{
		{Symbol: "A", Composite: -5},
		{Symbol: "B", Composite: -20},
	}
	assert.Nil(t, Allocate(scores, 2, 0.10))
}

func TestAllocate_WeightsNeverNaN(t *testing.T) {
	targets := Allocate([]model.Score{{Symbol: "A", Composite: 1e-9}}, 1, 0.5)
	require.Len(t, targets, 1)
	assert.False(t, math.IsNaN(targets[0].Weight))
	assert.InDelta(t, 0.5, targets[0].Weight, 1e-12)
}
