package model

// FactorScore represents a single factor's scoring result.
type FactorScore struct {
	Name       string
	Raw        float64 // raw statistic before normalization
	Normalized float64 // 0-100 across the iteration's universe
	Weight     float64
	Weighted   float64
}

// Score is the composite multi-factor score for one asset in one iteration.
type Score struct {
	Symbol         string
	Name           string
	Factors        []FactorScore
	Composite      float64
	ExpectedReturn float64 // carried for rank tie-breaking and reporting
}

// AllocationTarget is a desired portfolio weight for one asset.
// Assets absent from the target set have an implicit weight of zero.
type AllocationTarget struct {
	Symbol string
	Name   string
	Weight float64 // in [0,1]; all targets together sum to <= 1
}
