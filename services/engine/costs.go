package engine

import "math"

// CostModel computes the fee charged for a fill.
type CostModel interface {
	Fee(fill Fill) float64
}

// NoCost charges nothing.
type NoCost struct{}

func (NoCost) Fee(Fill) float64 { return 0 }

// FixedRateCost charges a fraction of the traded notional.
type FixedRateCost struct {
	Rate float64
}

func (c FixedRateCost) Fee(fill Fill) float64 {
	return math.Abs(fill.Quantity*fill.Price) * c.Rate
}
