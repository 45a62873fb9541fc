package engine

import (
	"math"
	"sort"
	"time"
)

// EquityPoint is one NAV observation.
type EquityPoint struct {
	Timestamp time.Time
	NAV       float64
}

// EquityCurve is a chronologically ordered NAV series.
type EquityCurve []EquityPoint

const hoursPerYear = 365.25 * 24

// InferPeriodsPerYear derives the sampling frequency from the median
// spacing of the curve. Frequencies near the trading-day and calendar-day
// conventions snap to 252 and 365; anything else is used as measured.
// Curves too short to measure default to 252.
func InferPeriodsPerYear(curve EquityCurve) float64 {
	if len(curve) < 2 {
		return 252
	}
	deltas := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		deltas = append(deltas, curve[i].Timestamp.Sub(curve[i-1].Timestamp).Hours())
	}
	sort.Float64s(deltas)
	var median float64
	if n := len(deltas); n%2 == 1 {
		median = deltas[n/2]
	} else {
		median = (deltas[n/2-1] + deltas[n/2]) / 2
	}
	if median <= 0 {
		return 252
	}
	periods := hoursPerYear / median
	switch {
	case periods > 240 && periods < 270:
		return 252
	case periods > 350 && periods < 370:
		return 365
	}
	return periods
}

// TotalReturn is the simple return from the first to the last NAV.
func TotalReturn(curve EquityCurve) float64 {
	if len(curve) < 2 || curve[0].NAV == 0 {
		return 0
	}
	return curve[len(curve)-1].NAV/curve[0].NAV - 1
}

// CAGR is the compound annual growth rate over the curve's span.
func CAGR(curve EquityCurve) float64 {
	if len(curve) < 2 {
		return 0
	}
	start := curve[0].NAV
	end := curve[len(curve)-1].NAV
	years := curve[len(curve)-1].Timestamp.Sub(curve[0].Timestamp).Hours() / hoursPerYear
	if years <= 0 || start <= 0 || end <= 0 {
		return 0
	}
	return math.Pow(end/start, 1/years) - 1
}

// AnnualizedVolatility is the sample standard deviation of per-period
// returns scaled by the square root of the inferred periods per year.
func AnnualizedVolatility(curve EquityCurve) float64 {
	returns := pctChanges(curve)
	if len(returns) == 0 {
		return 0
	}
	return stdev(returns) * math.Sqrt(InferPeriodsPerYear(curve))
}

// SharpeRatio is the annualized mean excess return over its standard
// deviation. riskFree is an annual rate, de-annualized to a per-period
// target before differencing. Zero-volatility curves yield 0.
func SharpeRatio(curve EquityCurve, riskFree float64) float64 {
	returns := pctChanges(curve)
	if len(returns) == 0 {
		return 0
	}
	ppy := InferPeriodsPerYear(curve)
	target := riskFree / ppy
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - target
	}
	sd := stdev(excess)
	if sd == 0 {
		return 0
	}
	return mean(excess) / sd * math.Sqrt(ppy)
}

// SortinoRatio matches Sharpe's numerator but divides by the standard
// deviation of only the returns below the per-period target. Curves with
// no downside observations yield 0.
func SortinoRatio(curve EquityCurve, riskFree float64) float64 {
	returns := pctChanges(curve)
	if len(returns) == 0 {
		return 0
	}
	ppy := InferPeriodsPerYear(curve)
	target := riskFree / ppy
	var downside []float64
	excessMean := 0.0
	for _, r := range returns {
		excessMean += r - target
		if r < target {
			downside = append(downside, r)
		}
	}
	excessMean /= float64(len(returns))
	dd := stdev(downside)
	if dd == 0 {
		return 0
	}
	return excessMean / dd * math.Sqrt(ppy)
}

// MaxDrawdown is the most negative peak-to-trough decline, as a fraction
// of the running peak. Always <= 0.
func MaxDrawdown(curve EquityCurve) float64 {
	if len(curve) < 2 {
		return 0
	}
	peak := curve[0].NAV
	maxDD := 0.0
	for _, pt := range curve {
		if pt.NAV > peak {
			peak = pt.NAV
		}
		if peak > 0 {
			if dd := (pt.NAV - peak) / peak; dd < maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// CalmarRatio is CAGR over the absolute max drawdown, 0 when the curve
// never drew down.
func CalmarRatio(curve EquityCurve) float64 {
	mdd := MaxDrawdown(curve)
	if mdd >= 0 {
		return 0
	}
	return CAGR(curve) / math.Abs(mdd)
}

// GeneratePerformanceSummary computes the standard metric set from the
// NAV series. Curves with fewer than two points yield an empty summary.
func GeneratePerformanceSummary(curve EquityCurve, riskFree float64) map[string]float64 {
	if len(curve) < 2 {
		return map[string]float64{}
	}
	return map[string]float64{
		"total_return":          TotalReturn(curve),
		"cagr":                  CAGR(curve),
		"annualized_volatility": AnnualizedVolatility(curve),
		"sharpe_ratio":          SharpeRatio(curve, riskFree),
		"sortino_ratio":         SortinoRatio(curve, riskFree),
		"max_drawdown":          MaxDrawdown(curve),
		"calmar_ratio":          CalmarRatio(curve),
		"periods_per_year":      InferPeriodsPerYear(curve),
	}
}

func pctChanges(curve EquityCurve) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].NAV
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, curve[i].NAV/prev-1)
	}
	return out
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

// stdev is the sample standard deviation; fewer than two observations
// yield 0.
func stdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
