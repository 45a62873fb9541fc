package engine

import (
	"math"
	"testing"
	"time"
)

func dailyCurve(navs ...float64) EquityCurve {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := make(EquityCurve, len(navs))
	for i, nav := range navs {
		curve[i] = EquityPoint{Timestamp: base.AddDate(0, 0, i), NAV: nav}
	}
	return curve
}

func TestSummaryDegenerateInputs(t *testing.T) {
	if got := GeneratePerformanceSummary(nil, 0); len(got) != 0 {
		t.Fatalf("empty curve produced %d metrics", len(got))
	}
	single := dailyCurve(100_000)
	if got := GeneratePerformanceSummary(single, 0); len(got) != 0 {
		t.Fatalf("single-point curve produced %d metrics", len(got))
	}
	if TotalReturn(single) != 0 || CAGR(single) != 0 || MaxDrawdown(single) != 0 {
		t.Fatal("degenerate curves must yield neutral zeros")
	}
}

func TestTotalReturn(t *testing.T) {
	curve := dailyCurve(100, 105, 110)
	if got := TotalReturn(curve); math.Abs(got-0.10) > 1e-12 {
		t.Fatalf("total return = %v, want 0.10", got)
	}
}

func TestCAGROverOneYear(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := EquityCurve{
		{Timestamp: start, NAV: 100},
		{Timestamp: start.Add(time.Duration(hoursPerYear * float64(time.Hour))), NAV: 110},
	}
	if got := CAGR(curve); math.Abs(got-0.10) > 1e-9 {
		t.Fatalf("CAGR over exactly one year = %v, want 0.10", got)
	}
}

func TestInferPeriodsPerYearSnapsCalendarDaily(t *testing.T) {
	curve := dailyCurve(1, 2, 3, 4, 5)
	if got := InferPeriodsPerYear(curve); got != 365 {
		t.Fatalf("daily spacing inferred %v periods/year, want 365", got)
	}
}

func TestInferPeriodsPerYearSnapsTradingDaily(t *testing.T) {
	// 35h spacing lands inside the trading-day snap window.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := EquityCurve{}
	for i := 0; i < 5; i++ {
		curve = append(curve, EquityPoint{Timestamp: base.Add(time.Duration(i) * 35 * time.Hour), NAV: 100})
	}
	if got := InferPeriodsPerYear(curve); got != 252 {
		t.Fatalf("inferred %v periods/year, want snap to 252", got)
	}
}

func TestInferPeriodsPerYearHourly(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := EquityCurve{}
	for i := 0; i < 4; i++ {
		curve = append(curve, EquityPoint{Timestamp: base.Add(time.Duration(i) * time.Hour), NAV: 100})
	}
	got := InferPeriodsPerYear(curve)
	if math.Abs(got-hoursPerYear) > 1e-9 {
		t.Fatalf("hourly spacing inferred %v, want %v", got, hoursPerYear)
	}
}

func TestInferPeriodsPerYearDefault(t *testing.T) {
	if got := InferPeriodsPerYear(dailyCurve(100)); got != 252 {
		t.Fatalf("short curve default = %v, want 252", got)
	}
}

func TestMaxDrawdown(t *testing.T) {
	curve := dailyCurve(100, 120, 90, 130)
	want := (90.0 - 120.0) / 120.0
	if got := MaxDrawdown(curve); math.Abs(got-want) > 1e-12 {
		t.Fatalf("max drawdown = %v, want %v", got, want)
	}
}

func TestMaxDrawdownMonotonicRise(t *testing.T) {
	if got := MaxDrawdown(dailyCurve(100, 110, 120)); got != 0 {
		t.Fatalf("rising curve drawdown = %v, want 0", got)
	}
}

func TestSharpeZeroVolatility(t *testing.T) {
	if got := SharpeRatio(dailyCurve(100, 100, 100), 0); got != 0 {
		t.Fatalf("flat curve Sharpe = %v, want 0", got)
	}
}

func TestSharpeSign(t *testing.T) {
	rising := dailyCurve(100, 101, 103, 104, 107)
	if got := SharpeRatio(rising, 0); got <= 0 {
		t.Fatalf("rising curve Sharpe = %v, want > 0", got)
	}
}

func TestSortinoNoDownside(t *testing.T) {
	if got := SortinoRatio(dailyCurve(100, 101, 102), 0); got != 0 {
		t.Fatalf("no-downside Sortino = %v, want 0", got)
	}
}

func TestSortinoPenalizesDownside(t *testing.T) {
	curve := dailyCurve(100, 103, 101, 104, 102, 106)
	got := SortinoRatio(curve, 0)
	if got == 0 {
		t.Fatal("mixed curve Sortino should be non-zero")
	}
}

func TestCalmarNoDrawdown(t *testing.T) {
	if got := CalmarRatio(dailyCurve(100, 110, 120)); got != 0 {
		t.Fatalf("no-drawdown Calmar = %v, want 0", got)
	}
}

func TestSummaryKeys(t *testing.T) {
	summary := GeneratePerformanceSummary(dailyCurve(100, 102, 101, 105), 0.02)
	for _, key := range []string{
		"total_return", "cagr", "annualized_volatility", "sharpe_ratio",
		"sortino_ratio", "max_drawdown", "calmar_ratio", "periods_per_year",
	} {
		if _, ok := summary[key]; !ok {
			t.Fatalf("summary missing %q", key)
		}
	}
}
