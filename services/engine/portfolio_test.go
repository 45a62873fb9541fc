package engine

import (
	"math"
	"testing"
	"time"
)

func fillEvent(fills ...Fill) *FillEvent {
	return &FillEvent{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Fills: fills}
}

func approx(t *testing.T, got, want, tol float64, what string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %v, want %v", what, got, want)
	}
}

func TestCashMovesBySignedNotionalPlusFee(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: 100, Price: 150, Fee: 15}))
	approx(t, p.Cash(), 100_000-15_000-15, 1e-9, "cash after buy")

	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: -100, Price: 150, Fee: 15}))
	approx(t, p.Cash(), 100_000-30, 1e-9, "cash after round trip")
}

func TestOpenNewPosition(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: 100, Price: 150}))

	pos, ok := p.Position("BTC")
	if !ok {
		t.Fatal("expected an open position")
	}
	if pos.Quantity != 100 || pos.AvgPrice != 150 || pos.RealizedPnl != 0 {
		t.Fatalf("position = %+v", pos)
	}
}

func TestIncreaseAveragesEntryPrice(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	p.UpdateOnFill(fillEvent(
		Fill{Symbol: "BTC", Quantity: 100, Price: 100},
		Fill{Symbol: "BTC", Quantity: 100, Price: 110},
	))

	pos, _ := p.Position("BTC")
	approx(t, pos.Quantity, 200, 1e-9, "quantity")
	approx(t, pos.AvgPrice, 105, 1e-9, "weighted average entry")
}

func TestPartialCloseRealizesOnClosedPartOnly(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: 100, Price: 150}))
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: -40, Price: 160}))

	pos, _ := p.Position("BTC")
	approx(t, pos.Quantity, 60, 1e-9, "remaining quantity")
	approx(t, pos.AvgPrice, 150, 1e-9, "entry price after partial close")
	approx(t, pos.RealizedPnl, 400, 1e-9, "realized pnl")
}

func TestFullCloseDeletesPosition(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: 100, Price: 150}))
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: -100, Price: 160}))

	if _, ok := p.Position("BTC"); ok {
		t.Fatal("zero-quantity position must be removed")
	}
	approx(t, p.Cash(), 101_000, 1e-9, "cash after full close")
}

func TestFlipRebasesAtFillPrice(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: 100, Price: 150}))
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: -150, Price: 160}))

	pos, _ := p.Position("BTC")
	approx(t, pos.Quantity, -50, 1e-9, "flipped quantity")
	approx(t, pos.AvgPrice, 160, 1e-9, "flipped entry price")
	approx(t, pos.RealizedPnl, 1000, 1e-9, "pnl realized on the long leg")
}

func TestShortSideAccounting(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: -100, Price: 150}))
	approx(t, p.Cash(), 115_000, 1e-9, "short sale credits cash")

	// Cover half at a lower price: short profit.
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: 50, Price: 140}))
	pos, _ := p.Position("BTC")
	approx(t, pos.Quantity, -50, 1e-9, "remaining short")
	approx(t, pos.AvgPrice, 150, 1e-9, "short entry unchanged")
	approx(t, pos.RealizedPnl, 500, 1e-9, "short-side realized pnl")
}

func TestSnapshotMarksToLatestPrices(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: 100, Price: 150}))

	ts := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	p.RecordSnapshot(ts, map[string]float64{"BTC": 160})

	hist := p.History()
	if len(hist) != 1 {
		t.Fatalf("history length = %d", len(hist))
	}
	approx(t, hist[0].NAV, 85_000+16_000, 1e-9, "NAV marked to latest price")
	approx(t, hist[0].Cash, 85_000, 1e-9, "snapshot cash")
}

func TestSnapshotFallsBackToEntryPrice(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: 100, Price: 150}))
	p.RecordSnapshot(time.Now(), nil)

	approx(t, p.History()[0].NAV, 100_000, 1e-9, "NAV with entry-price fallback")
}

func TestSnapshotIsImmutable(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: 100, Price: 150}))
	p.RecordSnapshot(time.Now(), map[string]float64{"BTC": 150})

	// Later fills must not rewrite the recorded snapshot.
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: -100, Price: 160}))
	snap := p.History()[0]
	if snap.Positions["BTC"].Quantity != 100 {
		t.Fatalf("snapshot position mutated: %+v", snap.Positions["BTC"])
	}

	// Nor must a caller mutating the snapshot map reach the portfolio.
	snap.Positions["ETH"] = Position{Symbol: "ETH", Quantity: 1}
	if _, ok := p.Position("ETH"); ok {
		t.Fatal("snapshot map is shared with live positions")
	}
}

func TestPositionsReturnsACopy(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: 100, Price: 150}))

	m := p.Positions()
	m["BTC"] = Position{Symbol: "BTC", Quantity: -1}
	if pos, _ := p.Position("BTC"); pos.Quantity != 100 {
		t.Fatal("Positions must not expose internal state")
	}
}

func TestEquityCurveMatchesHistory(t *testing.T) {
	p := NewPortfolio(100_000, nil)
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.AddDate(0, 0, 1)
	p.RecordSnapshot(t1, nil)
	p.UpdateOnFill(fillEvent(Fill{Symbol: "BTC", Quantity: 100, Price: 150}))
	p.RecordSnapshot(t2, map[string]float64{"BTC": 160})

	curve := p.EquityCurve()
	if len(curve) != 2 {
		t.Fatalf("curve length = %d", len(curve))
	}
	approx(t, curve[0].NAV, 100_000, 1e-9, "first point")
	approx(t, curve[1].NAV, 101_000, 1e-9, "second point")
	if !curve[0].Timestamp.Equal(t1) || !curve[1].Timestamp.Equal(t2) {
		t.Fatal("curve timestamps diverge from snapshots")
	}
}
