package engine

import (
	"testing"
	"time"
)

func dailyBar(day int, symbol string, close float64) Bar {
	ts := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	return Bar{
		Timestamp: ts,
		Symbol:    symbol,
		Open:      close,
		High:      close,
		Low:       close,
		Close:     close,
		Volume:    1000,
		Interval:  "1d",
	}
}

func TestLoadGroupsBarsByTimestamp(t *testing.T) {
	q := NewEventQueue()
	table := []Bar{
		dailyBar(2, "ETH", 2000),
		dailyBar(1, "BTC", 100),
		dailyBar(2, "BTC", 110),
		dailyBar(1, "ETH", 1900),
	}
	d := NewDataHandler(q, table, nil)
	d.Load()

	if q.Len() != 2 {
		t.Fatalf("queued %d events, want 2", q.Len())
	}
	first, _ := q.Get()
	second, _ := q.Get()
	ev1, ok := first.(*BarEvent)
	if !ok {
		t.Fatalf("first event is %T, want *BarEvent", first)
	}
	ev2 := second.(*BarEvent)

	if !ev1.Timestamp.Before(ev2.Timestamp) {
		t.Fatalf("events out of order: %v then %v", ev1.Timestamp, ev2.Timestamp)
	}
	if len(ev1.Bars) != 2 || len(ev2.Bars) != 2 {
		t.Fatalf("bars per event = %d, %d, want 2, 2", len(ev1.Bars), len(ev2.Bars))
	}
	if ev1.Bars["BTC"].Close != 100 || ev2.Bars["BTC"].Close != 110 {
		t.Fatal("bars grouped under the wrong timestamps")
	}
}

func TestLoadEmptyTable(t *testing.T) {
	q := NewEventQueue()
	d := NewDataHandler(q, nil, nil)
	d.Load()
	if !q.IsEmpty() {
		t.Fatal("empty table must queue no events")
	}
}

func TestHistoryLookback(t *testing.T) {
	q := NewEventQueue()
	table := []Bar{
		dailyBar(1, "BTC", 100),
		dailyBar(2, "BTC", 110),
		dailyBar(3, "BTC", 120),
	}
	d := NewDataHandler(q, table, nil)
	d.Load()

	last2 := d.History("BTC", 2)
	if len(last2) != 2 {
		t.Fatalf("History(2) returned %d bars, want 2", len(last2))
	}
	if last2[0].Close != 110 || last2[1].Close != 120 {
		t.Fatalf("History(2) = %v, %v, want closes 110, 120", last2[0].Close, last2[1].Close)
	}

	if got := d.History("BTC", 5); got != nil {
		t.Fatalf("History beyond recorded depth must be nil, got %d bars", len(got))
	}
	if got := d.History("BTC", 0); len(got) != 3 {
		t.Fatalf("History(0) must return everything, got %d bars", len(got))
	}
	if got := d.History("DOGE", 1); got != nil {
		t.Fatal("History for an unknown symbol must be nil")
	}
}

func TestLatestPricesIsACopy(t *testing.T) {
	q := NewEventQueue()
	d := NewDataHandler(q, []Bar{dailyBar(1, "BTC", 100)}, nil)
	d.Load()

	prices := d.LatestPrices()
	if prices["BTC"] != 100 {
		t.Fatalf("latest BTC price = %v, want 100", prices["BTC"])
	}
	prices["BTC"] = -1

	if again := d.LatestPrices(); again["BTC"] != 100 {
		t.Fatalf("mutating the returned map leaked into the handler: %v", again["BTC"])
	}
}
