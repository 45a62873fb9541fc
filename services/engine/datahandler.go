package engine

import (
	"sort"

	"go.uber.org/zap"
)

// DataHandler turns a time-indexed multi-symbol bar table into one
// BarEvent per distinct timestamp and serves point-in-time lookups over
// what it has replayed.
type DataHandler struct {
	queue        *EventQueue
	table        []Bar
	history      map[string][]Bar
	latestPrices map[string]float64
	logger       *zap.Logger
}

func NewDataHandler(queue *EventQueue, table []Bar, logger *zap.Logger) *DataHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DataHandler{
		queue:        queue,
		table:        table,
		history:      make(map[string][]Bar),
		latestPrices: make(map[string]float64),
		logger:       logger,
	}
}

// Table returns the full historical table, as handed to strategies at
// initialization.
func (d *DataHandler) Table() []Bar { return d.table }

// Load sorts the table by timestamp and pushes one BarEvent per distinct
// timestamp onto the queue. History and latest prices are filled in here,
// at load time, ahead of event consumption; strategies that need strict
// point-in-time reads should precompute in Initialize rather than call
// History from OnData.
func (d *DataHandler) Load() {
	if len(d.table) == 0 {
		d.logger.Warn("no historical data provided, nothing to replay")
		return
	}

	sorted := make([]Bar, len(d.table))
	copy(sorted, d.table)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	events := 0
	for i := 0; i < len(sorted); {
		ts := sorted[i].Timestamp
		bars := make(map[string]Bar)
		for i < len(sorted) && sorted[i].Timestamp.Equal(ts) {
			bars[sorted[i].Symbol] = sorted[i]
			i++
		}
		ev := &BarEvent{Timestamp: ts, Bars: bars}
		d.queue.Put(ev)
		d.updateHistory(ev)
		events++
	}
	d.logger.Info("queued market data",
		zap.Int("bars", len(sorted)),
		zap.Int("timestamps", events))
}

func (d *DataHandler) updateHistory(ev *BarEvent) {
	for symbol, bar := range ev.Bars {
		d.history[symbol] = append(d.history[symbol], bar)
		d.latestPrices[symbol] = bar.Close
	}
}

// History returns the most recent lookback bars for symbol, oldest first.
// lookback <= 0 means everything. Fewer than lookback bars on record
// yields nil rather than a short slice.
func (d *DataHandler) History(symbol string, lookback int) []Bar {
	h := d.history[symbol]
	if lookback <= 0 {
		lookback = len(h)
	}
	if len(h) < lookback || lookback == 0 {
		return nil
	}
	out := make([]Bar, lookback)
	copy(out, h[len(h)-lookback:])
	return out
}

// LatestPrices returns a copy of each symbol's most recent close.
func (d *DataHandler) LatestPrices() map[string]float64 {
	out := make(map[string]float64, len(d.latestPrices))
	for symbol, price := range d.latestPrices {
		out[symbol] = price
	}
	return out
}
