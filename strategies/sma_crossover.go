// Package strategies holds the built-in strategies and their registry
// wiring.
package strategies

import (
	"fmt"
	"math"

	"qt-backtest/services/engine"
)

// SmaCrossover goes fully long on a bullish fast/slow SMA cross and flat
// on a bearish cross. The whole signal series is precomputed over the
// historical table in Initialize; OnData is a timestamp lookup.
type SmaCrossover struct {
	engine.BaseStrategy

	symbol     string
	fastWindow int
	slowWindow int
	signals    map[int64]float64 // unix nanos -> target weight
}

func NewSmaCrossover(params engine.StrategyParams) (engine.Strategy, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	fast := int(params.Setting("fast_window", 20))
	slow := int(params.Setting("slow_window", 50))
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("sma windows must be positive, got fast=%d slow=%d", fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("fast window %d must be smaller than slow window %d", fast, slow)
	}
	return &SmaCrossover{
		symbol:     params.Universe[0],
		fastWindow: fast,
		slowWindow: slow,
		signals:    make(map[int64]float64),
	}, nil
}

func (s *SmaCrossover) Initialize(table []engine.Bar) error {
	var bars []engine.Bar
	for _, bar := range table {
		if bar.Symbol == s.symbol {
			bars = append(bars, bar)
		}
	}
	if len(bars) < s.slowWindow {
		// Not enough data for a single slow average; the run just never
		// trades.
		return nil
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	fast := sma(closes, s.fastWindow)
	slow := sma(closes, s.slowWindow)

	havePrev := false
	prevAbove := false
	for i := range bars {
		if math.IsNaN(fast[i]) || math.IsNaN(slow[i]) {
			continue
		}
		above := fast[i] > slow[i]
		if havePrev && above != prevAbove {
			if above {
				s.signals[bars[i].Timestamp.UnixNano()] = 1.0
			} else {
				s.signals[bars[i].Timestamp.UnixNano()] = 0.0
			}
		}
		havePrev = true
		prevAbove = above
	}
	return nil
}

func (s *SmaCrossover) OnData(ev *engine.BarEvent) engine.TargetPositions {
	if _, ok := ev.Bars[s.symbol]; !ok {
		return nil
	}
	weight, ok := s.signals[ev.Timestamp.UnixNano()]
	if !ok {
		return nil
	}
	return engine.TargetPositions{s.symbol: weight}
}

// sma returns the rolling simple moving average; positions before the
// window fills are NaN.
func sma(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || len(values) < window {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}
