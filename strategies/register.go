package strategies

import "qt-backtest/services/engine"

// Register adds the built-in strategies to r.
func Register(r *engine.Registry) error {
	if err := r.Register("sma_crossover", NewSmaCrossover); err != nil {
		return err
	}
	return r.Register("buy_and_hold", NewBuyAndHold)
}
