package engine

// SlippageModel decides the price an order executes at, given the bar it
// executes into.
type SlippageModel interface {
	ExecutionPrice(order Order, bar Bar) float64
}

// NoSlippage executes at the bar close.
type NoSlippage struct{}

func (NoSlippage) ExecutionPrice(_ Order, bar Bar) float64 { return bar.Close }

// FixedTicksSlippage shifts the close against the order by a fixed amount.
type FixedTicksSlippage struct {
	Ticks float64
}

func (s FixedTicksSlippage) ExecutionPrice(order Order, bar Bar) float64 {
	if order.Side == SideBuy {
		return bar.Close + s.Ticks
	}
	return bar.Close - s.Ticks
}
