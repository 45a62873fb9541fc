package strategies

import "qt-backtest/services/engine"

// BuyAndHold targets full allocation on the first bar of its symbol and
// never exits.
type BuyAndHold struct {
	engine.BaseStrategy

	symbol  string
	entered bool
}

func NewBuyAndHold(params engine.StrategyParams) (engine.Strategy, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &BuyAndHold{symbol: params.Universe[0]}, nil
}

func (s *BuyAndHold) Initialize([]engine.Bar) error { return nil }

func (s *BuyAndHold) OnData(ev *engine.BarEvent) engine.TargetPositions {
	if s.entered {
		return nil
	}
	if _, ok := ev.Bars[s.symbol]; !ok {
		return nil
	}
	s.entered = true
	return engine.TargetPositions{s.symbol: 1.0}
}
