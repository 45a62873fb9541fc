package engine

import "time"

// Side is the direction of an order.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "BUY"
	}
	return "SELL"
}

// OrderType selects the execution style of an order.
type OrderType int

const (
	OrderMarket OrderType = iota
	OrderLimit
	OrderStop
	OrderStopLimit
)

func (t OrderType) String() string {
	switch t {
	case OrderMarket:
		return "MARKET"
	case OrderLimit:
		return "LIMIT"
	case OrderStop:
		return "STOP"
	case OrderStopLimit:
		return "STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// Bar is one immutable OHLCV record for a symbol over an interval.
type Bar struct {
	Timestamp time.Time
	Symbol    string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Interval  string
	Venue     string
}

// Order is an instruction to trade. LimitPrice is meaningful only for
// LIMIT and STOP_LIMIT orders.
type Order struct {
	ID         string
	Timestamp  time.Time
	Symbol     string
	Side       Side
	Quantity   float64
	Type       OrderType
	LimitPrice float64
}

// Fill records an execution. Quantity is signed: positive quantities were
// bought, negative sold.
type Fill struct {
	OrderID   string
	Timestamp time.Time
	Symbol    string
	Quantity  float64
	Price     float64
	Fee       float64
}

// Position is the net holding in one symbol. Quantity is signed; AvgPrice
// is the weighted-average entry price of the open quantity; RealizedPnl
// accumulates over partial closes and flips.
type Position struct {
	Symbol      string
	Quantity    float64
	AvgPrice    float64
	RealizedPnl float64
}

// PortfolioSnapshot is the portfolio state at one instant, with positions
// marked to the latest known prices.
type PortfolioSnapshot struct {
	Timestamp time.Time
	NAV       float64
	Cash      float64
	Positions map[string]Position
}

// TargetPositions maps symbol to the strategy's desired fractional
// allocation of equity.
type TargetPositions map[string]float64
