package engine

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// ExecutionSimulator converts orders into fills. MARKET orders resolve
// immediately against the latest bar for their symbol; LIMIT orders rest
// on an open-order book until a bar trades through their price. STOP and
// STOP_LIMIT are rejected at intake.
type ExecutionSimulator struct {
	slippage   SlippageModel
	costs      CostModel
	openOrders map[string]Order
	logger     *zap.Logger
}

// NewExecutionSimulator builds a simulator. Nil models fall back to
// NoSlippage (fill at close) and NoCost (zero fees).
func NewExecutionSimulator(slippage SlippageModel, costs CostModel, logger *zap.Logger) *ExecutionSimulator {
	if slippage == nil {
		slippage = NoSlippage{}
	}
	if costs == nil {
		costs = NoCost{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecutionSimulator{
		slippage:   slippage,
		costs:      costs,
		openOrders: make(map[string]Order),
		logger:     logger,
	}
}

// OpenOrderCount reports the number of resting limit orders.
func (s *ExecutionSimulator) OpenOrderCount() int { return len(s.openOrders) }

// ProcessNewOrders routes each order: MARKET fills now at the slippage
// price against latestBars, LIMIT joins the open book, anything else is
// skipped with a warning. An order whose symbol has no bar yet is skipped,
// not queued. Returns nil when nothing filled.
func (s *ExecutionSimulator) ProcessNewOrders(ev *OrderEvent, latestBars map[string]Bar) *FillEvent {
	var fills []Fill
	for _, order := range ev.Orders {
		switch order.Type {
		case OrderMarket:
			bar, ok := latestBars[order.Symbol]
			if !ok {
				s.logger.Warn("no market data for order symbol, skipping",
					zap.String("order_id", order.ID),
					zap.String("symbol", order.Symbol))
				continue
			}
			price := s.slippage.ExecutionPrice(order, bar)
			fills = append(fills, s.fill(order, price, ev.Timestamp))
		case OrderLimit:
			s.openOrders[order.ID] = order
		default:
			s.logger.Warn("unsupported order type, skipping",
				zap.String("order_id", order.ID),
				zap.Stringer("type", order.Type))
		}
	}
	if len(fills) == 0 {
		return nil
	}
	return &FillEvent{Timestamp: ev.Timestamp, Fills: fills}
}

// CheckOpenOrders tests resting limit orders against the new bars. A buy
// fills when the bar trades at or below its limit, a sell at or above;
// execution is at exactly the limit price and always for the full
// quantity. Orders are scanned in sorted id order so multi-fill instants
// replay identically. Returns nil when nothing filled.
func (s *ExecutionSimulator) CheckOpenOrders(ev *BarEvent) *FillEvent {
	if len(s.openOrders) == 0 {
		return nil
	}
	ids := make([]string, 0, len(s.openOrders))
	for id := range s.openOrders {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var fills []Fill
	for _, id := range ids {
		order := s.openOrders[id]
		bar, ok := ev.Bars[order.Symbol]
		if !ok {
			continue
		}
		if !limitTouched(order, bar) {
			continue
		}
		fills = append(fills, s.fill(order, order.LimitPrice, ev.Timestamp))
		delete(s.openOrders, id)
	}
	if len(fills) == 0 {
		return nil
	}
	return &FillEvent{Timestamp: ev.Timestamp, Fills: fills}
}

func limitTouched(order Order, bar Bar) bool {
	if order.Side == SideBuy {
		return bar.Low <= order.LimitPrice
	}
	return bar.High >= order.LimitPrice
}

func (s *ExecutionSimulator) fill(order Order, price float64, ts time.Time) Fill {
	qty := order.Quantity
	if order.Side == SideSell {
		qty = -qty
	}
	f := Fill{
		OrderID:   order.ID,
		Timestamp: ts,
		Symbol:    order.Symbol,
		Quantity:  qty,
		Price:     price,
	}
	f.Fee = s.costs.Fee(f)
	s.logger.Debug("filled order",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.Float64("quantity", qty),
		zap.Float64("price", price))
	return f
}
