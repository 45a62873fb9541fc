package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultLotSize is the fixed order size used by the naive order
// generator until a real position-sizing layer exists.
const DefaultLotSize = 100.0

// EngineConfig carries the run-level knobs.
type EngineConfig struct {
	LotSize      float64
	RiskFreeRate float64
}

// BacktestEngine drains the event queue and routes each event between the
// strategy, the execution simulator and the portfolio. The replay is
// single-threaded: one event is fully handled before the next pops.
type BacktestEngine struct {
	queue        *EventQueue
	data         *DataHandler
	strategy     Strategy
	portfolio    *Portfolio
	exec         *ExecutionSimulator
	latestBars   map[string]Bar
	latestPrices map[string]float64
	lotSize      float64
	riskFree     float64
	logger       *zap.Logger
}

func NewBacktestEngine(
	queue *EventQueue,
	data *DataHandler,
	strategy Strategy,
	portfolio *Portfolio,
	exec *ExecutionSimulator,
	cfg EngineConfig,
	logger *zap.Logger,
) *BacktestEngine {
	if cfg.LotSize <= 0 {
		cfg.LotSize = DefaultLotSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestEngine{
		queue:        queue,
		data:         data,
		strategy:     strategy,
		portfolio:    portfolio,
		exec:         exec,
		latestBars:   make(map[string]Bar),
		latestPrices: make(map[string]float64),
		lotSize:      cfg.LotSize,
		riskFree:     cfg.RiskFreeRate,
		logger:       logger,
	}
}

// Run executes the full replay: strategy initialization over the complete
// table, data load, then the event loop until the queue drains. Returns
// the performance summary of the resulting equity curve.
func (b *BacktestEngine) Run() (map[string]float64, error) {
	b.logger.Info("starting backtest", zap.Float64("initial_cash", b.portfolio.InitialCash()))

	if err := b.strategy.Initialize(b.data.Table()); err != nil {
		return nil, fmt.Errorf("strategy initialize: %w", err)
	}
	b.data.Load()

	for !b.queue.IsEmpty() {
		event, _ := b.queue.Get()
		switch ev := event.(type) {
		case *BarEvent:
			b.handleBarEvent(ev)
		case *OrderEvent:
			b.handleOrderEvent(ev)
		case *FillEvent:
			b.portfolio.UpdateOnFill(ev)
			for _, fill := range ev.Fills {
				b.strategy.OnFill(fill)
			}
		default:
			b.logger.Warn("unknown event type dropped", zap.Time("timestamp", event.When()))
		}
	}

	b.logger.Info("backtest finished",
		zap.Int("snapshots", len(b.portfolio.History())),
		zap.Float64("final_cash", b.portfolio.Cash()),
		zap.Int("open_orders", b.exec.OpenOrderCount()))
	return GeneratePerformanceSummary(b.portfolio.EquityCurve(), b.riskFree), nil
}

func (b *BacktestEngine) handleBarEvent(ev *BarEvent) {
	for symbol, bar := range ev.Bars {
		b.latestBars[symbol] = bar
		b.latestPrices[symbol] = bar.Close
	}

	// Snapshot before this bar's own fills land: each point reflects
	// state entering the bar, marked at this bar's closes.
	b.portfolio.RecordSnapshot(ev.Timestamp, b.latestPrices)

	if fills := b.exec.CheckOpenOrders(ev); fills != nil {
		b.queue.Put(fills)
	}

	targets := b.strategy.OnData(ev)
	if len(targets) == 0 {
		return
	}
	if orders := b.ordersFromTargets(targets, ev.Timestamp); len(orders) > 0 {
		b.queue.Put(&OrderEvent{Timestamp: ev.Timestamp, Orders: orders})
	}
}

func (b *BacktestEngine) handleOrderEvent(ev *OrderEvent) {
	for _, order := range ev.Orders {
		b.strategy.OnOrderStatus(order)
	}
	if fills := b.exec.ProcessNewOrders(ev, b.latestBars); fills != nil {
		b.queue.Put(fills)
	}
}

// ordersFromTargets is a deliberately naive stand-in for a sizing layer:
// a positive target from flat buys one fixed lot, a zero target while
// long sells the whole position, and everything trades MARKET. Symbols
// are visited in sorted order for deterministic replays.
func (b *BacktestEngine) ordersFromTargets(targets TargetPositions, ts time.Time) []Order {
	symbols := make([]string, 0, len(targets))
	for symbol := range targets {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var orders []Order
	for _, symbol := range symbols {
		weight := targets[symbol]
		var held float64
		if pos, ok := b.portfolio.Position(symbol); ok {
			held = pos.Quantity
		}
		switch {
		case weight > 0 && held == 0:
			orders = append(orders, Order{
				ID:        uuid.New().String(),
				Timestamp: ts,
				Symbol:    symbol,
				Side:      SideBuy,
				Quantity:  b.lotSize,
				Type:      OrderMarket,
			})
		case weight == 0 && held > 0:
			orders = append(orders, Order{
				ID:        uuid.New().String(),
				Timestamp: ts,
				Symbol:    symbol,
				Side:      SideSell,
				Quantity:  held,
				Type:      OrderMarket,
			})
		}
	}
	return orders
}
