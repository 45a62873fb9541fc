// Command backtest runs one strategy over a CSV file or a ClickHouse
// range and prints the performance summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"qt-backtest/services/arrowpipeline"
	"qt-backtest/services/clickhouse"
	"qt-backtest/services/config"
	"qt-backtest/services/csvsource"
	"qt-backtest/services/engine"
	"qt-backtest/strategies"
)

func main() {
	csvPath := flag.String("csv", "", "Path to a local OHLCV CSV; skips ClickHouse when set")
	symbol := flag.String("symbol", "BTCUSDT", "Trading symbol")
	interval := flag.String("interval", "5m", "Bar interval")
	venue := flag.String("venue", "BINANCE", "Market venue")
	strategyName := flag.String("strategy", "sma_crossover", "Registered strategy name")
	fast := flag.Float64("fast", 20, "Fast SMA window")
	slow := flag.Float64("slow", 50, "Slow SMA window")
	cash := flag.Float64("cash", 1_000_000, "Initial cash")
	lot := flag.Float64("lot", 100, "Fixed order lot size")
	riskFree := flag.Float64("risk-free", 0, "Annual risk-free rate")
	from := flag.String("from", "2020-01-01T00:00:00Z", "Range start (RFC3339), ClickHouse source only")
	to := flag.String("to", "2025-01-01T00:00:00Z", "Range end (RFC3339), ClickHouse source only")
	equityOut := flag.String("equity-out", "", "Optional Arrow IPC output path for the equity curve")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	table, err := loadBars(*csvPath, *symbol, *interval, *venue, *from, *to, logger)
	if err != nil {
		logger.Fatal("loading bars", zap.Error(err))
	}

	registry := engine.NewRegistry()
	if err := strategies.Register(registry); err != nil {
		logger.Fatal("registering strategies", zap.Error(err))
	}
	factory, err := registry.Get(*strategyName)
	if err != nil {
		logger.Fatal("resolving strategy", zap.Error(err))
	}
	strategy, err := factory(engine.StrategyParams{
		Universe: []string{*symbol},
		Settings: map[string]float64{"fast_window": *fast, "slow_window": *slow},
	})
	if err != nil {
		logger.Fatal("building strategy", zap.Error(err))
	}

	queue := engine.NewEventQueue()
	data := engine.NewDataHandler(queue, table, logger)
	portfolio := engine.NewPortfolio(*cash, logger)
	exec := engine.NewExecutionSimulator(engine.NoSlippage{}, engine.NoCost{}, logger)
	bt := engine.NewBacktestEngine(queue, data, strategy, portfolio, exec, engine.EngineConfig{
		LotSize:      *lot,
		RiskFreeRate: *riskFree,
	}, logger)

	summary, err := bt.Run()
	if err != nil {
		logger.Fatal("backtest run", zap.Error(err))
	}
	if len(summary) == 0 {
		logger.Warn("equity curve too short for a performance summary")
	}

	keys := make([]string, 0, len(summary))
	for key := range summary {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("%-22s %14.6f\n", key, summary[key])
	}

	if *equityOut != "" {
		pipeline := arrowpipeline.NewPipeline(logger)
		encoded, err := pipeline.EncodeEquityCurve(portfolio.EquityCurve())
		if err != nil {
			logger.Fatal("encoding equity curve", zap.Error(err))
		}
		if err := os.WriteFile(*equityOut, encoded, 0o644); err != nil {
			logger.Fatal("writing equity curve", zap.Error(err))
		}
		logger.Info("wrote equity curve", zap.String("path", *equityOut))
	}
}

func loadBars(csvPath, symbol, interval, venue, from, to string, logger *zap.Logger) ([]engine.Bar, error) {
	if csvPath != "" {
		return csvsource.Load(csvPath, csvsource.Options{
			Symbol:   symbol,
			Interval: interval,
			Venue:    venue,
		}, logger)
	}

	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		return nil, fmt.Errorf("parse -from: %w", err)
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		return nil, fmt.Errorf("parse -to: %w", err)
	}

	cfg := config.Load()
	ctx := context.Background()
	store, err := clickhouse.NewClient(ctx, clickhouse.Config{
		Addr:     cfg.ClickHouse.Addr,
		Database: cfg.ClickHouse.Database,
		Table:    cfg.ClickHouse.Table,
		Username: cfg.ClickHouse.Username,
		Password: cfg.ClickHouse.Password,
	}, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.QueryBars(ctx, symbol, interval, start, end)
}
