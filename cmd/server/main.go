// Backtest HTTP service: runs registered strategies over bars stored in
// ClickHouse and returns the performance summary and equity curve.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"qt-backtest/proto"
	"qt-backtest/services/clickhouse"
	"qt-backtest/services/config"
	"qt-backtest/services/engine"
	"qt-backtest/strategies"
)

const engineVersion = "1.0.0"

type server struct {
	store    *clickhouse.Client
	registry *engine.Registry
	cfg      *config.Config
	logger   *zap.Logger
}

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	registry := engine.NewRegistry()
	if err := strategies.Register(registry); err != nil {
		logger.Fatal("failed to register strategies", zap.Error(err))
	}

	ctx := context.Background()
	store, err := clickhouse.NewClient(ctx, clickhouse.Config{
		Addr:     cfg.ClickHouse.Addr,
		Database: cfg.ClickHouse.Database,
		Table:    cfg.ClickHouse.Table,
		Username: cfg.ClickHouse.Username,
		Password: cfg.ClickHouse.Password,
	}, logger)
	if err != nil {
		logger.Fatal("failed to connect to clickhouse", zap.Error(err))
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}

	srv := &server{store: store, registry: registry, cfg: cfg, logger: logger}

	if cfg.Environment != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	srv.routes(router)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: router,
	}
	go func() {
		logger.Info("starting http server", zap.Int("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func (s *server) routes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.POST("/backtest", s.handleBacktest)
		api.GET("/strategies", s.handleStrategies)
		api.GET("/health", s.handleHealth)
	}
}

func (s *server) handleBacktest(c *gin.Context) {
	var req proto.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobID := uuid.New().String()
	started := time.Now()
	resp, err := s.run(c.Request.Context(), jobID, &req)
	if err != nil {
		s.logger.Error("backtest failed",
			zap.String("job_id", jobID),
			zap.String("strategy", req.Strategy),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, proto.BacktestResponse{
			JobID:  jobID,
			Status: "failed",
			Error:  err.Error(),
		})
		return
	}
	s.logger.Info("backtest completed",
		zap.String("job_id", jobID),
		zap.String("strategy", req.Strategy),
		zap.Duration("elapsed", time.Since(started)))
	c.JSON(http.StatusOK, resp)
}

func (s *server) run(ctx context.Context, jobID string, req *proto.BacktestRequest) (*proto.BacktestResponse, error) {
	if len(req.Symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol is required")
	}
	factory, err := s.registry.Get(req.Strategy)
	if err != nil {
		return nil, err
	}
	strategy, err := factory(engine.StrategyParams{
		Universe: req.Symbols,
		Settings: req.Settings,
	})
	if err != nil {
		return nil, fmt.Errorf("building strategy: %w", err)
	}

	var table []engine.Bar
	for _, symbol := range req.Symbols {
		bars, err := s.store.QueryBars(ctx, symbol, req.Timeframe,
			time.UnixMilli(req.StartTime).UTC(), time.UnixMilli(req.EndTime).UTC())
		if err != nil {
			return nil, err
		}
		table = append(table, bars...)
	}

	initialCash := req.InitialCash
	if initialCash <= 0 {
		initialCash = s.cfg.Backtest.InitialCash
	}

	queue := engine.NewEventQueue()
	data := engine.NewDataHandler(queue, table, s.logger)
	portfolio := engine.NewPortfolio(initialCash, s.logger)
	exec := engine.NewExecutionSimulator(engine.NoSlippage{}, engine.NoCost{}, s.logger)
	bt := engine.NewBacktestEngine(queue, data, strategy, portfolio, exec, engine.EngineConfig{
		LotSize:      s.cfg.Backtest.LotSize,
		RiskFreeRate: s.cfg.Backtest.RiskFreeRate,
	}, s.logger)

	summary, err := bt.Run()
	if err != nil {
		return nil, err
	}

	curve := portfolio.EquityCurve()
	points := make([]proto.EquityPoint, len(curve))
	for i, pt := range curve {
		points[i] = proto.EquityPoint{TimestampMs: pt.Timestamp.UnixMilli(), NAV: pt.NAV}
	}

	return &proto.BacktestResponse{
		JobID:       jobID,
		Status:      "completed",
		Summary:     summary,
		EquityCurve: points,
		Manifest: &proto.RunManifest{
			JobID:         jobID,
			Strategy:      req.Strategy,
			Symbols:       req.Symbols,
			Timeframe:     req.Timeframe,
			StartTime:     req.StartTime,
			EndTime:       req.EndTime,
			Settings:      req.Settings,
			InitialCash:   initialCash,
			EngineVersion: engineVersion,
			CreatedAtMs:   time.Now().UnixMilli(),
		},
	}, nil
}

func (s *server) handleStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strategies": s.registry.Names()})
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"version":   engineVersion,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
