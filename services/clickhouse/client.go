// Package clickhouse stores and serves OHLCV bar tables.
package clickhouse

import (
	"context"
	"fmt"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"qt-backtest/services/engine"
)

// Config locates the bar table.
type Config struct {
	Addr     string
	Database string
	Table    string
	Username string
	Password string
}

// Client wraps a native ClickHouse connection.
type Client struct {
	conn   driver.Conn
	cfg    Config
	logger *zap.Logger
}

// NewClient opens and pings a connection.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 300,
		},
		DialTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	logger.Info("connected to clickhouse", zap.String("addr", cfg.Addr), zap.String("database", cfg.Database))
	return &Client{conn: conn, cfg: cfg, logger: logger}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// EnsureSchema creates the bar table if missing. ReplacingMergeTree keyed
// by (symbol, interval, open_time_ms) keeps the newest version of a row,
// so re-ingesting a range is idempotent.
func (c *Client) EnsureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, fmt.Sprintf(
		"CREATE DATABASE IF NOT EXISTS %s", c.cfg.Database)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			symbol        String,
			interval      LowCardinality(String),
			venue         LowCardinality(String),
			open_time_ms  UInt64,
			open          Float64,
			high          Float64,
			low           Float64,
			close         Float64,
			volume        Float64,
			ingested_at   DateTime64(3),
			version       UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (symbol, interval, open_time_ms)
		SETTINGS index_granularity = 8192
	`, c.cfg.Database, c.cfg.Table)
	if err := c.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// QueryBars returns the stored bars for symbol/interval in [start, end),
// ordered by open time.
func (c *Client) QueryBars(ctx context.Context, symbol, interval string, start, end time.Time) ([]engine.Bar, error) {
	query := fmt.Sprintf(`
		SELECT symbol, interval, venue, open_time_ms, open, high, low, close, volume
		FROM %s.%s FINAL
		WHERE symbol = ? AND interval = ? AND open_time_ms >= ? AND open_time_ms < ?
		ORDER BY open_time_ms
	`, c.cfg.Database, c.cfg.Table)

	rows, err := c.conn.Query(ctx, query, symbol, interval,
		uint64(start.UnixMilli()), uint64(end.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []engine.Bar
	for rows.Next() {
		var (
			sym, ivl, venue                   string
			openMs                            uint64
			open, high, low, closeP, volume   float64
		)
		if err := rows.Scan(&sym, &ivl, &venue, &openMs, &open, &high, &low, &closeP, &volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		bars = append(bars, engine.Bar{
			Timestamp: time.UnixMilli(int64(openMs)).UTC(),
			Symbol:    sym,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    volume,
			Interval:  ivl,
			Venue:     venue,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}
	c.logger.Info("loaded bars",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("rows", len(bars)))
	return bars, nil
}
