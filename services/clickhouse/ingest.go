package clickhouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"qt-backtest/services/engine"
)

// InsertBars writes a bar table in one batch. All rows share a version
// stamp; combined with insert_deduplicate and the ReplacingMergeTree key,
// replaying the same batch leaves one row per bar.
func (c *Client) InsertBars(ctx context.Context, bars []engine.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf(
		"INSERT INTO %s.%s SETTINGS insert_deduplicate=1", c.cfg.Database, c.cfg.Table))
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	now := time.Now().UTC()
	version := uint64(now.UnixNano())
	for _, bar := range bars {
		if err := batch.Append(
			bar.Symbol,
			bar.Interval,
			bar.Venue,
			uint64(bar.Timestamp.UnixMilli()),
			bar.Open,
			bar.High,
			bar.Low,
			bar.Close,
			bar.Volume,
			now,
			version,
		); err != nil {
			return fmt.Errorf("batch append: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("batch send: %w", err)
	}
	c.logger.Info("inserted bars", zap.Int("rows", len(bars)))
	return nil
}
