package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smc-backtest/internal/market"
)

// candlesDDL backs the OHLCV store. ReplacingMergeTree keyed by version makes
// re-ingesting a month idempotent.
func candlesDDL(database string) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.candles (
			symbol String,
			interval LowCardinality(String),
			open_time_ms UInt64,
			open Float64,
			high Float64,
			low Float64,
			close Float64,
			volume Float64,
			ingested_at DateTime64(3),
			version UInt64
		)
		ENGINE = ReplacingMergeTree(version)
		ORDER BY (symbol, interval, open_time_ms)
		SETTINGS index_granularity = 8192
	`, database)
}

// InsertCandles writes one batch of bars for a symbol and interval. Rows
// carry a shared version so a re-run of the same range replaces rather than
// duplicates.
func (c *Client) InsertCandles(ctx context.Context, symbol, interval string, bars []market.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	batch, err := c.conn.PrepareBatch(ctx,
		fmt.Sprintf("INSERT INTO %s.candles SETTINGS insert_deduplicate=1", c.cfg.Database))
	if err != nil {
		return fmt.Errorf("prepare candles batch: %w", err)
	}
	now := time.Now().UTC()
	ver := uint64(now.UnixNano())
	for _, b := range bars {
		if err := batch.Append(
			symbol, interval, uint64(b.Ts),
			b.Open, b.High, b.Low, b.Close, b.Volume,
			now, ver,
		); err != nil {
			return fmt.Errorf("append candle: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send candles batch: %w", err)
	}
	c.log.Info("candles inserted",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("rows", len(bars)),
	)
	return nil
}

// LoadBars reads bars for a symbol and interval in [from, to), ordered by
// open time. FINAL collapses replaced versions.
func (c *Client) LoadBars(ctx context.Context, symbol, interval string, from, to time.Time) ([]market.Bar, error) {
	rows, err := c.conn.Query(ctx, fmt.Sprintf(`
		SELECT open_time_ms, open, high, low, close, volume
		FROM %s.candles FINAL
		WHERE symbol = ? AND interval = ? AND open_time_ms >= ? AND open_time_ms < ?
		ORDER BY open_time_ms
	`, c.cfg.Database), symbol, interval, uint64(from.UnixMilli()), uint64(to.UnixMilli()))
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	var bars []market.Bar
	for rows.Next() {
		var ts uint64
		var b market.Bar
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan candle: %w", err)
		}
		b.Ts = int64(ts)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read candles: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no candles for %s %s in range", symbol, interval)
	}
	return bars, nil
}

// DeriveInterval aggregates the 1m candles into a coarser interval, in place
// on the server. Safe to re-run.
func (c *Client) DeriveInterval(ctx context.Context, interval string, minutes int) error {
	q := fmt.Sprintf(`
		INSERT INTO %s.candles SETTINGS insert_deduplicate=1
		SELECT
			symbol,
			'%s' AS interval,
			toUInt64(toUnixTimestamp(start_ts) * 1000) AS open_time_ms,
			argMin(open, open_time_ms)  AS open,
			max(high)                   AS high,
			min(low)                    AS low,
			argMax(close, open_time_ms) AS close,
			sum(volume)                 AS volume,
			now64(3)                    AS ingested_at,
			toUInt64(toUnixTimestamp64Nano(now64(9))) AS version
		FROM (
			SELECT
				symbol, open_time_ms, open, high, low, close, volume,
				toStartOfInterval(toDateTime(open_time_ms / 1000), INTERVAL %d MINUTE) AS start_ts
			FROM %s.candles
			WHERE interval = '1m'
		)
		GROUP BY symbol, start_ts
	`, c.cfg.Database, interval, minutes, c.cfg.Database)
	if err := c.conn.Exec(ctx, q); err != nil {
		return fmt.Errorf("derive %s: %w", interval, err)
	}
	c.log.Info("interval derived", zap.String("interval", interval))
	return nil
}
