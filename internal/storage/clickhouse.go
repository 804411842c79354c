// Package storage persists backtest results to ClickHouse. The sink is an
// optional collaborator: the engine never depends on it and runs are saved
// after the fact from whatever entry point owns the result.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smc-backtest/internal/backtest"
)

// Config wires the sink. Enabled=false makes every call a no-op at the
// caller's discretion.
type Config struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	DSN      string `yaml:"dsn" json:"dsn"`
	Database string `yaml:"database" json:"database"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
}

// DefaultConfig matches a local ClickHouse with the stock native port.
func DefaultConfig() Config {
	return Config{
		DSN:      "clickhouse://default:@localhost:9000?secure=false&compress=lz4",
		Database: "smc",
	}
}

// Client owns one native connection.
type Client struct {
	conn clickhouse.Conn
	cfg  Config
	log  *zap.Logger
}

// NewClient connects, pings and ensures the result tables exist.
func NewClient(ctx context.Context, cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{dsnHost(cfg.DSN)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	c := &Client{conn: conn, cfg: cfg, log: log}
	if err := c.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// dsnHost extracts host:port from a DSN-like URL for driver bootstrap.
func dsnHost(dsn string) string {
	host := "localhost:9000"
	if i := strings.Index(dsn, "@"); i != -1 {
		rest := dsn[i+1:]
		if j := strings.Index(rest, "?"); j != -1 {
			host = rest[:j]
		} else {
			host = rest
		}
		host = strings.TrimPrefix(host, "/")
		host = strings.TrimPrefix(host, "//")
	}
	return host
}

func (c *Client) ensureSchema(ctx context.Context) error {
	if err := c.conn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", c.cfg.Database)); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	ddls := []string{
		candlesDDL(c.cfg.Database),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.runs (
			run_id String,
			symbol String,
			strategy LowCardinality(String),
			started_at DateTime64(3),
			net_profit Float64,
			total_return_pct Float64,
			max_drawdown_pct Float64,
			sharpe_ratio Float64,
			calmar_ratio Float64,
			win_rate Float64,
			profit_factor Float64,
			expectancy Float64,
			total_trades UInt32,
			final_equity Float64
		)
		ENGINE = MergeTree
		ORDER BY (symbol, started_at, run_id)
		SETTINGS index_granularity = 8192
	`, c.cfg.Database),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.trades (
			run_id String,
			trade_index UInt32,
			side LowCardinality(String),
			entry_time_ms UInt64,
			exit_time_ms UInt64,
			entry_price Decimal64(8),
			exit_price Decimal64(8),
			size Float64,
			pnl Float64,
			fees Float64,
			cum_equity Float64,
			exit_reason LowCardinality(String)
		)
		ENGINE = MergeTree
		ORDER BY (run_id, trade_index)
		SETTINGS index_granularity = 8192
	`, c.cfg.Database),
		fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.equity (
			run_id String,
			time_ms UInt64,
			equity Float64
		)
		ENGINE = MergeTree
		ORDER BY (run_id, time_ms)
		SETTINGS index_granularity = 8192
	`, c.cfg.Database),
	}
	for _, ddl := range ddls {
		if err := c.conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// SaveRun writes one run's summary row plus its trade ledger and equity
// curve. The three inserts are independent batches; a partial failure leaves
// whatever already landed.
func (c *Client) SaveRun(ctx context.Context, runID, symbol, strategyName string, res backtest.Result) error {
	m := res.Metrics

	if err := c.conn.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s.runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, c.cfg.Database),
		runID, symbol, strategyName, time.Now().UTC(),
		m.NetProfit, m.TotalReturnPct, m.MaxDrawdownPct, m.SharpeRatio, m.CalmarRatio,
		m.WinRate, m.ProfitFactor, m.Expectancy, uint32(m.TotalTrades), m.FinalEquity,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if len(res.Trades) > 0 {
		batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.trades", c.cfg.Database))
		if err != nil {
			return fmt.Errorf("prepare trades batch: %w", err)
		}
		for _, t := range res.Trades {
			if err := batch.Append(
				runID, uint32(t.Index), t.Side.String(),
				uint64(t.EntryTs), uint64(t.ExitTs),
				decimal.NewFromFloat(t.EntryPrice), decimal.NewFromFloat(t.ExitPrice),
				t.Size, t.PnL, t.Fees, t.CumEquity, string(t.ExitReason),
			); err != nil {
				return fmt.Errorf("append trade: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("send trades batch: %w", err)
		}
	}

	if len(res.EquityCurve) > 0 {
		batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.equity", c.cfg.Database))
		if err != nil {
			return fmt.Errorf("prepare equity batch: %w", err)
		}
		for _, p := range res.EquityCurve {
			if err := batch.Append(runID, uint64(p.Ts), p.Equity); err != nil {
				return fmt.Errorf("append equity point: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("send equity batch: %w", err)
		}
	}

	c.log.Info("run saved",
		zap.String("run_id", runID),
		zap.Int("trades", len(res.Trades)),
		zap.Int("equity_points", len(res.EquityCurve)),
	)
	return nil
}
