// Command run_smc backtests the SMC strategy over a local OHLC CSV and
// prints the performance report. With -save the run also lands in
// ClickHouse.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"smc-backtest/internal/backtest"
	"smc-backtest/internal/config"
	"smc-backtest/internal/market"
	"smc-backtest/internal/storage"
	"smc-backtest/internal/strategy"
)

func main() {
	csvPath := flag.String("csv", "", "Path to OHLC CSV (time,open,high,low,close[,volume]); empty loads from ClickHouse")
	cfgPath := flag.String("config", "", "Path to YAML config; defaults apply when empty")
	symbol := flag.String("symbol", "BTCUSDT", "Trading symbol")
	interval := flag.String("interval", "5m", "Candle interval when loading from ClickHouse")
	from := flag.String("from", "", "Range start (RFC 3339) when loading from ClickHouse")
	to := flag.String("to", "", "Range end (RFC 3339) when loading from ClickHouse")
	save := flag.Bool("save", false, "Persist results to ClickHouse")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	// Optional local env file; deployment envs set real variables.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := buildLogger(cfg.Logging, *verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	var bars []market.Bar
	if *csvPath != "" {
		bars, err = market.LoadCSV(*csvPath)
		if err != nil {
			log.Fatal("load csv", zap.Error(err))
		}
		log.Info("data loaded", zap.String("path", *csvPath), zap.Int("bars", len(bars)))
	} else {
		bars, err = loadFromStorage(cfg, log, *symbol, *interval, *from, *to)
		if err != nil {
			log.Fatal("load candles", zap.Error(err))
		}
		log.Info("data loaded",
			zap.String("symbol", *symbol),
			zap.String("interval", *interval),
			zap.Int("bars", len(bars)),
		)
	}

	strat, err := strategy.NewSMC(cfg.Strategy)
	if err != nil {
		log.Fatal("strategy", zap.Error(err))
	}

	start := time.Now()
	res := backtest.New(strat, cfg.Backtest, log).Run(bars)
	log.Info("backtest complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("trades", len(res.Trades)),
	)

	fmt.Println(backtest.FormatReport(res.Metrics, cfg.Backtest.InitialBalance))

	if *save {
		if !cfg.Storage.Enabled {
			log.Warn("-save given but storage is disabled in config")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client, err := storage.NewClient(ctx, cfg.Storage, log)
		if err != nil {
			log.Fatal("storage", zap.Error(err))
		}
		defer client.Close()

		runID := uuid.New().String()
		if err := client.SaveRun(ctx, runID, *symbol, strat.Name(), res); err != nil {
			log.Fatal("save run", zap.Error(err))
		}
		fmt.Println("run saved:", runID)
	}
}

func loadFromStorage(cfg config.Config, log *zap.Logger, symbol, interval, fromStr, toStr string) ([]market.Bar, error) {
	if !cfg.Storage.Enabled {
		return nil, fmt.Errorf("no -csv given and storage is disabled in config")
	}
	if fromStr == "" || toStr == "" {
		return nil, fmt.Errorf("-from and -to are required when loading from ClickHouse")
	}
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return nil, fmt.Errorf("parse -from: %w", err)
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return nil, fmt.Errorf("parse -to: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	client, err := storage.NewClient(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.LoadBars(ctx, symbol, interval, from, to)
}

func buildLogger(lc config.Logging, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if !lc.JSON {
		zc = zap.NewDevelopmentConfig()
	}
	level := lc.Level
	if verbose {
		level = "debug"
	}
	if level != "" {
		var zl zapcore.Level
		if err := zl.UnmarshalText([]byte(level)); err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(zl)
	}
	return zc.Build()
}
