// Command fetch_candles downloads Binance monthly spot klines and loads them
// into the ClickHouse candle store, optionally deriving coarser intervals.
// Re-running a range is safe: the store deduplicates on re-ingest.
package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"smc-backtest/internal/config"
	"smc-backtest/internal/market"
	"smc-backtest/internal/storage"
)

func main() {
	symbolsFlag := flag.String("symbols", "BTCUSDT,ETHUSDT", "Comma-separated symbols")
	startYM := flag.String("start", "2023-01", "First month (YYYY-MM)")
	endYM := flag.String("end", "2023-12", "Last month (YYYY-MM)")
	baseURL := flag.String("base-url", "https://data.binance.vision", "Binance data mirror")
	derive := flag.String("derive", "5m,15m", "Intervals to derive from 1m, empty to skip")
	cfgPath := flag.String("config", "", "Path to YAML config; defaults apply when empty")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	client, err := storage.NewClient(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("storage", zap.Error(err))
	}
	defer client.Close()

	months, err := monthRange(*startYM, *endYM)
	if err != nil {
		log.Fatal("month range", zap.Error(err))
	}

	for _, sym := range splitSymbols(*symbolsFlag) {
		log.Info("ingesting symbol",
			zap.String("symbol", sym),
			zap.String("from", *startYM),
			zap.String("to", *endYM),
		)
		for _, m := range months {
			if err := ingestMonth(ctx, client, *baseURL, sym, m); err != nil {
				// one bad month should not sink the rest of the range
				log.Warn("month ingest failed",
					zap.String("symbol", sym),
					zap.String("month", m.Format("2006-01")),
					zap.Error(err),
				)
			}
		}
	}

	for _, iv := range strings.Split(*derive, ",") {
		iv = strings.TrimSpace(iv)
		if iv == "" {
			continue
		}
		minutes, err := intervalMinutes(iv)
		if err != nil {
			log.Fatal("derive", zap.Error(err))
		}
		if err := client.DeriveInterval(ctx, iv, minutes); err != nil {
			log.Fatal("derive", zap.Error(err))
		}
	}
	log.Info("ingestion complete")
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func monthRange(startYM, endYM string) ([]time.Time, error) {
	start, err := time.Parse("2006-01", startYM)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	end, err := time.Parse("2006-01", endYM)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}
	if end.Before(start) {
		return nil, errors.New("end month before start month")
	}
	var out []time.Time
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 1, 0) {
		out = append(out, cur)
	}
	return out, nil
}

func intervalMinutes(iv string) (int, error) {
	if !strings.HasSuffix(iv, "m") {
		return 0, fmt.Errorf("unsupported interval %q", iv)
	}
	n, err := strconv.Atoi(strings.TrimSuffix(iv, "m"))
	if err != nil || n < 2 {
		return 0, fmt.Errorf("unsupported interval %q", iv)
	}
	return n, nil
}

func ingestMonth(ctx context.Context, client *storage.Client, baseURL, symbol string, month time.Time) error {
	url := fmt.Sprintf("%s/data/spot/monthly/klines/%s/1m/%s-1m-%04d-%02d.zip",
		baseURL, symbol, symbol, month.Year(), int(month.Month()))

	data, err := httpGet(url)
	if err != nil {
		return err
	}
	bars, err := parseKlinesZip(data)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}
	return client.InsertCandles(ctx, symbol, "1m", bars)
}

func httpGet(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := &http.Client{Timeout: 180 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseKlinesZip extracts bars from a Binance monthly kline archive. Columns:
// open time(ms), open, high, low, close, volume, then fields we ignore.
func parseKlinesZip(data []byte) ([]market.Bar, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("zip open: %w", err)
	}
	var entry io.ReadCloser
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".csv") {
			if entry, err = f.Open(); err != nil {
				return nil, fmt.Errorf("zip entry: %w", err)
			}
			break
		}
	}
	if entry == nil {
		return nil, errors.New("no csv in zip")
	}
	defer entry.Close()

	reader := csv.NewReader(entry)
	reader.FieldsPerRecord = -1

	var bars []market.Bar
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		if len(rec) < 6 {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64)
		if err != nil {
			continue
		}
		open, e1 := strconv.ParseFloat(rec[1], 64)
		high, e2 := strconv.ParseFloat(rec[2], 64)
		low, e3 := strconv.ParseFloat(rec[3], 64)
		closep, e4 := strconv.ParseFloat(rec[4], 64)
		vol, e5 := strconv.ParseFloat(rec[5], 64)
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil || e5 != nil {
			continue
		}
		bars = append(bars, market.Bar{Ts: ts, Open: open, High: high, Low: low, Close: closep, Volume: vol})
	}
	return bars, nil
}
