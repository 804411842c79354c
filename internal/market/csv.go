package market

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LoadCSV reads OHLCV bars from a CSV file with columns
// timestamp_ms,open,high,low,close[,volume]. A header row is skipped if
// present, rows that fail to parse are dropped, and the result is sorted by
// timestamp with duplicate timestamps collapsed (last row wins).
func LoadCSV(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	// Tolerate UTF-8/UTF-16 BOMs from exported spreadsheets.
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	r := csv.NewReader(bufio.NewReader(transform.NewReader(f, dec)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	bars := make([]Bar, 0, 1024)
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line++
			continue
		}
		line++
		if len(rec) < 5 {
			continue
		}
		tsStr := strings.TrimSpace(rec[0])
		if line == 1 && (strings.EqualFold(tsStr, "timestamp") || strings.EqualFold(tsStr, "timestamp_ms")) {
			continue
		}
		ts, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		open, err1 := parseF(rec[1])
		high, err2 := parseF(rec[2])
		low, err3 := parseF(rec[3])
		closep, err4 := parseF(rec[4])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		var vol float64
		if len(rec) >= 6 {
			vol, _ = parseF(rec[5])
		}
		bars = append(bars, Bar{Ts: ts, Open: open, High: high, Low: low, Close: closep, Volume: vol})
	}

	if len(bars) > 1 {
		sort.Slice(bars, func(i, j int) bool { return bars[i].Ts < bars[j].Ts })
		uniq := bars[:0:0]
		var lastTs int64
		for i, b := range bars {
			if i > 0 && b.Ts == lastTs {
				uniq[len(uniq)-1] = b
				continue
			}
			uniq = append(uniq, b)
			lastTs = b.Ts
		}
		bars = uniq
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no parseable bars in %s", path)
	}
	return bars, nil
}

func parseF(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
