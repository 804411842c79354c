package market

import (
	"fmt"
	"time"
)

// Bar is a single OHLCV bar. Ts is the bar open time in unix milliseconds.
type Bar struct {
	Ts     int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Time returns the bar open time in UTC.
func (b Bar) Time() time.Time { return time.UnixMilli(b.Ts).UTC() }

// Bullish reports whether the bar closed above its open.
func (b Bar) Bullish() bool { return b.Close > b.Open }

// ValidateSeries checks that timestamps are strictly increasing with no duplicates.
func ValidateSeries(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Ts <= bars[i-1].Ts {
			return fmt.Errorf("bar %d: timestamp %d not after previous %d", i, bars[i].Ts, bars[i-1].Ts)
		}
	}
	return nil
}
