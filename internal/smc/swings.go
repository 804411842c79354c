package smc

import "smc-backtest/internal/market"

type SwingKind int

const (
	SwingHigh SwingKind = iota
	SwingLow
)

func (k SwingKind) String() string {
	if k == SwingHigh {
		return "high"
	}
	return "low"
}

// SwingPoint is a local price extremum over a symmetric bar window.
type SwingPoint struct {
	Index int
	Ts    int64
	Price float64
	Kind  SwingKind
}

// DetectSwings finds swing highs and lows: a bar whose high (low) equals the
// extremum of the centered window of 2*lookback+1 bars and strictly exceeds
// both immediate neighbors. Bars without a full window never qualify.
// The result is ordered by index, highs before lows on the same bar.
func DetectSwings(bars []market.Bar, lookback int) []SwingPoint {
	n := len(bars)
	if lookback < 1 || n < 2*lookback+1 {
		return nil
	}
	var swings []SwingPoint
	for i := lookback; i < n-lookback; i++ {
		h := bars[i].High
		if h > bars[i-1].High && h > bars[i+1].High && h >= windowHigh(bars, i, lookback) {
			swings = append(swings, SwingPoint{Index: i, Ts: bars[i].Ts, Price: h, Kind: SwingHigh})
		}
		l := bars[i].Low
		if l < bars[i-1].Low && l < bars[i+1].Low && l <= windowLow(bars, i, lookback) {
			swings = append(swings, SwingPoint{Index: i, Ts: bars[i].Ts, Price: l, Kind: SwingLow})
		}
	}
	return swings
}

func windowHigh(bars []market.Bar, i, lookback int) float64 {
	m := bars[i-lookback].High
	for j := i - lookback + 1; j <= i+lookback; j++ {
		if bars[j].High > m {
			m = bars[j].High
		}
	}
	return m
}

func windowLow(bars []market.Bar, i, lookback int) float64 {
	m := bars[i-lookback].Low
	for j := i - lookback + 1; j <= i+lookback; j++ {
		if bars[j].Low < m {
			m = bars[j].Low
		}
	}
	return m
}
