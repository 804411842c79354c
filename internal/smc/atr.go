package smc

import (
	"math"

	"smc-backtest/internal/market"
)

// ATR computes the exponentially smoothed average true range with span=period
// (alpha = 2/(period+1), seeded at the first true range). Indices below
// period are NaN: the smoothing has not warmed up and detectors must skip
// those bars.
func ATR(bars []market.Bar, period int) []float64 {
	out := make([]float64, len(bars))
	if period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	alpha := 2.0 / float64(period+1)
	var ema float64
	for i := range bars {
		tr := trueRange(bars, i)
		if i == 0 {
			ema = tr
		} else {
			ema = alpha*tr + (1-alpha)*ema
		}
		if i < period {
			out[i] = math.NaN()
		} else {
			out[i] = ema
		}
	}
	return out
}

// trueRange is max(high-low, |high-prevClose|, |low-prevClose|); the first bar
// has no previous close so only high-low applies.
func trueRange(bars []market.Bar, i int) float64 {
	b := bars[i]
	tr := b.High - b.Low
	if i == 0 {
		return tr
	}
	pc := bars[i-1].Close
	if d := math.Abs(b.High - pc); d > tr {
		tr = d
	}
	if d := math.Abs(b.Low - pc); d > tr {
		tr = d
	}
	return tr
}
