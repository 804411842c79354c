package smc

import (
	"math"

	"smc-backtest/internal/market"
)

// FairValueGap is a 3-bar imbalance: bar i and bar i+2 do not overlap.
// Size is the raw gap height before expansion.
type FairValueGap struct {
	Direction Direction
	StartIdx  int
	EndIdx    int
	StartTs   int64
	EndTs     int64
	GapTop    float64
	GapBottom float64
	Size      float64
}

type FVGParams struct {
	MinGapATR float64 // minimum gap height in ATR units
	ExpandATR float64 // inward boundary adjustment in ATR units
	ATRPeriod int
}

// FindFVGs detects fair value gaps. Bullish: high[i] < low[i+2] with the gap
// at least MinGapATR * ATR; bearish is the mirror. Boundaries are pulled
// inward by ExpandATR * ATR; gaps that invert after adjustment are dropped.
func FindFVGs(bars []market.Bar, p FVGParams) []FairValueGap {
	if len(bars) < p.ATRPeriod+3 {
		return nil
	}
	atr := ATR(bars, p.ATRPeriod)

	var gaps []FairValueGap
	for i := p.ATRPeriod; i < len(bars)-2; i++ {
		a := atr[i]
		if math.IsNaN(a) {
			continue
		}
		expand := p.ExpandATR * a
		minGap := p.MinGapATR * a

		hi, lo := bars[i].High, bars[i].Low
		hi2, lo2 := bars[i+2].High, bars[i+2].Low

		switch {
		case hi < lo2 && lo2-hi >= minGap:
			top, bottom := lo2-expand, hi+expand
			if top >= bottom {
				gaps = append(gaps, FairValueGap{
					Direction: Bullish,
					StartIdx:  i, EndIdx: i + 2,
					StartTs: bars[i].Ts, EndTs: bars[i+2].Ts,
					GapTop: top, GapBottom: bottom,
					Size: lo2 - hi,
				})
			}
		case lo > hi2 && lo-hi2 >= minGap:
			top, bottom := lo-expand, hi2+expand
			if top >= bottom {
				gaps = append(gaps, FairValueGap{
					Direction: Bearish,
					StartIdx:  i, EndIdx: i + 2,
					StartTs: bars[i].Ts, EndTs: bars[i+2].Ts,
					GapTop: top, GapBottom: bottom,
					Size: lo - hi2,
				})
			}
		}
	}
	return gaps
}
