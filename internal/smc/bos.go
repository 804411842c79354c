package smc

import (
	"math"

	"smc-backtest/internal/market"
)

// fallback margin base when the ATR has not warmed up yet
const minMarginATR = 1e-4

// IsBOS reports a break of structure: the latest close beyond the swing price
// by more than marginATR * ATR of the prefix.
func IsBOS(bars []market.Bar, swing SwingPoint, marginATR float64, atrPeriod int) bool {
	if len(bars) < atrPeriod {
		return false
	}
	atr := ATR(bars, atrPeriod)
	a := atr[len(atr)-1]
	if math.IsNaN(a) {
		a = minMarginATR
	}
	margin := marginATR * a
	c := bars[len(bars)-1].Close
	if swing.Kind == SwingHigh {
		return c > swing.Price+margin
	}
	return c < swing.Price-margin
}

type ChoCH int

const (
	ChoCHNone ChoCH = iota
	ChoCHBullish
	ChoCHBearish
)

// DetectChoCH detects a change of character: a break of structure against the
// prevailing trend. A bearish trend broken upward through its last swing high
// is a bullish ChoCH; a bullish trend broken downward through its last swing
// low is a bearish ChoCH. A ranging trend never fires.
func DetectChoCH(bars []market.Bar, ms MarketStructure, marginATR float64, atrPeriod int) ChoCH {
	switch ms.Trend {
	case TrendBullish:
		if ms.LastSwingLow != nil && IsBOS(bars, *ms.LastSwingLow, marginATR, atrPeriod) {
			return ChoCHBearish
		}
	case TrendBearish:
		if ms.LastSwingHigh != nil && IsBOS(bars, *ms.LastSwingHigh, marginATR, atrPeriod) {
			return ChoCHBullish
		}
	}
	return ChoCHNone
}
