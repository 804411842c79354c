package smc

import "smc-backtest/internal/market"

type Trend int

const (
	TrendRanging Trend = iota
	TrendBullish
	TrendBearish
)

func (t Trend) String() string {
	switch t {
	case TrendBullish:
		return "bullish"
	case TrendBearish:
		return "bearish"
	default:
		return "ranging"
	}
}

// Direction is the bias of a structural zone or signal.
type Direction int

const (
	Bullish Direction = iota
	Bearish
)

func (d Direction) String() string {
	if d == Bullish {
		return "bullish"
	}
	return "bearish"
}

// MarketStructure is the swing inventory of a bar prefix plus the trend
// derived from the two most recent swing highs and lows.
type MarketStructure struct {
	Swings        []SwingPoint
	Trend         Trend
	LastSwingHigh *SwingPoint
	LastSwingLow  *SwingPoint
}

// DetectStructure computes market structure over the given prefix. Higher
// high + higher low is bullish, lower high + lower low is bearish, anything
// else (including too few swings) is ranging.
func DetectStructure(bars []market.Bar, lookback int) MarketStructure {
	swings := DetectSwings(bars, lookback)
	ms := MarketStructure{Swings: swings, Trend: TrendRanging}

	var highs, lows []SwingPoint
	for _, s := range swings {
		if s.Kind == SwingHigh {
			highs = append(highs, s)
		} else {
			lows = append(lows, s)
		}
	}
	if len(highs) > 0 {
		ms.LastSwingHigh = &highs[len(highs)-1]
	}
	if len(lows) > 0 {
		ms.LastSwingLow = &lows[len(lows)-1]
	}
	if len(highs) >= 2 && len(lows) >= 2 {
		hh := highs[len(highs)-1].Price > highs[len(highs)-2].Price
		hl := lows[len(lows)-1].Price > lows[len(lows)-2].Price
		lh := highs[len(highs)-1].Price < highs[len(highs)-2].Price
		ll := lows[len(lows)-1].Price < lows[len(lows)-2].Price
		switch {
		case hh && hl:
			ms.Trend = TrendBullish
		case lh && ll:
			ms.Trend = TrendBearish
		}
	}
	return ms
}
