package smc

import (
	"math"

	"smc-backtest/internal/market"
)

// OrderBlock is the last opposite-colored candle before an impulsive move,
// expanded by a volatility margin. EndIdx is the last bar of the impulse.
type OrderBlock struct {
	Direction   Direction
	StartIdx    int
	EndIdx      int
	StartTs     int64
	EndTs       int64
	PriceTop    float64
	PriceBottom float64
	Strength    float64
}

type OrderBlockParams struct {
	MinImpulseBars int     // consecutive same-direction candles required
	MinImpulseATR  float64 // impulse range threshold in ATR units
	ExpansionATR   float64 // zone edge expansion in ATR units
	ATRPeriod      int
	MaxAgeBars     int  // max distance from block candle to impulse start
	Strict         bool // strict: expand from candle body; else from wicks
}

// FindOrderBlocks scans for runs of MinImpulseBars same-direction candles
// whose range covers at least MinImpulseATR * ATR, and emits the most recent
// opposite-colored candle preceding each qualifying impulse.
func FindOrderBlocks(bars []market.Bar, p OrderBlockParams) []OrderBlock {
	if len(bars) < p.ATRPeriod+p.MinImpulseBars || p.MinImpulseBars < 1 {
		return nil
	}
	atr := ATR(bars, p.ATRPeriod)

	var blocks []OrderBlock
	for i := p.ATRPeriod; i < len(bars)-p.MinImpulseBars; i++ {
		a := atr[i]
		if math.IsNaN(a) {
			continue
		}
		end := i + p.MinImpulseBars - 1

		if runIsBullish(bars, i, p.MinImpulseBars) &&
			bars[end].High-bars[i].Low >= p.MinImpulseATR*a {
			if ob := lastOppositeCandle(bars, i, Bullish); ob >= 0 && i-ob <= p.MaxAgeBars {
				blocks = append(blocks, makeBlock(bars, Bullish, ob, end, p, a))
			}
		}
		if runIsBearish(bars, i, p.MinImpulseBars) &&
			bars[i].High-bars[end].Low >= p.MinImpulseATR*a {
			if ob := lastOppositeCandle(bars, i, Bearish); ob >= 0 && i-ob <= p.MaxAgeBars {
				blocks = append(blocks, makeBlock(bars, Bearish, ob, end, p, a))
			}
		}
	}
	return blocks
}

func runIsBullish(bars []market.Bar, start, n int) bool {
	for j := start; j < start+n; j++ {
		if !bars[j].Bullish() {
			return false
		}
	}
	return true
}

func runIsBearish(bars []market.Bar, start, n int) bool {
	for j := start; j < start+n; j++ {
		if bars[j].Bullish() {
			return false
		}
	}
	return true
}

// lastOppositeCandle returns the most recent index before start whose candle
// color opposes the impulse direction, or -1.
func lastOppositeCandle(bars []market.Bar, start int, impulse Direction) int {
	for j := start - 1; j >= 0; j-- {
		if impulse == Bullish && !bars[j].Bullish() {
			return j
		}
		if impulse == Bearish && bars[j].Bullish() {
			return j
		}
	}
	return -1
}

func makeBlock(bars []market.Bar, dir Direction, obIdx, endIdx int, p OrderBlockParams, atrNow float64) OrderBlock {
	b := bars[obIdx]
	expansion := p.ExpansionATR * atrNow
	var top, bottom float64
	if p.Strict {
		top = math.Max(b.Open, b.Close) + expansion
		bottom = math.Min(b.Open, b.Close) - expansion
	} else {
		top = b.High + expansion
		bottom = b.Low - expansion
	}
	return OrderBlock{
		Direction:   dir,
		StartIdx:    obIdx,
		EndIdx:      endIdx,
		StartTs:     b.Ts,
		EndTs:       bars[endIdx].Ts,
		PriceTop:    top,
		PriceBottom: bottom,
		Strength:    math.Abs(bars[endIdx].Close-b.Open) / atrNow,
	}
}
