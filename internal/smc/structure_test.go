package smc

import (
	"testing"

	"smc-backtest/internal/market"
)

func TestDetectStructureBullish(t *testing.T) {
	// higher high (10 -> 12) and higher low (3 -> 6.5)
	bars := hl(
		[2]float64{5, 4},
		[2]float64{10, 9},
		[2]float64{6, 5},
		[2]float64{6.5, 3},
		[2]float64{7, 6},
		[2]float64{12, 11},
		[2]float64{8, 7.5},
		[2]float64{8.5, 6.5},
		[2]float64{9, 7},
	)
	ms := DetectStructure(bars, 1)
	if ms.Trend != TrendBullish {
		t.Fatalf("trend = %v, want bullish", ms.Trend)
	}
	if ms.LastSwingHigh == nil || ms.LastSwingHigh.Price != 12 {
		t.Fatalf("unexpected last swing high: %+v", ms.LastSwingHigh)
	}
	if ms.LastSwingLow == nil || ms.LastSwingLow.Price != 6.5 {
		t.Fatalf("unexpected last swing low: %+v", ms.LastSwingLow)
	}
}

func TestDetectStructureBearish(t *testing.T) {
	// lower high (13 -> 10.5) and lower low (8 -> 6)
	ms := DetectStructure(bearishBars(), 1)
	if ms.Trend != TrendBearish {
		t.Fatalf("trend = %v, want bearish", ms.Trend)
	}
}

func TestDetectStructureTooFewSwingsIsRanging(t *testing.T) {
	bars := constBars(11)
	bars[5].High = 103
	ms := DetectStructure(bars, 2)
	if ms.Trend != TrendRanging {
		t.Fatalf("trend = %v, want ranging", ms.Trend)
	}
}

// bearishBars is a zigzag with a lower high and a lower low, closing near the
// bottom of the range.
func bearishBars() []market.Bar {
	return []market.Bar{
		{Ts: 0, Open: 11.5, High: 12, Low: 11, Close: 11.5},
		{Ts: 60000, Open: 12.5, High: 13, Low: 12, Close: 12.5},
		{Ts: 120000, Open: 10.5, High: 11, Low: 10, Close: 10.5},
		{Ts: 180000, Open: 9, High: 11.2, Low: 8, Close: 9},
		{Ts: 240000, Open: 9.5, High: 10, Low: 9, Close: 9.5},
		{Ts: 300000, Open: 10, High: 10.5, Low: 9.5, Close: 10},
		{Ts: 360000, Open: 8.7, High: 9, Low: 8.5, Close: 8.7},
		{Ts: 420000, Open: 7, High: 8.4, Low: 6, Close: 7},
		{Ts: 480000, Open: 7.5, High: 8, Low: 7, Close: 7.5},
	}
}

func TestDetectChoCHBullishBreak(t *testing.T) {
	bars := append(bearishBars(), market.Bar{
		Ts: 540000, Open: 8, High: 15.5, Low: 8, Close: 15,
	})
	ms := DetectStructure(bars, 1)
	if ms.Trend != TrendBearish {
		t.Fatalf("trend = %v, want bearish", ms.Trend)
	}
	if got := DetectChoCH(bars, ms, 0.1, 2); got != ChoCHBullish {
		t.Fatalf("choch = %v, want bullish", got)
	}
}

func TestDetectChoCHNoneWithoutBreak(t *testing.T) {
	bars := bearishBars()
	ms := DetectStructure(bars, 1)
	if got := DetectChoCH(bars, ms, 0.1, 2); got != ChoCHNone {
		t.Fatalf("choch = %v, want none", got)
	}
}
