package smc

import (
	"testing"

	"smc-backtest/internal/market"
)

// sweepBars has a swing low at index 1 (8.0), a breach below it at index 3
// and a close back above it at index 4.
func sweepBars() []market.Bar {
	return []market.Bar{
		{Ts: 0, Open: 10, High: 10.5, Low: 9.5, Close: 10},
		{Ts: 60000, Open: 9.5, High: 10.2, Low: 8.0, Close: 9.0},
		{Ts: 120000, Open: 9.4, High: 10.0, Low: 9.0, Close: 9.8},
		{Ts: 180000, Open: 8.5, High: 9.5, Low: 6.5, Close: 7.0},
		{Ts: 240000, Open: 7.5, High: 9.0, Low: 7.0, Close: 8.5},
		{Ts: 300000, Open: 8.6, High: 9.0, Low: 8.0, Close: 8.8},
	}
}

func TestDetectLiquidityGrabsBullishSweep(t *testing.T) {
	bars := sweepBars()
	swings := DetectSwings(bars, 1)
	grabs := DetectLiquidityGrabs(bars, swings, 0.5, 2, 2)
	if len(grabs) != 1 {
		t.Fatalf("got %d grabs, want 1", len(grabs))
	}
	g := grabs[0]
	if g.Direction != Bullish {
		t.Fatalf("direction = %v, want bullish", g.Direction)
	}
	if g.SwingIdx != 1 || g.GrabIdx != 3 {
		t.Fatalf("indices = (%d, %d), want (1, 3)", g.SwingIdx, g.GrabIdx)
	}
	if g.SwingPrice != 8.0 || g.GrabPrice != 6.5 {
		t.Fatalf("prices = (%v, %v), want (8.0, 6.5)", g.SwingPrice, g.GrabPrice)
	}
	if g.ReclaimBars != 1 {
		t.Fatalf("reclaim bars = %d, want 1", g.ReclaimBars)
	}
}

func TestDetectLiquidityGrabsNoReclaim(t *testing.T) {
	bars := sweepBars()
	// closes stay below the swept level
	bars[4].Close = 7.5
	bars[5].Close = 7.8
	swings := DetectSwings(bars, 1)
	if grabs := DetectLiquidityGrabs(bars, swings, 0.5, 2, 2); len(grabs) != 0 {
		t.Fatalf("got %d grabs, want 0 without a reclaim", len(grabs))
	}
}

func TestDetectLiquidityGrabsShallowBreachIgnored(t *testing.T) {
	bars := sweepBars()
	// breach barely below the swing level, inside the ATR threshold
	bars[3].Low = 7.9
	bars[4].Low = 7.5
	swings := DetectSwings(bars, 1)
	if grabs := DetectLiquidityGrabs(bars, swings, 0.5, 2, 2); len(grabs) != 0 {
		t.Fatalf("got %d grabs, want 0 for a shallow breach", len(grabs))
	}
}
