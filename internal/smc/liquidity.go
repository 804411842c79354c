package smc

import (
	"math"

	"smc-backtest/internal/market"
)

// how far past a swing the breach scan extends
const grabScanBars = 50

// LiquidityGrab is a transient breach of a swing level that closes back
// through it within ReclaimBars. The bias opposes the breach: a swept high
// that reclaims down is bearish, a swept low that reclaims up is bullish.
type LiquidityGrab struct {
	Direction   Direction
	SwingIdx    int
	GrabIdx     int
	Ts          int64
	SwingPrice  float64
	GrabPrice   float64
	ReclaimBars int
}

// DetectLiquidityGrabs scans up to grabScanBars past each swing for a breach
// beyond grabATR * ATR, then looks for a close reclaiming the swing price
// within reclaimBars. Only the first reclaim bar per breach is recorded.
func DetectLiquidityGrabs(bars []market.Bar, swings []SwingPoint, grabATR float64, reclaimBars, atrPeriod int) []LiquidityGrab {
	if len(bars) < atrPeriod+reclaimBars {
		return nil
	}
	atr := ATR(bars, atrPeriod)

	var grabs []LiquidityGrab
	for _, sw := range swings {
		start := sw.Index + 1
		end := start + grabScanBars
		if end > len(bars) {
			end = len(bars)
		}
		for i := start; i < end; i++ {
			a := atr[i]
			if math.IsNaN(a) {
				continue
			}
			thresh := grabATR * a

			switch sw.Kind {
			case SwingHigh:
				if bars[i].High > sw.Price+thresh {
					if j, ok := firstReclaim(bars, i, reclaimBars, sw.Price, false); ok {
						grabs = append(grabs, LiquidityGrab{
							Direction:   Bearish,
							SwingIdx:    sw.Index,
							GrabIdx:     i,
							Ts:          bars[i].Ts,
							SwingPrice:  sw.Price,
							GrabPrice:   bars[i].High,
							ReclaimBars: j - i,
						})
					}
				}
			case SwingLow:
				if bars[i].Low < sw.Price-thresh {
					if j, ok := firstReclaim(bars, i, reclaimBars, sw.Price, true); ok {
						grabs = append(grabs, LiquidityGrab{
							Direction:   Bullish,
							SwingIdx:    sw.Index,
							GrabIdx:     i,
							Ts:          bars[i].Ts,
							SwingPrice:  sw.Price,
							GrabPrice:   bars[i].Low,
							ReclaimBars: j - i,
						})
					}
				}
			}
		}
	}
	return grabs
}

// firstReclaim finds the first close back through price within window bars
// after the breach at index i. above selects the reclaim direction.
func firstReclaim(bars []market.Bar, i, window int, price float64, above bool) (int, bool) {
	end := i + window + 1
	if end > len(bars) {
		end = len(bars)
	}
	for j := i + 1; j < end; j++ {
		if above && bars[j].Close > price {
			return j, true
		}
		if !above && bars[j].Close < price {
			return j, true
		}
	}
	return 0, false
}
