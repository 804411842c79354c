package strategy

import (
	"math"

	"smc-backtest/internal/market"
	"smc-backtest/internal/smc"
)

// stop padding below/above the zone edge, in ATR units
const stopPadATR = 0.3

// extra bars past the slowest lookback before signals may fire
const warmupPad = 10

// SMC is the Smart Money Concepts strategy: entries on retracements into
// order blocks or fair value gaps, confirmed by a change of character or a
// liquidity grab, with ATR-padded stops and a fixed risk-reward target.
type SMC struct {
	params Params
}

// NewSMC validates params and returns the strategy. Invalid parameters fail
// here, before any data is processed.
func NewSMC(p Params) (*SMC, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &SMC{params: p}, nil
}

func (s *SMC) Name() string { return "smc" }

func (s *SMC) Validate() error { return s.params.Validate() }

// Params returns a copy of the strategy configuration.
func (s *SMC) Params() Params { return s.params }

// GenerateSignals evaluates every bar past warm-up. Zones are detected once
// up front (each zone only depends on bars up to its own end index); market
// structure and ChoCH are recomputed per bar over the causal prefix. A
// cooldown of CoolOffBars suppresses evaluation after an emitted signal.
func (s *SMC) GenerateSignals(bars []market.Bar) []Signal {
	p := s.params
	minBars := p.Lookback
	if p.ATRPeriod > minBars {
		minBars = p.ATRPeriod
	}
	minBars += warmupPad
	if len(bars) < minBars {
		return nil
	}

	atr := smc.ATR(bars, p.ATRPeriod)

	var blocks []smc.OrderBlock
	if p.UseOrderBlocks {
		blocks = smc.FindOrderBlocks(bars, smc.OrderBlockParams{
			MinImpulseBars: p.MinImpulseBars,
			MinImpulseATR:  p.MinImpulseATR,
			ExpansionATR:   p.OBExpansionATR,
			ATRPeriod:      p.ATRPeriod,
			MaxAgeBars:     p.MaxAgeBars,
			Strict:         p.StrictOrderBlocks,
		})
	}
	var gaps []smc.FairValueGap
	if p.UseFVG {
		gaps = smc.FindFVGs(bars, smc.FVGParams{
			MinGapATR: p.MinGapATR,
			ExpandATR: p.FVGExpandATR,
			ATRPeriod: p.ATRPeriod,
		})
	}
	grabsByBar := map[int][]smc.LiquidityGrab{}
	if p.UseLiquidityGrabs {
		swings := smc.DetectSwings(bars, p.Lookback)
		for _, g := range smc.DetectLiquidityGrabs(bars, swings, p.LiquidityGrabATR, p.GrabReclaimBars, p.ATRPeriod) {
			grabsByBar[g.GrabIdx] = append(grabsByBar[g.GrabIdx], g)
		}
	}

	var signals []Signal
	lastSignalBar := -1 << 30
	for i := minBars; i < len(bars); i++ {
		if i-lastSignalBar < p.CoolOffBars {
			continue
		}
		atrNow := atr[i]
		if math.IsNaN(atrNow) {
			continue
		}

		prefix := bars[:i+1]
		ms := smc.DetectStructure(prefix, p.Lookback)
		choch := smc.DetectChoCH(prefix, ms, p.BOSMarginATR, p.ATRPeriod)

		emitted := false
		if ms.Trend == smc.TrendBullish || ms.Trend == smc.TrendRanging {
			if src, ok := confluence(choch, smc.ChoCHBullish, grabsByBar[i], smc.Bullish); ok {
				if sig, ok := s.zoneSignal(bars[i], atrNow, ms.Trend, blocks, gaps, i, smc.Bullish, src); ok {
					signals = append(signals, sig)
					emitted = true
				}
			}
		}
		if ms.Trend == smc.TrendBearish || ms.Trend == smc.TrendRanging {
			if src, ok := confluence(choch, smc.ChoCHBearish, grabsByBar[i], smc.Bearish); ok {
				if sig, ok := s.zoneSignal(bars[i], atrNow, ms.Trend, blocks, gaps, i, smc.Bearish, src); ok {
					signals = append(signals, sig)
					emitted = true
				}
			}
		}
		if emitted {
			lastSignalBar = i
		}
	}
	return signals
}

// confluence reports whether a direction is confirmed at this bar and by what:
// a matching ChoCH, or a liquidity grab whose grab bar is this bar.
func confluence(choch smc.ChoCH, want smc.ChoCH, grabs []smc.LiquidityGrab, dir smc.Direction) (string, bool) {
	if choch == want {
		return "choch", true
	}
	for _, g := range grabs {
		if g.Direction == dir {
			return "liquidity_grab", true
		}
	}
	return "", false
}

// zoneSignal scans order blocks then FVGs (in that priority) of the given
// direction whose end index precedes i and accepts the first zone containing
// the bar's retracement extreme. Signals with non-positive risk are dropped.
func (s *SMC) zoneSignal(bar market.Bar, atrNow float64, trend smc.Trend, blocks []smc.OrderBlock, gaps []smc.FairValueGap, i int, dir smc.Direction, confluenceSrc string) (Signal, bool) {
	probe := bar.Low
	if dir == smc.Bearish {
		probe = bar.High
	}

	for _, ob := range blocks {
		if ob.Direction != dir || ob.EndIdx >= i {
			continue
		}
		if probe < ob.PriceBottom || probe > ob.PriceTop {
			continue
		}
		var stop float64
		if dir == smc.Bullish {
			stop = math.Min(ob.PriceBottom, bar.Low) - stopPadATR*atrNow
		} else {
			stop = math.Max(ob.PriceTop, bar.High) + stopPadATR*atrNow
		}
		if sig, ok := s.buildSignal(bar, dir, stop, SignalMeta{
			Reason:       "OB+" + confluenceSrc,
			Confluence:   confluenceSrc,
			Trend:        trend,
			ZoneStrength: ob.Strength,
		}); ok {
			return sig, true
		}
	}

	for _, g := range gaps {
		if g.Direction != dir || g.EndIdx >= i {
			continue
		}
		if probe < g.GapBottom || probe > g.GapTop {
			continue
		}
		var stop float64
		if dir == smc.Bullish {
			stop = g.GapBottom - stopPadATR*atrNow
		} else {
			stop = g.GapTop + stopPadATR*atrNow
		}
		if sig, ok := s.buildSignal(bar, dir, stop, SignalMeta{
			Reason:     "FVG+" + confluenceSrc,
			Confluence: confluenceSrc,
			Trend:      trend,
		}); ok {
			return sig, true
		}
	}
	return Signal{}, false
}

func (s *SMC) buildSignal(bar market.Bar, dir smc.Direction, stop float64, meta SignalMeta) (Signal, bool) {
	entry := bar.Close
	var risk float64
	var side Side
	if dir == smc.Bullish {
		risk = entry - stop
		side = Buy
	} else {
		risk = stop - entry
		side = Sell
	}
	if risk <= 0 || math.IsNaN(risk) || math.IsInf(risk, 0) {
		return Signal{}, false
	}
	target := entry + risk*s.params.RiskReward
	if side == Sell {
		target = entry - risk*s.params.RiskReward
	}
	return Signal{
		Ts:     bar.Ts,
		Side:   side,
		Entry:  entry,
		Stop:   stop,
		Target: target,
		Meta:   meta,
	}, true
}

// ParamSpace describes the tunable search space for external optimizers.
func (s *SMC) ParamSpace() ParamSpace {
	return ParamSpace{
		"lookback":            {Kind: ParamInt, Low: 20, High: 100},
		"min_impulse_bars":    {Kind: ParamInt, Low: 2, High: 5},
		"min_impulse_atr":     {Kind: ParamFloat, Low: 1.0, High: 3.0},
		"ob_expansion_atr":    {Kind: ParamFloat, Low: 0.2, High: 1.0},
		"min_gap_atr":         {Kind: ParamFloat, Low: 0.3, High: 1.0},
		"bos_margin_atr":      {Kind: ParamFloat, Low: 0.3, High: 1.0},
		"liquidity_grab_atr":  {Kind: ParamFloat, Low: 0.5, High: 2.0},
		"risk_reward":         {Kind: ParamFloat, Low: 1.5, High: 3.0},
		"atr_period":          {Kind: ParamInt, Low: 10, High: 20},
		"use_order_blocks":    {Kind: ParamChoice, Choices: []any{true, false}},
		"use_fvg":             {Kind: ParamChoice, Choices: []any{true, false}},
		"use_liquidity_grabs": {Kind: ParamChoice, Choices: []any{true, false}},
	}
}
