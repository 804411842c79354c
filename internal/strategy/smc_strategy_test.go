package strategy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"smc-backtest/internal/market"
)

func flatBars(n int) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		bars[i] = market.Bar{Ts: int64(i) * 60000, Open: 100, High: 101, Low: 99, Close: 100}
	}
	return bars
}

func bar(i int, o, h, l, c float64) market.Bar {
	return market.Bar{Ts: int64(i) * 60000, Open: o, High: h, Low: l, Close: c}
}

// sweepFixture builds a series with a bullish order block (bearish candle at
// index 10 ahead of the impulse through index 12), a swing low at index 22
// and two liquidity sweeps of that low at indices 33 and 36, each reclaimed
// on the following bar.
func sweepFixture() []market.Bar {
	var bars []market.Bar
	for i := 0; i < 10; i++ {
		bars = append(bars, bar(i, 100, 101, 99, 100))
	}
	bars = append(bars,
		bar(10, 100, 100.5, 92.5, 93),
		bar(11, 93, 99, 92.8, 98.5),
		bar(12, 98.5, 104, 98.3, 103.5),
	)
	for i := 13; i <= 21; i++ {
		h := 102.5 - 0.1*float64(i-13)
		l := 100.4 - 0.1*float64(i-13)
		bars = append(bars, bar(i, h-0.2, h, l, l+0.2))
	}
	bars = append(bars, bar(22, 100, 100.2, 96, 99.8))
	for i := 23; i <= 32; i++ {
		h := 100.1 - 0.1*float64(i-23)
		l := 99.5 - 0.1*float64(i-23)
		bars = append(bars, bar(i, h-0.2, h, l, l+0.2))
	}
	bars = append(bars,
		bar(33, 94, 95.2, 93, 95),
		bar(34, 95.5, 97.5, 95.5, 97),
		bar(35, 97, 97.4, 96.5, 96.8),
		bar(36, 94, 95.1, 93, 95),
		bar(37, 95.5, 97.5, 95.5, 97),
		bar(38, 97, 97.2, 96.5, 97),
	)
	return bars
}

func fixtureParams() Params {
	p := DefaultParams()
	p.Lookback = 10
	p.ATRPeriod = 2
	p.MinImpulseBars = 2
	p.MinImpulseATR = 1.0
	p.StrictOrderBlocks = false
	p.LiquidityGrabATR = 0.3
	return p
}

func TestNewSMCRejectsInvalidParams(t *testing.T) {
	p := DefaultParams()
	p.Lookback = 5
	_, err := NewSMC(p)
	require.Error(t, err)

	p = DefaultParams()
	p.RiskReward = 0
	_, err = NewSMC(p)
	require.Error(t, err)
}

func TestGenerateSignalsFlatSeries(t *testing.T) {
	s, err := NewSMC(DefaultParams())
	require.NoError(t, err)
	require.Empty(t, s.GenerateSignals(flatBars(60)))
}

func TestGenerateSignalsShortSeries(t *testing.T) {
	s, err := NewSMC(DefaultParams())
	require.NoError(t, err)
	require.Empty(t, s.GenerateSignals(flatBars(10)))
}

func TestGenerateSignalsSweepIntoOrderBlock(t *testing.T) {
	bars := sweepFixture()
	s, err := NewSMC(fixtureParams())
	require.NoError(t, err)

	signals := s.GenerateSignals(bars)
	require.Len(t, signals, 1)

	sig := signals[0]
	require.Equal(t, Buy, sig.Side)
	require.Equal(t, bars[33].Ts, sig.Ts)
	require.Equal(t, bars[33].Close, sig.Entry)
	require.Less(t, sig.Stop, bars[33].Low)
	require.InDelta(t, sig.Entry+2*(sig.Entry-sig.Stop), sig.Target, 1e-9)
	require.Equal(t, "OB+liquidity_grab", sig.Meta.Reason)
	require.Equal(t, "liquidity_grab", sig.Meta.Confluence)
}

func TestGenerateSignalsCooldown(t *testing.T) {
	bars := sweepFixture()

	p := fixtureParams()
	p.CoolOffBars = 2
	s, err := NewSMC(p)
	require.NoError(t, err)

	// the second sweep at index 36 is outside the shortened cooldown
	signals := s.GenerateSignals(bars)
	require.Len(t, signals, 2)
	require.Equal(t, bars[33].Ts, signals[0].Ts)
	require.Equal(t, bars[36].Ts, signals[1].Ts)
}

func TestGenerateSignalsZonesDisabled(t *testing.T) {
	p := fixtureParams()
	p.UseOrderBlocks = false
	p.UseFVG = false
	s, err := NewSMC(p)
	require.NoError(t, err)
	require.Empty(t, s.GenerateSignals(sweepFixture()))
}

func TestParamsFromMap(t *testing.T) {
	p, err := ParamsFromMap(map[string]any{
		"lookback":    30,
		"risk_reward": 1.5,
		"atr_period":  10,
		"use_fvg":     false,
	})
	require.NoError(t, err)
	require.Equal(t, 30, p.Lookback)
	require.Equal(t, 1.5, p.RiskReward)
	require.False(t, p.UseFVG)
	// untouched keys keep their defaults
	require.Equal(t, DefaultParams().MinImpulseBars, p.MinImpulseBars)

	_, err = ParamsFromMap(map[string]any{"lookback": 30})
	require.Error(t, err, "missing required keys must fail")

	_, err = ParamsFromMap(map[string]any{
		"lookback": 30, "risk_reward": 1.5, "atr_period": 10, "bogus": 1,
	})
	require.Error(t, err, "unknown keys must fail")
}

func TestParamSpaceCoversTunables(t *testing.T) {
	s, err := NewSMC(DefaultParams())
	require.NoError(t, err)
	space := s.ParamSpace()
	for _, key := range []string{"lookback", "risk_reward", "atr_period", "use_order_blocks"} {
		require.Contains(t, space, key)
	}
	require.Equal(t, ParamInt, space["lookback"].Kind)
	require.Equal(t, ParamChoice, space["use_fvg"].Kind)
}
