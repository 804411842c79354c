package backtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"smc-backtest/internal/market"
	"smc-backtest/internal/strategy"
)

// fixedSignals is a strategy stub that emits a predetermined signal list.
type fixedSignals struct {
	signals []strategy.Signal
}

func (s *fixedSignals) Name() string                                     { return "fixed" }
func (s *fixedSignals) GenerateSignals(_ []market.Bar) []strategy.Signal { return s.signals }
func (s *fixedSignals) Validate() error                                  { return nil }
func (s *fixedSignals) ParamSpace() strategy.ParamSpace                  { return nil }

func bar(i int, o, h, l, c float64) market.Bar {
	return market.Bar{Ts: int64(i) * 60000, Open: o, High: h, Low: l, Close: c}
}

// frictionless keeps the price model trivial so expected PnL is exact.
func frictionless() Config {
	return Config{
		InitialBalance:       10000,
		PositionSize:         0.5,
		MaxPositions:         1,
		InstrumentMultiplier: 1,
	}
}

func buySignal(b market.Bar, stop, target float64) strategy.Signal {
	return strategy.Signal{Ts: b.Ts, Side: strategy.Buy, Entry: b.Close, Stop: stop, Target: target}
}

func TestRunEmptyInput(t *testing.T) {
	res := New(&fixedSignals{}, frictionless(), nil).Run(nil)
	require.Empty(t, res.Trades)
	require.Empty(t, res.EquityCurve)
	require.Equal(t, 10000.0, res.Metrics.FinalEquity)
}

func TestRunNoSignals(t *testing.T) {
	bars := []market.Bar{bar(0, 100, 101, 99, 100), bar(1, 100, 101, 99, 100)}
	res := New(&fixedSignals{}, frictionless(), nil).Run(bars)
	require.Empty(t, res.Trades)
	require.Len(t, res.EquityCurve, 2)
	for _, p := range res.EquityCurve {
		require.Equal(t, 10000.0, p.Equity)
	}
}

func TestRunTakeProfit(t *testing.T) {
	bars := []market.Bar{
		bar(0, 100, 101, 99, 100),
		bar(1, 100, 100.5, 99.5, 100),
		bar(2, 100, 100.5, 98, 99),
		bar(3, 99, 111, 98.5, 110),
		bar(4, 110, 110.5, 109, 110),
	}
	strat := &fixedSignals{signals: []strategy.Signal{buySignal(bars[1], 95, 110)}}
	res := New(strat, frictionless(), nil).Run(bars)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	require.Equal(t, ExitTakeProfit, tr.ExitReason)
	require.Equal(t, bars[1].Ts, tr.EntryTs)
	require.Equal(t, bars[3].Ts, tr.ExitTs)
	require.Equal(t, 100.0, tr.EntryPrice)
	require.Equal(t, 110.0, tr.ExitPrice)
	// risk fraction sizing: 0.5 * 10000 balance over a 5 point stop
	require.Equal(t, 1000.0, tr.Size)
	require.Equal(t, 10000.0, tr.PnL)

	require.Len(t, res.EquityCurve, len(bars))
	require.Equal(t, 10000.0, res.EquityCurve[0].Equity)
	require.Equal(t, 20000.0, res.EquityCurve[len(bars)-1].Equity)
	require.Equal(t, 20000.0, res.Metrics.FinalEquity)
	require.Equal(t, 100.0, res.Metrics.WinRate)
	// no losing trades: profit factor stays zero rather than blowing up
	require.Equal(t, 0.0, res.Metrics.ProfitFactor)
}

func TestRunStopBeforeTargetOnSameBar(t *testing.T) {
	bars := []market.Bar{
		bar(0, 100, 101, 99, 100),
		bar(1, 100, 120, 90, 100),
	}
	strat := &fixedSignals{signals: []strategy.Signal{buySignal(bars[0], 95, 110)}}
	res := New(strat, frictionless(), nil).Run(bars)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	require.Equal(t, ExitStopLoss, tr.ExitReason)
	require.Equal(t, 95.0, tr.ExitPrice)
	require.Equal(t, -5000.0, tr.PnL)
}

func TestRunForceCloseAtEndOfData(t *testing.T) {
	bars := []market.Bar{
		bar(0, 100, 101, 99, 100),
		bar(1, 100, 101, 99, 101),
		bar(2, 101, 104, 100, 103),
	}
	strat := &fixedSignals{signals: []strategy.Signal{buySignal(bars[0], 95, 200)}}
	res := New(strat, frictionless(), nil).Run(bars)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	require.Equal(t, ExitEndOfData, tr.ExitReason)
	require.Equal(t, bars[2].Ts, tr.ExitTs)
	require.Equal(t, 103.0, tr.ExitPrice)
	require.Equal(t, 3000.0, tr.PnL)
}

func TestRunStopsOnDepletion(t *testing.T) {
	cfg := frictionless()
	cfg.PositionSize = 2000 // fixed units
	bars := []market.Bar{
		bar(0, 100, 101, 99, 100),
		bar(1, 100, 101, 90, 91),
		bar(2, 91, 92, 90, 91),
		bar(3, 91, 92, 90, 91),
	}
	strat := &fixedSignals{signals: []strategy.Signal{buySignal(bars[0], 94, 130)}}
	res := New(strat, cfg, nil).Run(bars)

	require.Len(t, res.Trades, 1)
	require.Equal(t, ExitStopLoss, res.Trades[0].ExitReason)
	// 2000 units losing 6 points wipes the 10k balance
	require.Equal(t, -12000.0, res.Trades[0].PnL)
	// processing stops at the depleted bar, leaving later bars untouched
	require.Len(t, res.EquityCurve, 2)
	require.Equal(t, -2000.0, res.Metrics.FinalEquity)
}

func TestRunMaxPositionsCap(t *testing.T) {
	bars := []market.Bar{
		bar(0, 100, 101, 99, 100),
		bar(1, 100, 101, 99, 100),
		bar(2, 100, 101, 99, 100),
	}
	sig := buySignal(bars[0], 95, 200)
	strat := &fixedSignals{signals: []strategy.Signal{sig, sig}}
	res := New(strat, frictionless(), nil).Run(bars)
	// the cap of one rejects the second simultaneous signal
	require.Len(t, res.Trades, 1)
}

func TestRunZeroStopDistanceRejected(t *testing.T) {
	bars := []market.Bar{
		bar(0, 100, 101, 99, 100),
		bar(1, 100, 101, 99, 100),
	}
	strat := &fixedSignals{signals: []strategy.Signal{buySignal(bars[0], 100, 110)}}
	res := New(strat, frictionless(), nil).Run(bars)
	require.Empty(t, res.Trades)
}

func TestRunShortTrade(t *testing.T) {
	bars := []market.Bar{
		bar(0, 100, 101, 99, 100),
		bar(1, 100, 100.5, 89, 90),
	}
	strat := &fixedSignals{signals: []strategy.Signal{{
		Ts: bars[0].Ts, Side: strategy.Sell, Entry: 100, Stop: 105, Target: 90,
	}}}
	res := New(strat, frictionless(), nil).Run(bars)

	require.Len(t, res.Trades, 1)
	tr := res.Trades[0]
	require.Equal(t, strategy.Sell, tr.Side)
	require.Equal(t, ExitTakeProfit, tr.ExitReason)
	require.Equal(t, 90.0, tr.ExitPrice)
	// 0.5 * 10000 over a 5 point stop gives 1000 units, 10 points gained
	require.Equal(t, 10000.0, tr.PnL)
}

func TestRunRandomSlippageIsDeterministicPerSeed(t *testing.T) {
	cfg := frictionless()
	cfg.Slippage = 0.5
	cfg.RandomSlippage = true
	cfg.Seed = 42

	bars := []market.Bar{
		bar(0, 100, 101, 99, 100),
		bar(1, 100, 120, 99, 115),
	}
	strat := &fixedSignals{signals: []strategy.Signal{buySignal(bars[0], 95, 110)}}

	res1 := New(strat, cfg, nil).Run(bars)
	res2 := New(strat, cfg, nil).Run(bars)
	require.Equal(t, res1.Trades, res2.Trades)
	require.Equal(t, res1.Metrics, res2.Metrics)
}
