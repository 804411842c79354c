package backtest

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"smc-backtest/internal/strategy"
)

func TestFillDeterministic(t *testing.T) {
	sim := NewFillSimulator(0.001, 0.05, 0.2, nil)
	require.InDelta(t, 100.15, sim.Fill(strategy.Buy, 100), 1e-9)
	require.InDelta(t, 99.85, sim.Fill(strategy.Sell, 100), 1e-9)
}

func TestFillRandomSlippageBounds(t *testing.T) {
	sim := NewFillSimulator(0, 0.1, 0, rand.New(rand.NewSource(1)))
	for i := 0; i < 100; i++ {
		fill := sim.Fill(strategy.Buy, 100)
		// slippage factor stays within [0.5, 1.5)
		require.GreaterOrEqual(t, fill, 100.05)
		require.Less(t, fill, 100.15)
	}
}

func TestCommission(t *testing.T) {
	sim := NewFillSimulator(0.001, 0, 0, nil)
	require.InDelta(t, 10.0, sim.Commission(100, 100), 1e-9)
}

func TestFormatReport(t *testing.T) {
	m := MetricsResult{
		TotalTrades:   2,
		WinningTrades: 1,
		LosingTrades:  1,
		WinRate:       50,
		NetProfit:     150,
		FinalEquity:   10150,
	}
	out := FormatReport(m, 10000)
	require.Contains(t, out, "Total Trades: 2")
	require.Contains(t, out, "Win Rate: 50.00%")
	require.Contains(t, out, "Net Profit: $150.00")
}

func TestFormatReportNoTrades(t *testing.T) {
	out := FormatReport(MetricsResult{}, 10000)
	require.True(t, strings.HasPrefix(out, "No trades"))
}
