package backtest

import (
	"fmt"
	"strings"
)

// FormatReport renders a human-readable summary of a run for terminal output.
func FormatReport(m MetricsResult, initialBalance float64) string {
	if m.TotalTrades == 0 {
		return "No trades executed."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Backtest Report ===\n")
	fmt.Fprintf(&b, "Initial Balance: $%.2f\n", initialBalance)
	fmt.Fprintf(&b, "Final Equity: $%.2f\n", m.FinalEquity)
	fmt.Fprintf(&b, "Net Profit: $%.2f\n", m.NetProfit)
	fmt.Fprintf(&b, "Total Return: %.2f%%\n", m.TotalReturnPct)
	fmt.Fprintf(&b, "\nRisk Metrics:\n")
	fmt.Fprintf(&b, "Max Drawdown: %.2f%% ($%.2f)\n", m.MaxDrawdownPct, m.MaxDrawdownAbs)
	fmt.Fprintf(&b, "Sharpe Ratio: %.2f\n", m.SharpeRatio)
	fmt.Fprintf(&b, "Calmar Ratio: %.2f\n", m.CalmarRatio)
	fmt.Fprintf(&b, "\nTrade Statistics:\n")
	fmt.Fprintf(&b, "Total Trades: %d\n", m.TotalTrades)
	fmt.Fprintf(&b, "Winning Trades: %d\n", m.WinningTrades)
	fmt.Fprintf(&b, "Losing Trades: %d\n", m.LosingTrades)
	fmt.Fprintf(&b, "Win Rate: %.2f%%\n", m.WinRate)
	fmt.Fprintf(&b, "Profit Factor: %.2f\n", m.ProfitFactor)
	fmt.Fprintf(&b, "Expectancy: $%.2f\n", m.Expectancy)
	fmt.Fprintf(&b, "\nAverage Win: $%.2f\n", m.AvgWin)
	fmt.Fprintf(&b, "Average Loss: $%.2f\n", m.AvgLoss)
	fmt.Fprintf(&b, "Largest Win: $%.2f\n", m.LargestWin)
	fmt.Fprintf(&b, "Largest Loss: $%.2f\n", m.LargestLoss)
	return b.String()
}
