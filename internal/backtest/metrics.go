package backtest

import (
	"math"
	"sort"
	"time"
)

// tradingDaysPerYear annualizes daily returns for the Sharpe ratio.
const tradingDaysPerYear = 252

// MetricsResult is the full performance summary of one run.
type MetricsResult struct {
	NetProfit      float64   `json:"net_profit"`
	TotalReturnPct float64   `json:"total_return_pct"`
	MaxDrawdownAbs float64   `json:"max_drawdown_abs"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	SharpeRatio    float64   `json:"sharpe_ratio"`
	CalmarRatio    float64   `json:"calmar_ratio"`
	WinRate        float64   `json:"win_rate"`
	ProfitFactor   float64   `json:"profit_factor"`
	Expectancy     float64   `json:"expectancy"`
	TotalTrades    int       `json:"total_trades"`
	WinningTrades  int       `json:"winning_trades"`
	LosingTrades   int       `json:"losing_trades"`
	AvgWin         float64   `json:"avg_win"`
	AvgLoss        float64   `json:"avg_loss"`
	LargestWin     float64   `json:"largest_win"`
	LargestLoss    float64   `json:"largest_loss"`
	MonthlyReturns []float64 `json:"monthly_returns"`
	FinalEquity    float64   `json:"final_equity"`
}

// Compute derives all metrics from the trade ledger and equity curve.
// With no trades every ratio is zero rather than NaN.
func Compute(trades []Trade, curve []EquityPoint, initialBalance float64) MetricsResult {
	m := MetricsResult{
		TotalTrades: len(trades),
		FinalEquity: initialBalance,
	}
	if len(curve) > 0 {
		m.FinalEquity = curve[len(curve)-1].Equity
	}

	var grossProfit, grossLoss float64
	for _, t := range trades {
		m.NetProfit += t.PnL
		if t.PnL > 0 {
			m.WinningTrades++
			grossProfit += t.PnL
			if t.PnL > m.LargestWin {
				m.LargestWin = t.PnL
			}
		} else if t.PnL < 0 {
			m.LosingTrades++
			grossLoss += -t.PnL
			if t.PnL < m.LargestLoss {
				m.LargestLoss = t.PnL
			}
		}
	}

	if initialBalance > 0 {
		m.TotalReturnPct = (m.FinalEquity - initialBalance) / initialBalance * 100
	}
	if len(trades) > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(len(trades)) * 100
		m.Expectancy = m.NetProfit / float64(len(trades))
	}
	if m.WinningTrades > 0 {
		m.AvgWin = grossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = -grossLoss / float64(m.LosingTrades)
	}
	// Profit factor stays zero both with no trades and with no losing
	// trades: an unbounded ratio would dominate any optimizer score.
	if len(trades) > 0 && grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}

	m.MaxDrawdownAbs, m.MaxDrawdownPct = drawdown(curve)
	m.SharpeRatio = sharpe(curve)
	if m.MaxDrawdownPct > 0 {
		m.CalmarRatio = m.TotalReturnPct / m.MaxDrawdownPct
	}
	m.MonthlyReturns = monthlyReturns(trades, initialBalance)
	return m
}

// drawdown returns the largest peak-to-trough decline, absolute and as a
// percentage of the overall equity peak.
func drawdown(curve []EquityPoint) (abs, pct float64) {
	var peak, globalPeak float64
	for i, p := range curve {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		if peak > globalPeak {
			globalPeak = peak
		}
		if dd := peak - p.Equity; dd > abs {
			abs = dd
		}
	}
	if globalPeak > 0 {
		pct = abs / globalPeak * 100
	}
	return abs, pct
}

// sharpe computes an annualized Sharpe ratio from daily-resampled equity.
// The curve is collapsed to the last equity of each UTC day; when fewer than
// two days exist the raw per-bar curve is used instead. Zero return
// variance yields zero.
func sharpe(curve []EquityPoint) float64 {
	daily := resampleDaily(curve)
	if len(daily) < 2 {
		daily = make([]float64, len(curve))
		for i, p := range curve {
			daily[i] = p.Equity
		}
	}
	if len(daily) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(daily)-1)
	for i := 1; i < len(daily); i++ {
		if daily[i-1] == 0 {
			continue
		}
		returns = append(returns, daily[i]/daily[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// resampleDaily keeps the last equity value of each UTC day, in order.
func resampleDaily(curve []EquityPoint) []float64 {
	var out []float64
	var curDay int64 = math.MinInt64
	for _, p := range curve {
		day := p.Ts / int64(24*time.Hour/time.Millisecond)
		if day != curDay {
			out = append(out, p.Equity)
			curDay = day
		} else {
			out[len(out)-1] = p.Equity
		}
	}
	return out
}

// monthlyReturns buckets realized PnL by exit month and expresses each
// bucket as a percentage of the initial balance, in calendar order.
func monthlyReturns(trades []Trade, initialBalance float64) []float64 {
	if len(trades) == 0 || initialBalance <= 0 {
		return nil
	}
	buckets := make(map[string]float64)
	for _, t := range trades {
		key := time.UnixMilli(t.ExitTs).UTC().Format("2006-01")
		buckets[key] += t.PnL
	}
	months := make([]string, 0, len(buckets))
	for k := range buckets {
		months = append(months, k)
	}
	sort.Strings(months)
	out := make([]float64, len(months))
	for i, k := range months {
		out[i] = buckets[k] / initialBalance * 100
	}
	return out
}
