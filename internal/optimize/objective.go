// Package optimize exposes the single-trial objective used by external
// parameter searchers. Grid, random or Bayesian drivers call Evaluate once
// per candidate and rank the returned scores; the search loop itself lives
// outside this module.
package optimize

import (
	"go.uber.org/zap"

	"smc-backtest/internal/backtest"
	"smc-backtest/internal/market"
	"smc-backtest/internal/strategy"
)

// penaltyScore replaces the score when a constraint is violated or the
// candidate cannot be evaluated. It is low enough that any searcher
// maximizing the objective discards the candidate.
const penaltyScore = -1e10

// Objective scores one parameter set by running a full backtest.
type Objective struct {
	// Metric names the score: "sharpe", "net_profit", "calmar" or
	// "profit_factor". Unknown names fall back to "sharpe".
	Metric string

	// Constraints map metric names to bound values. A candidate whose
	// |metric| exceeds |bound| receives the penalty score.
	Constraints map[string]float64

	Config backtest.Config
	Log    *zap.Logger
}

// Evaluate runs one backtest with the given parameters and returns the
// objective score together with the full metrics. Invalid parameters score
// the penalty rather than erroring so batch searchers keep going.
func (o *Objective) Evaluate(params strategy.Params, bars []market.Bar) (float64, backtest.MetricsResult) {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}

	strat, err := strategy.NewSMC(params)
	if err != nil {
		log.Warn("rejecting candidate", zap.Error(err))
		return penaltyScore, backtest.MetricsResult{}
	}

	res := backtest.New(strat, o.Config, log).Run(bars)
	m := res.Metrics

	if !o.satisfied(m) {
		return penaltyScore, m
	}
	return o.score(m), m
}

// EvaluateMap is Evaluate for raw parameter maps as produced by external
// samplers.
func (o *Objective) EvaluateMap(raw map[string]any, bars []market.Bar) (float64, backtest.MetricsResult) {
	params, err := strategy.ParamsFromMap(raw)
	if err != nil {
		if o.Log != nil {
			o.Log.Warn("rejecting candidate", zap.Error(err))
		}
		return penaltyScore, backtest.MetricsResult{}
	}
	return o.Evaluate(params, bars)
}

func (o *Objective) score(m backtest.MetricsResult) float64 {
	switch o.Metric {
	case "net_profit":
		return m.NetProfit
	case "calmar":
		return m.CalmarRatio
	case "profit_factor":
		return m.ProfitFactor
	default:
		return m.SharpeRatio
	}
}

// satisfied treats each constraint as a cap on the metric's magnitude.
func (o *Objective) satisfied(m backtest.MetricsResult) bool {
	for name, bound := range o.Constraints {
		v, ok := metricValue(m, name)
		if !ok {
			continue
		}
		if abs(v) > abs(bound) {
			return false
		}
	}
	return true
}

func metricValue(m backtest.MetricsResult, name string) (float64, bool) {
	switch name {
	case "net_profit":
		return m.NetProfit, true
	case "total_return_pct":
		return m.TotalReturnPct, true
	case "max_drawdown_abs":
		return m.MaxDrawdownAbs, true
	case "max_drawdown_pct":
		return m.MaxDrawdownPct, true
	case "sharpe_ratio":
		return m.SharpeRatio, true
	case "calmar_ratio":
		return m.CalmarRatio, true
	case "win_rate":
		return m.WinRate, true
	case "profit_factor":
		return m.ProfitFactor, true
	case "expectancy":
		return m.Expectancy, true
	case "total_trades":
		return float64(m.TotalTrades), true
	default:
		return 0, false
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
