package backtest

import "smc-backtest/internal/strategy"

// ExitReason labels why a position was closed.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitEndOfData  ExitReason = "end_of_data"
	ExitSignal     ExitReason = "signal_exit"
)

// Position is an open trade, owned exclusively by the backtest loop. ID is a
// stable handle so removal never relies on field equality.
type Position struct {
	ID         int
	Side       strategy.Side
	EntryTs    int64
	EntryPrice float64
	Size       float64
	Stop       float64
	Target     float64
	Commission float64
	RiskAmount float64
	RiskPct    float64
	Meta       strategy.SignalMeta
}

// Trade is the immutable record of a closed position.
type Trade struct {
	Index          int                 `json:"index"`
	EntryTs        int64               `json:"entry_ts"`
	ExitTs         int64               `json:"exit_ts"`
	Side           strategy.Side       `json:"side"`
	EntryPrice     float64             `json:"entry_price"`
	ExitPrice      float64             `json:"exit_price"`
	Size           float64             `json:"size"`
	PnL            float64             `json:"pnl"`
	Fees           float64             `json:"fees"`
	CumEquity      float64             `json:"cum_equity"`
	ExitReason     ExitReason          `json:"exit_reason"`
	RiskAmount     float64             `json:"risk_amount"`
	RiskPct        float64             `json:"risk_pct"`
	DrawdownAtExit float64             `json:"drawdown_at_exit"`
	Meta           strategy.SignalMeta `json:"meta"`
}

// EquityPoint is one mark-to-market observation, one per processed bar.
type EquityPoint struct {
	Ts     int64   `json:"ts"`
	Equity float64 `json:"equity"`
}

// Result bundles the outputs of one backtest run.
type Result struct {
	Trades      []Trade       `json:"trades"`
	EquityCurve []EquityPoint `json:"equity_curve"`
	Metrics     MetricsResult `json:"metrics"`
}
