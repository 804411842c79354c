package strategy

import (
	"smc-backtest/internal/market"
	"smc-backtest/internal/smc"
)

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side, used when closing a position.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// SignalMeta records why a signal fired.
type SignalMeta struct {
	Reason       string    `json:"reason"`     // zone type + confirmation, e.g. "OB+ChoCH"
	Confluence   string    `json:"confluence"` // "choch" or "liquidity_grab"
	Trend        smc.Trend `json:"-"`
	ZoneStrength float64   `json:"zone_strength,omitempty"`
}

// Signal is a directional entry instruction. Stop sits on the loss side of
// Entry and Target on the profit side; |Entry-Stop| is strictly positive.
type Signal struct {
	Ts     int64
	Side   Side
	Entry  float64
	Stop   float64
	Target float64
	Meta   SignalMeta
}

// Strategy turns an OHLC series into entry signals. Implementations must be
// causal: the signal at bar i may only depend on bars 0..i.
type Strategy interface {
	Name() string
	GenerateSignals(bars []market.Bar) []Signal
	Validate() error
	ParamSpace() ParamSpace
}

// ParamKind describes how an optimizer should sample a parameter.
type ParamKind int

const (
	ParamInt ParamKind = iota
	ParamFloat
	ParamChoice
)

// ParamRange bounds one tunable parameter for external search drivers.
type ParamRange struct {
	Kind    ParamKind
	Low     float64
	High    float64
	Choices []any
}

// ParamSpace maps parameter names to their search ranges.
type ParamSpace map[string]ParamRange
