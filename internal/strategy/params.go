package strategy

import "fmt"

// Params holds the SMC strategy configuration. Lookback, RiskReward and
// ATRPeriod are required; the rest default sensibly via DefaultParams.
type Params struct {
	Lookback   int     `yaml:"lookback" json:"lookback"`
	RiskReward float64 `yaml:"risk_reward" json:"risk_reward"`
	ATRPeriod  int     `yaml:"atr_period" json:"atr_period"`

	MinImpulseBars    int     `yaml:"min_impulse_bars" json:"min_impulse_bars"`
	MinImpulseATR     float64 `yaml:"min_impulse_atr" json:"min_impulse_atr"`
	OBExpansionATR    float64 `yaml:"ob_expansion_atr" json:"ob_expansion_atr"`
	MaxAgeBars        int     `yaml:"max_age_bars" json:"max_age_bars"`
	StrictOrderBlocks bool    `yaml:"strict_order_blocks" json:"strict_order_blocks"`

	MinGapATR    float64 `yaml:"min_gap_atr" json:"min_gap_atr"`
	FVGExpandATR float64 `yaml:"fvg_expand_atr" json:"fvg_expand_atr"`

	BOSMarginATR     float64 `yaml:"bos_margin_atr" json:"bos_margin_atr"`
	LiquidityGrabATR float64 `yaml:"liquidity_grab_atr" json:"liquidity_grab_atr"`
	GrabReclaimBars  int     `yaml:"grab_reclaim_bars" json:"grab_reclaim_bars"`

	CoolOffBars int `yaml:"cool_off" json:"cool_off"`

	UseOrderBlocks    bool `yaml:"use_order_blocks" json:"use_order_blocks"`
	UseFVG            bool `yaml:"use_fvg" json:"use_fvg"`
	UseLiquidityGrabs bool `yaml:"use_liquidity_grabs" json:"use_liquidity_grabs"`
}

// DefaultParams returns the defaults used when a key is absent from config.
func DefaultParams() Params {
	return Params{
		Lookback:          20,
		RiskReward:        2.0,
		ATRPeriod:         14,
		MinImpulseBars:    3,
		MinImpulseATR:     2.0,
		OBExpansionATR:    0.5,
		MaxAgeBars:        100,
		StrictOrderBlocks: true,
		MinGapATR:         0.5,
		FVGExpandATR:      0.2,
		BOSMarginATR:      0.5,
		LiquidityGrabATR:  1.0,
		GrabReclaimBars:   3,
		CoolOffBars:       5,
		UseOrderBlocks:    true,
		UseFVG:            true,
		UseLiquidityGrabs: true,
	}
}

// Validate fails fast on unusable parameters, before any data is touched.
func (p Params) Validate() error {
	if p.Lookback < 10 {
		return fmt.Errorf("lookback must be >= 10, got %d", p.Lookback)
	}
	if p.RiskReward <= 0 {
		return fmt.Errorf("risk_reward must be > 0, got %g", p.RiskReward)
	}
	if p.ATRPeriod < 1 {
		return fmt.Errorf("atr_period must be >= 1, got %d", p.ATRPeriod)
	}
	if p.MinImpulseBars < 1 {
		return fmt.Errorf("min_impulse_bars must be >= 1, got %d", p.MinImpulseBars)
	}
	if p.GrabReclaimBars < 1 {
		return fmt.Errorf("grab_reclaim_bars must be >= 1, got %d", p.GrabReclaimBars)
	}
	if p.CoolOffBars < 0 {
		return fmt.Errorf("cool_off must be >= 0, got %d", p.CoolOffBars)
	}
	return nil
}

// ParamsFromMap builds Params from a generic parameter mapping, the shape an
// external optimizer trial produces. The required keys lookback, risk_reward
// and atr_period must be present; everything else falls back to defaults.
func ParamsFromMap(m map[string]any) (Params, error) {
	for _, req := range []string{"lookback", "risk_reward", "atr_period"} {
		if _, ok := m[req]; !ok {
			return Params{}, fmt.Errorf("missing required parameter: %s", req)
		}
	}
	p := DefaultParams()
	for k, v := range m {
		if err := p.set(k, v); err != nil {
			return Params{}, err
		}
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (p *Params) set(key string, v any) error {
	switch key {
	case "lookback":
		return asInt(key, v, &p.Lookback)
	case "risk_reward":
		return asFloat(key, v, &p.RiskReward)
	case "atr_period":
		return asInt(key, v, &p.ATRPeriod)
	case "min_impulse_bars":
		return asInt(key, v, &p.MinImpulseBars)
	case "min_impulse_atr":
		return asFloat(key, v, &p.MinImpulseATR)
	case "ob_expansion_atr":
		return asFloat(key, v, &p.OBExpansionATR)
	case "max_age_bars":
		return asInt(key, v, &p.MaxAgeBars)
	case "strict_order_blocks":
		return asBool(key, v, &p.StrictOrderBlocks)
	case "min_gap_atr":
		return asFloat(key, v, &p.MinGapATR)
	case "fvg_expand_atr":
		return asFloat(key, v, &p.FVGExpandATR)
	case "bos_margin_atr":
		return asFloat(key, v, &p.BOSMarginATR)
	case "liquidity_grab_atr":
		return asFloat(key, v, &p.LiquidityGrabATR)
	case "grab_reclaim_bars":
		return asInt(key, v, &p.GrabReclaimBars)
	case "cool_off":
		return asInt(key, v, &p.CoolOffBars)
	case "use_order_blocks":
		return asBool(key, v, &p.UseOrderBlocks)
	case "use_fvg":
		return asBool(key, v, &p.UseFVG)
	case "use_liquidity_grabs":
		return asBool(key, v, &p.UseLiquidityGrabs)
	default:
		return fmt.Errorf("unknown parameter: %s", key)
	}
}

func asInt(key string, v any, dst *int) error {
	switch x := v.(type) {
	case int:
		*dst = x
	case int64:
		*dst = int(x)
	case float64:
		*dst = int(x)
	default:
		return fmt.Errorf("parameter %s: expected number, got %T", key, v)
	}
	return nil
}

func asFloat(key string, v any, dst *float64) error {
	switch x := v.(type) {
	case float64:
		*dst = x
	case int:
		*dst = float64(x)
	case int64:
		*dst = float64(x)
	default:
		return fmt.Errorf("parameter %s: expected number, got %T", key, v)
	}
	return nil
}

func asBool(key string, v any, dst *bool) error {
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("parameter %s: expected bool, got %T", key, v)
	}
	*dst = b
	return nil
}
