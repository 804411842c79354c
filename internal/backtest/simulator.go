package backtest

import (
	"math/rand"

	"smc-backtest/internal/strategy"
)

// FillSimulator turns a reference price into an executed price and cost:
// buyers pay half-spread plus slippage, sellers receive less by the same.
// With a non-nil rng the slippage magnitude is scaled by a uniform factor in
// [0.5, 1.5); with nil rng fills are fully deterministic.
type FillSimulator struct {
	commission float64
	slippage   float64
	halfSpread float64
	rng        *rand.Rand
}

func NewFillSimulator(commission, slippage, spread float64, rng *rand.Rand) *FillSimulator {
	return &FillSimulator{
		commission: commission,
		slippage:   slippage,
		halfSpread: spread / 2,
		rng:        rng,
	}
}

// Fill returns the simulated execution price for the given side.
func (s *FillSimulator) Fill(side strategy.Side, price float64) float64 {
	slip := s.slippage
	if s.rng != nil {
		slip *= 0.5 + s.rng.Float64()
	}
	if side == strategy.Buy {
		return price + slip + s.halfSpread
	}
	return price - slip - s.halfSpread
}

// Commission is a notional-value fee, charged on both entry and exit.
func (s *FillSimulator) Commission(price, size float64) float64 {
	return s.commission * price * size
}
