package backtest

import (
	"math"
	"math/rand"

	"go.uber.org/zap"

	"smc-backtest/internal/market"
	"smc-backtest/internal/strategy"
)

// Backtester replays a strategy's signals bar-by-bar against an OHLC series,
// simulating fills, position sizing and stop/target exits while accumulating
// the trade ledger and equity curve. One Backtester owns one run's state:
// callers running trials concurrently use one instance per run.
type Backtester struct {
	strat strategy.Strategy
	cfg   Config
	sim   *FillSimulator
	log   *zap.Logger

	balance   float64
	equity    float64
	nextPosID int
	open      []*Position
	trades    []Trade
	curve     []EquityPoint
}

// New builds a Backtester. A nil logger is replaced with a nop logger so the
// core stays quiet by default.
func New(strat strategy.Strategy, cfg Config, log *zap.Logger) *Backtester {
	if log == nil {
		log = zap.NewNop()
	}
	var rng *rand.Rand
	if cfg.RandomSlippage {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	return &Backtester{
		strat: strat,
		cfg:   cfg,
		sim:   NewFillSimulator(cfg.Commission, cfg.Slippage, cfg.Spread, rng),
		log:   log,
	}
}

// Run executes one backtest. Degenerate input (no bars, no signals) yields a
// well-formed result with the balance unchanged, never an error: batch
// callers keep iterating.
//
// Per-bar order is fixed: exits for open positions, then entries for signals
// at this bar, then the equity mark and depletion check. On depletion the
// loop stops before processing further bars and residual positions are
// force-closed at the last processed bar.
func (b *Backtester) Run(bars []market.Bar) Result {
	b.balance = b.cfg.InitialBalance
	b.equity = b.cfg.InitialBalance
	b.nextPosID = 0
	b.open = nil
	b.trades = nil
	b.curve = nil

	if len(bars) == 0 {
		return Result{Metrics: Compute(nil, nil, b.cfg.InitialBalance)}
	}

	signals := b.strat.GenerateSignals(bars)
	b.log.Info("starting backtest",
		zap.Int("bars", len(bars)),
		zap.Int("signals", len(signals)),
		zap.String("strategy", b.strat.Name()),
	)

	byTs := make(map[int64][]strategy.Signal, len(signals))
	for _, sig := range signals {
		byTs[sig.Ts] = append(byTs[sig.Ts], sig)
	}

	lastIdx := 0
	for i := range bars {
		lastIdx = i
		bar := bars[i]

		b.checkExits(bar)

		if len(b.open) < b.cfg.MaxPositions {
			for _, sig := range byTs[bar.Ts] {
				if len(b.open) >= b.cfg.MaxPositions {
					break
				}
				b.enter(sig, bar)
			}
		}

		b.equity = b.balance + b.openPnL(bar)
		b.curve = append(b.curve, EquityPoint{Ts: bar.Ts, Equity: b.equity})

		if b.balance <= 0 || b.equity <= 0 {
			b.log.Warn("account depleted, ending run early",
				zap.Int("bar", i),
				zap.Float64("balance", b.balance),
				zap.Float64("equity", b.equity),
			)
			break
		}
	}

	// Residual positions close at the last processed bar, through the fill
	// simulator on the opposite side.
	final := bars[lastIdx]
	for _, pos := range append([]*Position(nil), b.open...) {
		b.exit(pos, final, ExitEndOfData)
	}

	return Result{
		Trades:      b.trades,
		EquityCurve: b.curve,
		Metrics:     Compute(b.trades, b.curve, b.cfg.InitialBalance),
	}
}

// checkExits closes positions hit by this bar. Stop-loss is checked before
// take-profit; only one reason applies per position per bar.
func (b *Backtester) checkExits(bar market.Bar) {
	for _, pos := range append([]*Position(nil), b.open...) {
		switch {
		case pos.Side == strategy.Buy && bar.Low <= pos.Stop:
			b.exit(pos, bar, ExitStopLoss)
		case pos.Side == strategy.Sell && bar.High >= pos.Stop:
			b.exit(pos, bar, ExitStopLoss)
		case pos.Side == strategy.Buy && bar.High >= pos.Target:
			b.exit(pos, bar, ExitTakeProfit)
		case pos.Side == strategy.Sell && bar.Low <= pos.Target:
			b.exit(pos, bar, ExitTakeProfit)
		}
	}
}

// enter opens a position for a signal, or silently rejects it when the stop
// distance, size or balance make it untradable.
func (b *Backtester) enter(sig strategy.Signal, bar market.Bar) {
	fill := b.sim.Fill(sig.Side, sig.Entry)
	stopDist := math.Abs(fill - sig.Stop)
	if stopDist <= 0 {
		return
	}

	var size, riskAmount float64
	if b.cfg.PositionSize <= 1.0 {
		riskAmount = b.balance * b.cfg.PositionSize
		riskPerUnit := stopDist * b.cfg.InstrumentMultiplier
		if riskPerUnit <= 0 {
			return
		}
		size = riskAmount / riskPerUnit
	} else {
		size = b.cfg.PositionSize
		riskAmount = stopDist * size * b.cfg.InstrumentMultiplier
	}
	if math.IsNaN(size) || math.IsInf(size, 0) || size <= 0 {
		return
	}

	commission := b.sim.Commission(fill, size)
	b.balance -= commission

	riskPct := 0.0
	if b.balance > 0 {
		riskPct = riskAmount / b.balance
	}

	pos := &Position{
		ID:         b.nextPosID,
		Side:       sig.Side,
		EntryTs:    bar.Ts,
		EntryPrice: fill,
		Size:       size,
		Stop:       sig.Stop,
		Target:     sig.Target,
		Commission: commission,
		RiskAmount: riskAmount,
		RiskPct:    riskPct,
		Meta:       sig.Meta,
	}
	b.nextPosID++
	b.open = append(b.open, pos)
}

// exit converts a position into a trade: stop and target exits fill at their
// level, everything else goes through the simulator at the bar close.
func (b *Backtester) exit(pos *Position, bar market.Bar, reason ExitReason) {
	var exitPrice float64
	switch reason {
	case ExitStopLoss:
		exitPrice = pos.Stop
	case ExitTakeProfit:
		exitPrice = pos.Target
	default:
		exitPrice = b.sim.Fill(pos.Side.Opposite(), bar.Close)
	}

	pnl := (exitPrice - pos.EntryPrice) * pos.Size * b.cfg.InstrumentMultiplier
	if pos.Side == strategy.Sell {
		pnl = -pnl
	}
	exitCommission := b.sim.Commission(exitPrice, pos.Size)
	pnl -= exitCommission
	b.balance += pnl

	b.trades = append(b.trades, Trade{
		Index:          len(b.trades),
		EntryTs:        pos.EntryTs,
		ExitTs:         bar.Ts,
		Side:           pos.Side,
		EntryPrice:     pos.EntryPrice,
		ExitPrice:      exitPrice,
		Size:           pos.Size,
		PnL:            pnl,
		Fees:           pos.Commission + exitCommission,
		CumEquity:      b.balance,
		ExitReason:     reason,
		RiskAmount:     pos.RiskAmount,
		RiskPct:        pos.RiskPct,
		DrawdownAtExit: maxDrawdownAbs(b.curve),
		Meta:           pos.Meta,
	})
	b.removePosition(pos.ID)
}

func (b *Backtester) removePosition(id int) {
	for i, pos := range b.open {
		if pos.ID == id {
			b.open = append(b.open[:i], b.open[i+1:]...)
			return
		}
	}
}

// openPnL marks all open positions to the bar close.
func (b *Backtester) openPnL(bar market.Bar) float64 {
	total := 0.0
	for _, pos := range b.open {
		pnl := (bar.Close - pos.EntryPrice) * pos.Size * b.cfg.InstrumentMultiplier
		if pos.Side == strategy.Sell {
			pnl = -pnl
		}
		total += pnl
	}
	return total
}

// maxDrawdownAbs is the largest peak-to-trough equity decline so far.
func maxDrawdownAbs(curve []EquityPoint) float64 {
	var peak, maxDD float64
	for i, p := range curve {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		if dd := peak - p.Equity; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
