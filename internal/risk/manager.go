// Package risk enforces the trading limits that sit between the allocator
// and the exchange: per-order size caps, daily volume and loss budgets, a
// position-count cap, stop-loss exits, and a drawdown circuit breaker.
package risk

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"CryptoPilot/internal/model"
)

// Limits holds the static risk configuration for a run.
type Limits struct {
	MaxPositionSize    float64 // max notional per order, quote currency
	MaxDailyVolume     float64 // max traded notional per UTC day
	MaxDailyLoss       float64 // max realized loss per UTC day
	StopLossPercentage float64 // exit when unrealized loss exceeds this
	MaxPositions       int     // max concurrently open positions
	MinTradeSize       float64 // orders below this notional are noise
	BreakerDrawdown    float64 // trip when drawdown from peak exceeds this, percent
}

// DailyCounters accumulate traded volume and realized losses for one UTC
// day. They reset when the day rolls over, never mid-day.
type DailyCounters struct {
	Date    string // UTC day in 2006-01-02 form
	Volume  float64
	LossSum float64
}

// BreakerState is the circuit breaker's persistent state. The high-water
// mark only ever rises, so drawdown is measured against the best total
// value the portfolio has reached, not the starting capital.
type BreakerState struct {
	HighWaterMark float64
	Tripped       bool
	TrippedAt     time.Time
}

// State is the mutable risk state threaded through each iteration.
type State struct {
	Counters DailyCounters
	Breaker  BreakerState
}

// Manager applies the limits to proposed orders. It holds no portfolio
// state itself; counters and breaker state are passed in and mutated so
// the caller controls persistence.
type Manager struct {
	limits Limits
	logger *zap.Logger
}

func NewManager(limits Limits, logger *zap.Logger) *Manager {
	return &Manager{limits: limits, logger: logger}
}

func (m *Manager) Limits() Limits { return m.limits }

// RolloverIfNeeded resets the daily counters when now is in a later UTC
// day than the counters were accumulated in. Reports whether a reset
// happened so the caller can persist the fresh counters.
func (m *Manager) RolloverIfNeeded(state *State, now time.Time) bool {
	today := now.UTC().Format("2006-01-02")
	if state.Counters.Date == today {
		return false
	}
	m.logger.Info("daily risk counters reset",
		zap.String("previous", state.Counters.Date),
		zap.String("current", today))
	state.Counters = DailyCounters{Date: today}
	return true
}

// Approve runs the ordered limit checks against a proposed order and
// returns a non-empty rejection reason on the first check that fails.
// The breaker halts new entries only: every sell reduces exposure and
// stays allowed. Protective exits (stop-loss and liquidation sells)
// additionally skip the sizing checks.
func (m *Manager) Approve(order model.Order, openPositions int, state *State) string {
	protective := order.Side == model.SideSell &&
		(order.Intent == model.IntentStopLoss || order.Intent == model.IntentLiquidate)

	notional := order.Notional()

	if state.Breaker.Tripped && order.Side == model.SideBuy {
		return "circuit breaker tripped: new entries halted"
	}
	if !protective && notional < m.limits.MinTradeSize {
		return fmt.Sprintf("order value %.2f below minimum trade size %.2f", notional, m.limits.MinTradeSize)
	}
	if !protective && notional > m.limits.MaxPositionSize {
		return fmt.Sprintf("order value %.2f exceeds max position size %.2f", notional, m.limits.MaxPositionSize)
	}
	if state.Counters.Volume+notional > m.limits.MaxDailyVolume {
		return fmt.Sprintf("daily volume limit reached: %.2f + %.2f > %.2f",
			state.Counters.Volume, notional, m.limits.MaxDailyVolume)
	}
	if state.Counters.LossSum >= m.limits.MaxDailyLoss {
		return fmt.Sprintf("daily loss limit reached: %.2f >= %.2f",
			state.Counters.LossSum, m.limits.MaxDailyLoss)
	}
	if order.Side == model.SideBuy && openPositions >= m.limits.MaxPositions {
		return fmt.Sprintf("max open positions reached: %d", m.limits.MaxPositions)
	}
	return ""
}

// RecordFill updates the daily counters after a fill. Realized losses are
// passed as a positive number; gains pass zero.
func (m *Manager) RecordFill(state *State, notional, realizedLoss float64) {
	state.Counters.Volume += notional
	if realizedLoss > 0 {
		state.Counters.LossSum += realizedLoss
	}
}

// StopLossExits scans open positions against current prices and returns
// the symbols whose unrealized loss breaches the stop-loss threshold.
// Positions without a quoted price are left alone.
func (m *Manager) StopLossExits(positions []model.Position, prices map[string]float64) []model.Position {
	var exits []model.Position
	for _, pos := range positions {
		price, ok := prices[pos.Symbol]
		if !ok || price <= 0 || pos.AvgPrice <= 0 {
			continue
		}
		lossPct := (price - pos.AvgPrice) / pos.AvgPrice * 100
		if lossPct <= -m.limits.StopLossPercentage {
			m.logger.Warn("stop-loss triggered",
				zap.String("symbol", pos.Symbol),
				zap.Float64("avg_price", pos.AvgPrice),
				zap.Float64("price", price),
				zap.Float64("loss_pct", lossPct))
			exits = append(exits, pos)
		}
	}
	return exits
}

// ObserveEquity feeds a portfolio valuation into the breaker. The high-water
// mark ratchets up with new peaks; once the drawdown from that peak exceeds
// the configured threshold the breaker trips and stays tripped until an
// explicit Reset. Returns true on the observation that trips it.
func (m *Manager) ObserveEquity(state *State, totalValue float64, now time.Time) bool {
	if totalValue > state.Breaker.HighWaterMark {
		state.Breaker.HighWaterMark = totalValue
		return false
	}
	if state.Breaker.Tripped || state.Breaker.HighWaterMark <= 0 {
		return false
	}
	drawdown := (state.Breaker.HighWaterMark - totalValue) / state.Breaker.HighWaterMark * 100
	if drawdown >= m.limits.BreakerDrawdown {
		state.Breaker.Tripped = true
		state.Breaker.TrippedAt = now
		m.logger.Error("circuit breaker tripped",
			zap.Float64("high_water_mark", state.Breaker.HighWaterMark),
			zap.Float64("total_value", totalValue),
			zap.Float64("drawdown_pct", drawdown))
		return true
	}
	return false
}

// Drawdown reports the current drawdown from the high-water mark in percent.
func Drawdown(state *State, totalValue float64) float64 {
	if state.Breaker.HighWaterMark <= 0 {
		return 0
	}
	dd := (state.Breaker.HighWaterMark - totalValue) / state.Breaker.HighWaterMark * 100
	if dd < 0 {
		return 0
	}
	return dd
}

// Reset clears a tripped breaker and re-baselines the high-water mark to
// the current portfolio value. Without the re-baseline the first equity
// observation after a reset would trip the breaker again.
func (m *Manager) Reset(state *State, currentValue float64) {
	if !state.Breaker.Tripped {
		return
	}
	m.logger.Info("circuit breaker reset",
		zap.Time("tripped_at", state.Breaker.TrippedAt),
		zap.Float64("old_high_water_mark", state.Breaker.HighWaterMark),
		zap.Float64("new_baseline", currentValue))
	state.Breaker.Tripped = false
	state.Breaker.TrippedAt = time.Time{}
	if currentValue > 0 {
		state.Breaker.HighWaterMark = currentValue
	}
}
