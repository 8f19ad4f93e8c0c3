// Package bot sequences one trading iteration: collect market data, run the
// simulations, score and allocate, pass orders through risk checks, execute
// them and record the results. It owns no policy of its own; every decision
// is delegated to the packages it coordinates.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"CryptoPilot/internal/analysis"
	"CryptoPilot/internal/collector"
	"CryptoPilot/internal/exchange"
	"CryptoPilot/internal/metrics"
	"CryptoPilot/internal/model"
	"CryptoPilot/internal/notifier"
	"CryptoPilot/internal/portfolio"
	"CryptoPilot/internal/risk"
	"CryptoPilot/internal/store"
	"CryptoPilot/internal/strategy"
)

// ErrPersistence marks a failed store write. The loop halts on it rather
// than risk an unrecorded trade or position.
var ErrPersistence = errors.New("persistence failure")

const (
	orderAttempts   = 3
	retryBackoff    = 500 * time.Millisecond
	telegramRetries = 3
)

// Options are the trading parameters the coordinator needs directly.
type Options struct {
	TopAssets   int
	CashReserve float64
	AnalyzeOnly bool
}

// priceSetter is implemented by the paper exchange; live clients quote
// themselves.
type priceSetter interface {
	SetPrices(map[string]float64)
}

type Bot struct {
	opts      Options
	collector *collector.Collector
	engine    *analysis.Engine
	riskMgr   *risk.Manager
	riskState *risk.State
	tracker   *portfolio.Tracker
	client    exchange.Client
	store     store.Store
	telegram  *notifier.Telegram
	logger    *zap.Logger
	out       io.Writer

	now   func() time.Time
	newID func() string
	sleep func(context.Context, time.Duration) error
}

func New(
	opts Options,
	col *collector.Collector,
	engine *analysis.Engine,
	riskMgr *risk.Manager,
	riskState *risk.State,
	tracker *portfolio.Tracker,
	client exchange.Client,
	st store.Store,
	telegram *notifier.Telegram,
	logger *zap.Logger,
	out io.Writer,
) *Bot {
	return &Bot{
		opts:      opts,
		collector: col,
		engine:    engine,
		riskMgr:   riskMgr,
		riskState: riskState,
		tracker:   tracker,
		client:    client,
		store:     st,
		telegram:  telegram,
		logger:    logger,
		out:       out,
		now:       time.Now,
		newID:     uuid.NewString,
		sleep:     sleepCtx,
	}
}

// BreakerTripped reports whether the circuit breaker is currently halting
// new entries. The CLI maps this to a dedicated exit code on bounded runs.
func (b *Bot) BreakerTripped() bool { return b.riskState.Breaker.Tripped }

// Iteration runs one full pass of the trading pipeline. Market data and
// exchange problems degrade the iteration; only persistence failures are
// returned as errors.
func (b *Bot) Iteration(ctx context.Context, iteration int) error {
	started := b.now()
	defer func() {
		metrics.IterationDuration.Observe(time.Since(started).Seconds())
	}()

	if b.riskMgr.RolloverIfNeeded(b.riskState, started) {
		if err := b.saveSession(); err != nil {
			return err
		}
	}

	assets, err := b.collector.Collect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		b.logger.Error("market data unavailable, skipping iteration",
			zap.Int("iteration", iteration), zap.Error(err))
		return nil
	}
	prices := b.collector.Prices()
	if ps, ok := b.client.(priceSetter); ok {
		ps.SetPrices(prices)
	}

	simStart := b.now()
	sims, err := b.engine.Run(ctx, assets)
	metrics.SimulationDuration.Observe(time.Since(simStart).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		b.logger.Error("simulation failed, skipping iteration", zap.Error(err))
		return nil
	}

	scores := strategy.Score(sims)

	var orders []model.Order
	if !b.opts.AnalyzeOnly {
		orders, err = b.execute(ctx, scores, prices)
		if err != nil {
			return err
		}
	}

	snap := b.tracker.Snapshot(prices, b.now())
	if !b.opts.AnalyzeOnly {
		if err := b.store.WriteSnapshot(snap); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if b.riskMgr.ObserveEquity(b.riskState, snap.TotalValue, b.now()) {
			alert := notifier.FormatBreakerAlert(
				b.riskState.Breaker.HighWaterMark, snap.TotalValue,
				risk.Drawdown(b.riskState, snap.TotalValue))
			if err := b.telegram.SendWithRetry(ctx, alert, telegramRetries); err != nil {
				b.logger.Error("breaker alert not delivered", zap.Error(err))
			}
		}
		if err := b.saveSession(); err != nil {
			return err
		}
	}

	b.publishMetrics(snap)
	b.report(ctx, notifier.Report{
		Timestamp:   snap.Timestamp,
		Iteration:   iteration,
		Scores:      scores,
		Targets:     strategy.Allocate(scores, b.opts.TopAssets, b.opts.CashReserve),
		Orders:      orders,
		Snapshot:    snap,
		RealizedPnL: b.tracker.RealizedPnL(),
		FeesPaid:    b.tracker.FeesPaid(),
		WinRate:     b.tracker.WinRate(),
		Drawdown:    risk.Drawdown(b.riskState, snap.TotalValue),
		BreakerOn:   b.riskState.Breaker.Tripped,
	})
	return nil
}

// execute turns the ranked scores into orders: protective exits first,
// then sells that free capital, then buys in ranking order.
func (b *Bot) execute(ctx context.Context, scores []model.Score, prices map[string]float64) ([]model.Order, error) {
	var orders []model.Order

	exited := make(map[string]bool)
	for _, pos := range b.riskMgr.StopLossExits(b.tracker.Positions(), prices) {
		order := b.newOrder(pos.Symbol, model.SideSell, model.IntentStopLoss, pos.Quantity, prices[pos.Symbol])
		if err := b.submit(ctx, &order); err != nil {
			return nil, err
		}
		if order.State == model.OrderFilled {
			exited[pos.Symbol] = true
		}
		orders = append(orders, order)
	}

	targets := strategy.Allocate(scores, b.opts.TopAssets, b.opts.CashReserve)
	targetValue := make(map[string]float64, len(targets))
	totalValue := b.tracker.TotalValue(prices)
	for _, t := range targets {
		targetValue[t.Symbol] = t.Weight * totalValue
	}
	minTrade := b.riskMgr.Limits().MinTradeSize

	for _, pos := range b.tracker.Positions() {
		if exited[pos.Symbol] {
			continue
		}
		price, ok := prices[pos.Symbol]
		if !ok || price <= 0 {
			continue
		}
		delta := targetValue[pos.Symbol] - pos.Value(price)
		if -delta < minTrade {
			continue
		}
		qty := -delta / price
		if qty > pos.Quantity {
			qty = pos.Quantity
		}
		order := b.newOrder(pos.Symbol, model.SideSell, model.IntentRebalance, qty, price)
		if err := b.submit(ctx, &order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	for _, t := range targets {
		if exited[t.Symbol] {
			continue
		}
		price, ok := prices[t.Symbol]
		if !ok || price <= 0 {
			continue
		}
		current := 0.0
		if pos, ok := b.tracker.Position(t.Symbol); ok {
			current = pos.Value(price)
		}
		delta := targetValue[t.Symbol] - current
		// fees come out of cash on top of the order value
		if spendable := b.tracker.Cash() * 0.995; delta > spendable {
			delta = spendable
		}
		if delta < minTrade {
			continue
		}
		order := b.newOrder(t.Symbol, model.SideBuy, model.IntentRebalance, delta/price, price)
		if err := b.submit(ctx, &order); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, nil
}

func (b *Bot) newOrder(symbol string, side model.Side, intent model.OrderIntent, qty, price float64) model.Order {
	now := b.now()
	return model.Order{
		ID:        b.newID(),
		Symbol:    symbol,
		Side:      side,
		Intent:    intent,
		Quantity:  qty,
		Price:     price,
		State:     model.OrderPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// submit runs one order through risk approval, placement with retry, and
// bookkeeping. The order's final state and reason are written in place.
// Only persistence failures return an error.
func (b *Bot) submit(ctx context.Context, order *model.Order) error {
	if reason := b.riskMgr.Approve(*order, b.tracker.NumPositions(), b.riskState); reason != "" {
		b.reject(order, reason)
		b.logger.Info("order skipped by risk manager",
			zap.String("symbol", order.Symbol),
			zap.String("side", string(order.Side)),
			zap.String("reason", reason))
		return nil
	}

	if err := order.Transition(model.OrderSubmitted, b.now()); err != nil {
		return fmt.Errorf("order %s: %w", order.ID, err)
	}

	fill, err := b.placeWithRetry(ctx, *order)
	if err != nil {
		var rejectErr *exchange.RejectError
		switch {
		case errors.As(err, &rejectErr):
			b.reject(order, rejectErr.Reason)
		case exchange.IsTransport(err):
			b.reject(order, "transport exhausted: "+err.Error())
		default:
			b.reject(order, err.Error())
		}
		b.logger.Warn("order rejected",
			zap.String("symbol", order.Symbol),
			zap.String("reason", order.Reason))
		return nil
	}

	trade := model.Trade{
		OrderID:   order.ID,
		Symbol:    fill.Symbol,
		Side:      fill.Side,
		Quantity:  fill.Quantity,
		Price:     fill.Price,
		Value:     fill.Quantity * fill.Price,
		Fee:       fill.Fee,
		Timestamp: b.now(),
	}

	// A venue fill the book cannot absorb (live fills may execute at a
	// worse price than the order was sized against) must not leave a
	// durable trade row the portfolio never reflects.
	if err := b.tracker.ValidateFill(trade); err != nil {
		b.reject(order, "fill not applicable: "+err.Error())
		b.logger.Error("venue fill diverges from portfolio state",
			zap.String("symbol", trade.Symbol),
			zap.Float64("quantity", trade.Quantity),
			zap.Float64("price", trade.Price),
			zap.Error(err))
		return nil
	}

	// The trade is durable before the in-memory state moves; a crash after
	// this line replays cleanly, a crash before it loses nothing.
	if err := b.store.AppendTrade(trade); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	realized, err := b.tracker.ApplyFill(trade)
	if err != nil {
		// validated above, so the book and the store now disagree
		return fmt.Errorf("%w: apply fill %s: %v", ErrPersistence, trade.Symbol, err)
	}

	if pos, ok := b.tracker.Position(trade.Symbol); ok {
		if err := b.store.UpsertPosition(pos); err != nil {
			return fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	} else if err := b.store.DeletePosition(trade.Symbol); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	var realizedLoss float64
	if realized < 0 {
		realizedLoss = -realized
	}
	b.riskMgr.RecordFill(b.riskState, trade.Value, realizedLoss)

	if err := order.Transition(model.OrderFilled, b.now()); err != nil {
		return fmt.Errorf("order %s: %w", order.ID, err)
	}
	metrics.OrdersTotal.WithLabelValues(string(model.OrderFilled)).Inc()

	b.logger.Info("order filled",
		zap.String("symbol", trade.Symbol),
		zap.String("side", string(trade.Side)),
		zap.Float64("quantity", trade.Quantity),
		zap.Float64("price", trade.Price),
		zap.Float64("fee", trade.Fee),
		zap.Float64("realized", realized))
	return nil
}

// placeWithRetry retries transport failures with doubling backoff, reusing
// the same client order ID so the exchange can deduplicate.
func (b *Bot) placeWithRetry(ctx context.Context, order model.Order) (exchange.Fill, error) {
	var lastErr error
	for attempt := 1; attempt <= orderAttempts; attempt++ {
		fill, err := b.client.PlaceOrder(ctx, order)
		if err == nil {
			return fill, nil
		}
		lastErr = err
		if !exchange.IsTransport(err) {
			return exchange.Fill{}, err
		}
		if attempt == orderAttempts {
			break
		}
		backoff := retryBackoff << (attempt - 1)
		metrics.OrderRetries.Inc()
		b.logger.Warn("order placement retry",
			zap.String("order_id", order.ID),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		if err := b.sleep(ctx, backoff); err != nil {
			return exchange.Fill{}, lastErr
		}
	}
	return exchange.Fill{}, lastErr
}

func (b *Bot) reject(order *model.Order, reason string) {
	order.Reason = reason
	// Transition from PENDING or SUBMITTED both end in REJECTED.
	_ = order.Transition(model.OrderRejected, b.now())
	metrics.OrdersTotal.WithLabelValues(string(model.OrderRejected)).Inc()
}

func (b *Bot) saveSession() error {
	state := store.SessionState{
		Cash:        b.tracker.Cash(),
		RealizedPnL: b.tracker.RealizedPnL(),
		Counters:    b.riskState.Counters,
		Breaker:     b.riskState.Breaker,
	}
	if err := b.store.SaveSession(state); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (b *Bot) publishMetrics(snap model.BalanceSnapshot) {
	metrics.PortfolioValue.Set(snap.TotalValue)
	metrics.CashBalance.Set(snap.CashBalance)
	metrics.OpenPositions.Set(float64(snap.NumPositions))
	metrics.Drawdown.Set(risk.Drawdown(b.riskState, snap.TotalValue))
	if b.riskState.Breaker.Tripped {
		metrics.BreakerTripped.Set(1)
	} else {
		metrics.BreakerTripped.Set(0)
	}
}

func (b *Bot) report(ctx context.Context, r notifier.Report) {
	text := notifier.FormatReport(r)
	fmt.Fprintln(b.out, text)
	if err := b.telegram.SendWithRetry(ctx, text, telegramRetries); err != nil {
		b.logger.Warn("report not delivered to telegram", zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
