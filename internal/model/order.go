package model

import (
	"fmt"
	"time"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderState tracks the lifecycle of an order.
type OrderState string

const (
	OrderPending   OrderState = "PENDING"
	OrderSubmitted OrderState = "SUBMITTED"
	OrderFilled    OrderState = "FILLED"
	OrderRejected  OrderState = "REJECTED"
	OrderCancelled OrderState = "CANCELLED"
)

// Terminal reports whether no further transitions are allowed from s.
func (s OrderState) Terminal() bool {
	switch s {
	case OrderFilled, OrderRejected, OrderCancelled:
		return true
	default:
		return false
	}
}

// OrderIntent distinguishes why an order was generated; stop-loss exits
// bypass the circuit breaker's new-entry restriction.
type OrderIntent string

const (
	IntentRebalance OrderIntent = "REBALANCE"
	IntentStopLoss  OrderIntent = "STOP_LOSS"
	IntentLiquidate OrderIntent = "LIQUIDATE"
)

// Order is one proposed or executed trade. The ID is assigned before
// submission and reused across transport retries so the exchange can
// de-duplicate.
type Order struct {
	ID        string
	Symbol    string
	Side      Side
	Intent    OrderIntent
	Quantity  float64
	Price     float64 // reference price at creation
	State     OrderState
	Reason    string // rejection or cancellation cause
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Notional returns the order value at its reference price.
func (o *Order) Notional() float64 {
	return o.Quantity * o.Price
}

// Transition moves the order to a new state, enforcing
// PENDING -> SUBMITTED -> {FILLED, REJECTED, CANCELLED}.
func (o *Order) Transition(to OrderState, now time.Time) error {
	if o.State.Terminal() {
		return fmt.Errorf("order %s: invalid transition %s -> %s", o.ID, o.State, to)
	}
	switch {
	case o.State == OrderPending && to == OrderSubmitted:
	case o.State == OrderPending && to == OrderRejected:
		// risk rejection before submission
	case o.State == OrderSubmitted && to.Terminal():
	default:
		return fmt.Errorf("order %s: invalid transition %s -> %s", o.ID, o.State, to)
	}
	o.State = to
	o.UpdatedAt = now
	return nil
}

// Trade is the append-only record of one completed fill. Once written to the
// store it is never modified or deleted.
type Trade struct {
	OrderID   string
	Symbol    string
	Side      Side
	Quantity  float64
	Price     float64
	Value     float64
	Fee       float64
	Timestamp time.Time
}
