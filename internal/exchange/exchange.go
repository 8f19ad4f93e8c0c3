// Package exchange defines the order execution surface the trading loop
// talks to, with a paper implementation for simulation and a signed REST
// client for live trading.
package exchange

import (
	"context"
	"errors"
	"fmt"

	"CryptoPilot/internal/model"
)

// Fill is the exchange's acknowledgement of an executed order.
type Fill struct {
	OrderID  string
	Symbol   string
	Side     model.Side
	Quantity float64
	Price    float64
	Fee      float64
}

// Client places and cancels orders. Implementations must be safe to call
// from a single goroutine; the trading loop does not issue concurrent
// orders.
type Client interface {
	Name() string
	// GetTicker returns the last traded price for the symbol.
	GetTicker(ctx context.Context, symbol string) (float64, error)
	// GetBalances returns the venue-side holdings by symbol, used for
	// startup reconciliation against the persisted portfolio.
	GetBalances(ctx context.Context) (map[string]float64, error)
	// PlaceOrder executes the order and returns the fill. A TransportError
	// means the attempt may be retried with the same order ID; any other
	// error is a terminal rejection.
	PlaceOrder(ctx context.Context, order model.Order) (Fill, error)
	// CancelOrder cancels a previously submitted order.
	CancelOrder(ctx context.Context, orderID string) error
}

// TransportError marks a network-level failure where the order outcome is
// unknown; the caller may retry with the same client order ID.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("exchange transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a retryable transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// RejectError is a definitive refusal from the exchange; retrying the same
// order will not succeed.
type RejectError struct {
	OrderID string
	Reason  string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("order %s rejected: %s", e.OrderID, e.Reason)
}
