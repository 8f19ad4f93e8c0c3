package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var when = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func pendingOrder() Order {
	return Order{ID: "o1", Symbol: "BTC", Side: SideBuy, Quantity: 0.5, Price: 100, State: OrderPending}
}

func TestTransition_HappyPath(t *testing.T) {
	o := pendingOrder()
	require.NoError(t, o.Transition(OrderSubmitted, when))
	assert.Equal(t, OrderSubmitted, o.State)
	require.NoError(t, o.Transition(OrderFilled, when.Add(time.Second)))
	assert.Equal(t, OrderFilled, o.State)
	assert.Equal(t, when.Add(time.Second), o.UpdatedAt)
}

func TestTransition_RiskRejectionFromPending(t *testing.T) {
	o := pendingOrder()
	require.NoError(t, o.Transition(OrderRejected, when))
	assert.Equal(t, OrderRejected, o.State)
}

func TestTransition_TerminalStatesAreFinal(t *testing.T) {
	for _, terminal := range []OrderState{OrderFilled, OrderRejected, OrderCancelled} {
		o := pendingOrder()
		require.NoError(t, o.Transition(OrderSubmitted, when))
		require.NoError(t, o.Transition(terminal, when))
		assert.Error(t, o.Transition(OrderSubmitted, when), "from %s", terminal)
		assert.Error(t, o.Transition(OrderFilled, when), "from %s", terminal)
	}
}

func TestTransition_InvalidJumps(t *testing.T) {
	o := pendingOrder()
	assert.Error(t, o.Transition(OrderFilled, when), "PENDING cannot fill directly")
	assert.Error(t, o.Transition(OrderCancelled, when), "PENDING cannot cancel directly")

	o2 := pendingOrder()
	require.NoError(t, o2.Transition(OrderSubmitted, when))
	assert.Error(t, o2.Transition(OrderPending, when), "no going back")
}

func TestNotional(t *testing.T) {
	o := pendingOrder()
	assert.Equal(t, 50.0, o.Notional())
}

func TestTerminal(t *testing.T) {
	assert.False(t, OrderPending.Terminal())
	assert.False(t, OrderSubmitted.Terminal())
	assert.True(t, OrderFilled.Terminal())
	assert.True(t, OrderRejected.Terminal())
	assert.True(t, OrderCancelled.Terminal())
}
