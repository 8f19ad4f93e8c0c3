package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CryptoPilot/internal/model"
)

func TestPaper_FillsAtLastPrice(t *testing.T) {
	p := NewPaper()
	p.SetPrices(map[string]float64{"BTC": 50000})

	fill, err := p.PlaceOrder(context.Background(), model.Order{
		ID: "o1", Symbol: "BTC", Side: model.SideBuy, Quantity: 0.01,
	})
	require.NoError(t, err)
	assert.Equal(t, "o1", fill.OrderID)
	assert.Equal(t, 50000.0, fill.Price)
	assert.Equal(t, 0.01, fill.Quantity)
	assert.InDelta(t, 0.01*50000*0.002, fill.Fee, 1e-9)
}

func TestPaper_RejectsUnquotedSymbol(t *testing.T) {
	p := NewPaper()
	_, err := p.PlaceOrder(context.Background(), model.Order{
		ID: "o1", Symbol: "DOGE", Side: model.SideBuy, Quantity: 1,
	})
	var reject *RejectError
	require.ErrorAs(t, err, &reject)
	assert.Contains(t, reject.Reason, "no quote")
	assert.False(t, IsTransport(err))
}

func TestPaper_RejectsNonPositiveQuantity(t *testing.T) {
	p := NewPaper()
	p.SetPrices(map[string]float64{"BTC": 50000})
	_, err := p.PlaceOrder(context.Background(), model.Order{
		ID: "o1", Symbol: "BTC", Side: model.SideSell, Quantity: 0,
	})
	var reject *RejectError
	assert.ErrorAs(t, err, &reject)
}

func TestPaper_SetPricesMerges(t *testing.T) {
	p := NewPaper()
	p.SetPrices(map[string]float64{"BTC": 50000})
	p.SetPrices(map[string]float64{"ETH": 3000})

	_, err := p.PlaceOrder(context.Background(), model.Order{
		ID: "o1", Symbol: "BTC", Side: model.SideBuy, Quantity: 0.01,
	})
	assert.NoError(t, err)
	_, err = p.PlaceOrder(context.Background(), model.Order{
		ID: "o2", Symbol: "ETH", Side: model.SideBuy, Quantity: 0.5,
	})
	assert.NoError(t, err)
}

func TestPaper_TickerReflectsLastPrice(t *testing.T) {
	p := NewPaper()
	p.SetPrices(map[string]float64{"BTC": 50000})

	price, err := p.GetTicker(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, price)

	_, err = p.GetTicker(context.Background(), "DOGE")
	assert.Error(t, err)
}

func TestPaper_BalancesTrackFills(t *testing.T) {
	p := NewPaper()
	p.SetPrices(map[string]float64{"BTC": 50000})

	_, err := p.PlaceOrder(context.Background(), model.Order{
		ID: "o1", Symbol: "BTC", Side: model.SideBuy, Quantity: 0.03,
	})
	require.NoError(t, err)
	_, err = p.PlaceOrder(context.Background(), model.Order{
		ID: "o2", Symbol: "BTC", Side: model.SideSell, Quantity: 0.01,
	})
	require.NoError(t, err)

	balances, err := p.GetBalances(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.02, balances["BTC"], 1e-9)

	_, err = p.PlaceOrder(context.Background(), model.Order{
		ID: "o3", Symbol: "BTC", Side: model.SideSell, Quantity: 0.02,
	})
	require.NoError(t, err)
	balances, err = p.GetBalances(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, balances, "BTC")
}

func TestPaper_CancelIsNoOp(t *testing.T) {
	assert.NoError(t, NewPaper().CancelOrder(context.Background(), "missing"))
}
