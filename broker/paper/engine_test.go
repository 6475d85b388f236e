package paper

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ouro/broker"
	"github.com/rustyeddy/ouro/journal"
	"github.com/rustyeddy/ouro/market"
)

var t0 = time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, cash float64) (*Engine, *journal.Memory) {
	t.Helper()
	j := &journal.Memory{}
	return NewEngine(broker.Account{BuyingPower: cash, Multiplier: 1}, j), j
}

func intent(ticker string, qty int64, limit, stop, take float64) broker.OrderIntent {
	return broker.OrderIntent{
		ClientOrderID: ticker + "-1",
		Ticker:        ticker,
		Side:          broker.Buy,
		Qty:           qty,
		LimitPrice:    decimal.NewFromFloat(limit),
		StopPrice:     decimal.NewFromFloat(stop),
		TakeProfit:    decimal.NewFromFloat(take),
		TimeInForce:   broker.Day,
		CreatedAt:     t0,
	}
}

func bar(ticker string, at time.Time, o, h, l, c float64) market.Bar {
	return market.Bar{Ticker: ticker, Time: at, Open: o, High: h, Low: l, Close: c, Volume: 100}
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestEngineBracketTakeProfit(t *testing.T) {
	ctx := context.Background()
	e, j := newEngine(t, 30000)

	ack, err := e.SubmitOrder(ctx, intent("IBM", 60, 50.10, 48.75, 51.95))
	require.NoError(t, err)
	assert.Equal(t, "IBM-1", ack.ClientOrderID)
	assert.Len(t, e.PendingOrders(), 1)

	acct, err := e.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, acct.OpenOrders)
	if !approxEqual(acct.BuyingPower, 30000-60*50.10, 1e-6) {
		t.Fatalf("buying power: got %.6f", acct.BuyingPower)
	}

	// entry fills at the open below the limit
	require.NoError(t, e.UpdateBar(bar("IBM", t0.Add(time.Minute), 50.0, 50.3, 49.9, 50.2)))
	assert.Empty(t, e.PendingOrders())
	open := e.OpenTrades()
	require.Len(t, open, 1)
	assert.Equal(t, 50.0, open[0].EntryPrice)

	require.NoError(t, e.UpdateBar(bar("IBM", t0.Add(2*time.Minute), 51.0, 52.0, 50.9, 51.9)))
	assert.Empty(t, e.OpenTrades())
	require.Len(t, j.Trades, 1)
	assert.Equal(t, "TakeProfit", j.Trades[0].Reason)
	if !approxEqual(j.Trades[0].RealizedPL, 60*1.95, 1e-6) {
		t.Fatalf("realized: got %.6f", j.Trades[0].RealizedPL)
	}

	acct, err = e.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, acct.OpenOrders)
	if !approxEqual(acct.Cash, 30000+60*1.95, 1e-6) {
		t.Fatalf("cash: got %.6f", acct.Cash)
	}

	fills, err := e.Fills(ctx, t0)
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, broker.Buy, fills[0].Side)
	assert.Equal(t, broker.Sell, fills[1].Side)
}

func TestEngineStopWinsInsideOneBar(t *testing.T) {
	ctx := context.Background()
	e, j := newEngine(t, 30000)

	require.NoError(t, e.UpdateBar(bar("IBM", t0, 50, 50.2, 49.8, 50)))
	_, err := e.SubmitOrder(ctx, intent("IBM", 10, 50.10, 48.75, 51.95))
	require.NoError(t, err)
	// marketable on submission against the last close
	require.Len(t, e.OpenTrades(), 1)

	require.NoError(t, e.UpdateBar(bar("IBM", t0.Add(time.Minute), 50, 52, 48, 49)))
	require.Len(t, j.Trades, 1)
	assert.Equal(t, "StopLoss", j.Trades[0].Reason)
	assert.Equal(t, 48.75, j.Trades[0].ExitPrice)
}

func TestEngineRejects(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		in     broker.OrderIntent
		reject func(broker.OrderIntent) error
	}{
		{"zero qty", intent("IBM", 0, 50.1, 48.75, 51.95), nil},
		{"bracket out of order", intent("IBM", 1, 50.1, 51, 51.95), nil},
		{"insufficient buying power", intent("IBM", 1000, 50.1, 48.75, 51.95), nil},
		{"hook", intent("IBM", 1, 50.1, 48.75, 51.95), func(broker.OrderIntent) error { return errors.New("halted") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(t, 30000)
			e.Reject = tt.reject
			_, err := e.SubmitOrder(ctx, tt.in)
			assert.ErrorIs(t, err, broker.ErrOrderRejected)
			assert.Empty(t, e.PendingOrders())
		})
	}
}

func TestEngineCancelAndClose(t *testing.T) {
	ctx := context.Background()
	e, j := newEngine(t, 30000)

	require.NoError(t, e.UpdateBar(bar("IBM", t0, 50, 50.2, 49.8, 50)))
	_, err := e.SubmitOrder(ctx, intent("IBM", 10, 50.10, 48.75, 51.95))
	require.NoError(t, err)
	_, err = e.SubmitOrder(ctx, intent("VZ", 10, 40, 39, 41))
	require.NoError(t, err)

	acct, err := e.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, acct.OpenOrders)

	require.NoError(t, e.CancelAllOrders(ctx))
	assert.Empty(t, e.PendingOrders())
	require.Len(t, e.OpenTrades(), 1)

	require.NoError(t, e.UpdateBar(bar("IBM", t0.Add(time.Minute), 50, 50.5, 49.9, 50.4)))
	require.NoError(t, e.CloseAllPositions(ctx))
	assert.Empty(t, e.OpenTrades())
	require.Len(t, j.Trades, 1)
	assert.Equal(t, "Liquidation", j.Trades[0].Reason)
	assert.Equal(t, 50.4, j.Trades[0].ExitPrice)

	acct, err = e.GetAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, acct.OpenOrders)
}

func TestEngineFailAccount(t *testing.T) {
	e, _ := newEngine(t, 1000)
	e.FailAccount = errors.New("503")
	_, err := e.GetAccount(context.Background())
	assert.Error(t, err)
}
