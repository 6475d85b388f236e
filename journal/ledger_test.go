package journal

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ouro/broker"
	"github.com/rustyeddy/ouro/risk"
)

func TestReconcile(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	fills := []broker.Fill{
		{OrderID: "s1", Ticker: "IBM", Side: broker.Sell, Qty: 60, Price: 51.95, FilledAt: day.Add(3 * time.Hour)},
		{OrderID: "b1", Ticker: "IBM", Side: broker.Buy, Qty: 40, Price: 50, FilledAt: day},
		{OrderID: "b2", Ticker: "IBM", Side: broker.Buy, Qty: 20, Price: 50.3, FilledAt: day.Add(time.Minute)},
		{OrderID: "b3", Ticker: "VZ", Side: broker.Buy, Qty: 10, Price: 40, FilledAt: day},
		{OrderID: "x", Ticker: "VZ", Side: broker.Buy, Qty: 0, Price: 40, FilledAt: day},
	}

	got := Reconcile(fills)
	require.Len(t, got, 2)

	ibm := got[0]
	assert.Equal(t, "IBM", ibm.Ticker)
	assert.Equal(t, "2024-03-04", ibm.TradeDate)
	assert.Equal(t, "b1", ibm.BuyID)
	assert.Equal(t, int64(60), ibm.BuyQty)
	assert.InDelta(t, 3006.0, ibm.GrossCost, 1e-9)
	assert.InDelta(t, 50.1, ibm.BuyPrice, 1e-9)
	assert.Equal(t, "s1", ibm.SellID)
	assert.InDelta(t, 3117.0, ibm.GrossProceeds, 1e-9)
	assert.True(t, ibm.Closed())
	assert.InDelta(t, 111.0, ibm.GainLoss, 1e-9)

	vz := got[1]
	assert.Equal(t, int64(10), vz.BuyQty)
	assert.False(t, vz.Closed())
}

func TestReconcilePartialExitStaysOpen(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	got := Reconcile([]broker.Fill{
		{OrderID: "b1", Ticker: "IBM", Side: broker.Buy, Qty: 60, Price: 50, FilledAt: day},
		{OrderID: "s1", Ticker: "IBM", Side: broker.Sell, Qty: 30, Price: 51, FilledAt: day.Add(time.Hour)},
	})
	require.Len(t, got, 1)
	assert.Equal(t, int64(30), got[0].SellQty)
	assert.InDelta(t, 51.0, got[0].SellPrice, 1e-9)
	assert.False(t, got[0].Closed())
	assert.True(t, math.IsNaN(got[0].GainLoss))
}

func TestLedgerUpsertAndList(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	last, err := j.LastLedgerDate()
	require.NoError(t, err)
	assert.Equal(t, "", last)

	day := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	entries := Reconcile([]broker.Fill{
		{OrderID: "b1", Ticker: "IBM", Side: broker.Buy, Qty: 10, Price: 50, FilledAt: day},
	})
	require.NoError(t, j.UpsertLedger(entries))

	// the sell arrives on a later run
	entries = Reconcile([]broker.Fill{
		{OrderID: "b1", Ticker: "IBM", Side: broker.Buy, Qty: 10, Price: 50, FilledAt: day},
		{OrderID: "s1", Ticker: "IBM", Side: broker.Sell, Qty: 10, Price: 49, FilledAt: day.Add(time.Hour)},
	})
	require.NoError(t, j.UpsertLedger(entries))

	got, err := j.ListLedger("2024-03-01", "2024-03-31")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, -10.0, got[0].GainLoss, 1e-9)
	assert.Equal(t, "s1", got[0].SellID)
	assert.True(t, got[0].BuyTime.Equal(day))

	last, err = j.LastLedgerDate()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", last)
}

func TestSessionReport(t *testing.T) {
	t.Parallel()

	buy := ActionRecord{ID: "01HXAAAAAAAAAA", Decision: sampleDecision("IBM"), Signals: 16}
	skip := ActionRecord{ID: "b", Decision: sampleDecision("VZ").Downgrade(risk.ReasonOrderFailed)}
	trades := []TradeRecord{
		{TradeID: "T1", Ticker: "IBM", Qty: 60, EntryPrice: 50.1, ExitPrice: 51.95, RealizedPL: 111, Reason: "TakeProfit"},
		{TradeID: "T2", Ticker: "F", Qty: 10, EntryPrice: 10, ExitPrice: 9.6, RealizedPL: -4, Reason: "StopLoss"},
	}

	r := NewSessionReport("2024-03-04", []ActionRecord{buy, skip}, trades)
	assert.Equal(t, 1, r.Buys)
	assert.Equal(t, 1, r.Skips)
	assert.Equal(t, []ReasonCount{{risk.ReasonOrderFailed, 1}}, r.Reasons)
	assert.Equal(t, 1, r.Wins)
	assert.Equal(t, 1, r.Losses)
	assert.InDelta(t, 107.0, r.NetPL, 1e-9)

	var b bytes.Buffer
	require.NoError(t, r.WriteOrg(&b))
	out := b.String()
	assert.Contains(t, out, "* SESSION: 2024-03-04")
	assert.Contains(t, out, ":NET_PL:   107.00")
	assert.Contains(t, out, "| IBM | +MACD+RSI | buy |")
	assert.Contains(t, out, "| buy order failed | 1 |")
	assert.Contains(t, out, "T1 IBM 60 @ 50.10 -> 51.95 (TakeProfit): *111.00*")

	org := FormatActionOrg(buy)
	assert.Contains(t, org, "** BUY IBM (01HXAAAA)")
	assert.Contains(t, org, ":SIGNALS: 16")
	assert.NotContains(t, org, ":REASON:")
}
