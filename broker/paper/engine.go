// Package paper is an in-memory broker that fills bracket orders against
// bars. It backs dry runs and tests.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/ouro/broker"
	"github.com/rustyeddy/ouro/journal"
	"github.com/rustyeddy/ouro/market"
	"github.com/rustyeddy/ouro/pkg/id"
)

type Engine struct {
	mu      sync.Mutex
	acct    broker.Account
	last    map[string]market.Bar
	orders  map[string]*order
	trades  map[string]*Trade
	fills   []broker.Fill
	journal journal.TradeRecorder

	// Reject, when set, is consulted before accepting an order. A non-nil
	// error rejects it.
	Reject func(broker.OrderIntent) error
	// FailAccount, when set, makes GetAccount fail.
	FailAccount error
}

// NewEngine starts with acct's cash. BuyingPower is derived from Cash and
// Multiplier from then on. j may be nil.
func NewEngine(acct broker.Account, j journal.TradeRecorder) *Engine {
	if acct.Multiplier <= 0 {
		acct.Multiplier = 1
	}
	if acct.Cash == 0 && acct.BuyingPower > 0 {
		acct.Cash = acct.BuyingPower / acct.Multiplier
	}
	if acct.ID == "" {
		acct.ID = "paper"
	}
	return &Engine{
		acct:    acct,
		last:    make(map[string]market.Bar),
		orders:  make(map[string]*order),
		trades:  make(map[string]*Trade),
		journal: j,
	}
}

func (e *Engine) GetAccount(ctx context.Context) (broker.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.FailAccount != nil {
		return broker.Account{}, e.FailAccount
	}
	a := e.acct
	a.BuyingPower = e.buyingPowerLocked()
	a.OpenOrders = len(e.orders) + e.openTradesLocked()
	return a, nil
}

func (e *Engine) buyingPowerLocked() float64 {
	reserved := 0.0
	for _, o := range e.orders {
		reserved += o.limit * float64(o.Intent.Qty)
	}
	return (e.acct.Cash - reserved) * e.acct.Multiplier
}

func (e *Engine) openTradesLocked() int {
	n := 0
	for _, t := range e.trades {
		if t.Open {
			n++
		}
	}
	return n
}

func (e *Engine) SubmitOrder(ctx context.Context, in broker.OrderIntent) (broker.OrderAck, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.Reject != nil {
		if err := e.Reject(in); err != nil {
			return broker.OrderAck{}, fmt.Errorf("%w: %v", broker.ErrOrderRejected, err)
		}
	}

	o := &order{
		Intent: in,
		limit:  in.LimitPrice.InexactFloat64(),
		stop:   in.StopPrice.InexactFloat64(),
		take:   in.TakeProfit.InexactFloat64(),
	}
	switch {
	case in.Side != broker.Buy:
		return broker.OrderAck{}, fmt.Errorf("%w: only buy brackets are supported", broker.ErrOrderRejected)
	case in.Qty <= 0:
		return broker.OrderAck{}, fmt.Errorf("%w: qty %d", broker.ErrOrderRejected, in.Qty)
	case !(o.stop < o.limit && o.limit < o.take):
		return broker.OrderAck{}, fmt.Errorf("%w: bracket %v/%v/%v out of order", broker.ErrOrderRejected, in.StopPrice, in.LimitPrice, in.TakeProfit)
	case o.limit*float64(in.Qty) > e.buyingPowerLocked():
		return broker.OrderAck{}, fmt.Errorf("%w: insufficient buying power", broker.ErrOrderRejected)
	}

	at := in.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	o.ID = id.NewAt(at)
	e.orders[o.ID] = o

	// marketable against the last bar seen
	if b, ok := e.last[in.Ticker]; ok && b.Close <= o.limit {
		e.fillLocked(o, b.Close, b.Time)
	}

	return broker.OrderAck{
		OrderID:       o.ID,
		ClientOrderID: in.ClientOrderID,
		Status:        "accepted",
		SubmittedAt:   at,
	}, nil
}

func (e *Engine) fillLocked(o *order, price float64, at time.Time) {
	delete(e.orders, o.ID)
	qty := o.Intent.Qty
	e.acct.Cash -= price * float64(qty)
	e.trades[o.ID] = &Trade{
		ID:         o.ID,
		Ticker:     o.Intent.Ticker,
		Qty:        qty,
		EntryPrice: price,
		StopLoss:   o.stop,
		TakeProfit: o.take,
		OpenTime:   at,
		Open:       true,
	}
	e.fills = append(e.fills, broker.Fill{
		OrderID: o.ID, Ticker: o.Intent.Ticker, Side: broker.Buy,
		Qty: qty, Price: price, FilledAt: at,
	})
}

func (e *Engine) closeTradeLocked(t *Trade, price float64, at time.Time, reason string) error {
	t.Open = false
	t.ClosePrice = price
	t.CloseTime = at
	t.RealizedPL = (price - t.EntryPrice) * float64(t.Qty)
	e.acct.Cash += price * float64(t.Qty)
	e.fills = append(e.fills, broker.Fill{
		OrderID: t.ID + "-exit", Ticker: t.Ticker, Side: broker.Sell,
		Qty: t.Qty, Price: price, FilledAt: at,
	})
	if e.journal == nil {
		return nil
	}
	return e.journal.RecordTrade(journal.TradeRecord{
		TradeID:    t.ID,
		Ticker:     t.Ticker,
		Qty:        t.Qty,
		EntryPrice: t.EntryPrice,
		ExitPrice:  price,
		OpenTime:   t.OpenTime,
		CloseTime:  at,
		RealizedPL: t.RealizedPL,
		Reason:     reason,
	})
}

// UpdateBar advances the market for one ticker: pending entries fill, then
// open brackets are checked against the bar.
func (e *Engine) UpdateBar(b market.Bar) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.last[b.Ticker] = b

	for _, o := range e.sortedOrdersLocked() {
		if o.Intent.Ticker != b.Ticker {
			continue
		}
		if price, ok := o.entryFill(b); ok {
			e.fillLocked(o, price, b.Time)
		}
	}

	var errs []error
	for _, t := range e.sortedTradesLocked() {
		if t.Ticker != b.Ticker {
			continue
		}
		if price, reason, hit := t.checkExit(b); hit {
			errs = append(errs, e.closeTradeLocked(t, price, b.Time, reason))
		}
	}
	return errors.Join(errs...)
}

// CancelAllOrders drops every unfilled entry.
func (e *Engine) CancelAllOrders(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orders = make(map[string]*order)
	return nil
}

// CloseAllPositions liquidates open trades at each ticker's last close.
func (e *Engine) CloseAllPositions(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, t := range e.sortedTradesLocked() {
		b, ok := e.last[t.Ticker]
		if !ok {
			errs = append(errs, fmt.Errorf("close all: no price for %q", t.Ticker))
			continue
		}
		errs = append(errs, e.closeTradeLocked(t, b.Close, b.Time, "Liquidation"))
	}
	return errors.Join(errs...)
}

// Fills lists executions at or after since.
func (e *Engine) Fills(ctx context.Context, since time.Time) ([]broker.Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []broker.Fill
	for _, f := range e.fills {
		if !f.FilledAt.Before(since) {
			out = append(out, f)
		}
	}
	return out, nil
}

// PendingOrders returns unfilled entries, oldest first.
func (e *Engine) PendingOrders() []broker.OrderIntent {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []broker.OrderIntent
	for _, o := range e.sortedOrdersLocked() {
		out = append(out, o.Intent)
	}
	return out
}

// OpenTrades returns copies of the open trades, oldest first.
func (e *Engine) OpenTrades() []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Trade
	for _, t := range e.sortedTradesLocked() {
		out = append(out, *t)
	}
	return out
}

func (e *Engine) sortedOrdersLocked() []*order {
	out := make([]*order, 0, len(e.orders))
	for _, o := range e.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// sortedTradesLocked returns open trades only.
func (e *Engine) sortedTradesLocked() []*Trade {
	out := make([]*Trade, 0, len(e.trades))
	for _, t := range e.trades {
		if t.Open {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
