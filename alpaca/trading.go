package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/ouro/broker"
)

type accountResponse struct {
	ID          string          `json:"id"`
	Cash        decimal.Decimal `json:"cash"`
	BuyingPower decimal.Decimal `json:"buying_power"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	Status      string          `json:"status"`
}

type orderResponse struct {
	ID             string          `json:"id"`
	ClientOrderID  string          `json:"client_order_id"`
	Symbol         string          `json:"symbol"`
	Side           string          `json:"side"`
	Status         string          `json:"status"`
	SubmittedAt    time.Time       `json:"submitted_at"`
	FilledAt       *time.Time      `json:"filled_at"`
	FilledQty      decimal.Decimal `json:"filled_qty"`
	FilledAvgPrice decimal.Decimal `json:"filled_avg_price"`
	Legs           []orderResponse `json:"legs"`
}

type positionResponse struct {
	Symbol string `json:"symbol"`
}

type priceLeg struct {
	LimitPrice string `json:"limit_price,omitempty"`
	StopPrice  string `json:"stop_price,omitempty"`
}

type orderRequest struct {
	Symbol        string    `json:"symbol"`
	Qty           string    `json:"qty"`
	Side          string    `json:"side"`
	Type          string    `json:"type"`
	TimeInForce   string    `json:"time_in_force"`
	LimitPrice    string    `json:"limit_price"`
	OrderClass    string    `json:"order_class"`
	TakeProfit    *priceLeg `json:"take_profit"`
	StopLoss      *priceLeg `json:"stop_loss"`
	ClientOrderID string    `json:"client_order_id,omitempty"`
}

// GetAccount returns buying power and the number of symbols with an open
// entry order or a position. A bracket counts once, whatever state its
// legs are in.
func (c *Client) GetAccount(ctx context.Context) (broker.Account, error) {
	var a accountResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetResult(&a).
		SetError(&APIError{}).
		Get("/v2/account")
	if err := check(resp, err); err != nil {
		return broker.Account{}, fmt.Errorf("get account: %w", err)
	}

	var orders []orderResponse
	resp, err = c.api.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"status": "open", "nested": "true", "limit": "500"}).
		SetResult(&orders).
		SetError(&APIError{}).
		Get("/v2/orders")
	if err := check(resp, err); err != nil {
		return broker.Account{}, fmt.Errorf("list open orders: %w", err)
	}

	var positions []positionResponse
	resp, err = c.api.R().
		SetContext(ctx).
		SetResult(&positions).
		SetError(&APIError{}).
		Get("/v2/positions")
	if err := check(resp, err); err != nil {
		return broker.Account{}, fmt.Errorf("list positions: %w", err)
	}

	return broker.Account{
		ID:          a.ID,
		BuyingPower: a.BuyingPower.InexactFloat64(),
		Cash:        a.Cash.InexactFloat64(),
		Multiplier:  a.Multiplier.InexactFloat64(),
		OpenOrders:  openSymbols(orders, positions),
	}, nil
}

func openSymbols(orders []orderResponse, positions []positionResponse) int {
	seen := make(map[string]bool)
	for _, o := range orders {
		seen[strings.ToUpper(o.Symbol)] = true
	}
	for _, p := range positions {
		seen[strings.ToUpper(p.Symbol)] = true
	}
	return len(seen)
}

// SubmitOrder places a bracket order. A 4xx answer other than 429 is
// returned wrapped in broker.ErrOrderRejected.
func (c *Client) SubmitOrder(ctx context.Context, in broker.OrderIntent) (broker.OrderAck, error) {
	req := orderRequest{
		Symbol:        strings.ToUpper(in.Ticker),
		Qty:           fmt.Sprint(in.Qty),
		Side:          string(in.Side),
		Type:          "limit",
		TimeInForce:   string(in.TimeInForce),
		LimitPrice:    in.LimitPrice.StringFixed(2),
		OrderClass:    "bracket",
		TakeProfit:    &priceLeg{LimitPrice: in.TakeProfit.StringFixed(2)},
		StopLoss:      &priceLeg{StopPrice: in.StopPrice.StringFixed(2)},
		ClientOrderID: in.ClientOrderID,
	}
	if req.TimeInForce == "" {
		req.TimeInForce = string(broker.Day)
	}

	var o orderResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&o).
		SetError(&APIError{}).
		Post("/v2/orders")
	if err := check(resp, err); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests {
			return broker.OrderAck{}, fmt.Errorf("%w: %s: %v", broker.ErrOrderRejected, in.Ticker, err)
		}
		return broker.OrderAck{}, fmt.Errorf("submit order %s: %w", in.Ticker, err)
	}

	c.log.Info().
		Str("ticker", req.Symbol).
		Str("order_id", o.ID).
		Str("client_order_id", o.ClientOrderID).
		Str("status", o.Status).
		Msg("order accepted")

	return broker.OrderAck{
		OrderID:       o.ID,
		ClientOrderID: o.ClientOrderID,
		Status:        o.Status,
		SubmittedAt:   o.SubmittedAt,
	}, nil
}

// CancelAllOrders cancels every open order.
func (c *Client) CancelAllOrders(ctx context.Context) error {
	resp, err := c.api.R().
		SetContext(ctx).
		SetError(&APIError{}).
		Delete("/v2/orders")
	if err := check(resp, err); err != nil {
		return fmt.Errorf("cancel all orders: %w", err)
	}
	return nil
}

// CloseAllPositions liquidates every position, cancelling their open legs.
func (c *Client) CloseAllPositions(ctx context.Context) error {
	resp, err := c.api.R().
		SetContext(ctx).
		SetQueryParam("cancel_orders", "true").
		SetError(&APIError{}).
		Delete("/v2/positions")
	if err := check(resp, err); err != nil {
		return fmt.Errorf("close all positions: %w", err)
	}
	return nil
}

// Fills lists executions since the given time, including the filled legs
// of bracket orders, oldest first.
func (c *Client) Fills(ctx context.Context, since time.Time) ([]broker.Fill, error) {
	var orders []orderResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"status":    "closed",
			"after":     since.UTC().Format(time.RFC3339),
			"direction": "asc",
			"nested":    "true",
			"limit":     "500",
		}).
		SetResult(&orders).
		SetError(&APIError{}).
		Get("/v2/orders")
	if err := check(resp, err); err != nil {
		return nil, fmt.Errorf("list closed orders: %w", err)
	}

	var out []broker.Fill
	var walk func([]orderResponse)
	walk = func(os []orderResponse) {
		for _, o := range os {
			if f, ok := o.fill(); ok && !f.FilledAt.Before(since) {
				out = append(out, f)
			}
			walk(o.Legs)
		}
	}
	walk(orders)

	sort.SliceStable(out, func(i, j int) bool { return out[i].FilledAt.Before(out[j].FilledAt) })
	return out, nil
}

func (o orderResponse) fill() (broker.Fill, bool) {
	if o.FilledAt == nil || !o.FilledQty.IsPositive() {
		return broker.Fill{}, false
	}
	return broker.Fill{
		OrderID:  o.ID,
		Ticker:   o.Symbol,
		Side:     broker.Side(o.Side),
		Qty:      o.FilledQty.IntPart(),
		Price:    o.FilledAvgPrice.InexactFloat64(),
		FilledAt: *o.FilledAt,
	}, true
}
