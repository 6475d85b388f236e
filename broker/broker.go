package broker

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrOrderRejected is returned when the broker declines an order.
var ErrOrderRejected = errors.New("order rejected")

// Broker is the account and order-submission collaborator.
type Broker interface {
	GetAccount(ctx context.Context) (Account, error)
	SubmitOrder(ctx context.Context, o OrderIntent) (OrderAck, error)
	CancelAllOrders(ctx context.Context) error
	CloseAllPositions(ctx context.Context) error
}

// Account is a snapshot of buying power and open exposure.
type Account struct {
	ID          string
	BuyingPower float64
	Cash        float64
	Multiplier  float64
	OpenOrders  int // open orders plus open positions
}

// UsableCash is buying power net of margin, less a reserve that must
// always stay in the account. It never goes negative.
func (a Account) UsableCash(reserve float64) float64 {
	m := a.Multiplier
	if m <= 0 {
		m = 1
	}
	cash := a.BuyingPower/m - reserve
	if cash < 0 {
		return 0
	}
	return cash
}

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

type TimeInForce string

const (
	Day TimeInForce = "day"
	GTC TimeInForce = "gtc"
)

// OrderIntent is a limit buy with stop-loss and take-profit legs. Prices
// are rounded to the cent.
type OrderIntent struct {
	ClientOrderID string          `json:"client_order_id"`
	Ticker        string          `json:"ticker"`
	Side          Side            `json:"side"`
	Qty           int64           `json:"qty"`
	LimitPrice    decimal.Decimal `json:"limit_price"`
	StopPrice     decimal.Decimal `json:"stop_price"`
	TakeProfit    decimal.Decimal `json:"take_profit"`
	TimeInForce   TimeInForce     `json:"time_in_force"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderAck is the broker's acceptance of an order.
type OrderAck struct {
	OrderID       string
	ClientOrderID string
	Status        string
	SubmittedAt   time.Time
}

// Fill is an executed order, as reported after the fact.
type Fill struct {
	OrderID  string
	Ticker   string
	Side     Side
	Qty      int64
	Price    float64 // average fill price
	FilledAt time.Time
}

// FillHistory is implemented by brokers that can list executed orders.
type FillHistory interface {
	Fills(ctx context.Context, since time.Time) ([]Fill, error)
}
