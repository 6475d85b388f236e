package risk

import (
	"math"
	"time"

	"github.com/rustyeddy/ouro/broker"
)

type Action string

const (
	Buy  Action = "buy"
	Skip Action = "skip"
)

// Decision is the audit record of one evaluation. Intermediate values are
// filled as far as the evaluation got before a skip.
type Decision struct {
	Time       time.Time `json:"datetime"`
	Ticker     string    `json:"ticker"`
	Family     string    `json:"strategyfamily"`
	Action     Action    `json:"decision"`
	Reason     Reason    `json:"reason,omitempty"`
	Price      float64   `json:"price"`
	Cash       float64   `json:"cash"`
	OpenOrders int       `json:"open_orders"`

	TradeCapital float64 `json:"trade_capital"`
	MaxRiskAmt   float64 `json:"max_risk_amt"`
	CeilingPrice float64 `json:"ceiling_price"`
	FloorPrice   float64 `json:"floor_price"`
	Shares       int64   `json:"order_shares"`
	TradeRisk    float64 `json:"trade_risk_amt"`
	RiskPct      float64 `json:"risk_pct"`
	BuyLimit     float64 `json:"buy_limit"`
	ReturnPct    float64 `json:"trade_return_pct"`
	Tightened    bool    `json:"tightened,omitempty"`

	Intent *broker.OrderIntent `json:"intent,omitempty"`
}

func (d *Decision) skip(r Reason) Decision {
	d.Action = Skip
	d.Reason = r
	d.Intent = nil
	return *d
}

// Downgrade turns an accepted decision into a skip, e.g. after the broker
// refuses the order. The intent is kept for the audit trail.
func (d Decision) Downgrade(r Reason) Decision {
	d.Action = Skip
	d.Reason = r
	return d
}

// Bought reports whether the decision placed an order.
func (d Decision) Bought() bool { return d.Action == Buy }

// Decide sizes a bracketed limit buy or explains why not.
func Decide(p Policy, in Inputs) Decision {
	d := Decision{
		Time:       in.Now,
		Ticker:     in.Ticker,
		Family:     in.Family,
		Price:      in.Price,
		Cash:       in.Cash,
		OpenOrders: in.OpenOrders,
	}

	if in.OpenOrders >= p.MaxPositions {
		return d.skip(ReasonTooManyPositions)
	}
	if !(in.Price > 0) || !(in.RecentHigh > 0) || !(in.RecentLow > 0) || math.IsNaN(in.AvgReturn) {
		return d.skip(ReasonNoPriceData)
	}

	d.TradeCapital = TradeCapital(in.Cash, in.OpenOrders, p.MaxPositions)
	d.MaxRiskAmt = in.Cash * p.MaxRiskRatio
	d.CeilingPrice = Ceiling(in.Price, in.AvgReturn, in.RecentHigh, p.ReachOffset)

	// A stop above the day's low has already been traded through.
	d.FloorPrice = in.Price * (1 - in.AvgReturn*p.StopRatio)
	if d.FloorPrice < in.RecentLow {
		return d.skip(ReasonStopBreached)
	}

	d.Shares = Shares(d.TradeCapital, in.Price)
	if d.Shares <= 0 {
		return d.skip(ReasonUnaffordable)
	}
	if PlannedRisk(in.Price, d.FloorPrice, d.Shares) > d.MaxRiskAmt {
		d.FloorPrice = in.Price - (d.CeilingPrice-in.Price)*p.TightStopRatio
		d.Tightened = true
	}

	d.TradeRisk = PlannedRisk(in.Price, d.FloorPrice, d.Shares)
	d.RiskPct = RiskPct(in.Price, d.FloorPrice)

	d.BuyLimit = in.Price + (d.CeilingPrice-in.Price)*p.EntryFraction

	// Shares are sized at the price but bought at the limit; the order
	// itself must fit in cash or the broker refuses it.
	if most := Shares(in.Cash, Cents(d.BuyLimit).InexactFloat64()); d.Shares > most {
		d.Shares = most
		if d.Shares <= 0 {
			return d.skip(ReasonUnaffordable)
		}
		d.TradeRisk = PlannedRisk(in.Price, d.FloorPrice, d.Shares)
	}
	d.ReturnPct = ReturnPct(d.BuyLimit, d.CeilingPrice)
	if d.ReturnPct-p.RewardEdge <= d.RiskPct {
		return d.skip(ReasonRiskOverReward)
	}

	tif := p.TimeInForce
	if tif == "" {
		tif = broker.Day
	}
	d.Action = Buy
	d.Intent = &broker.OrderIntent{
		Ticker:      in.Ticker,
		Side:        broker.Buy,
		Qty:         d.Shares,
		LimitPrice:  Cents(d.BuyLimit),
		StopPrice:   Cents(d.FloorPrice),
		TakeProfit:  Cents(d.CeilingPrice),
		TimeInForce: tif,
		CreatedAt:   in.Now,
	}
	return d
}
