package paper

import (
	"time"

	"github.com/rustyeddy/ouro/broker"
	"github.com/rustyeddy/ouro/market"
)

// order is a submitted bracket order waiting for its entry to fill.
type order struct {
	ID     string
	Intent broker.OrderIntent
	limit  float64
	stop   float64
	take   float64
}

// Trade is a filled entry, open until a bracket leg or a liquidation
// closes it.
type Trade struct {
	ID         string
	Ticker     string
	Qty        int64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	OpenTime   time.Time

	ClosePrice float64
	CloseTime  time.Time
	RealizedPL float64
	Open       bool
}

// checkExit tests a bar against the bracket. When both legs are inside
// the bar's range the stop wins; the bar does not say which came first.
func (t *Trade) checkExit(b market.Bar) (price float64, reason string, hit bool) {
	if !t.Open {
		return 0, "", false
	}
	if t.StopLoss > 0 && b.Low <= t.StopLoss {
		// gapped through the stop
		if b.Open < t.StopLoss {
			return b.Open, "StopLoss", true
		}
		return t.StopLoss, "StopLoss", true
	}
	if t.TakeProfit > 0 && b.High >= t.TakeProfit {
		if b.Open > t.TakeProfit {
			return b.Open, "TakeProfit", true
		}
		return t.TakeProfit, "TakeProfit", true
	}
	return 0, "", false
}

// entryFill returns the fill price of a limit buy against a bar.
func (o *order) entryFill(b market.Bar) (float64, bool) {
	if b.Low > o.limit {
		return 0, false
	}
	if b.Open <= o.limit {
		return b.Open, true
	}
	return o.limit, true
}
