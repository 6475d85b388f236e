package risk

import (
	"math"

	"github.com/shopspring/decimal"
)

// TradeCapital splits cash equally across the remaining position slots.
func TradeCapital(cash float64, openOrders, maxPositions int) float64 {
	slots := maxPositions - openOrders
	if slots <= 0 {
		return 0
	}
	return cash / float64(slots)
}

// Ceiling is the take-profit target, kept below the recent high so it is
// reachable.
func Ceiling(price, avgReturn, recentHigh, offset float64) float64 {
	c := price * (1 + avgReturn)
	if c > recentHigh {
		c = recentHigh - offset
	}
	return c
}

// Shares is the whole number of shares capital buys at price.
func Shares(capital, price float64) int64 {
	if price <= 0 || capital <= 0 {
		return 0
	}
	return int64(math.Floor(capital / price))
}

// PlannedRisk is the dollar loss if the stop is hit.
func PlannedRisk(price, stop float64, shares int64) float64 {
	return (price - stop) * float64(shares)
}

// RiskPct is the per-share risk over the entry price.
func RiskPct(price, stop float64) float64 {
	if price <= 0 {
		return math.Inf(1)
	}
	return (price - stop) / price
}

// ReturnPct is the gain from entry to target.
func ReturnPct(entry, target float64) float64 {
	if entry <= 0 {
		return math.Inf(-1)
	}
	return (target - entry) / entry
}

// Cents rounds a price to two decimal places.
func Cents(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
