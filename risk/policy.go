package risk

import (
	"fmt"
	"time"

	"github.com/rustyeddy/ouro/broker"
)

type Policy struct {
	// Exposure limits
	MaxPositions int     // 10
	MaxRiskRatio float64 // 0.004 of cash at risk per trade
	CashReserve  float64 // 25001, held back from buying power

	// Bracket shaping
	StopRatio      float64 // 0.5, stop distance as a share of the expected return
	TightStopRatio float64 // 0.4, stop distance as a share of the target distance
	ReachOffset    float64 // 0.05 dollars below the recent high
	EntryFraction  float64 // 0.05 of the target distance added to the entry
	RewardEdge     float64 // 0.005 the return must beat risk by

	TimeInForce broker.TimeInForce
}

// DefaultPolicy returns the production limits.
func DefaultPolicy() Policy {
	return Policy{
		MaxPositions:   10,
		MaxRiskRatio:   0.004,
		CashReserve:    25001,
		StopRatio:      0.5,
		TightStopRatio: 0.4,
		ReachOffset:    0.05,
		EntryFraction:  0.05,
		RewardEdge:     0.005,
		TimeInForce:    broker.Day,
	}
}

func (p Policy) Validate() error {
	switch {
	case p.MaxPositions <= 0:
		return fmt.Errorf("max positions must be > 0")
	case p.MaxRiskRatio <= 0 || p.MaxRiskRatio >= 1:
		return fmt.Errorf("max risk ratio must be in (0,1)")
	case p.CashReserve < 0:
		return fmt.Errorf("cash reserve must be >= 0")
	case p.StopRatio <= 0 || p.TightStopRatio <= 0:
		return fmt.Errorf("stop ratios must be > 0")
	case p.ReachOffset < 0:
		return fmt.Errorf("reach offset must be >= 0")
	case p.EntryFraction < 0 || p.EntryFraction >= 1:
		return fmt.Errorf("entry fraction must be in [0,1)")
	case p.RewardEdge < 0:
		return fmt.Errorf("reward edge must be >= 0")
	case p.TimeInForce != broker.Day && p.TimeInForce != broker.GTC:
		return fmt.Errorf("time in force must be day or gtc")
	}
	return nil
}

// Inputs is everything one decision needs.
type Inputs struct {
	Now        time.Time
	Ticker     string
	Family     string
	Price      float64
	Cash       float64
	OpenOrders int

	AvgReturn  float64 // the family's historical average, fractional
	RecentHigh float64 // intraday high so far
	RecentLow  float64 // intraday low so far
}
