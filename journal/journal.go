// journal/journal.go
package journal

import (
	"math"
	"time"

	"github.com/rustyeddy/ouro/risk"
)

// ActionRecord is one order decision plus the signal state that led to it.
type ActionRecord struct {
	ID string `json:"id"`
	risk.Decision

	Signals   int     `json:"signals"`
	Threshold float64 `json:"threshold"`
	OrderID   string  `json:"order_id,omitempty"`
}

// StatusRecord is one ticker's line in the per-cycle status snapshot.
type StatusRecord struct {
	Time      time.Time
	Ticker    string
	Family    string
	Signals   int
	Threshold float64 // NaN when the family has no performance data
	Action    *risk.Decision
}

// HasThreshold reports whether Threshold is usable.
func (s StatusRecord) HasThreshold() bool { return !math.IsNaN(s.Threshold) }

// TradeRecord is a completed round trip.
type TradeRecord struct {
	TradeID    string
	Ticker     string
	Qty        int64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// Journal persists what a session did.
type Journal interface {
	RecordAction(ActionRecord) error
	RecordStatus(at time.Time, status []StatusRecord) error
	RecordTrade(TradeRecord) error
	Close() error
}

// TradeRecorder is the slice of Journal a broker needs.
type TradeRecorder interface {
	RecordTrade(TradeRecord) error
}
