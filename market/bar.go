package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrOutOfOrder is returned when bar timestamps are not strictly increasing.
	ErrOutOfOrder = errors.New("bars out of order")

	// ErrMixedTicker is returned when a series holds bars for more than one ticker.
	ErrMixedTicker = errors.New("bars for more than one ticker")

	// ErrBadBar is returned for bars with non-positive prices or negative volume.
	ErrBadBar = errors.New("invalid bar")
)

// Bar represents one OHLCV sample for a ticker at a point in time.
type Bar struct {
	Ticker string    `json:"ticker"`
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Validate checks the price and volume fields of a single bar.
func (b Bar) Validate() error {
	if !(b.Open > 0) || !(b.High > 0) || !(b.Low > 0) || !(b.Close > 0) {
		return fmt.Errorf("%w: %s at %s has a non-positive or missing price", ErrBadBar, b.Ticker, b.Time.Format(time.RFC3339))
	}
	if b.Volume < 0 || math.IsNaN(b.Volume) {
		return fmt.Errorf("%w: %s at %s has negative volume", ErrBadBar, b.Ticker, b.Time.Format(time.RFC3339))
	}
	return nil
}

// ValidateSeries enforces the ordering contract every lookback indicator
// depends on: one ticker, valid bars, strictly increasing timestamps.
func ValidateSeries(bars []Bar) error {
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		prev := bars[i-1]
		if b.Ticker != prev.Ticker {
			return fmt.Errorf("%w: %q then %q at index %d", ErrMixedTicker, prev.Ticker, b.Ticker, i)
		}
		if !b.Time.After(prev.Time) {
			return fmt.Errorf("%w: %s at index %d is not after %s",
				ErrOutOfOrder, b.Time.Format(time.RFC3339), i, prev.Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Columns splits a series into the parallel slices the indicator math consumes.
func Columns(bars []Bar) (open, high, low, closes, volume []float64) {
	n := len(bars)
	open = make([]float64, n)
	high = make([]float64, n)
	low = make([]float64, n)
	closes = make([]float64, n)
	volume = make([]float64, n)
	for i, b := range bars {
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		volume[i] = b.Volume
	}
	return open, high, low, closes, volume
}

// Range returns the highest high and lowest low of the bars. ok is false
// for an empty slice.
func Range(bars []Bar) (high, low float64, ok bool) {
	if len(bars) == 0 {
		return 0, 0, false
	}
	high, low = bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		high = math.Max(high, b.High)
		low = math.Min(low, b.Low)
	}
	return high, low, true
}

// SameSession returns the trailing bars that fall on the same exchange
// trading date as the last bar.
func SameSession(bars []Bar) []Bar {
	if len(bars) == 0 {
		return nil
	}
	last := SessionDate(bars[len(bars)-1].Time)
	i := len(bars) - 1
	for i > 0 && SessionDate(bars[i-1].Time) == last {
		i--
	}
	return bars[i:]
}

// OpenGap is the fractional move from the prior session close to today's open.
func OpenGap(priorClose, open float64) float64 {
	if priorClose <= 0 {
		return 0
	}
	return (open - priorClose) / priorClose
}
