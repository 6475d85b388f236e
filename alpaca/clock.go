package alpaca

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/ouro/market"
)

type clockResponse struct {
	Timestamp time.Time `json:"timestamp"`
	IsOpen    bool      `json:"is_open"`
	NextOpen  time.Time `json:"next_open"`
	NextClose time.Time `json:"next_close"`
}

func (c *Client) clock(ctx context.Context) (clockResponse, error) {
	var cr clockResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetResult(&cr).
		SetError(&APIError{}).
		Get("/v2/clock")
	if err := check(resp, err); err != nil {
		return clockResponse{}, fmt.Errorf("get clock: %w", err)
	}
	return cr, nil
}

// IsOpen asks the broker whether the market is open. Holidays and early
// closes are the broker's concern.
func (c *Client) IsOpen(ctx context.Context) (bool, error) {
	cr, err := c.clock(ctx)
	if err != nil {
		return false, err
	}
	return cr.IsOpen, nil
}

// IsEndOfDay is true within EODBuffer of the close, and once the market
// has closed with no session left today. Before the open it is false.
func (c *Client) IsEndOfDay(ctx context.Context) (bool, error) {
	cr, err := c.clock(ctx)
	if err != nil {
		return false, err
	}
	if !cr.IsOpen {
		return market.SessionDate(cr.NextOpen) != market.SessionDate(cr.Timestamp), nil
	}
	return !cr.Timestamp.Before(cr.NextClose.Add(-c.cfg.EODBuffer)), nil
}
