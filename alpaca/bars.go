package alpaca

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/ouro/market"
)

type Timeframe string

const (
	Minute Timeframe = "1Min"
	Day    Timeframe = "1Day"
)

// maxPages bounds one GetBars call; 10000 bars per page.
const maxPages = 200

type barJSON struct {
	T time.Time `json:"t"`
	O float64   `json:"o"`
	H float64   `json:"h"`
	L float64   `json:"l"`
	C float64   `json:"c"`
	V float64   `json:"v"`
}

type barsResponse struct {
	Bars          []barJSON `json:"bars"`
	Symbol        string    `json:"symbol"`
	NextPageToken *string   `json:"next_page_token"`
}

func (b barJSON) bar(ticker string) market.Bar {
	return market.Bar{Ticker: ticker, Time: b.T, Open: b.O, High: b.H, Low: b.L, Close: b.C, Volume: b.V}
}

type barQuery struct {
	start, end time.Time
	tf         Timeframe
	limit      int
	desc       bool
	token      string
}

func (c *Client) barsPage(ctx context.Context, ticker string, q barQuery) (barsResponse, error) {
	params := map[string]string{
		"timeframe":  string(q.tf),
		"adjustment": "raw",
		"feed":       c.cfg.Feed,
		"limit":      strconv.Itoa(q.limit),
	}
	if !q.start.IsZero() {
		params["start"] = q.start.UTC().Format(time.RFC3339)
	}
	if !q.end.IsZero() {
		params["end"] = q.end.UTC().Format(time.RFC3339)
	}
	if q.desc {
		params["sort"] = "desc"
	}
	if q.token != "" {
		params["page_token"] = q.token
	}

	var br barsResponse
	resp, err := c.data.R().
		SetContext(ctx).
		SetPathParam("symbol", ticker).
		SetQueryParams(params).
		SetResult(&br).
		SetError(&APIError{}).
		Get("/v2/stocks/{symbol}/bars")
	if err := check(resp, err); err != nil {
		return barsResponse{}, fmt.Errorf("bars %s: %w", ticker, err)
	}
	return br, nil
}

// GetBars returns every bar in [start, end) for ticker, following page
// tokens, in ascending time order.
func (c *Client) GetBars(ctx context.Context, ticker string, start, end time.Time, tf Timeframe) ([]market.Bar, error) {
	ticker = strings.ToUpper(ticker)
	q := barQuery{start: start, end: end, tf: tf, limit: 10000}

	var out []market.Bar
	for page := 0; page < maxPages; page++ {
		br, err := c.barsPage(ctx, ticker, q)
		if err != nil {
			return nil, err
		}
		for _, b := range br.Bars {
			if !end.IsZero() && !b.T.Before(end) {
				continue
			}
			out = append(out, b.bar(ticker))
		}
		if br.NextPageToken == nil || *br.NextPageToken == "" {
			return out, nil
		}
		q.token = *br.NextPageToken
	}
	return nil, fmt.Errorf("bars %s: more than %d pages", ticker, maxPages)
}

// RecentBars returns the latest n minute bars, oldest first.
func (c *Client) RecentBars(ctx context.Context, ticker string, n int) ([]market.Bar, error) {
	ticker = strings.ToUpper(ticker)
	now := time.Now()
	br, err := c.barsPage(ctx, ticker, barQuery{
		start: now.AddDate(0, 0, -7),
		end:   now,
		tf:    Minute,
		limit: n,
		desc:  true,
	})
	if err != nil {
		return nil, err
	}

	out := make([]market.Bar, len(br.Bars))
	for i, b := range br.Bars {
		out[len(out)-1-i] = b.bar(ticker)
	}
	return out, nil
}

// PriorClose is the daily close of the last session before day.
func (c *Client) PriorClose(ctx context.Context, ticker string, day time.Time) (float64, error) {
	ticker = strings.ToUpper(ticker)
	d := day.In(market.Eastern)
	midnight := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, market.Eastern)

	bars, err := c.GetBars(ctx, ticker, midnight.AddDate(0, 0, -10), midnight, Day)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("prior close %s: no daily bars before %s", ticker, market.SessionDate(day))
	}
	return bars[len(bars)-1].Close, nil
}
