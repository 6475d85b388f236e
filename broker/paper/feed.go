package paper

import (
	"context"
	"time"

	"github.com/rustyeddy/ouro/market"
)

// BarSource is the market data the session polls.
type BarSource interface {
	RecentBars(ctx context.Context, ticker string, n int) ([]market.Bar, error)
	PriorClose(ctx context.Context, ticker string, day time.Time) (float64, error)
}

// Feed passes bars through from Source and advances Engine with the latest
// one per ticker, so paper orders fill against the same data the session
// decides on.
type Feed struct {
	Source BarSource
	Engine *Engine
}

func (f Feed) RecentBars(ctx context.Context, ticker string, n int) ([]market.Bar, error) {
	bars, err := f.Source.RecentBars(ctx, ticker, n)
	if err != nil || len(bars) == 0 {
		return bars, err
	}
	if err := f.Engine.UpdateBar(bars[len(bars)-1]); err != nil {
		return nil, err
	}
	return bars, nil
}

func (f Feed) PriorClose(ctx context.Context, ticker string, day time.Time) (float64, error) {
	return f.Source.PriorClose(ctx, ticker, day)
}
