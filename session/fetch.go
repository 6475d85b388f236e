package session

import (
	"context"
	"sync"
	"time"

	"github.com/rustyeddy/ouro/market"
)

// BarSource supplies minute bars and the prior session's close.
type BarSource interface {
	RecentBars(ctx context.Context, ticker string, n int) ([]market.Bar, error)
	PriorClose(ctx context.Context, ticker string, day time.Time) (float64, error)
}

type fetched struct {
	ticker     string
	bars       []market.Bar
	priorClose float64
	err        error
}

// fetchAll pulls bars for every ticker with at most workers requests in
// flight. Results come back in the order of tickers. The prior close is
// fetched only for tickers in needPrior.
func fetchAll(ctx context.Context, src BarSource, tickers []string, n, workers int, needPrior map[string]bool, day time.Time) []fetched {
	if workers < 1 {
		workers = 1
	}
	out := make([]fetched, len(tickers))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, t := range tickers {
		wg.Add(1)
		go func(i int, t string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				out[i] = fetched{ticker: t, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			f := fetched{ticker: t}
			f.bars, f.err = src.RecentBars(ctx, t, n)
			if f.err == nil && needPrior[t] {
				f.priorClose, f.err = src.PriorClose(ctx, t, day)
			}
			out[i] = f
		}(i, t)
	}
	wg.Wait()
	return out
}
