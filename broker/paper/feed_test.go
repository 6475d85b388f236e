package paper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ouro/market"
)

type stubSource struct {
	bars []market.Bar
	err  error
}

func (s stubSource) RecentBars(ctx context.Context, ticker string, n int) ([]market.Bar, error) {
	return s.bars, s.err
}

func (s stubSource) PriorClose(ctx context.Context, ticker string, day time.Time) (float64, error) {
	return 49.5, nil
}

func TestFeedAdvancesEngine(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, 30000)
	_, err := e.SubmitOrder(ctx, intent("IBM", 10, 50.10, 48.75, 51.95))
	require.NoError(t, err)

	src := stubSource{bars: []market.Bar{
		bar("IBM", t0, 51, 51.5, 50.5, 51),
		bar("IBM", t0.Add(time.Minute), 50.2, 50.4, 49.9, 50.0),
	}}
	f := Feed{Source: src, Engine: e}

	got, err := f.RecentBars(ctx, "IBM", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Empty(t, e.PendingOrders())
	assert.Len(t, e.OpenTrades(), 1)

	pc, err := f.PriorClose(ctx, "IBM", t0)
	require.NoError(t, err)
	assert.Equal(t, 49.5, pc)
}

func TestFeedPassesErrors(t *testing.T) {
	e, _ := newEngine(t, 30000)
	f := Feed{Source: stubSource{err: errors.New("boom")}, Engine: e}
	_, err := f.RecentBars(context.Background(), "IBM", 2)
	assert.EqualError(t, err, "boom")

	f = Feed{Source: stubSource{}, Engine: e}
	bars, err := f.RecentBars(context.Background(), "IBM", 2)
	assert.NoError(t, err)
	assert.Empty(t, bars)
}
