package session

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ouro/broker"
	"github.com/rustyeddy/ouro/broker/paper"
	"github.com/rustyeddy/ouro/journal"
	"github.com/rustyeddy/ouro/market"
	"github.com/rustyeddy/ouro/risk"
	"github.com/rustyeddy/ouro/strategy"
)

var (
	cat         = strategy.NewCatalogue()
	sessionOpen = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC) // 09:30 Eastern
)

// waveBars is a two-hour session of a 20-minute sine around $50.
func waveBars(ticker string, n int) []market.Bar {
	bars := make([]market.Bar, n)
	for i := range bars {
		c := 50 + 2.5*math.Sin(float64(i)*2*math.Pi/20)
		bars[i] = market.Bar{
			Ticker: ticker,
			Time:   sessionOpen.Add(time.Duration(i) * time.Minute),
			Open:   c - 0.1,
			High:   c + 0.3,
			Low:    c - 0.3,
			Close:  c,
			Volume: 1000 + float64(i%7)*100,
		}
	}
	return bars
}

type fakeBars struct {
	mu     sync.Mutex
	series map[string][]market.Bar
	prior  map[string]float64
	fail   map[string]error
	calls  map[string]int
}

func newFakeBars(tickers ...string) *fakeBars {
	f := &fakeBars{
		series: map[string][]market.Bar{},
		prior:  map[string]float64{},
		fail:   map[string]error{},
		calls:  map[string]int{},
	}
	for _, t := range tickers {
		f.series[t] = waveBars(t, 120)
		f.prior[t] = f.series[t][0].Open
	}
	return f
}

func (f *fakeBars) RecentBars(ctx context.Context, ticker string, n int) ([]market.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[ticker]++
	if err := f.fail[ticker]; err != nil {
		return nil, err
	}
	s := f.series[ticker]
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s, nil
}

func (f *fakeBars) PriorClose(ctx context.Context, ticker string, day time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prior[ticker], nil
}

// recordingBroker notes the terminal calls on top of the paper engine.
type recordingBroker struct {
	*paper.Engine
	calls   []string
	ctxErrs []error
}

func (b *recordingBroker) CancelAllOrders(ctx context.Context) error {
	b.calls = append(b.calls, "cancel")
	b.ctxErrs = append(b.ctxErrs, ctx.Err())
	return b.Engine.CancelAllOrders(ctx)
}

func (b *recordingBroker) CloseAllPositions(ctx context.Context) error {
	b.calls = append(b.calls, "close")
	b.ctxErrs = append(b.ctxErrs, ctx.Err())
	return b.Engine.CloseAllPositions(ctx)
}

// everyFamily fires on the first observation of any family.
func everyFamily() *strategy.Table {
	rows := make([]strategy.Performance, 0, strategy.NumFamilies)
	for f := 0; f < strategy.NumFamilies; f++ {
		rows = append(rows, strategy.Performance{Family: strategy.Family(f), AvgReturn: 0.05, Threshold: 0})
	}
	return strategy.NewTable(rows...)
}

type fixture struct {
	runner  *Runner
	bars    *fakeBars
	broker  *recordingBroker
	journal *journal.Memory
}

func newFixture(t *testing.T, policy risk.Policy, tickers ...string) *fixture {
	t.Helper()
	j := &journal.Memory{}
	eng := paper.NewEngine(broker.Account{BuyingPower: 30000, Multiplier: 1}, nil)
	b := &recordingBroker{Engine: eng}
	src := newFakeBars(tickers...)

	r, err := New(Config{
		Universe:  tickers,
		BarWindow: 120,
		Workers:   2,
		TestMode:  true,
		Policy:    policy,
	}, Deps{
		Bars:        src,
		Broker:      b,
		Journal:     j,
		Catalogue:   cat,
		Performance: everyFamily(),
	}, zerolog.Nop())
	require.NoError(t, err)
	r.Now = func() time.Time { return sessionOpen.Add(2 * time.Hour) }
	r.Wait = func(context.Context, time.Time) error { return nil }
	return &fixture{runner: r, bars: src, broker: b, journal: j}
}

func testPolicy() risk.Policy {
	p := risk.DefaultPolicy()
	p.CashReserve = 0
	return p
}

func TestRunCycleBuys(t *testing.T) {
	fx := newFixture(t, testPolicy(), "VZ", "IBM")
	ctx := context.Background()

	rep, err := fx.runner.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Observed)
	require.Len(t, rep.Candidates, 2)
	require.NoError(t, rep.AccountErr)
	require.Len(t, rep.Decisions, 2)

	ibm := rep.Decisions[0]
	assert.Equal(t, "IBM", ibm.Ticker)
	assert.Equal(t, risk.Buy, ibm.Action)
	assert.Equal(t, int64(60), ibm.Shares)
	assert.Equal(t, 0, ibm.OpenOrders)
	assert.Equal(t, 1, ibm.Signals)
	assert.NotEmpty(t, ibm.OrderID)
	require.NotNil(t, ibm.Intent)
	assert.True(t, strings.HasPrefix(ibm.Intent.ClientOrderID, "IBM-"))
	assert.Equal(t, broker.GTC, ibm.Intent.TimeInForce)
	assert.True(t, ibm.Intent.StopPrice.LessThan(ibm.Intent.LimitPrice))
	assert.True(t, ibm.Intent.LimitPrice.LessThan(ibm.Intent.TakeProfit))

	vz := rep.Decisions[1]
	assert.Equal(t, "VZ", vz.Ticker)
	assert.Equal(t, risk.Buy, vz.Action)
	assert.Equal(t, 1, vz.OpenOrders)
	assert.Less(t, vz.Cash, ibm.Cash)

	assert.Len(t, fx.broker.PendingOrders(), 2)
	assert.Len(t, fx.journal.Actions, 2)
	require.Len(t, fx.journal.Status, 1)
	require.Len(t, fx.journal.Status[0], 2)
	assert.NotNil(t, fx.journal.Status[0][0].Action)

	// bought tickers are not reconsidered
	rep, err = fx.runner.RunCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Candidates)
	assert.Empty(t, rep.Decisions)
	assert.Len(t, fx.broker.PendingOrders(), 2)
	st := fx.runner.Aggregator().Status()
	require.Len(t, st, 2)
	assert.Equal(t, "IBM", st[0].Ticker)
	assert.Equal(t, 2, st[0].Signals)
	assert.Equal(t, 2, fx.runner.Aggregator().Count("IBM", st[0].Family))
}

func TestRunCycleAccountUnavailable(t *testing.T) {
	fx := newFixture(t, testPolicy(), "IBM")
	ctx := context.Background()

	fx.broker.FailAccount = errors.New("503 service unavailable")
	rep, err := fx.runner.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Candidates, 1)
	assert.ErrorIs(t, rep.AccountErr, ErrAccountUnavailable)
	assert.Empty(t, rep.Decisions)
	assert.Empty(t, fx.broker.PendingOrders())

	fx.broker.FailAccount = nil
	rep, err = fx.runner.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Decisions, 1)
	assert.Equal(t, risk.Buy, rep.Decisions[0].Action)
}

func TestRunCycleOrderRejected(t *testing.T) {
	fx := newFixture(t, testPolicy(), "IBM")
	ctx := context.Background()

	fx.broker.Reject = func(broker.OrderIntent) error { return errors.New("halted") }
	rep, err := fx.runner.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Decisions, 1)
	d := rep.Decisions[0]
	assert.Equal(t, risk.Skip, d.Action)
	assert.Equal(t, risk.ReasonOrderFailed, d.Reason)
	assert.NotNil(t, d.Intent)
	assert.Empty(t, d.OrderID)

	// terminal for the session
	fx.broker.Reject = nil
	rep, err = fx.runner.RunCycle(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Candidates)
	assert.Equal(t, risk.ReasonOrderFailed, fx.runner.Actions()["IBM"].Reason)
}

func TestRunCycleRetryableSkip(t *testing.T) {
	p := testPolicy()
	p.MaxPositions = 1
	fx := newFixture(t, p, "IBM")
	ctx := context.Background()

	_, err := fx.broker.SubmitOrder(ctx, broker.OrderIntent{
		ClientOrderID: "T-1", Ticker: "T", Side: broker.Buy, Qty: 10,
		LimitPrice: decimal.RequireFromString("20"), StopPrice: decimal.RequireFromString("19"),
		TakeProfit: decimal.RequireFromString("21"), TimeInForce: broker.GTC, CreatedAt: sessionOpen,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rep, err := fx.runner.RunCycle(ctx)
		require.NoError(t, err)
		require.Len(t, rep.Decisions, 1, "cycle %d", i)
		assert.Equal(t, risk.ReasonTooManyPositions, rep.Decisions[0].Reason)
	}

	// the last slot gets all the cash; the order must still fit at its limit
	require.NoError(t, fx.broker.CancelAllOrders(ctx))
	rep, err := fx.runner.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Decisions, 1)
	d := rep.Decisions[0]
	assert.Equal(t, risk.Buy, d.Action, "reason %q", d.Reason)
	require.NotNil(t, d.Intent)
	assert.LessOrEqual(t, d.Intent.LimitPrice.InexactFloat64()*float64(d.Shares), d.Cash)
	assert.Len(t, fx.broker.PendingOrders(), 1)
}

func TestRunCycleFetchError(t *testing.T) {
	fx := newFixture(t, testPolicy(), "IBM", "VZ")
	fx.bars.fail["VZ"] = errors.New("429 too many requests")

	rep, err := fx.runner.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Observed)
	assert.Contains(t, rep.FetchErrs, "VZ")
	require.Len(t, rep.Decisions, 1)
	assert.Equal(t, "IBM", rep.Decisions[0].Ticker)
}

func TestRunCycleOpeningGap(t *testing.T) {
	fx := newFixture(t, testPolicy(), "IBM")
	fx.bars.prior["IBM"] = 45 // opened ~11% higher
	ctx := context.Background()

	rep, err := fx.runner.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Observed)
	assert.Empty(t, rep.Candidates)

	rep, err = fx.runner.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Candidates, 1)
	assert.Equal(t, 1, rep.Candidates[0].Signals)
}

func TestRunCycleShortHistory(t *testing.T) {
	fx := newFixture(t, testPolicy(), "IBM")
	fx.bars.series["IBM"] = waveBars("IBM", 60)

	rep, err := fx.runner.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Observed)
	assert.Empty(t, rep.Candidates)
}

func TestRunTestModeMaxCycles(t *testing.T) {
	fx := newFixture(t, testPolicy(), "IBM")
	fx.runner.cfg.MaxCycles = 3

	require.NoError(t, fx.runner.Run(context.Background()))
	assert.Equal(t, 3, fx.bars.calls["IBM"])
	assert.Equal(t, []string{"cancel", "close"}, fx.broker.calls)
	assert.Empty(t, fx.broker.PendingOrders())
}

type fakeClock struct {
	open, eod bool
	err       error
}

func (c fakeClock) IsOpen(context.Context) (bool, error)     { return c.open, c.err }
func (c fakeClock) IsEndOfDay(context.Context) (bool, error) { return c.eod, c.err }

func TestRunStopsAtEndOfDay(t *testing.T) {
	fx := newFixture(t, testPolicy(), "IBM")
	fx.runner.cfg.TestMode = false
	fx.runner.deps.Clock = fakeClock{open: true, eod: true}

	require.NoError(t, fx.runner.Run(context.Background()))
	assert.Zero(t, fx.bars.calls["IBM"])
	assert.Equal(t, []string{"cancel", "close"}, fx.broker.calls)
}

func TestRunCancelledStillLiquidates(t *testing.T) {
	fx := newFixture(t, testPolicy(), "IBM")
	fx.runner.cfg.TestMode = false
	fx.runner.deps.Clock = fakeClock{open: false}

	ctx, cancel := context.WithCancel(context.Background())
	waits := 0
	fx.runner.Wait = func(ctx context.Context, _ time.Time) error {
		waits++
		if waits == 2 {
			cancel()
		}
		return ctx.Err()
	}

	require.NoError(t, fx.runner.Run(ctx))
	assert.Zero(t, fx.bars.calls["IBM"])
	assert.Equal(t, []string{"cancel", "close"}, fx.broker.calls)
	for _, err := range fx.broker.ctxErrs {
		assert.NoError(t, err)
	}
}

func TestNewValidates(t *testing.T) {
	deps := Deps{Bars: newFakeBars("IBM"), Broker: paper.NewEngine(broker.Account{BuyingPower: 1}, nil), Catalogue: cat}
	base := Config{Universe: []string{"IBM"}, BarWindow: 120, Workers: 1, TestMode: true, Policy: testPolicy()}

	_, err := New(base, deps, zerolog.Nop())
	require.NoError(t, err)

	cfg := base
	cfg.BarWindow = 60
	_, err = New(cfg, deps, zerolog.Nop())
	assert.Error(t, err)

	cfg = base
	cfg.Universe = nil
	_, err = New(cfg, deps, zerolog.Nop())
	assert.Error(t, err)

	cfg = base
	cfg.TestMode = false
	_, err = New(cfg, deps, zerolog.Nop())
	assert.Error(t, err)
}
