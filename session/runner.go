// Package session runs the minute-by-minute trading loop: fetch bars,
// compute indicators, classify, aggregate, decide and submit.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/ouro/aggregator"
	"github.com/rustyeddy/ouro/broker"
	"github.com/rustyeddy/ouro/indicators"
	"github.com/rustyeddy/ouro/journal"
	"github.com/rustyeddy/ouro/market"
	"github.com/rustyeddy/ouro/metrics"
	"github.com/rustyeddy/ouro/pkg/id"
	"github.com/rustyeddy/ouro/risk"
	"github.com/rustyeddy/ouro/signal"
	"github.com/rustyeddy/ouro/strategy"
)

// ErrAccountUnavailable means the account snapshot could not be fetched;
// no decisions are made that cycle.
var ErrAccountUnavailable = errors.New("account unavailable")

type Config struct {
	Universe   []string
	BarWindow  int // minute bars per fetch
	Workers    int // concurrent fetches
	TestMode   bool
	MaxCycles  int // 0 runs until end of day
	Policy     risk.Policy
	Aggregator aggregator.Options
}

// Deps are the collaborators of a Runner. Journal may be nil.
type Deps struct {
	Bars        BarSource
	Broker      broker.Broker
	Clock       market.Clock
	Journal     journal.Journal
	Catalogue   *strategy.Catalogue
	Performance *strategy.Table
}

// Runner owns the state of one trading session. Build a new one per session.
type Runner struct {
	cfg  Config
	deps Deps
	log  zerolog.Logger

	// Now and Wait are replaced in tests.
	Now  func() time.Time
	Wait func(ctx context.Context, now time.Time) error

	agg        *aggregator.Aggregator
	cycles     int
	observed   map[string]bool
	priorClose map[string]float64
	actions    map[string]journal.ActionRecord
	closed     map[string]bool // bought, or skipped for good
}

// CycleReport summarizes one cycle.
type CycleReport struct {
	Time       time.Time
	Observed   int
	Candidates []aggregator.Candidate
	Decisions  []journal.ActionRecord
	FetchErrs  map[string]error
	AccountErr error
}

func New(cfg Config, deps Deps, log zerolog.Logger) (*Runner, error) {
	switch {
	case deps.Bars == nil:
		return nil, fmt.Errorf("session: bar source is required")
	case deps.Broker == nil:
		return nil, fmt.Errorf("session: broker is required")
	case deps.Clock == nil && !cfg.TestMode:
		return nil, fmt.Errorf("session: clock is required outside test mode")
	case deps.Catalogue == nil:
		return nil, fmt.Errorf("session: catalogue is required")
	case len(cfg.Universe) == 0:
		return nil, fmt.Errorf("session: empty universe")
	}
	if cfg.BarWindow <= indicators.Warmup() {
		return nil, fmt.Errorf("session: bar window %d must exceed indicator warm-up %d", cfg.BarWindow, indicators.Warmup())
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if cfg.TestMode {
		cfg.Policy.TimeInForce = broker.GTC
	}

	universe := make([]string, 0, len(cfg.Universe))
	for _, t := range cfg.Universe {
		universe = append(universe, strings.ToUpper(t))
	}
	sort.Strings(universe)
	cfg.Universe = universe

	return &Runner{
		cfg:        cfg,
		deps:       deps,
		log:        log.With().Str("component", "session").Logger(),
		Now:        time.Now,
		Wait:       market.WaitForMinute,
		agg:        aggregator.New(deps.Catalogue, deps.Performance, universe, cfg.Aggregator),
		observed:   make(map[string]bool),
		priorClose: make(map[string]float64),
		actions:    make(map[string]journal.ActionRecord),
		closed:     make(map[string]bool),
	}, nil
}

// Aggregator exposes the session tally, read-only by convention.
func (r *Runner) Aggregator() *aggregator.Aggregator { return r.agg }

// Actions returns the latest action per ticker.
func (r *Runner) Actions() map[string]journal.ActionRecord {
	out := make(map[string]journal.ActionRecord, len(r.actions))
	for k, v := range r.actions {
		out[k] = v
	}
	return out
}

type candidate struct {
	aggregator.Candidate
	high, low float64
}

// RunCycle processes every ticker once. Only a catalogue miss is returned
// as an error; fetch, account and order failures are logged and reported.
func (r *Runner) RunCycle(ctx context.Context) (CycleReport, error) {
	start := time.Now()
	defer func() { metrics.CycleSeconds.Observe(time.Since(start).Seconds()) }()

	now := r.Now()
	r.cycles++
	rep := CycleReport{Time: now, FetchErrs: make(map[string]error)}

	need := make(map[string]bool)
	for _, t := range r.cfg.Universe {
		if _, ok := r.priorClose[t]; !ok {
			need[t] = true
		}
	}

	var cands []candidate
	for _, f := range fetchAll(ctx, r.deps.Bars, r.cfg.Universe, r.cfg.BarWindow, r.cfg.Workers, need, now) {
		log := r.log.With().Str("ticker", f.ticker).Logger()
		if f.err != nil {
			rep.FetchErrs[f.ticker] = f.err
			metrics.FetchErrorsTotal.WithLabelValues(f.ticker).Inc()
			log.Warn().Err(f.err).Msg("fetch failed")
			continue
		}
		if need[f.ticker] {
			r.priorClose[f.ticker] = f.priorClose
		}

		c, ok, err := r.observe(f.ticker, f.bars, log)
		if err != nil {
			return rep, err
		}
		if ok {
			rep.Observed++
		}
		if c != nil {
			cands = append(cands, *c)
			rep.Candidates = append(rep.Candidates, c.Candidate)
		}
	}

	if len(cands) > 0 {
		rep.Decisions, rep.AccountErr = r.decide(ctx, now, cands)
	}

	r.recordStatus(now)
	return rep, nil
}

// observe classifies the latest bar of one ticker and feeds the aggregator.
func (r *Runner) observe(ticker string, bars []market.Bar, log zerolog.Logger) (*candidate, bool, error) {
	rows, err := indicators.Compute(bars)
	if err != nil {
		log.Warn().Err(err).Msg("bad bar series")
		return nil, false, nil
	}
	cl, ok := signal.Latest(rows)
	if !ok {
		log.Debug().Int("bars", len(bars)).Msg("not enough history")
		return nil, false, nil
	}

	today := market.SameSession(bars)
	high, low, _ := market.Range(today)
	first := !r.observed[ticker]
	r.observed[ticker] = true

	c, err := r.agg.Observe(aggregator.Observation{
		Ticker:     ticker,
		Code:       cl.Code,
		Time:       cl.Time,
		Price:      cl.Close,
		OpenDiff:   market.OpenGap(r.priorClose[ticker], today[0].Open),
		FirstCycle: first,
	})
	if err != nil {
		log.Error().Err(err).Str("code", cl.Code.String()).Msg("catalogue lookup failed")
		return nil, false, err
	}
	metrics.ObservationsTotal.WithLabelValues(ticker).Inc()
	log.Debug().Str("code", cl.Code.String()).Float64("close", cl.Close).Msg("observed")

	if c == nil || r.closed[ticker] {
		return nil, true, nil
	}
	metrics.CandidatesTotal.WithLabelValues(ticker).Inc()
	log.Info().
		Str("family", c.Family.String()).
		Int("signals", c.Signals).
		Float64("threshold", c.Threshold).
		Msg("buy candidate")
	return &candidate{Candidate: *c, high: high, low: low}, true, nil
}

// decide fetches the account once and evaluates every candidate in ticker
// order. Open orders and cash are carried forward locally as orders go in.
func (r *Runner) decide(ctx context.Context, now time.Time, cands []candidate) ([]journal.ActionRecord, error) {
	acct, err := r.deps.Broker.GetAccount(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrAccountUnavailable, err)
		r.log.Error().Err(err).Int("candidates", len(cands)).Msg("skipping decisions this cycle")
		for _, c := range cands {
			r.agg.Reopen(c.Ticker)
		}
		return nil, err
	}

	p := r.cfg.Policy
	cash := acct.UsableCash(p.CashReserve)
	open := acct.OpenOrders

	var out []journal.ActionRecord
	for _, c := range cands {
		d := risk.Decide(p, risk.Inputs{
			Now:        now,
			Ticker:     c.Ticker,
			Family:     c.Family.String(),
			Price:      c.Price,
			Cash:       cash,
			OpenOrders: open,
			AvgReturn:  c.AvgReturn,
			RecentHigh: c.high,
			RecentLow:  c.low,
		})

		rec := journal.ActionRecord{
			ID:        id.NewAt(now),
			Signals:   c.Signals,
			Threshold: c.Threshold,
		}
		if d.Bought() {
			d.Intent.ClientOrderID = id.ClientOrderID(c.Ticker, now)
			ack, err := r.deps.Broker.SubmitOrder(ctx, *d.Intent)
			if err != nil {
				metrics.OrdersTotal.WithLabelValues(c.Ticker, "rejected").Inc()
				r.log.Warn().Err(err).Str("ticker", c.Ticker).Msg("order not placed")
				d = d.Downgrade(risk.ReasonOrderFailed)
			} else {
				metrics.OrdersTotal.WithLabelValues(c.Ticker, "accepted").Inc()
				rec.OrderID = ack.OrderID
				open++
				cash -= float64(d.Shares) * d.BuyLimit
				if cash < 0 {
					cash = 0
				}
			}
		}
		rec.Decision = d

		switch {
		case d.Bought():
			r.closed[c.Ticker] = true
		case d.Reason.Retryable():
			r.agg.Reopen(c.Ticker)
		default:
			r.closed[c.Ticker] = true
		}

		metrics.DecisionsTotal.WithLabelValues(string(d.Action), d.Reason.Code()).Inc()
		r.log.Info().
			Str("ticker", c.Ticker).
			Str("family", d.Family).
			Str("decision", string(d.Action)).
			Str("reason", string(d.Reason)).
			Int64("shares", d.Shares).
			Float64("buy_limit", d.BuyLimit).
			Msg("decision")

		r.actions[c.Ticker] = rec
		if r.deps.Journal != nil {
			if err := r.deps.Journal.RecordAction(rec); err != nil {
				r.log.Error().Err(err).Str("ticker", c.Ticker).Msg("journal action")
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Runner) recordStatus(now time.Time) {
	if r.deps.Journal == nil {
		return
	}
	var status []journal.StatusRecord
	for _, st := range r.agg.Status() {
		if !st.Observed {
			continue
		}
		rec := journal.StatusRecord{
			Time:      now,
			Ticker:    st.Ticker,
			Family:    st.Family.String(),
			Signals:   st.Signals,
			Threshold: st.Threshold,
		}
		if a, ok := r.actions[st.Ticker]; ok {
			d := a.Decision
			rec.Action = &d
		}
		status = append(status, rec)
	}
	if err := r.deps.Journal.RecordStatus(now, status); err != nil {
		r.log.Error().Err(err).Msg("journal status")
	}
}

// Run cycles once a minute until end of day, MaxCycles, or ctx is done,
// then runs the terminal action. Outside test mode it waits for the open.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info().
		Int("tickers", len(r.cfg.Universe)).
		Bool("test_mode", r.cfg.TestMode).
		Msg("session started")

	var runErr error
	done := 0
	for r.cfg.MaxCycles == 0 || done < r.cfg.MaxCycles {
		if ctx.Err() != nil {
			break
		}
		if !r.cfg.TestMode {
			ready, stop := r.marketReady(ctx)
			if stop {
				break
			}
			if !ready {
				if r.Wait(ctx, r.Now()) != nil {
					break
				}
				continue
			}
		}

		rep, err := r.RunCycle(ctx)
		if err != nil {
			runErr = err
			break
		}
		done++
		r.log.Debug().
			Int("cycle", r.cycles).
			Int("observed", rep.Observed).
			Int("candidates", len(rep.Candidates)).
			Msg("cycle done")

		if r.cfg.MaxCycles > 0 && done >= r.cfg.MaxCycles {
			break
		}
		if r.Wait(ctx, r.Now()) != nil {
			break
		}
	}

	shutErr := r.Shutdown(context.WithoutCancel(ctx))
	r.log.Info().Int("cycles", done).Msg("session ended")
	return errors.Join(runErr, shutErr)
}

// marketReady reports whether to run a cycle now, and whether the session
// is over. Clock errors wait for the next minute.
func (r *Runner) marketReady(ctx context.Context) (ready, stop bool) {
	eod, err := r.deps.Clock.IsEndOfDay(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("clock")
		return false, false
	}
	if eod {
		r.log.Info().Msg("end of day")
		return false, true
	}
	open, err := r.deps.Clock.IsOpen(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("clock")
		return false, false
	}
	return open, false
}

// Shutdown cancels open orders and then liquidates positions. Both steps
// run even if the first fails.
func (r *Runner) Shutdown(ctx context.Context) error {
	var errs []error
	if err := r.deps.Broker.CancelAllOrders(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cancel all orders: %w", err))
	}
	if err := r.deps.Broker.CloseAllPositions(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close all positions: %w", err))
	}
	err := errors.Join(errs...)
	if err != nil {
		r.log.Error().Err(err).Msg("terminal action")
	} else {
		r.log.Info().Msg("orders cancelled, positions closed")
	}
	return err
}
