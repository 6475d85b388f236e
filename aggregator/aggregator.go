// Package aggregator counts how often each strategy family fires per ticker
// during one trading session and raises buy candidates.
package aggregator

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/ouro/signal"
	"github.com/rustyeddy/ouro/strategy"
)

// DefaultGapThreshold is the opening gap beyond which the first cycle's
// signal is ignored.
const DefaultGapThreshold = 0.02

type Options struct {
	GapThreshold float64
}

func DefaultOptions() Options {
	return Options{GapThreshold: DefaultGapThreshold}
}

// Observation is one classified bar for one ticker.
type Observation struct {
	Ticker     string
	Code       signal.Code
	Time       time.Time
	Price      float64
	OpenDiff   float64 // (open - prior close) / prior close
	FirstCycle bool
}

// Candidate is a ticker whose family count passed its threshold.
type Candidate struct {
	Ticker    string
	Code      signal.Code
	Family    strategy.Family
	Time      time.Time
	Price     float64
	Signals   int
	Threshold float64
	AvgReturn float64
	Counts    map[strategy.Family]int
}

// Status is one ticker's latest family and its count.
type Status struct {
	Ticker    string
	Family    strategy.Family
	Observed  bool
	Signals   int
	Threshold float64 // NaN without performance data
	Triggered bool
}

type ticker struct {
	counts    map[strategy.Family]int
	last      strategy.Family
	observed  bool
	triggered bool
}

// Aggregator is the session-scoped tally. Build a new one each session.
// It is not safe for concurrent use.
type Aggregator struct {
	cat  *strategy.Catalogue
	perf *strategy.Table
	opts Options

	tickers map[string]*ticker
}

// New starts a session with zero counts for every ticker in universe.
func New(cat *strategy.Catalogue, perf *strategy.Table, universe []string, opts Options) *Aggregator {
	if opts.GapThreshold <= 0 {
		opts.GapThreshold = DefaultGapThreshold
	}
	a := &Aggregator{
		cat:     cat,
		perf:    perf,
		opts:    opts,
		tickers: make(map[string]*ticker, len(universe)),
	}
	for _, t := range universe {
		a.state(t)
	}
	return a
}

func (a *Aggregator) state(t string) *ticker {
	t = strings.ToUpper(t)
	s, ok := a.tickers[t]
	if !ok {
		s = &ticker{counts: make(map[strategy.Family]int)}
		a.tickers[t] = s
	}
	return s
}

// Observe records one classified bar. It returns a candidate the first
// time the family's count strictly exceeds its threshold, and nil after
// that until Reopen. A catalogue miss is returned as an error.
func (a *Aggregator) Observe(o Observation) (*Candidate, error) {
	e, err := a.cat.Lookup(o.Code)
	if err != nil {
		return nil, fmt.Errorf("observe %s: %w", o.Ticker, err)
	}

	s := a.state(o.Ticker)
	s.last = e.Family
	s.observed = true

	if o.FirstCycle && math.Abs(o.OpenDiff) > a.opts.GapThreshold {
		return nil, nil
	}
	s.counts[e.Family]++

	if s.triggered {
		return nil, nil
	}
	perf, ok := a.perf.Lookup(e.Family)
	if !ok {
		return nil, nil
	}
	n := s.counts[e.Family]
	if float64(n) <= perf.Threshold {
		return nil, nil
	}

	s.triggered = true
	counts := make(map[strategy.Family]int, len(s.counts))
	for f, c := range s.counts {
		counts[f] = c
	}
	return &Candidate{
		Ticker:    strings.ToUpper(o.Ticker),
		Code:      o.Code,
		Family:    e.Family,
		Time:      o.Time,
		Price:     o.Price,
		Signals:   n,
		Threshold: perf.Threshold,
		AvgReturn: perf.AvgReturn,
		Counts:    counts,
	}, nil
}

// Reopen lets a ticker raise another candidate, after a skip that will be
// re-evaluated. Counts are kept.
func (a *Aggregator) Reopen(t string) {
	a.state(t).triggered = false
}

// Count returns the tally for a ticker and family.
func (a *Aggregator) Count(t string, f strategy.Family) int {
	s, ok := a.tickers[strings.ToUpper(t)]
	if !ok {
		return 0
	}
	return s.counts[f]
}

// Triggered reports whether t has an outstanding candidate this session.
func (a *Aggregator) Triggered(t string) bool {
	s, ok := a.tickers[strings.ToUpper(t)]
	return ok && s.triggered
}

// Tickers returns the monitored tickers, sorted.
func (a *Aggregator) Tickers() []string {
	out := make([]string, 0, len(a.tickers))
	for t := range a.tickers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Status snapshots every ticker, sorted by ticker.
func (a *Aggregator) Status() []Status {
	out := make([]Status, 0, len(a.tickers))
	for _, t := range a.Tickers() {
		s := a.tickers[t]
		st := Status{
			Ticker:    t,
			Family:    s.last,
			Observed:  s.observed,
			Signals:   s.counts[s.last],
			Threshold: math.NaN(),
			Triggered: s.triggered,
		}
		if p, ok := a.perf.Lookup(s.last); ok {
			st.Threshold = p.Threshold
		}
		out = append(out, st)
	}
	return out
}
