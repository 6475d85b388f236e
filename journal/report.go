package journal

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/rustyeddy/ouro/risk"
)

// SessionReport summarizes one trading session for the operator's notes.
type SessionReport struct {
	Date    string
	Created time.Time

	Actions []ActionRecord
	Trades  []TradeRecord

	Buys    int
	Skips   int
	Reasons []ReasonCount
	NetPL   float64
	Wins    int
	Losses  int
}

type ReasonCount struct {
	Reason risk.Reason
	Count  int
}

// NewSessionReport tallies actions and trades.
func NewSessionReport(date string, actions []ActionRecord, trades []TradeRecord) SessionReport {
	r := SessionReport{Date: date, Created: time.Now(), Actions: actions, Trades: trades}
	counts := map[risk.Reason]int{}
	for _, a := range actions {
		if a.Bought() {
			r.Buys++
			continue
		}
		r.Skips++
		counts[a.Reason]++
	}
	for reason, n := range counts {
		r.Reasons = append(r.Reasons, ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(r.Reasons, func(i, j int) bool {
		if r.Reasons[i].Count != r.Reasons[j].Count {
			return r.Reasons[i].Count > r.Reasons[j].Count
		}
		return r.Reasons[i].Reason < r.Reasons[j].Reason
	})
	for _, t := range trades {
		r.NetPL += t.RealizedPL
		if t.RealizedPL > 0 {
			r.Wins++
		} else if t.RealizedPL < 0 {
			r.Losses++
		}
	}
	return r
}

var reportFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"short":  shortID,
}

// WriteOrg renders the report as an Org-mode outline.
func (r SessionReport) WriteOrg(w io.Writer) error {
	t, err := template.New("session").Funcs(reportFuncs).Parse(sessionOrgTemplate)
	if err != nil {
		return err
	}
	return t.Execute(w, r)
}

const sessionOrgTemplate = `* SESSION: {{.Date}}
:PROPERTIES:
:BUYS:     {{.Buys}}
:SKIPS:    {{.Skips}}
:TRADES:   {{len .Trades}}
:WINS:     {{.Wins}}
:LOSSES:   {{.Losses}}
:NET_PL:   {{printf "%.2f" .NetPL}}
:CREATED:  [{{.Created.Format "2006-01-02 Mon 15:04"}}]
:END:

** Decisions
| Time | Ticker | Family | Decision | Reason | Shares | Limit | Stop | Target | Risk % |
|------+--------+--------+----------+--------+--------+-------+------+--------+--------|
{{- range .Actions }}
| {{.Time.Format "15:04"}} | {{.Ticker}} | {{.Family}} | {{.Action}} | {{.Reason}} | {{.Shares}} | {{printf "%.2f" .BuyLimit}} | {{printf "%.2f" .FloorPrice}} | {{printf "%.2f" .CeilingPrice}} | {{printf "%.2f" (mul100 .RiskPct)}} |
{{- end }}
{{- if .Reasons }}

** Skip Reasons
| Reason | Count |
|--------+-------|
{{- range .Reasons }}
| {{.Reason}} | {{.Count}} |
{{- end }}
{{- end }}
{{- if .Trades }}

** Trades
{{- range .Trades }}
- {{short .TradeID}} {{.Ticker}} {{.Qty}} @ {{printf "%.2f" .EntryPrice}} -> {{printf "%.2f" .ExitPrice}} ({{.Reason}}): *{{printf "%.2f" .RealizedPL}}*
{{- end }}
{{- end }}
`

// FormatActionOrg renders one action as an Org-mode entry with the sizing
// facts in a PROPERTIES drawer.
func FormatActionOrg(a ActionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** %s %s (%s)\n", strings.ToUpper(string(a.Action)), a.Ticker, shortID(a.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":ID: %s\n", a.ID)
	fmt.Fprintf(&b, ":TIME: %s\n", a.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":FAMILY: %s\n", a.Family)
	fmt.Fprintf(&b, ":SIGNALS: %d\n", a.Signals)
	fmt.Fprintf(&b, ":PRICE: %.2f\n", a.Price)
	fmt.Fprintf(&b, ":SHARES: %d\n", a.Shares)
	fmt.Fprintf(&b, ":BUY_LIMIT: %.2f\n", a.BuyLimit)
	fmt.Fprintf(&b, ":FLOOR: %.2f\n", a.FloorPrice)
	fmt.Fprintf(&b, ":CEILING: %.2f\n", a.CeilingPrice)
	if a.Reason != risk.ReasonNone {
		fmt.Fprintf(&b, ":REASON: %s\n", a.Reason)
	}
	if a.OrderID != "" {
		fmt.Fprintf(&b, ":ORDER_ID: %s\n", a.OrderID)
	}
	b.WriteString(":END:\n")
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
