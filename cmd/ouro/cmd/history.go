package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ouro/alpaca"
	"github.com/rustyeddy/ouro/indicators"
	"github.com/rustyeddy/ouro/journal"
	"github.com/rustyeddy/ouro/market"
	"github.com/rustyeddy/ouro/signal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Download minute bars and store indicator rows with their codes",
	Long: `Fetch historical minute bars for each ticker, compute indicators per
trading day and store every row, with its strategy code where one exists,
in the SQLite journal. The rows are the raw material for rebuilding the
strategy performance table.

Examples:
  ouro history --from 2024-03-01 --to 2024-03-08
  ouro history --from 2024-03-04 --tickers IBM,VZ`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historyFrom    string
	historyTo      string
	historyTickers []string
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyFrom, "from", "", "first session date YYYY-MM-DD (required)")
	historyCmd.Flags().StringVar(&historyTo, "to", "", "last session date YYYY-MM-DD (default: --from)")
	historyCmd.Flags().StringSliceVar(&historyTickers, "tickers", nil, "tickers (default: configured universe)")
	historyCmd.MarkFlagRequired("from")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	if historyTo == "" {
		historyTo = historyFrom
	}
	start, _, err := dayBounds(market.Eastern, historyFrom)
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	_, end, err := dayBounds(market.Eastern, historyTo)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}

	tickers := historyTickers
	if len(tickers) == 0 {
		if tickers, err = cfg.Tickers(); err != nil {
			return err
		}
	}
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers: pass --tickers or set session.universe")
	}
	if cfg.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is not set")
	}

	client, err := newAlpaca(cfg, log)
	if err != nil {
		return err
	}
	db, err := journal.NewSQLite(cfg.Journal.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	for _, t := range tickers {
		t = strings.ToUpper(t)
		bars, err := client.GetBars(ctx, t, start, end, alpaca.Minute)
		if err != nil {
			return fmt.Errorf("bars %s: %w", t, err)
		}
		recs, err := historyRows(bars)
		if err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
		if err := db.SaveRows(recs); err != nil {
			return fmt.Errorf("save %s: %w", t, err)
		}
		fmt.Printf("✓ %s: %d bars, %d rows\n", t, len(bars), len(recs))
	}
	return nil
}

// historyRows computes indicators session by session so overnight gaps
// never feed an indicator, then attaches each row's code.
func historyRows(bars []market.Bar) ([]journal.RowRecord, error) {
	var out []journal.RowRecord
	for len(bars) > 0 {
		day := market.SessionDate(bars[0].Time)
		n := 0
		for n < len(bars) && market.SessionDate(bars[n].Time) == day {
			n++
		}
		rows, err := indicators.Compute(bars[:n])
		if err != nil {
			return nil, err
		}
		codes := make(map[int]string)
		for _, c := range signal.Classify(rows) {
			codes[c.Index] = c.Code.String()
		}
		for i, r := range rows {
			out = append(out, journal.RowRecord{Row: r, Code: codes[i]})
		}
		bars = bars[n:]
	}
	return out, nil
}

// dayBounds returns midnight to midnight of day in loc.
func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}
