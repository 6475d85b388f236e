package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ouro/journal"
	"github.com/rustyeddy/ouro/market"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query decisions, trades and stored rows",
	Long: `Query the SQLite journal written by sessions and the history command.

Subcommands:
  action  - Show one decision by ID
  actions - List decisions made on a session date
  trade   - Show one completed trade by ID
  report  - Org-mode summary of a session date
  rows    - Count stored indicator rows, or list a ticker's codes

Examples:
  ouro journal actions 2024-03-04
  ouro journal report 2024-03-04 -o 2024-03-04.org
  ouro journal rows --ticker IBM --day 2024-03-04`,
}

var journalActionCmd = &cobra.Command{
	Use:   "action <id>",
	Short: "Show one decision",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalAction,
}

var journalActionsCmd = &cobra.Command{
	Use:   "actions [YYYY-MM-DD]",
	Short: "List decisions of a session date (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalActions,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Show one completed trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalReportCmd = &cobra.Command{
	Use:   "report [YYYY-MM-DD]",
	Short: "Write an Org-mode session report (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournalReport,
}

var journalRowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Count stored rows per ticker, or list one ticker's codes",
	Args:  cobra.NoArgs,
	RunE:  runJournalRows,
}

var (
	journalDBPath string
	journalTicker string
	journalDay    string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalActionCmd)
	journalCmd.AddCommand(journalActionsCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalReportCmd)
	journalCmd.AddCommand(journalRowsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal (default journal.db_path)")
	journalReportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file (default stdout)")
	journalRowsCmd.Flags().StringVarP(&journalTicker, "ticker", "t", "", "list rows of this ticker")
	journalRowsCmd.Flags().StringVar(&journalDay, "day", "", "session date for --ticker (default today)")
}

func openJournal() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no journal database: pass --db or set journal.db_path")
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

// sessionDay resolves an optional date argument to its Eastern bounds.
func sessionDay(args []string) (string, time.Time, time.Time, error) {
	day := market.SessionDate(time.Now())
	if len(args) > 0 && args[0] != "" {
		day = args[0]
	}
	start, end, err := dayBounds(market.Eastern, day)
	if err != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("date: %w", err)
	}
	return day, start, end, nil
}

func runJournalAction(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	a, err := j.GetAction(args[0])
	if err != nil {
		return fmt.Errorf("get action: %w", err)
	}
	fmt.Print(journal.FormatActionOrg(a))
	return nil
}

func runJournalActions(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	_, start, end, err := sessionDay(args)
	if err != nil {
		return err
	}
	recs, err := j.ListActionsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query actions: %w", err)
	}
	for _, a := range recs {
		fmt.Print(journal.FormatActionOrg(a))
	}
	return nil
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	t, err := j.GetTrade(args[0])
	if err != nil {
		return fmt.Errorf("get trade: %w", err)
	}
	fmt.Printf("** TRADE %s %s\n", t.Ticker, t.TradeID)
	fmt.Println(":PROPERTIES:")
	fmt.Printf(":QTY: %d\n", t.Qty)
	fmt.Printf(":ENTRY: %.2f\n", t.EntryPrice)
	fmt.Printf(":EXIT: %.2f\n", t.ExitPrice)
	fmt.Printf(":OPENED: %s\n", t.OpenTime.UTC().Format(time.RFC3339))
	fmt.Printf(":CLOSED: %s\n", t.CloseTime.UTC().Format(time.RFC3339))
	fmt.Printf(":PL: %.2f\n", t.RealizedPL)
	fmt.Printf(":REASON: %s\n", t.Reason)
	fmt.Println(":END:")
	return nil
}

func runJournalReport(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	day, start, end, err := sessionDay(args)
	if err != nil {
		return err
	}
	actions, err := j.ListActionsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query actions: %w", err)
	}
	trades, err := j.ListTradesClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}

	w, err := output(outputPath)
	if err != nil {
		return err
	}
	if err := journal.NewSessionReport(day, actions, trades).WriteOrg(w); err != nil {
		w.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return w.Close()
}

func runJournalRows(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	if journalTicker == "" {
		counts, err := j.CountRows()
		if err != nil {
			return fmt.Errorf("count rows: %w", err)
		}
		tickers := make([]string, 0, len(counts))
		for t := range counts {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
		for _, t := range tickers {
			fmt.Printf("%-6s %d\n", t, counts[t])
		}
		return nil
	}

	var dayArgs []string
	if journalDay != "" {
		dayArgs = []string{journalDay}
	}
	_, start, end, err := sessionDay(dayArgs)
	if err != nil {
		return err
	}
	rows, err := j.ListRows(strings.ToUpper(journalTicker), start, end)
	if err != nil {
		return fmt.Errorf("list rows: %w", err)
	}
	for _, r := range rows {
		code := r.Code
		if code == "" {
			code = "-"
		}
		fmt.Fprintf(os.Stdout, "%s %8.2f %s %s\n", r.Time.In(market.Eastern).Format("15:04"), r.Close, code, r.Trend)
	}
	return nil
}
