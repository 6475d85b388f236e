package cmd

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ouro/journal"
	"github.com/rustyeddy/ouro/market"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Reconcile broker fills into the gain/loss ledger",
	Long: `Download filled orders from the broker, pair buys with sells per
ticker and trade date, and upsert the result into the journal's ledger
table. Without --since, fetching resumes from the last ledger date.

Examples:
  ouro ledger
  ouro ledger --since 2024-03-01 --show`,
	Args: cobra.NoArgs,
	RunE: runLedger,
}

var (
	ledgerSince string
	ledgerShow  bool
)

func init() {
	rootCmd.AddCommand(ledgerCmd)

	ledgerCmd.Flags().StringVar(&ledgerSince, "since", "", "first trade date YYYY-MM-DD (default: last ledger date, else 30 days ago)")
	ledgerCmd.Flags().BoolVar(&ledgerShow, "show", false, "print the ledger from --since through today")
}

func runLedger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)
	if journalDBPath == "" {
		journalDBPath = cfg.Journal.DBPath
	}
	db, err := openJournal()
	if err != nil {
		return err
	}
	defer db.Close()

	since := ledgerSince
	if since == "" {
		if since, err = db.LastLedgerDate(); err != nil {
			return fmt.Errorf("last ledger date: %w", err)
		}
	}
	if since == "" {
		since = market.SessionDate(time.Now().AddDate(0, 0, -30))
	}
	start, _, err := dayBounds(market.Eastern, since)
	if err != nil {
		return fmt.Errorf("since: %w", err)
	}

	client, err := newAlpaca(cfg, log)
	if err != nil {
		return err
	}
	fills, err := client.Fills(cmd.Context(), start)
	if err != nil {
		return fmt.Errorf("fills: %w", err)
	}
	entries := journal.Reconcile(fills)
	if err := db.UpsertLedger(entries); err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	fmt.Printf("✓ Reconciled %d fills into %d ledger entries since %s\n", len(fills), len(entries), since)

	if !ledgerShow {
		return nil
	}
	list, err := db.ListLedger(since, market.SessionDate(time.Now()))
	if err != nil {
		return fmt.Errorf("list ledger: %w", err)
	}
	total := 0.0
	fmt.Println()
	fmt.Println("| Date | Ticker | Qty | Buy | Sell | Gain/Loss |")
	fmt.Println("|------+--------+-----+-----+------+-----------|")
	for _, e := range list {
		gl := "open"
		if e.Closed() {
			gl = fmt.Sprintf("%.2f", e.GainLoss)
			total += e.GainLoss
		}
		fmt.Printf("| %s | %s | %d | %.2f | %s | %s |\n", e.TradeDate, e.Ticker, e.BuyQty, e.BuyPrice, price(e.SellPrice, e.SellQty), gl)
	}
	fmt.Printf("\nNet: %.2f\n", math.Round(total*100)/100)
	return nil
}

func price(p float64, qty int64) string {
	if qty == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", p)
}
