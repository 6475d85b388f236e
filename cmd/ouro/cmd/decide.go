package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ouro/risk"
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Evaluate one order decision with the configured risk policy",
	Long: `Run the risk checks for a hypothetical candidate and print the audit
record as JSON. Nothing is submitted.

Example:
  ouro decide --ticker IBM --price 50 --cash 5000 --avg-return 0.05 --high 52 --low 47`,
	Args: cobra.NoArgs,
	RunE: runDecide,
}

var decideIn risk.Inputs

func init() {
	rootCmd.AddCommand(decideCmd)

	f := decideCmd.Flags()
	f.StringVar(&decideIn.Ticker, "ticker", "", "ticker symbol (required)")
	f.StringVar(&decideIn.Family, "family", "", "strategy family label")
	f.Float64Var(&decideIn.Price, "price", 0, "current price (required)")
	f.Float64Var(&decideIn.Cash, "cash", 0, "usable cash after margin and reserve")
	f.IntVar(&decideIn.OpenOrders, "open-orders", 0, "open orders plus positions")
	f.Float64Var(&decideIn.AvgReturn, "avg-return", 0, "family average return, fractional")
	f.Float64Var(&decideIn.RecentHigh, "high", 0, "intraday high")
	f.Float64Var(&decideIn.RecentLow, "low", 0, "intraday low")
	decideCmd.MarkFlagRequired("ticker")
	decideCmd.MarkFlagRequired("price")
}

func runDecide(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	p := cfg.Policy()
	if err := p.Validate(); err != nil {
		return err
	}

	in := decideIn
	in.Ticker = strings.ToUpper(in.Ticker)
	in.Now = time.Now()
	d := risk.Decide(p, in)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
