package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ouro/indicators"
	"github.com/rustyeddy/ouro/market"
)

var indicatorsCmd = &cobra.Command{
	Use:   "indicators <bars.csv>",
	Short: "Compute indicator rows for a bar file",
	Long: `Read a CSV of minute bars (time,open,high,low,close,volume) and write
one row per bar with every indicator. Values still inside their warm-up
window are left blank.

Example:
  ouro indicators --ticker IBM ibm.csv -o ibm_indicators.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runIndicators,
}

var (
	barsTicker string
	outputPath string
)

func init() {
	rootCmd.AddCommand(indicatorsCmd)

	indicatorsCmd.Flags().StringVarP(&barsTicker, "ticker", "t", "", "ticker for files without a symbol column")
	indicatorsCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output CSV (default stdout)")
}

// loadRows reads a bar file and computes indicators per ticker, tickers in
// alphabetical order.
func loadRows(path string) ([]indicators.Row, error) {
	bars, err := market.LoadBarsFile(path, strings.ToUpper(barsTicker))
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}
	byTicker := market.GroupByTicker(bars)
	tickers := make([]string, 0, len(byTicker))
	for t := range byTicker {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	var out []indicators.Row
	for _, t := range tickers {
		rows, err := indicators.Compute(byTicker[t])
		if err != nil {
			return nil, fmt.Errorf("compute indicators %s: %w", t, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

// output opens the -o file, or stdout when none is given.
func output(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func runIndicators(cmd *cobra.Command, args []string) error {
	rows, err := loadRows(args[0])
	if err != nil {
		return err
	}
	w, err := output(outputPath)
	if err != nil {
		return err
	}
	if err := indicators.WriteCSV(w, rows); err != nil {
		w.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	return w.Close()
}
