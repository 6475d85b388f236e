package cmd

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ouro/signal"
	"github.com/rustyeddy/ouro/strategy"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <bars.csv>",
	Short: "Print the strategy code of every classifiable bar",
	Long: `Compute indicators for a bar file and vote each bar into a strategy
code. Rows in the indicator warm-up are omitted.

Examples:
  ouro classify --ticker IBM ibm.csv
  ouro classify --ticker IBM --min-score 6 ibm.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

var classifyMinScore int

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVarP(&barsTicker, "ticker", "t", "", "ticker for files without a symbol column")
	classifyCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output CSV (default stdout)")
	classifyCmd.Flags().IntVar(&classifyMinScore, "min-score", -signal.NumIndicators, "only rows whose net bullish score is at least this")
}

func runClassify(cmd *cobra.Command, args []string) error {
	rows, err := loadRows(args[0])
	if err != nil {
		return err
	}
	w, err := output(outputPath)
	if err != nil {
		return err
	}
	defer w.Close()

	cat := strategy.NewCatalogue()
	cw := csv.NewWriter(w)
	cw.Write([]string{"time", "ticker", "close", "code", "index", "family", "score", "trend"})
	for _, c := range signal.Classify(rows) {
		if c.Code.Score() < classifyMinScore {
			continue
		}
		e, err := cat.Lookup(c.Code)
		if err != nil {
			return err
		}
		cw.Write([]string{
			c.Time.UTC().Format(time.RFC3339),
			c.Ticker,
			strconv.FormatFloat(c.Close, 'f', 2, 64),
			c.Code.String(),
			strconv.Itoa(c.Code.Index()),
			e.Family.String(),
			strconv.Itoa(c.Code.Score()),
			c.Trend.String(),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write codes: %w", err)
	}
	return nil
}
