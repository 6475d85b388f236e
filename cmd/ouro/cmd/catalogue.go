package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ouro/signal"
	"github.com/rustyeddy/ouro/strategy"
)

var catalogueCmd = &cobra.Command{
	Use:   "catalogue",
	Short: "Export every strategy code with its family and name",
	Long: `Write strategy_id,Family,Name for all 3^11 strategy codes. The file
seeds the performance table the session reads thresholds from.

Examples:
  ouro catalogue -o strategy_index.csv
  ouro catalogue --code AAABCCBAACB`,
	Args: cobra.NoArgs,
	RunE: runCatalogue,
}

var catalogueCode string

func init() {
	rootCmd.AddCommand(catalogueCmd)

	catalogueCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output CSV (default stdout)")
	catalogueCmd.Flags().StringVar(&catalogueCode, "code", "", "describe a single code instead")
}

func runCatalogue(cmd *cobra.Command, args []string) error {
	cat := strategy.NewCatalogue()

	if catalogueCode != "" {
		code, err := signal.ParseCode(catalogueCode)
		if err != nil {
			return err
		}
		e, err := cat.Lookup(code)
		if err != nil {
			return err
		}
		fmt.Printf("Code:   %s (index %d)\n", e.Code, e.Code.Index())
		fmt.Printf("Family: %s (%d indicators)\n", e.Family, e.Family.Size())
		fmt.Printf("Name:   %s\n", e.Name)
		fmt.Printf("Score:  %+d\n", e.Code.Score())
		return nil
	}

	w, err := output(outputPath)
	if err != nil {
		return err
	}
	if err := cat.WriteIndexCSV(w); err != nil {
		w.Close()
		return fmt.Errorf("write catalogue: %w", err)
	}
	if err := w.Close(); err != nil {
		return err
	}
	if outputPath != "" {
		fmt.Printf("✓ Wrote %d strategy codes to %s\n", cat.Len(), outputPath)
	}
	return nil
}
