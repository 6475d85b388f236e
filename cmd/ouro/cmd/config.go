package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ouro/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  ouro config init -o ouro.yaml
  ouro config validate -f ouro.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "ouro.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nAdd tickers under session.universe, then run with:")
	fmt.Printf("  ouro run -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	tickers, err := cfg.Tickers()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	p := cfg.Policy()
	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Broker: %s (test mode: %t)\n", cfg.Session.Broker, cfg.Session.TestMode)
	fmt.Printf("  Universe: %d tickers\n", len(tickers))
	fmt.Printf("  Risk: %d positions, %.2f%% per trade, reserve $%.2f\n", p.MaxPositions, p.MaxRiskRatio*100, p.CashReserve)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Dir)
	return nil
}
