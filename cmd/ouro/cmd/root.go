package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/ouro/alpaca"
	"github.com/rustyeddy/ouro/config"
	"github.com/rustyeddy/ouro/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "ouro",
	Short: "Indicator-vote equity trader",
	Long: `Ouro watches a universe of US equities minute by minute. Every bar
is run through a fixed set of technical indicators, each indicator votes
bullish, neutral or bearish, and the votes form a strategy code. When a
code's family has fired more often than its history says is needed, ouro
sizes a bracketed limit buy against the account's risk limits.

Commands:
  run         the live polling session
  indicators  compute indicator rows for a bar file
  classify    strategy codes for a bar file
  catalogue   export every strategy code
  decide      evaluate one order decision by hand
  history     build training rows from historical bars
  journal     query decisions, trades and session reports
  ledger      reconcile broker fills into a gain/loss ledger
  config      generate or validate configuration`,
	SilenceUsage: true,
}

var (
	cfgPath  string
	envFile  string
	logLevel string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "ouro.yaml", "config file (YAML or JSON); defaults are used if it does not exist")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with broker credentials")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override app.log_level")
}

// loadConfig reads the config file when present, then the credentials.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
		cfg = config.Default()
	} else {
		if cfg, err = config.LoadFromFile(cfgPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadEnv(envFile); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.App.LogLevel)
}

func newAlpaca(cfg *config.Config, log zerolog.Logger) (*alpaca.Client, error) {
	ac, err := cfg.AlpacaClientConfig()
	if err != nil {
		return nil, err
	}
	if ac.KeyID == "" || ac.SecretKey == "" {
		return nil, fmt.Errorf("alpaca credentials missing: set %s and %s", config.EnvKeyID, config.EnvSecretKey)
	}
	return alpaca.NewClient(ac, log), nil
}
