package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/ouro/aggregator"
	"github.com/rustyeddy/ouro/broker"
	"github.com/rustyeddy/ouro/broker/paper"
	"github.com/rustyeddy/ouro/journal"
	"github.com/rustyeddy/ouro/market"
	"github.com/rustyeddy/ouro/metrics"
	"github.com/rustyeddy/ouro/session"
	"github.com/rustyeddy/ouro/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one trading session",
	Long: `Poll minute bars for the configured universe until the end-of-day
buffer, placing bracketed limit buys when a strategy family fires. On exit
all open orders are cancelled and all positions are closed.

Examples:
  ouro run -c ouro.yaml
  ouro run --test-mode --max-cycles 5`,
	RunE: runRun,
}

var (
	runMaxCycles int
	runTestMode  bool
	runBroker    string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVar(&runMaxCycles, "max-cycles", 0, "stop after this many cycles (0 runs until end of day)")
	runCmd.Flags().BoolVar(&runTestMode, "test-mode", false, "ignore market hours and submit GTC orders")
	runCmd.Flags().StringVar(&runBroker, "broker", "", "override session.broker (alpaca or paper)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("test-mode") {
		cfg.Session.TestMode = runTestMode
	}
	if runBroker != "" {
		cfg.Session.Broker = runBroker
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(cfg)

	tickers, err := cfg.Tickers()
	if err != nil {
		return err
	}
	perf, err := strategy.LoadTableFile(cfg.Strategy.PerformanceFile)
	if err != nil {
		return fmt.Errorf("load performance: %w", err)
	}
	eod, err := cfg.EODBuffer()
	if err != nil {
		return err
	}

	files, err := journal.NewFiles(cfg.Journal.Dir)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	j := journal.Multi{files}
	if cfg.Journal.DBPath != "" {
		db, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			files.Close()
			return fmt.Errorf("create journal: %w", err)
		}
		j = append(j, db)
	}
	defer j.Close()

	client, err := newAlpaca(cfg, log)
	if err != nil {
		return err
	}

	deps := session.Deps{
		Bars:        client,
		Broker:      client,
		Clock:       client,
		Journal:     j,
		Catalogue:   strategy.NewCatalogue(),
		Performance: perf,
	}
	if cfg.Session.Broker == "paper" {
		eng := paper.NewEngine(broker.Account{BuyingPower: cfg.Session.PaperCash, Multiplier: 1}, j)
		deps.Broker = eng
		deps.Bars = paper.Feed{Source: client, Engine: eng}
		deps.Clock = market.NewCalendar(eod)
	}

	runner, err := session.New(session.Config{
		Universe:   tickers,
		BarWindow:  cfg.Session.BarWindow,
		Workers:    cfg.Session.Workers,
		TestMode:   cfg.Session.TestMode,
		MaxCycles:  runMaxCycles,
		Policy:     cfg.Policy(),
		Aggregator: aggregator.Options{GapThreshold: cfg.Session.GapThreshold},
	}, deps, log)
	if err != nil {
		return err
	}

	if cfg.App.MetricsAddr != "" {
		srv := metrics.Serve(cfg.App.MetricsAddr)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn().Err(err).Msg("metrics shutdown")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Session: %d tickers, broker %s, test mode %t\n", len(tickers), cfg.Session.Broker, cfg.Session.TestMode)
	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	bought := 0
	for _, a := range runner.Actions() {
		if a.Bought() {
			bought++
		}
	}
	fmt.Printf("✓ Session complete: %d decisions, %d orders\n", len(runner.Actions()), bought)
	return nil
}
