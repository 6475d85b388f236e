package config

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/ouro/aggregator"
	"github.com/rustyeddy/ouro/alpaca"
	"github.com/rustyeddy/ouro/broker"
	"github.com/rustyeddy/ouro/risk"
)

// Environment variables holding broker credentials.
const (
	EnvKeyID     = "APCA_API_KEY_ID"
	EnvSecretKey = "APCA_API_SECRET_KEY"
)

// Config is the complete runtime configuration
type Config struct {
	App      AppConfig      `json:"app" yaml:"app"`
	Session  SessionConfig  `json:"session" yaml:"session"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Alpaca   AlpacaConfig   `json:"alpaca" yaml:"alpaca"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

type AppConfig struct {
	LogLevel    string `json:"log_level" yaml:"log_level"`
	MetricsAddr string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"` // empty disables the listener
}

// SessionConfig controls the polling loop
type SessionConfig struct {
	Broker       string   `json:"broker" yaml:"broker"` // "alpaca" or "paper"
	Universe     []string `json:"universe,omitempty" yaml:"universe,omitempty"`
	UniverseFile string   `json:"universe_file,omitempty" yaml:"universe_file,omitempty"`
	BarWindow    int      `json:"bar_window" yaml:"bar_window"`
	GapThreshold float64  `json:"gap_threshold" yaml:"gap_threshold"`
	EODBuffer    string   `json:"eod_buffer" yaml:"eod_buffer"` // e.g. "15m"
	Workers      int      `json:"workers" yaml:"workers"`
	TestMode     bool     `json:"test_mode" yaml:"test_mode"`
	PaperCash    float64  `json:"paper_cash,omitempty" yaml:"paper_cash,omitempty"`
}

// RiskConfig mirrors risk.Policy
type RiskConfig struct {
	MaxPositions   int     `json:"max_positions" yaml:"max_positions"`
	MaxRiskRatio   float64 `json:"max_risk_ratio" yaml:"max_risk_ratio"`
	CashReserve    float64 `json:"cash_reserve" yaml:"cash_reserve"`
	StopRatio      float64 `json:"stop_ratio" yaml:"stop_ratio"`
	TightStopRatio float64 `json:"tight_stop_ratio" yaml:"tight_stop_ratio"`
	ReachOffset    float64 `json:"reach_offset" yaml:"reach_offset"`
	EntryFraction  float64 `json:"entry_fraction" yaml:"entry_fraction"`
	RewardEdge     float64 `json:"reward_edge" yaml:"reward_edge"`
	TimeInForce    string  `json:"time_in_force" yaml:"time_in_force"`
}

type StrategyConfig struct {
	PerformanceFile string `json:"performance_file" yaml:"performance_file"`
}

// AlpacaConfig holds endpoints and retry policy. Credentials are never
// read from or written to the file.
type AlpacaConfig struct {
	BaseURL      string `json:"base_url" yaml:"base_url"`
	DataURL      string `json:"data_url" yaml:"data_url"`
	Feed         string `json:"feed" yaml:"feed"`
	Timeout      string `json:"timeout" yaml:"timeout"`
	RetryCount   int    `json:"retry_count" yaml:"retry_count"`
	RetryWait    string `json:"retry_wait" yaml:"retry_wait"`
	RetryMaxWait string `json:"retry_max_wait" yaml:"retry_max_wait"`

	KeyID     string `json:"-" yaml:"-"`
	SecretKey string `json:"-" yaml:"-"`
}

type JournalConfig struct {
	Dir    string `json:"dir" yaml:"dir"`                             // status.csv, actions.json, trades.csv
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"` // empty disables SQLite
}

// Default returns a configuration with production defaults
func Default() *Config {
	p := risk.DefaultPolicy()
	return &Config{
		App: AppConfig{LogLevel: "info"},
		Session: SessionConfig{
			Broker:       "alpaca",
			BarWindow:    120,
			GapThreshold: aggregator.DefaultGapThreshold,
			EODBuffer:    "15m",
			Workers:      8,
			PaperCash:    30000,
		},
		Risk: RiskConfig{
			MaxPositions:   p.MaxPositions,
			MaxRiskRatio:   p.MaxRiskRatio,
			CashReserve:    p.CashReserve,
			StopRatio:      p.StopRatio,
			TightStopRatio: p.TightStopRatio,
			ReachOffset:    p.ReachOffset,
			EntryFraction:  p.EntryFraction,
			RewardEdge:     p.RewardEdge,
			TimeInForce:    string(p.TimeInForce),
		},
		Strategy: StrategyConfig{PerformanceFile: "./strategy_performance.csv"},
		Alpaca: AlpacaConfig{
			BaseURL:      alpaca.PaperURL,
			DataURL:      alpaca.DataURL,
			Feed:         "iex",
			Timeout:      "30s",
			RetryCount:   4,
			RetryWait:    "500ms",
			RetryMaxWait: "10s",
		},
		Journal: JournalConfig{
			Dir:    "./journal",
			DBPath: "./journal/ouro.db",
		},
	}
}

// LoadFromFile loads configuration from a file, YAML first with a JSON
// fallback. Missing sections keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", jerr)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadEnv reads credentials from the environment after loading any of the
// given .env files that exist. Variables already set win over the files.
func (c *Config) LoadEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	c.Alpaca.KeyID = os.Getenv(EnvKeyID)
	c.Alpaca.SecretKey = os.Getenv(EnvSecretKey)
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Session.Broker {
	case "alpaca", "paper":
	default:
		return fmt.Errorf("session.broker must be 'alpaca' or 'paper'")
	}
	if c.Session.BarWindow < 2 {
		return fmt.Errorf("session.bar_window must be at least 2")
	}
	if c.Session.GapThreshold <= 0 {
		return fmt.Errorf("session.gap_threshold must be positive")
	}
	if _, err := c.EODBuffer(); err != nil {
		return fmt.Errorf("session.eod_buffer: %w", err)
	}
	if c.Session.Workers < 1 {
		return fmt.Errorf("session.workers must be at least 1")
	}
	if c.Session.Broker == "paper" && c.Session.PaperCash <= 0 {
		return fmt.Errorf("session.paper_cash must be positive for the paper broker")
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if c.Strategy.PerformanceFile == "" {
		return fmt.Errorf("strategy.performance_file is required")
	}
	if _, err := c.AlpacaClientConfig(); err != nil {
		return err
	}
	if c.Journal.Dir == "" {
		return fmt.Errorf("journal.dir is required")
	}
	return nil
}

// EODBuffer parses session.eod_buffer.
func (c *Config) EODBuffer() (time.Duration, error) {
	return parseDuration(c.Session.EODBuffer)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// Policy builds the risk policy. Test mode forces good-till-cancelled.
func (c *Config) Policy() risk.Policy {
	p := risk.Policy{
		MaxPositions:   c.Risk.MaxPositions,
		MaxRiskRatio:   c.Risk.MaxRiskRatio,
		CashReserve:    c.Risk.CashReserve,
		StopRatio:      c.Risk.StopRatio,
		TightStopRatio: c.Risk.TightStopRatio,
		ReachOffset:    c.Risk.ReachOffset,
		EntryFraction:  c.Risk.EntryFraction,
		RewardEdge:     c.Risk.RewardEdge,
		TimeInForce:    broker.TimeInForce(strings.ToLower(c.Risk.TimeInForce)),
	}
	if c.Session.TestMode {
		p.TimeInForce = broker.GTC
	}
	return p
}

// AlpacaClientConfig converts the alpaca section, credentials included.
func (c *Config) AlpacaClientConfig() (alpaca.Config, error) {
	a := c.Alpaca
	out := alpaca.Config{
		KeyID:      a.KeyID,
		SecretKey:  a.SecretKey,
		BaseURL:    a.BaseURL,
		DataURL:    a.DataURL,
		Feed:       a.Feed,
		RetryCount: a.RetryCount,
	}
	var err error
	if out.Timeout, err = parseDuration(a.Timeout); err != nil {
		return alpaca.Config{}, fmt.Errorf("alpaca.timeout: %w", err)
	}
	if out.RetryWait, err = parseDuration(a.RetryWait); err != nil {
		return alpaca.Config{}, fmt.Errorf("alpaca.retry_wait: %w", err)
	}
	if out.RetryMaxWait, err = parseDuration(a.RetryMaxWait); err != nil {
		return alpaca.Config{}, fmt.Errorf("alpaca.retry_max_wait: %w", err)
	}
	if a.RetryCount < 0 {
		return alpaca.Config{}, fmt.Errorf("alpaca.retry_count must be >= 0")
	}
	if out.EODBuffer, err = c.EODBuffer(); err != nil {
		return alpaca.Config{}, fmt.Errorf("session.eod_buffer: %w", err)
	}
	return out, nil
}

// Tickers merges session.universe with session.universe_file: upper case,
// de-duplicated and sorted. Blank lines and '#' comments in the file are
// ignored.
func (c *Config) Tickers() ([]string, error) {
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			seen[s] = true
		}
	}
	for _, t := range c.Session.Universe {
		add(t)
	}

	if c.Session.UniverseFile != "" {
		f, err := os.Open(c.Session.UniverseFile)
		if err != nil {
			return nil, fmt.Errorf("universe file: %w", err)
		}
		defer f.Close()

		sc := bufio.NewScanner(f)
		for sc.Scan() {
			line := sc.Text()
			if i := strings.IndexByte(line, '#'); i >= 0 {
				line = line[:i]
			}
			add(line)
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("universe file: %w", err)
		}
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}
