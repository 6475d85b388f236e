package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ouro/broker"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 120, cfg.Session.BarWindow)
	assert.Equal(t, 0.02, cfg.Session.GapThreshold)
	assert.Equal(t, 10, cfg.Risk.MaxPositions)
	assert.Equal(t, 25001.0, cfg.Risk.CashReserve)
	assert.NoError(t, cfg.Validate())

	d, err := cfg.EODBuffer()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown broker", func(c *Config) { c.Session.Broker = "ib" }, "session.broker"},
		{"short window", func(c *Config) { c.Session.BarWindow = 1 }, "session.bar_window"},
		{"zero gap", func(c *Config) { c.Session.GapThreshold = 0 }, "session.gap_threshold"},
		{"bad buffer", func(c *Config) { c.Session.EODBuffer = "soon" }, "session.eod_buffer"},
		{"no workers", func(c *Config) { c.Session.Workers = 0 }, "session.workers"},
		{"paper without cash", func(c *Config) { c.Session.Broker = "paper"; c.Session.PaperCash = 0 }, "paper_cash"},
		{"risk", func(c *Config) { c.Risk.MaxPositions = 0 }, "risk: max positions"},
		{"time in force", func(c *Config) { c.Risk.TimeInForce = "ioc" }, "time in force"},
		{"performance file", func(c *Config) { c.Strategy.PerformanceFile = "" }, "strategy.performance_file"},
		{"retry wait", func(c *Config) { c.Alpaca.RetryWait = "x" }, "alpaca.retry_wait"},
		{"journal dir", func(c *Config) { c.Journal.Dir = "" }, "journal.dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	for _, name := range []string{"ouro.yaml", "ouro.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := Default()
			cfg.Session.Universe = []string{"IBM", "VZ"}
			cfg.Risk.MaxPositions = 5
			cfg.Alpaca.KeyID = "never-saved"
			require.NoError(t, cfg.SaveToFile(path))

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.NotContains(t, string(raw), "never-saved")

			got, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, []string{"IBM", "VZ"}, got.Session.Universe)
			assert.Equal(t, 5, got.Risk.MaxPositions)
			assert.Empty(t, got.Alpaca.KeyID)
		})
	}
}

func TestLoadFromFilePartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ouro.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  test_mode: true\n  universe: [ibm]\n"), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Session.TestMode)
	assert.Equal(t, 120, cfg.Session.BarWindow)
	assert.Equal(t, 0.004, cfg.Risk.MaxRiskRatio)
	assert.Equal(t, broker.GTC, cfg.Policy().TimeInForce)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session: [unterminated"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  workers: 0\n"), 0644))
	_, err = LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte(EnvKeyID+"=file-key\n"+EnvSecretKey+"=file-secret\n"), 0600))

	t.Setenv(EnvKeyID, "shell-key")
	t.Setenv(EnvSecretKey, "")
	require.NoError(t, os.Unsetenv(EnvSecretKey))

	cfg := Default()
	require.NoError(t, cfg.LoadEnv(filepath.Join(dir, "missing.env"), env))
	assert.Equal(t, "shell-key", cfg.Alpaca.KeyID)
	assert.Equal(t, "file-secret", cfg.Alpaca.SecretKey)

	ac, err := cfg.AlpacaClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "shell-key", ac.KeyID)
	assert.Equal(t, 500*time.Millisecond, ac.RetryWait)
	assert.Equal(t, 15*time.Minute, ac.EODBuffer)
}

func TestTickers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "universe.txt")
	require.NoError(t, os.WriteFile(path, []byte("vz\n# comment\n\nT  # telecom\nibm\n"), 0644))

	cfg := Default()
	cfg.Session.Universe = []string{"IBM", "aapl"}
	cfg.Session.UniverseFile = path

	got, err := cfg.Tickers()
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "IBM", "T", "VZ"}, got)

	cfg.Session.UniverseFile = filepath.Join(t.TempDir(), "nope.txt")
	_, err = cfg.Tickers()
	assert.Error(t, err)
}
