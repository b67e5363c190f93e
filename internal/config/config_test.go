package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "pairwatch-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.App.LogLevel != "debug" {
		t.Fatalf("unexpected App.LogLevel: %s", cfg.App.LogLevel)
	}
	if cfg.Exchange.Provider != ProviderStub {
		t.Fatalf("unexpected provider: %s", cfg.Exchange.Provider)
	}
	if cfg.Exchange.Leader != "BTCUSDT" || cfg.Exchange.Follower != "ETHUSDT" {
		t.Fatalf("expected upper-cased symbols, got %s/%s", cfg.Exchange.Leader, cfg.Exchange.Follower)
	}
	if cfg.Exchange.RestURL != "https://fapi.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.Exchange.RestURL)
	}
	if cfg.Exchange.RequestTimeout() != 2500*time.Millisecond {
		t.Fatalf("unexpected request timeout: %s", cfg.Exchange.RequestTimeout())
	}
	if cfg.Monitor.WindowSize != 30 {
		t.Fatalf("unexpected window size: %d", cfg.Monitor.WindowSize)
	}
	if cfg.Monitor.BorderValue != 0.5 {
		t.Fatalf("unexpected border value: %.2f", cfg.Monitor.BorderValue)
	}
	if cfg.Monitor.PriceChangeTime() != 2*time.Minute {
		t.Fatalf("unexpected horizon: %s", cfg.Monitor.PriceChangeTime())
	}
	if cfg.Monitor.PriceChangePercent != 2.5 {
		t.Fatalf("unexpected price change percent: %.2f", cfg.Monitor.PriceChangePercent)
	}
	if cfg.Monitor.QueueSize != 64 {
		t.Fatalf("unexpected queue size: %d", cfg.Monitor.QueueSize)
	}
	if cfg.Monitor.Clock != ClockServer {
		t.Fatalf("unexpected clock: %s", cfg.Monitor.Clock)
	}
	if cfg.Alerts.RedisAddr != "localhost:6379" {
		t.Fatalf("unexpected redis addr: %s", cfg.Alerts.RedisAddr)
	}
	if cfg.Alerts.RedisChannel != "pairwatch:alerts" {
		t.Fatalf("expected default redis channel, got %s", cfg.Alerts.RedisChannel)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Monitor.WindowSize != 20 {
		t.Fatalf("expected default window 20, got %d", cfg.Monitor.WindowSize)
	}
	if cfg.Monitor.BorderValue != 0.3 {
		t.Fatalf("expected default border 0.3, got %.2f", cfg.Monitor.BorderValue)
	}
	if cfg.Monitor.PriceChangeSecs != 60 {
		t.Fatalf("expected default horizon 60, got %d", cfg.Monitor.PriceChangeSecs)
	}
	if cfg.Monitor.PriceChangePercent != 1 {
		t.Fatalf("expected default percent 1, got %.2f", cfg.Monitor.PriceChangePercent)
	}
	if cfg.Exchange.RequestTimeout() != 5*time.Second {
		t.Fatalf("expected default timeout 5s, got %s", cfg.Exchange.RequestTimeout())
	}
	if cfg.Exchange.Provider != ProviderBinance {
		t.Fatalf("expected binance provider, got %s", cfg.Exchange.Provider)
	}
}

func TestLoadKeepsExplicitZeroThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zero.yaml")
	body := "monitor:\n  border_value: 0\n  price_change_percent: 0\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Monitor.BorderValue != 0 {
		t.Fatalf("explicit zero border overwritten: %.2f", cfg.Monitor.BorderValue)
	}
	if cfg.Monitor.PriceChangePercent != 0 {
		t.Fatalf("explicit zero percent overwritten: %.2f", cfg.Monitor.PriceChangePercent)
	}
	if cfg.Monitor.WindowSize != 20 {
		t.Fatalf("unset keys should keep defaults, got window %d", cfg.Monitor.WindowSize)
	}

	cfg.ApplyDefaults()
	if cfg.Monitor.BorderValue != 0 || cfg.Monitor.PriceChangePercent != 0 {
		t.Fatalf("ApplyDefaults must not touch thresholds, got %.2f/%.2f", cfg.Monitor.BorderValue, cfg.Monitor.PriceChangePercent)
	}
}

func TestLoadEnvZeroThreshold(t *testing.T) {
	t.Setenv("PAIRWATCH_MONITOR_BORDER_VALUE", "0")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Monitor.BorderValue != 0 {
		t.Fatalf("expected env zero border, got %.2f", cfg.Monitor.BorderValue)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("PAIRWATCH_MONITOR_WINDOW_SIZE", "50")
	t.Setenv("PAIRWATCH_EXCHANGE_FOLLOWER", "solusdt")
	t.Setenv("PAIRWATCH_ALERTS_JSONL_PATH", "/var/log/alerts.jsonl")

	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Monitor.WindowSize != 50 {
		t.Fatalf("expected env window 50, got %d", cfg.Monitor.WindowSize)
	}
	if cfg.Exchange.Follower != "SOLUSDT" {
		t.Fatalf("expected env follower SOLUSDT, got %s", cfg.Exchange.Follower)
	}
	if cfg.Alerts.JSONLPath != "/var/log/alerts.jsonl" {
		t.Fatalf("unexpected jsonl path %s", cfg.Alerts.JSONLPath)
	}
	if cfg.Monitor.BorderValue != 0.5 {
		t.Fatalf("file value should survive overlay, got %.2f", cfg.Monitor.BorderValue)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"same symbols":    func(c *Config) { c.Exchange.Follower = c.Exchange.Leader },
		"tiny window":     func(c *Config) { c.Monitor.WindowSize = 1 },
		"border too high": func(c *Config) { c.Monitor.BorderValue = 1.5 },
		"unknown clock":   func(c *Config) { c.Monitor.Clock = "atomic" },
		"unknown feed":    func(c *Config) { c.Exchange.Provider = "kraken" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairwatch.yaml")
	cfg := Default()
	cfg.Monitor.WindowSize = 40
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Monitor.WindowSize != 40 {
		t.Fatalf("expected window 40 after reload, got %d", loaded.Monitor.WindowSize)
	}
}
