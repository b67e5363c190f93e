// Package config exposes strongly typed application configuration loaded from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. PAIRWATCH_MONITOR_WINDOW_SIZE.
const EnvPrefix = "pairwatch"

// ErrInvalid is wrapped by every validation failure returned from Validate.
var ErrInvalid = errors.New("invalid config")

// App captures process-wide runtime settings such as name, metrics address and log level.
type App struct {
	Name        string `yaml:"name" split_words:"true"`
	Env         string `yaml:"env" split_words:"true"`
	MetricsAddr string `yaml:"metrics_addr" split_words:"true"`
	LogLevel    string `yaml:"log_level" split_words:"true"`
}

// Exchange describes where ticks and reference data come from.
type Exchange struct {
	Provider         string `yaml:"provider" split_words:"true"`
	Leader           string `yaml:"leader" split_words:"true"`
	Follower         string `yaml:"follower" split_words:"true"`
	StreamURL        string `yaml:"stream_url" split_words:"true"`
	RestURL          string `yaml:"rest_url" split_words:"true"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms" split_words:"true"`
	RateLimitPerMin  int    `yaml:"rate_limit_per_min" split_words:"true"`
}

// Monitor holds the coordinator thresholds and buffering knobs.
type Monitor struct {
	WindowSize         int     `yaml:"window_size" split_words:"true"`
	BorderValue        float64 `yaml:"border_value" split_words:"true"`
	PriceChangeSecs    int     `yaml:"price_change_secs" split_words:"true"`
	PriceChangePercent float64 `yaml:"price_change_percent" split_words:"true"`
	QueueSize          int     `yaml:"queue_size" split_words:"true"`
	Clock              string  `yaml:"clock" split_words:"true"` // local|server
}

// Alerts configures optional alert sinks in addition to stdout.
type Alerts struct {
	JSONLPath     string `yaml:"jsonl_path" split_words:"true"`
	RedisAddr     string `yaml:"redis_addr" split_words:"true"`
	RedisPassword string `yaml:"redis_password" split_words:"true"`
	RedisDB       int    `yaml:"redis_db" split_words:"true"`
	RedisChannel  string `yaml:"redis_channel" split_words:"true"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Exchange Exchange `yaml:"exchange"`
	Monitor  Monitor  `yaml:"monitor"`
	Alerts   Alerts   `yaml:"alerts"`
}

const (
	ProviderBinance = "binance"
	ProviderStub    = "stub"

	ClockLocal  = "local"
	ClockServer = "server"
)

// Default returns a Config populated with the documented defaults. Thresholds for which zero is a
// meaningful setting are only set here, so an explicit zero from YAML or the environment survives.
func Default() *Config {
	cfg := &Config{
		Monitor: Monitor{
			BorderValue:        0.3,
			PriceChangePercent: 1,
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// Load hydrates a Config from an optional YAML file, then applies environment overrides
// (a .env file in the working directory is loaded first when present), defaults and validation.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyDefaults fills zero values that are never valid settings and normalizes symbols and URLs.
func (c *Config) ApplyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "pairwatch"
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	ex := &c.Exchange
	if ex.Provider == "" {
		ex.Provider = ProviderBinance
	}
	ex.Provider = strings.ToLower(ex.Provider)
	if ex.Leader == "" {
		ex.Leader = "BTCUSDT"
	}
	if ex.Follower == "" {
		ex.Follower = "ETHUSDT"
	}
	ex.Leader = strings.ToUpper(strings.TrimSpace(ex.Leader))
	ex.Follower = strings.ToUpper(strings.TrimSpace(ex.Follower))
	if ex.StreamURL == "" {
		ex.StreamURL = "wss://stream.binance.com:9443/ws"
	}
	if ex.RestURL == "" {
		ex.RestURL = "https://fapi.binance.com"
	}
	ex.StreamURL = strings.TrimSuffix(ex.StreamURL, "/")
	ex.RestURL = strings.TrimSuffix(ex.RestURL, "/")
	if ex.RequestTimeoutMs <= 0 {
		ex.RequestTimeoutMs = 5000
	}
	if ex.RateLimitPerMin <= 0 {
		ex.RateLimitPerMin = 1200
	}

	m := &c.Monitor
	if m.WindowSize <= 0 {
		m.WindowSize = 20
	}
	if m.PriceChangeSecs <= 0 {
		m.PriceChangeSecs = 60
	}
	if m.QueueSize <= 0 {
		m.QueueSize = 1024
	}
	if m.Clock == "" {
		m.Clock = ClockLocal
	}
	m.Clock = strings.ToLower(m.Clock)

	if c.Alerts.RedisChannel == "" {
		c.Alerts.RedisChannel = "pairwatch:alerts"
	}
}

// Validate reports settings the coordinator cannot run with.
func (c *Config) Validate() error {
	switch c.Exchange.Provider {
	case ProviderBinance, ProviderStub:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalid, c.Exchange.Provider)
	}
	if c.Exchange.Leader == c.Exchange.Follower {
		return fmt.Errorf("%w: leader and follower must differ, both are %q", ErrInvalid, c.Exchange.Leader)
	}
	if c.Monitor.WindowSize < 2 {
		return fmt.Errorf("%w: window_size must be at least 2, got %d", ErrInvalid, c.Monitor.WindowSize)
	}
	if c.Monitor.BorderValue < 0 || c.Monitor.BorderValue > 1 {
		return fmt.Errorf("%w: border_value must be within [0, 1], got %.2f", ErrInvalid, c.Monitor.BorderValue)
	}
	if c.Monitor.PriceChangePercent < 0 {
		return fmt.Errorf("%w: price_change_percent must not be negative", ErrInvalid)
	}
	switch c.Monitor.Clock {
	case ClockLocal, ClockServer:
	default:
		return fmt.Errorf("%w: unknown clock %q", ErrInvalid, c.Monitor.Clock)
	}
	return nil
}

// RequestTimeout is the per-request bound applied to reference-service calls.
func (e Exchange) RequestTimeout() time.Duration {
	return time.Duration(e.RequestTimeoutMs) * time.Millisecond
}

// PriceChangeTime is the horizon over which the follower's price move is measured.
func (m Monitor) PriceChangeTime() time.Duration {
	return time.Duration(m.PriceChangeSecs) * time.Second
}
