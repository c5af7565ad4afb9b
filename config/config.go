package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spooky-finn/go-bittrex-bridge/domain"
	"gopkg.in/yaml.v3"
)

// DebugMode turns on debug logging for the whole process.
var DebugMode bool

type Config struct {
	Bittrex struct {
		APIKey    string        `yaml:"api_key"`
		APISecret string        `yaml:"api_secret"`
		BaseURL   string        `yaml:"base_url"`
		BaseURL2  string        `yaml:"base_url_v2"`
		WSURL     string        `yaml:"ws_url"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"bittrex"`

	OrderBook struct {
		// Markets tracked from startup, "base_quote" notation.
		Markets          []string      `yaml:"markets"`
		SnapshotDepth    int           `yaml:"snapshot_depth"`
		NoncePolicy      string        `yaml:"nonce_policy"`
		ResyncOnGap      bool          `yaml:"resync_on_gap"`
		FirstUpdateWait  time.Duration `yaml:"first_update_wait"`
		SnapshotAttempts int           `yaml:"snapshot_attempts"`
		// Check the markets against the exchange listing at startup.
		ValidateMarkets bool `yaml:"validate_markets"`
	} `yaml:"order_book"`

	Backfill struct {
		PageDelay time.Duration `yaml:"page_delay"`
		Database  string        `yaml:"database"`
	} `yaml:"backfill"`

	GRPC struct {
		Addr string `yaml:"addr"`
		// Markets the gRPC service answers for. Empty allows every market.
		AllowedMarkets []string `yaml:"allowed_markets"`
		// Serve the trading service: orders, deposits, balances and
		// withdrawals. Needs api credentials.
		Trading bool `yaml:"trading"`
	} `yaml:"grpc"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Debug      bool   `yaml:"debug"`
	} `yaml:"log"`
}

type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func Defaults() Config {
	var cfg Config

	cfg.Bittrex.BaseURL = "https://bittrex.com/api/v1.1"
	cfg.Bittrex.BaseURL2 = "https://bittrex.com/api/v2.0"
	cfg.Bittrex.WSURL = "wss://socket.bittrex.com/signalr"
	cfg.Bittrex.Timeout = 10 * time.Second

	cfg.OrderBook.NoncePolicy = "permissive"
	cfg.OrderBook.ResyncOnGap = true
	cfg.OrderBook.FirstUpdateWait = time.Second
	cfg.OrderBook.SnapshotAttempts = 5
	cfg.OrderBook.ValidateMarkets = true

	cfg.Backfill.PageDelay = time.Second
	cfg.Backfill.Database = "data/trades.db"

	cfg.GRPC.Addr = ":50051"
	cfg.Metrics.Addr = ":8080"

	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.Log.MaxSizeMB = 10
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28

	return cfg
}

// Load merges the YAML file at path (skipped when path is empty) over the
// defaults, then applies BITTREX_* environment overrides, reading a .env file
// first when one exists. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// missing .env is fine
	_ = godotenv.Load()

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	DebugMode = cfg.Log.Debug
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Bittrex.APIKey != "" && c.Bittrex.APISecret == "" {
		return &ConfigError{Field: "bittrex.api_secret", Err: errors.New("required with an api key")}
	}
	if !strings.HasPrefix(c.Bittrex.WSURL, "ws://") && !strings.HasPrefix(c.Bittrex.WSURL, "wss://") {
		return &ConfigError{Field: "bittrex.ws_url", Err: fmt.Errorf("invalid websocket url %q", c.Bittrex.WSURL)}
	}
	if c.Bittrex.Timeout <= 0 {
		return &ConfigError{Field: "bittrex.timeout", Err: errors.New("must be positive")}
	}

	for _, m := range c.OrderBook.Markets {
		if _, err := domain.NewMarketSymbolFromString(m); err != nil {
			return &ConfigError{Field: "order_book.markets", Err: err}
		}
	}
	if c.OrderBook.SnapshotDepth < 0 {
		return &ConfigError{Field: "order_book.snapshot_depth", Err: errors.New("must not be negative")}
	}
	if _, err := c.NoncePolicy(); err != nil {
		return &ConfigError{Field: "order_book.nonce_policy", Err: err}
	}
	if c.OrderBook.SnapshotAttempts <= 0 {
		return &ConfigError{Field: "order_book.snapshot_attempts", Err: errors.New("must be positive")}
	}

	if c.Backfill.PageDelay < 0 {
		return &ConfigError{Field: "backfill.page_delay", Err: errors.New("must not be negative")}
	}
	if c.Backfill.Database == "" {
		return &ConfigError{Field: "backfill.database", Err: errors.New("required")}
	}
	if c.GRPC.Addr == "" {
		return &ConfigError{Field: "grpc.addr", Err: errors.New("required")}
	}
	if c.GRPC.Trading && c.Bittrex.APIKey == "" {
		return &ConfigError{Field: "bittrex.api_key", Err: errors.New("required by grpc.trading")}
	}

	return nil
}

func (c *Config) NoncePolicy() (domain.NoncePolicy, error) {
	switch strings.ToLower(c.OrderBook.NoncePolicy) {
	case "", "permissive":
		return domain.NoncePermissive, nil
	case "strict":
		return domain.NonceStrict, nil
	}
	return 0, fmt.Errorf("unknown nonce policy %q", c.OrderBook.NoncePolicy)
}

func (c *Config) MaintainerOptions() domain.MaintainerOptions {
	opts := domain.DefaultMaintainerOptions()
	opts.SnapshotDepth = c.OrderBook.SnapshotDepth
	opts.ResyncOnGap = c.OrderBook.ResyncOnGap
	opts.FirstUpdateWait = c.OrderBook.FirstUpdateWait
	opts.SnapshotAttempts = c.OrderBook.SnapshotAttempts
	return opts
}

func applyEnvOverrides(cfg *Config) error {
	setStr(&cfg.Bittrex.APIKey, "BITTREX_API_KEY")
	setStr(&cfg.Bittrex.APISecret, "BITTREX_API_SECRET")
	setStr(&cfg.Bittrex.BaseURL, "BITTREX_BASE_URL")
	setStr(&cfg.Bittrex.WSURL, "BITTREX_WS_URL")
	setList(&cfg.OrderBook.Markets, "BITTREX_MARKETS")
	setStr(&cfg.OrderBook.NoncePolicy, "BITTREX_NONCE_POLICY")
	setStr(&cfg.Backfill.Database, "BITTREX_DB_PATH")
	setStr(&cfg.GRPC.Addr, "BITTREX_GRPC_ADDR")
	setStr(&cfg.Metrics.Addr, "BITTREX_METRICS_ADDR")
	setStr(&cfg.Log.Level, "BITTREX_LOG_LEVEL")

	if err := setBool(&cfg.Log.Debug, "BITTREX_DEBUG"); err != nil {
		return err
	}
	if err := setBool(&cfg.GRPC.Trading, "BITTREX_GRPC_TRADING"); err != nil {
		return err
	}
	return setDuration(&cfg.Backfill.PageDelay, "BITTREX_PAGE_DELAY")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}

	var list []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	*dst = list
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return &ConfigError{Field: key, Err: err}
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return &ConfigError{Field: key, Err: err}
	}
	*dst = d
	return nil
}
