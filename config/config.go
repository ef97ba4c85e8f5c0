// Package config loads the signal bot configuration.
//
// Values are layered: built-in defaults, then a .env file (joho/godotenv),
// then an optional YAML file named by CONFIG_FILE, then process environment
// variables. Later layers win.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"equity-signalbot/internal/indicator"
	"equity-signalbot/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	Symbols []string `yaml:"symbols"`

	Alpaca  AlpacaConfig  `yaml:"alpaca"`
	Source  SourceConfig  `yaml:"source"`
	Redis   RedisConfig   `yaml:"redis"`
	Trading TradingConfig `yaml:"trading"`
	Notify  NotifyConfig  `yaml:"notify"`

	Strategy   strategy.Thresholds `yaml:"strategy"`
	Indicators indicator.Params    `yaml:"indicators"`

	// Infrastructure
	JournalPath string `yaml:"journal_path"` // empty disables the order journal
	MetricsAddr string `yaml:"metrics_addr"` // empty disables /metrics and /healthz
	LogLevel    string `yaml:"log_level"`
}

// AlpacaConfig holds broker credentials and endpoints.
type AlpacaConfig struct {
	KeyID      string        `yaml:"key_id"`
	SecretKey  string        `yaml:"secret_key"`
	TradingURL string        `yaml:"trading_url"`
	DataURL    string        `yaml:"data_url"`
	Feed       string        `yaml:"feed"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Enabled reports whether credentials are present.
func (a AlpacaConfig) Enabled() bool {
	return a.KeyID != "" && a.SecretKey != ""
}

// SourceConfig controls the price-series provider chain.
type SourceConfig struct {
	PrimaryLookback     int           `yaml:"primary_lookback"`      // bars
	SecondaryPeriodDays int           `yaml:"secondary_period_days"` // calendar days
	DelistCheckDays     int           `yaml:"delist_check_days"`
	ProviderTimeout     time.Duration `yaml:"provider_timeout"`
	MinBars             int           `yaml:"min_bars"`
	BreakerMaxFailures  int           `yaml:"breaker_max_failures"`
	BreakerReset        time.Duration `yaml:"breaker_reset"`
}

// RedisConfig configures the delisting cache. An empty Addr disables it.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	DelistTTL time.Duration `yaml:"delist_ttl"`
}

// TradingConfig controls sizing and order routing.
type TradingConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
	OrderType      string  `yaml:"order_type"`
	TimeInForce    string  `yaml:"time_in_force"`

	// Paper routes orders to the in-process simulator instead of the broker.
	Paper     bool    `yaml:"paper"`
	PaperCash float64 `yaml:"paper_cash"`
}

// Capital returns InitialCapital as a decimal.
func (t TradingConfig) Capital() decimal.Decimal {
	return decimal.NewFromFloat(t.InitialCapital)
}

// NotifyConfig selects alert channels. Empty values disable a channel.
type NotifyConfig struct {
	WebhookURL       string `yaml:"webhook_url"`
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   string `yaml:"telegram_chat_id"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		Symbols: []string{"MULN", "CEI", "HCMC", "SNDL", "OCGN"},
		Alpaca: AlpacaConfig{
			TradingURL: "https://paper-api.alpaca.markets",
			DataURL:    "https://data.alpaca.markets",
			Feed:       "iex",
			Timeout:    10 * time.Second,
		},
		Source: SourceConfig{
			PrimaryLookback:     100,
			SecondaryPeriodDays: 300,
			DelistCheckDays:     5,
			ProviderTimeout:     15 * time.Second,
			MinBars:             1,
			BreakerMaxFailures:  3,
			BreakerReset:        time.Minute,
		},
		Redis: RedisConfig{
			DelistTTL: 24 * time.Hour,
		},
		Trading: TradingConfig{
			InitialCapital: 100,
			OrderType:      "market",
			TimeInForce:    "gtc",
			PaperCash:      100,
		},
		Strategy:    strategy.DefaultThresholds(),
		Indicators:  indicator.DefaultParams(),
		JournalPath: "data/orders.db",
		LogLevel:    "info",
	}
}

// Load reads configuration from .env, CONFIG_FILE and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[config] .env not loaded: %v", err)
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	e := &envReader{}

	e.setList("SYMBOLS", &c.Symbols)

	e.setString("APCA_API_KEY_ID", &c.Alpaca.KeyID)
	e.setString("APCA_API_SECRET_KEY", &c.Alpaca.SecretKey)
	e.setString("APCA_API_BASE_URL", &c.Alpaca.TradingURL)
	e.setString("APCA_DATA_URL", &c.Alpaca.DataURL)
	e.setString("APCA_DATA_FEED", &c.Alpaca.Feed)
	e.setDuration("APCA_TIMEOUT", &c.Alpaca.Timeout)

	e.setInt("PRIMARY_LOOKBACK", &c.Source.PrimaryLookback)
	e.setInt("SECONDARY_PERIOD_DAYS", &c.Source.SecondaryPeriodDays)
	e.setInt("DELIST_CHECK_DAYS", &c.Source.DelistCheckDays)
	e.setDuration("PROVIDER_TIMEOUT", &c.Source.ProviderTimeout)
	e.setInt("MIN_BARS", &c.Source.MinBars)
	e.setInt("BREAKER_MAX_FAILURES", &c.Source.BreakerMaxFailures)
	e.setDuration("BREAKER_RESET", &c.Source.BreakerReset)

	e.setString("REDIS_ADDR", &c.Redis.Addr)
	e.setString("REDIS_PASSWORD", &c.Redis.Password)
	e.setInt("REDIS_DB", &c.Redis.DB)
	e.setDuration("DELIST_TTL", &c.Redis.DelistTTL)

	e.setFloat("INITIAL_CAPITAL", &c.Trading.InitialCapital)
	e.setString("ORDER_TYPE", &c.Trading.OrderType)
	e.setString("TIME_IN_FORCE", &c.Trading.TimeInForce)
	e.setBool("PAPER", &c.Trading.Paper)
	e.setFloat("PAPER_CASH", &c.Trading.PaperCash)

	e.setFloat("RSI_OVERSOLD", &c.Strategy.Oversold)
	e.setFloat("RSI_OVERBOUGHT", &c.Strategy.Overbought)

	e.setInt("MACD_FAST", &c.Indicators.MACDFast)
	e.setInt("MACD_SLOW", &c.Indicators.MACDSlow)
	e.setInt("MACD_SIGNAL", &c.Indicators.MACDSignal)
	e.setInt("RSI_PERIOD", &c.Indicators.RSIPeriod)
	e.setInt("SMA_SHORT", &c.Indicators.SMAShort)
	e.setInt("SMA_LONG", &c.Indicators.SMALong)

	e.setString("WEBHOOK_URL", &c.Notify.WebhookURL)
	e.setString("TELEGRAM_BOT_TOKEN", &c.Notify.TelegramBotToken)
	e.setString("TELEGRAM_CHAT_ID", &c.Notify.TelegramChatID)

	e.setString("JOURNAL_PATH", &c.JournalPath)
	e.setString("METRICS_ADDR", &c.MetricsAddr)
	e.setString("LOG_LEVEL", &c.LogLevel)

	return errors.Join(e.errs...)
}

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Symbols) == 0 {
		errs = append(errs, errors.New("config: SYMBOLS is empty"))
	}
	if c.Trading.InitialCapital <= 0 {
		errs = append(errs, fmt.Errorf("config: INITIAL_CAPITAL must be positive, got %v", c.Trading.InitialCapital))
	}
	switch c.Trading.OrderType {
	case "market", "limit":
	default:
		errs = append(errs, fmt.Errorf("config: ORDER_TYPE %q must be market or limit", c.Trading.OrderType))
	}
	switch c.Trading.TimeInForce {
	case "day", "gtc":
	default:
		errs = append(errs, fmt.Errorf("config: TIME_IN_FORCE %q must be day or gtc", c.Trading.TimeInForce))
	}
	if c.Trading.Paper && c.Trading.PaperCash < 0 {
		errs = append(errs, errors.New("config: PAPER_CASH must not be negative"))
	}
	if !c.Trading.Paper && !c.Alpaca.Enabled() {
		errs = append(errs, errors.New("config: APCA_API_KEY_ID and APCA_API_SECRET_KEY are required unless PAPER=true"))
	}

	s := c.Source
	for name, v := range map[string]int{
		"PRIMARY_LOOKBACK":      s.PrimaryLookback,
		"SECONDARY_PERIOD_DAYS": s.SecondaryPeriodDays,
		"DELIST_CHECK_DAYS":     s.DelistCheckDays,
		"MIN_BARS":              s.MinBars,
		"BREAKER_MAX_FAILURES":  s.BreakerMaxFailures,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("config: %s must be positive, got %d", name, v))
		}
	}
	if s.ProviderTimeout <= 0 || s.BreakerReset <= 0 {
		errs = append(errs, errors.New("config: PROVIDER_TIMEOUT and BREAKER_RESET must be positive"))
	}
	if c.Redis.Addr != "" && c.Redis.DelistTTL <= 0 {
		errs = append(errs, errors.New("config: DELIST_TTL must be positive"))
	}
	if (c.Notify.TelegramBotToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, errors.New("config: TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together"))
	}

	if err := c.Strategy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if err := c.Indicators.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	return errors.Join(errs...)
}

// envReader overrides fields from set environment variables and collects
// parse errors.
type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) setList(key string, dst *[]string) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	*dst = out
}

func (e *envReader) setInt(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q: %w", key, v, err))
		return
	}
	*dst = n
}

func (e *envReader) setFloat(key string, dst *float64) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q: %w", key, v, err))
		return
	}
	*dst = f
}

func (e *envReader) setBool(key string, dst *bool) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q: %w", key, v, err))
		return
	}
	*dst = b
}

func (e *envReader) setDuration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q: %w", key, v, err))
		return
	}
	*dst = d
}
