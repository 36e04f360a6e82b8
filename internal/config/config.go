// Package config provides configuration loading and validation for FlatScout.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/flatscout/internal/catalog"
	"github.com/Veraticus/flatscout/internal/cursor"
	"github.com/Veraticus/flatscout/internal/notify"
	"github.com/Veraticus/flatscout/internal/queue"
	"github.com/Veraticus/flatscout/internal/telegram"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "flatscout.yaml"

// EnvPrefix prefixes every environment override. A key maps to its
// upper-cased path with dots replaced: store.path is FLATSCOUT_STORE_PATH.
const EnvPrefix = "FLATSCOUT"

// Environment variables with names of their own.
const (
	EnvTelegramToken = "FLATSCOUT_TELEGRAM_TOKEN"
	EnvCatalogAPIKey = "FLATSCOUT_DOMRIA_API_KEY"
	EnvDBPath        = "FLATSCOUT_DB_PATH"
	EnvMetricsAddr   = "FLATSCOUT_METRICS_ADDR"
	EnvDebug         = "DEBUG"
)

// aliases binds keys to extra environment names, checked after the
// prefixed one.
var aliases = map[string]string{
	"catalog.api_key": EnvCatalogAPIKey,
	"store.path":      EnvDBPath,
	"log.debug":       EnvDebug,
}

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the complete runtime configuration.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram" yaml:"telegram"`
	Catalog  CatalogConfig  `mapstructure:"catalog" yaml:"catalog"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store"`
	Notifier NotifierConfig `mapstructure:"notifier" yaml:"notifier"`
	Queue    QueueConfig    `mapstructure:"queue" yaml:"queue"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// TelegramConfig configures the Bot API client.
type TelegramConfig struct {
	Token       string        `mapstructure:"token" yaml:"token" validate:"required"`
	BaseURL     string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	PollTimeout time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout" validate:"gt=0"`
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout" validate:"gt=0"`
}

// CatalogConfig configures the DOM.RIA client.
type CatalogConfig struct {
	APIKey            string        `mapstructure:"api_key" yaml:"api_key" validate:"required"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	CityID            int           `mapstructure:"city_id" yaml:"city_id" validate:"gt=0"`
	PageSize          int           `mapstructure:"page_size" yaml:"page_size" validate:"min=1,max=100"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gt=0"`
}

// StoreConfig selects the session store.
type StoreConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=sqlite memory"`
	Path   string `mapstructure:"path" yaml:"path" validate:"required_if=Driver sqlite"`
}

// NotifierConfig configures the background reconciler.
type NotifierConfig struct {
	Enabled     bool          `mapstructure:"enabled" yaml:"enabled"`
	Warmup      time.Duration `mapstructure:"warmup" yaml:"warmup" validate:"gte=0"`
	Interval    time.Duration `mapstructure:"interval" yaml:"interval" validate:"gt=0"`
	MaxPerCycle int           `mapstructure:"max_per_cycle" yaml:"max_per_cycle" validate:"min=1"`
}

// QueueConfig configures inbound turn processing.
type QueueConfig struct {
	Workers         int           `mapstructure:"workers" yaml:"workers" validate:"min=1,max=64"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst" yaml:"rate_limit_burst" validate:"gte=0"`
	RateLimitPeriod time.Duration `mapstructure:"rate_limit_period" yaml:"rate_limit_period" validate:"gte=0"`
	SubmitTimeout   time.Duration `mapstructure:"submit_timeout" yaml:"submit_timeout" validate:"gt=0"`
	PollTimeout     time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout" validate:"gt=0"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	// Debug forces the debug level.
	Debug bool `mapstructure:"debug" yaml:"debug"`
}

// Default returns the configuration used for every key a file leaves out.
func Default() Config {
	return Config{
		Telegram: TelegramConfig{
			BaseURL:     telegram.DefaultBaseURL,
			PollTimeout: telegram.DefaultPollTimeout,
			CallTimeout: telegram.DefaultTimeout,
		},
		Catalog: CatalogConfig{
			BaseURL:           catalog.DefaultBaseURL,
			CityID:            catalog.DefaultCityID,
			PageSize:          cursor.DefaultPageSize,
			Timeout:           catalog.DefaultTimeout,
			RequestsPerSecond: catalog.DefaultRequestsPerSecond,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   "flatscout.db",
		},
		Notifier: NotifierConfig{
			Enabled:     true,
			Warmup:      20 * time.Second,
			Interval:    12 * time.Hour,
			MaxPerCycle: notify.DefaultMaxPerCycle,
		},
		Queue: QueueConfig{
			Workers:         4,
			RateLimitBurst:  5,
			RateLimitPeriod: time.Second,
			SubmitTimeout:   5 * time.Second,
			PollTimeout:     queue.DefaultPollTimeout,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

var validate = validator.New()

// New returns a viper instance holding every default, with environment
// overrides enabled. Flags may be bound to it before LoadWith.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range aliases {
		canonical := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(key, canonical, env)
	}
	return v
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("telegram.token", d.Telegram.Token)
	v.SetDefault("telegram.base_url", d.Telegram.BaseURL)
	v.SetDefault("telegram.poll_timeout", d.Telegram.PollTimeout)
	v.SetDefault("telegram.call_timeout", d.Telegram.CallTimeout)

	v.SetDefault("catalog.api_key", d.Catalog.APIKey)
	v.SetDefault("catalog.base_url", d.Catalog.BaseURL)
	v.SetDefault("catalog.city_id", d.Catalog.CityID)
	v.SetDefault("catalog.page_size", d.Catalog.PageSize)
	v.SetDefault("catalog.timeout", d.Catalog.Timeout)
	v.SetDefault("catalog.requests_per_second", d.Catalog.RequestsPerSecond)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("notifier.enabled", d.Notifier.Enabled)
	v.SetDefault("notifier.warmup", d.Notifier.Warmup)
	v.SetDefault("notifier.interval", d.Notifier.Interval)
	v.SetDefault("notifier.max_per_cycle", d.Notifier.MaxPerCycle)

	v.SetDefault("queue.workers", d.Queue.Workers)
	v.SetDefault("queue.rate_limit_burst", d.Queue.RateLimitBurst)
	v.SetDefault("queue.rate_limit_period", d.Queue.RateLimitPeriod)
	v.SetDefault("queue.submit_timeout", d.Queue.SubmitTimeout)
	v.SetDefault("queue.poll_timeout", d.Queue.PollTimeout)

	v.SetDefault("metrics.addr", d.Metrics.Addr)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.debug", d.Log.Debug)
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	return LoadWith(New(), path)
}

// LoadWith is Load on a viper instance from New, which may carry bound
// flags. Flags win over the environment, which wins over the file.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	_, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Log.Debug {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Redacted returns a copy of c with secrets masked.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.Telegram.Token = mask(c.Telegram.Token)
	c.Catalog.APIKey = mask(c.Catalog.APIKey)
	return c
}

// WriteYAML writes c as a YAML document.
func (c Config) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel returns the slog level named by the configuration.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger builds the process logger.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
