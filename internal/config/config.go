package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. RATEWIDGET_RATES_URL.
const EnvPrefix = "RATEWIDGET"

// Config holds all configuration for the rate widget.
type Config struct {
	// Upstream exchange rate API
	RatesURL     string        `mapstructure:"rates_url"`
	BaseCurrency string        `mapstructure:"base_currency"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	FetchRetries int           `mapstructure:"fetch_retries"`
	UpstreamRPS  float64       `mapstructure:"upstream_rps"`

	// Initial widget inputs
	DefaultSource string `mapstructure:"default_source"`
	DefaultTarget string `mapstructure:"default_target"`

	// Widget server
	Serve       bool    `mapstructure:"serve"`
	ListenAddr  string  `mapstructure:"listen_addr"`
	ClientRPS   float64 `mapstructure:"client_rps"`
	ClientBurst int     `mapstructure:"client_burst"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Args are the positional command line arguments: AMOUNT FROM TO
	Args []string `mapstructure:"-"`
}

var defaults = map[string]any{
	"rates_url":      "https://open.er-api.com/v6",
	"base_currency":  "USD",
	"fetch_timeout":  10 * time.Second,
	"fetch_retries":  0,
	"upstream_rps":   1.0,
	"default_source": "USD",
	"default_target": "PKR",
	"serve":          false,
	"listen_addr":    ":8080",
	"client_rps":     10.0,
	"client_burst":   20,
	"log_level":      "info",
	"log_format":     "text",
}

// Load reads configuration from, in order of precedence, command line
// flags, environment variables (a .env file in the working directory is
// loaded first if present), an optional config file and defaults.
//
// Expected environment variables (all optional):
//   - RATEWIDGET_RATES_URL
//   - RATEWIDGET_BASE_CURRENCY
//   - RATEWIDGET_FETCH_TIMEOUT (e.g. 5s)
//   - RATEWIDGET_FETCH_RETRIES
//   - RATEWIDGET_UPSTREAM_RPS
//   - RATEWIDGET_DEFAULT_SOURCE / RATEWIDGET_DEFAULT_TARGET
//   - RATEWIDGET_SERVE, RATEWIDGET_LISTEN_ADDR
//   - RATEWIDGET_CLIENT_RPS, RATEWIDGET_CLIENT_BURST
//   - RATEWIDGET_LOG_LEVEL, RATEWIDGET_LOG_FORMAT
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	for _, key := range v.AllKeys() {
		if f := flags.Lookup(flagName(key)); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
			}
		}
	}

	// Optionally read from config file if it exists
	if path, _ := flags.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.ratewidget")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Args = flags.Args()
	config.BaseCurrency = strings.ToUpper(config.BaseCurrency)
	config.DefaultSource = strings.ToUpper(config.DefaultSource)
	config.DefaultTarget = strings.ToUpper(config.DefaultTarget)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("ratewidget", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)

	flags.String("config", "", "path to a config file")
	flags.String(flagName("rates_url"), "", "exchange rate API root")
	flags.String(flagName("base_currency"), "", "base currency requested from the API")
	flags.Duration(flagName("fetch_timeout"), 0, "timeout for the rate fetch (0 disables)")
	flags.Int(flagName("fetch_retries"), 0, "retries for a failed rate fetch")
	flags.Float64(flagName("upstream_rps"), 0, "maximum requests per second to the API")
	flags.String(flagName("default_source"), "", "initial source currency")
	flags.String(flagName("default_target"), "", "initial target currency")
	flags.Bool(flagName("serve"), false, "run the widget HTTP server")
	flags.String(flagName("listen_addr"), "", "widget server listen address")
	flags.Float64(flagName("client_rps"), 0, "requests per second allowed per client")
	flags.Int(flagName("client_burst"), 0, "request burst allowed per client")
	flags.String(flagName("log_level"), "", "debug, info, warn or error")
	flags.String(flagName("log_format"), "", "text or json")
	return flags
}

func flagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

func (c *Config) validate() error {
	var problems []string
	if c.RatesURL == "" {
		problems = append(problems, "rates_url is required")
	}
	if c.BaseCurrency == "" {
		problems = append(problems, "base_currency is required")
	}
	if c.FetchTimeout < 0 {
		problems = append(problems, "fetch_timeout must not be negative")
	}
	if c.FetchRetries < 0 {
		problems = append(problems, "fetch_retries must not be negative")
	}
	if c.UpstreamRPS <= 0 {
		problems = append(problems, "upstream_rps must be positive")
	}
	if c.ClientRPS <= 0 || c.ClientBurst < 1 {
		problems = append(problems, "client_rps and client_burst must be positive")
	}
	if _, err := c.level(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		problems = append(problems, fmt.Sprintf("unknown log_format %q", c.LogFormat))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return level, nil
}

// Logger builds the application logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, _ := c.level()
	opts := &slog.HandlerOptions{Level: level}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Usage describes the command line flags.
func Usage() string {
	return newFlagSet().FlagUsages()
}
