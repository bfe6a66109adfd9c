// Package config provides application configuration loading and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Provider names accepted by provider.name.
const (
	ProviderFrankfurter       = "frankfurter"
	ProviderExchangeRateAPI   = "exchangerate_api"
	ProviderOpenExchangeRates = "openexchangerates"
)

// ErrMissingCredential is returned when a credential required by the active
// provider or the mailer is not configured.
var ErrMissingCredential = errors.New("missing credential")

// Config holds the complete application configuration.
type Config struct {
	Provider          ProviderConfig
	Frankfurter       FrankfurterConfig       `mapstructure:"frankfurter"`
	ExchangeRateAPI   ExchangeRateAPIConfig   `mapstructure:"exchangerate_api"`
	OpenExchangeRates OpenExchangeRatesConfig `mapstructure:"openexchangerates"`
	SMTP              SMTPConfig
	Cache             CacheConfig
	Alert             AlertConfig
	Log               LogConfig
}

// ProviderConfig selects the single active rate provider.
type ProviderConfig struct {
	Name string `mapstructure:"name"`
}

// FrankfurterConfig holds settings for the frankfurter provider.
type FrankfurterConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout_sec"`
}

// ExchangeRateAPIConfig holds settings for the exchangerate-api.com provider.
type ExchangeRateAPIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"` // EXCHANGE_RATE_API_KEY
	Timeout int    `mapstructure:"timeout_sec"`
}

// OpenExchangeRatesConfig holds settings for the openexchangerates.org provider.
type OpenExchangeRatesConfig struct {
	BaseURL string `mapstructure:"base_url"`
	AppID   string `mapstructure:"app_id"` // OPENEXCHANGERATES_APP_ID
	Timeout int    `mapstructure:"timeout_sec"`
}

// SMTPConfig holds the mail relay settings and credentials.
type SMTPConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Username   string `mapstructure:"username"` // GOOGLE_EMAIL
	Password   string `mapstructure:"password"` // GOOGLE_APP_PASSWORD
	StartTLS   bool   `mapstructure:"starttls"`
	TimeoutSec int    `mapstructure:"timeout_sec"`
}

// Addr returns host:port of the mail relay.
func (c SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig holds the optional Redis rate cache settings.
type CacheConfig struct {
	RedisAddr string `mapstructure:"redis_addr"` // empty disables the cache
	TTLSec    int    `mapstructure:"ttl_sec"`
}

// AlertConfig holds message formatting switches.
type AlertConfig struct {
	// ScalePercent multiplies the relative change by 100 before it is
	// rendered with a "%" suffix. Off by default: messages read "0.02%" for
	// a 2% move.
	ScalePercent bool `mapstructure:"scale_percent"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// LoadConfig reads configuration from the env file, config files,
// environment variables, and defaults.
//
// A missing env file is ignored. A malformed one is an error. Values from the
// env file replace variables already present in the process environment.
func LoadConfig(envFile string) (*Config, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config search paths
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CURRENCYALERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Credentials keep their well-known unprefixed names.
	bindings := map[string]string{
		"exchangerate_api.api_key": "EXCHANGE_RATE_API_KEY",
		"openexchangerates.app_id": "OPENEXCHANGERATES_APP_ID",
		"smtp.username":            "GOOGLE_EMAIL",
		"smtp.password":            "GOOGLE_APP_PASSWORD",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	// default values
	v.SetDefault("provider.name", ProviderFrankfurter)
	v.SetDefault("frankfurter.base_url", "https://api.frankfurter.dev/v1")
	v.SetDefault("frankfurter.timeout_sec", 5)
	v.SetDefault("exchangerate_api.base_url", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("exchangerate_api.timeout_sec", 5)
	v.SetDefault("openexchangerates.base_url", "https://openexchangerates.org/api")
	v.SetDefault("openexchangerates.timeout_sec", 5)
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.starttls", true)
	v.SetDefault("smtp.timeout_sec", 10)
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.ttl_sec", 300)
	v.SetDefault("alert.scale_percent", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Provider.Name = strings.ToLower(strings.TrimSpace(cfg.Provider.Name))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}
	if err := godotenv.Overload(path); err != nil {
		return fmt.Errorf("malformed env file %s: %w", path, err)
	}
	return nil
}

// Validate checks that all required configuration fields are set and valid.
// Credentials are not checked here; their absence surfaces when they are used.
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider.Name {
	case ProviderFrankfurter:
		if c.Frankfurter.BaseURL == "" {
			errs = append(errs, fmt.Errorf("frankfurter.base_url is required"))
		}
	case ProviderExchangeRateAPI:
		if c.ExchangeRateAPI.BaseURL == "" {
			errs = append(errs, fmt.Errorf("exchangerate_api.base_url is required"))
		}
	case ProviderOpenExchangeRates:
		if c.OpenExchangeRates.BaseURL == "" {
			errs = append(errs, fmt.Errorf("openexchangerates.base_url is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("provider.name must be one of %s, %s, %s; got %q",
			ProviderFrankfurter, ProviderExchangeRateAPI, ProviderOpenExchangeRates, c.Provider.Name))
	}

	for _, t := range []struct {
		name string
		sec  int
	}{
		{"frankfurter.timeout_sec", c.Frankfurter.Timeout},
		{"exchangerate_api.timeout_sec", c.ExchangeRateAPI.Timeout},
		{"openexchangerates.timeout_sec", c.OpenExchangeRates.Timeout},
		{"smtp.timeout_sec", c.SMTP.TimeoutSec},
	} {
		if t.sec <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", t.name, t.sec))
		}
	}

	if c.SMTP.Host == "" {
		errs = append(errs, fmt.Errorf("smtp.host is required"))
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("smtp.port must be in 1..65535, got %d", c.SMTP.Port))
	}

	if c.Cache.RedisAddr != "" && c.Cache.TTLSec <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl_sec must be positive when cache.redis_addr is set, got %d", c.Cache.TTLSec))
	}

	return errors.Join(errs...)
}
