// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution, overlaid with the
// EBAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/donaldgifford/game-price-tracker/internal/ebay"
	"github.com/donaldgifford/game-price-tracker/pkg/logger"
)

// Environment variables recognized on top of the YAML file.
const (
	EnvBearerToken   = "EBAY_BEARER_TOKEN"
	EnvClientID      = "EBAY_CLIENT_ID"
	EnvClientSecret  = "EBAY_CLIENT_SECRET"
	EnvEbayEnv       = "EBAY_ENV"
	EnvMarketplaceID = "EBAY_MARKETPLACE_ID"
)

// LookupFunc resolves an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Ebay    EbayConfig    `yaml:"ebay"`
	Pricing PricingConfig `yaml:"pricing"`
	Tracing TracingConfig `yaml:"tracing"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// EbayConfig defines eBay API settings.
type EbayConfig struct {
	Env            string          `yaml:"env"` // sandbox selects the sandbox API and EBAY_US
	BearerToken    string          `yaml:"bearer_token"`
	ClientID       string          `yaml:"client_id"`
	ClientSecret   string          `yaml:"client_secret"`
	APIBase        string          `yaml:"api_base"`
	Marketplace    string          `yaml:"marketplace"`
	RequestTimeout time.Duration   `yaml:"request_timeout"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines eBay API rate limiting settings.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"`
	Burst      int     `yaml:"burst"`
	DailyLimit int64   `yaml:"daily_limit"`
}

// PricingConfig tunes the sample cascades.
type PricingConfig struct {
	SampleTarget  int     `yaml:"sample_target"`
	MaxPages      int     `yaml:"max_pages"`
	PageSize      int     `yaml:"page_size"`
	NewPriceRatio float64 `yaml:"new_price_ratio"`
}

// TracingConfig defines OpenTelemetry trace export settings.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"` // OTLP gRPC host:port
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, console
}

// Load reads the optional YAML file at path, expands ${VAR} references,
// overlays the EBAY_* variables from the process environment, then applies
// defaults and validates. An empty path configures from the environment only.
func Load(path string) (*Config, error) {
	return LoadWithLookup(path, os.LookupEnv)
}

// LoadWithLookup is Load with an explicit environment.
func LoadWithLookup(path string, lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := os.Expand(string(data), func(key string) string {
			v, _ := lookup(key)
			return v
		})

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	ApplyEnv(cfg, lookup)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides eBay settings with any non-empty EBAY_* variables.
func ApplyEnv(cfg *Config, lookup LookupFunc) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.Ebay.BearerToken, EnvBearerToken)
	set(&cfg.Ebay.ClientID, EnvClientID)
	set(&cfg.Ebay.ClientSecret, EnvClientSecret)
	set(&cfg.Ebay.Env, EnvEbayEnv)
	set(&cfg.Ebay.Marketplace, EnvMarketplaceID)
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyEbayDefaults(&cfg.Ebay)
	applyPricingDefaults(&cfg.Pricing)
	applyTracingDefaults(&cfg.Tracing)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 2 * time.Minute
	}
}

func applyEbayDefaults(e *EbayConfig) {
	if e.APIBase == "" {
		e.APIBase = ebay.APIBase(e.Env)
	}
	if e.Marketplace == "" {
		e.Marketplace = ebay.DefaultMarketplace(e.Env)
	}
	if e.RequestTimeout == 0 {
		e.RequestTimeout = 10 * time.Second
	}
	applyRateLimitDefaults(&e.RateLimit)
}

func applyRateLimitDefaults(r *RateLimitConfig) {
	if r.PerSecond == 0 {
		r.PerSecond = 5.0
	}
	if r.Burst == 0 {
		r.Burst = 10
	}
	if r.DailyLimit == 0 {
		r.DailyLimit = 5000
	}
}

func applyPricingDefaults(p *PricingConfig) {
	if p.SampleTarget == 0 {
		p.SampleTarget = 20
	}
	if p.MaxPages == 0 {
		p.MaxPages = 5
	}
	if p.PageSize == 0 {
		p.PageSize = ebay.MaxPageSize
	}
	if p.NewPriceRatio == 0 {
		p.NewPriceRatio = 1.5
	}
}

func applyTracingDefaults(t *TracingConfig) {
	if t.ServiceName == "" {
		t.ServiceName = "game-price-tracker"
	}
	if t.SampleRatio == 0 {
		t.SampleRatio = 1.0
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = logger.FormatText
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535 (got %d)", cfg.Server.Port))
	}

	e := &cfg.Ebay
	if e.BearerToken == "" && (e.ClientID == "" || e.ClientSecret == "") {
		errs = append(errs, fmt.Errorf("ebay: %w", ebay.ErrMissingCredentials))
	}
	if e.RequestTimeout < 0 {
		errs = append(errs, errors.New("ebay.request_timeout must not be negative"))
	}
	if e.RateLimit.PerSecond < 0 || e.RateLimit.Burst < 0 || e.RateLimit.DailyLimit < 0 {
		errs = append(errs, errors.New("ebay.rate_limit values must not be negative"))
	}

	p := &cfg.Pricing
	if p.SampleTarget < 0 {
		errs = append(errs, fmt.Errorf("pricing.sample_target must be positive (got %d)", p.SampleTarget))
	}
	if p.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("pricing.max_pages must be positive (got %d)", p.MaxPages))
	}
	if p.PageSize < 0 || p.PageSize > ebay.MaxPageSize {
		errs = append(errs, fmt.Errorf(
			"pricing.page_size must be between 1 and %d (got %d)", ebay.MaxPageSize, p.PageSize,
		))
	}
	if p.NewPriceRatio < 1 {
		errs = append(errs, fmt.Errorf("pricing.new_price_ratio must be at least 1 (got %g)", p.NewPriceRatio))
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, errors.New("tracing.endpoint is required when tracing is enabled"))
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("tracing.sample_ratio must be within [0, 1] (got %g)", cfg.Tracing.SampleRatio))
	}

	if !logger.ValidFormat(cfg.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be text, json or console (got %q)", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}
