package main

import "errors"

// KnownMetrics is the set of metric names exported by game-price-tracker
// plus recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"gpt_http_request_duration_seconds": true,
	"gpt_http_requests_total":           true,

	// Health metrics.
	"gpt_healthz_up": true,
	"gpt_readyz_up":  true,

	// eBay API metrics.
	"gpt_ebay_api_calls_total":        true,
	"gpt_ebay_token_refreshes_total":  true,
	"gpt_ebay_search_responses_total": true,
	"gpt_ebay_daily_usage":            true,
	"gpt_ebay_daily_limit_hits_total": true,

	// Pricing metrics.
	"gpt_cascade_steps_total":          true,
	"gpt_price_fetch_duration_seconds": true,
	"gpt_price_fetch_errors_total":     true,
	"gpt_price_summaries_total":        true,

	// Recording rules.
	"gpt:http_requests:rate5m":      true,
	"gpt:http_errors:rate5m":        true,
	"gpt:ebay_api_calls:rate5m":     true,
	"gpt:price_lookups:rate5m":      true,
	"gpt:price_fetch_errors:rate5m": true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
