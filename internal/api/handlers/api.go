package handlers

import "github.com/danielgtaylor/huma/v2"

// APIConfig returns the Huma configuration for the price API.
func APIConfig(version string) huma.Config {
	cfg := huma.DefaultConfig("Game Price Tracker API", version)
	cfg.Info.Description = "Resale price estimates for video games, built from eBay listings."
	return cfg
}

// RegisterRoutes registers every API operation.
func RegisterRoutes(api huma.API, prices *PriceHandler, quota *QuotaHandler) {
	RegisterPriceRoutes(api, prices)
	RegisterQuotaRoutes(api, quota)
}
