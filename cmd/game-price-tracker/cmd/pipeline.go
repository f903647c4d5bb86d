package cmd

import (
	"fmt"
	"log/slog"

	"github.com/donaldgifford/game-price-tracker/internal/config"
	"github.com/donaldgifford/game-price-tracker/internal/ebay"
	"github.com/donaldgifford/game-price-tracker/internal/pricing"
	"github.com/donaldgifford/game-price-tracker/pkg/logger"
)

// pipeline is the wired marketplace stack shared by price and serve.
type pipeline struct {
	tokens  ebay.TokenProvider
	limiter *ebay.RateLimiter
	fetcher *pricing.Fetcher
}

func newPipeline(cfg *config.Config, log *slog.Logger) (*pipeline, error) {
	ec := cfg.Ebay

	tokens, err := ebay.NewTokenProvider(
		ec.BearerToken, ec.ClientID, ec.ClientSecret,
		ebay.WithAPIBase(ec.APIBase),
		ebay.WithTokenTimeout(ec.RequestTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("creating token provider: %w", err)
	}

	limiter := ebay.NewRateLimiter(ec.RateLimit.PerSecond, ec.RateLimit.Burst, ec.RateLimit.DailyLimit)

	browse := ebay.NewBrowseClient(tokens,
		ebay.WithBrowseAPIBase(ec.APIBase),
		ebay.WithMarketplace(ec.Marketplace),
		ebay.WithRequestTimeout(ec.RequestTimeout),
		ebay.WithRateLimiter(limiter),
		ebay.WithBrowseLogger(logger.Component(log, "ebay")),
	)

	paginator := ebay.NewPaginator(browse,
		ebay.WithPageSize(cfg.Pricing.PageSize),
		ebay.WithMaxPages(cfg.Pricing.MaxPages),
		ebay.WithPaginatorLogger(logger.Component(log, "paginator")),
	)

	fetcher := pricing.NewFetcher(paginator, ec.Marketplace,
		pricing.WithLogger(logger.Component(log, "pricing")),
		pricing.WithSampleTarget(cfg.Pricing.SampleTarget),
		pricing.WithNewPriceRatio(cfg.Pricing.NewPriceRatio),
	)

	return &pipeline{tokens: tokens, limiter: limiter, fetcher: fetcher}, nil
}
