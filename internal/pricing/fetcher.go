// Package pricing collects used and new price samples for a game by running
// declarative search cascades against the marketplace.
package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/donaldgifford/game-price-tracker/internal/ebay"
	"github.com/donaldgifford/game-price-tracker/internal/metrics"
	"github.com/donaldgifford/game-price-tracker/pkg/pricestats"
	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

const (
	tracerName = "github.com/donaldgifford/game-price-tracker/internal/pricing"

	// DefaultSampleTarget is the sample count at which a cascade stops.
	DefaultSampleTarget = 20
	// DefaultNewPriceRatio is the used-median multiple above which an
	// ANY-condition listing is assumed to be new.
	DefaultNewPriceRatio = 1.5
)

// Fetcher gathers price samples for a game on one marketplace.
type Fetcher struct {
	paginator     *ebay.Paginator
	marketplace   string
	log           *slog.Logger
	tracer        trace.Tracer
	sampleTarget  int
	newPriceRatio float64
}

// FetcherOption configures the Fetcher.
type FetcherOption func(*Fetcher)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.log = l
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) FetcherOption {
	return func(f *Fetcher) {
		f.tracer = t
	}
}

// WithSampleTarget sets the per-cascade sample target.
func WithSampleTarget(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.sampleTarget = n
		}
	}
}

// WithNewPriceRatio sets the promotion ratio for ambiguous listings.
func WithNewPriceRatio(r float64) FetcherOption {
	return func(f *Fetcher) {
		if r > 0 {
			f.newPriceRatio = r
		}
	}
}

// NewFetcher creates a Fetcher searching marketplace through p.
func NewFetcher(p *ebay.Paginator, marketplace string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		paginator:     p,
		marketplace:   marketplace,
		log:           slog.Default(),
		sampleTarget:  DefaultSampleTarget,
		newPriceRatio: DefaultNewPriceRatio,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.tracer == nil {
		f.tracer = otel.Tracer(tracerName)
	}
	return f
}

// TargetCurrency returns the currency a marketplace prices in.
func TargetCurrency(marketplace string) domain.Currency {
	if marketplace == ebay.MarketplaceUS {
		return domain.CurrencyUSD
	}
	return domain.CurrencyEUR
}

// Strategy returns the used-cascade strategy name and steps for a
// marketplace, plus the console variant its new cascade should use.
func Strategy(marketplace string) (string, []SearchStep, ConsoleVariant) {
	if marketplace == ebay.MarketplaceFR {
		return StrategySimplified, SimplifiedSteps, ConsoleShort
	}
	return StrategyFull, FullSteps, ConsoleFull
}

// FetchSamples runs the used and new cascades concurrently and returns the
// cleaned samples. Used samples are outlier-filtered, then ambiguous
// listings priced above the used median times the promotion ratio join the
// new pool before it is deduplicated and filtered. Any marketplace error
// aborts both cascades.
func (f *Fetcher) FetchSamples(
	ctx context.Context,
	params domain.SearchParams,
) (*domain.Samples, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.PriceFetchDuration.Observe(time.Since(start).Seconds())
	}()

	currency := TargetCurrency(f.marketplace)
	strategy, usedSteps, newConsole := Strategy(f.marketplace)

	ctx, span := f.tracer.Start(ctx, "pricing.FetchSamples",
		trace.WithAttributes(
			attribute.String("game.title", params.Title),
			attribute.String("game.platform", params.PlatformName),
			attribute.String("ebay.marketplace", f.marketplace),
			attribute.String("cascade.strategy", strategy),
		),
	)
	defer span.End()

	var usedRes, newRes *cascadeResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		usedRes, err = f.runCascade(gctx, strategy, params, usedSteps, currency)
		return err
	})
	g.Go(func() error {
		var err error
		newRes, err = f.runCascade(gctx, StrategyNew, params, NewSteps(newConsole), currency)
		return err
	})

	if err := g.Wait(); err != nil {
		metrics.PriceFetchErrorsTotal.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetching price samples: %w", err)
	}

	used := FilterOutliers(usedRes.Samples, domain.ClassUsed)
	usedMedian := pricestats.Median(pricestats.ToEUR(used))
	promoted := PromoteNewCandidates(newRes.Ambiguous, usedMedian, f.newPriceRatio)
	newSamples := FilterOutliers(
		DedupeByValue(append(newRes.Samples, promoted...)),
		domain.ClassNew,
	)

	span.SetAttributes(
		attribute.Int("samples.used", len(used)),
		attribute.Int("samples.new", len(newSamples)),
		attribute.Int("samples.promoted", len(promoted)),
	)

	f.log.Info("price samples fetched",
		"title", params.Title,
		"platform", params.PlatformName,
		"marketplace", f.marketplace,
		"strategy", strategy,
		"used", len(used),
		"new", len(newSamples),
		"promoted", len(promoted),
		"duration", time.Since(start),
	)

	return &domain.Samples{Used: used, New: newSamples}, nil
}
