package pricing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/game-price-tracker/internal/ebay"
	"github.com/donaldgifford/game-price-tracker/internal/metrics"
	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

// Strategy names, used as metric and log labels.
const (
	StrategySimplified = "simplified"
	StrategyFull       = "full"
	StrategyNew        = "new"
)

// SearchStep is one rung of a search cascade, from strictest to laxest.
type SearchStep struct {
	Name    string
	Options QueryOptions

	// Currency overrides the cascade's target currency when set.
	Currency domain.Currency
	// OnlyForTarget limits the step to cascades targeting this currency.
	OnlyForTarget domain.Currency

	Condition        domain.ConditionClass
	RequireCondition bool
	RequireComplete  bool

	// Ambiguous steps feed the promotion pool instead of the direct results.
	Ambiguous bool
}

func (s *SearchStep) search(params domain.SearchParams, target domain.Currency) ebay.SampleSearch {
	currency := target
	if s.Currency != "" {
		currency = s.Currency
	}
	return ebay.SampleSearch{
		Query: BuildQuery(params, s.Options),
		Filter: ebay.SampleFilter{
			Currency:         currency,
			Condition:        s.Condition,
			RequireCondition: s.RequireCondition,
			RequireComplete:  s.RequireComplete,
		},
	}
}

// SimplifiedSteps is the cascade for marketplaces where sellers title their
// listings loosely: short console names first, then progressively fewer
// constraints.
var SimplifiedSteps = []SearchStep{
	{
		Name:             "short_console_used",
		Options:          QueryOptions{Console: ConsoleShort},
		Condition:        domain.ClassUsed,
		RequireCondition: true,
	},
	{
		Name:      "short_console",
		Options:   QueryOptions{Console: ConsoleShort},
		Condition: domain.ClassAny,
	},
	{
		Name:      "full_console",
		Options:   QueryOptions{Console: ConsoleFull},
		Condition: domain.ClassAny,
	},
	{
		Name:      "title_only",
		Options:   QueryOptions{Console: ConsoleNone},
		Condition: domain.ClassAny,
	},
}

// FullSteps is the six-step cascade for every other marketplace.
var FullSteps = []SearchStep{
	{
		Name:             "region_cib_used",
		Options:          QueryOptions{Console: ConsoleFull, IncludeRegion: true, CIB: true, ExpandedCIB: true},
		Condition:        domain.ClassUsed,
		RequireCondition: true,
		RequireComplete:  true,
	},
	{
		Name:             "cib_used",
		Options:          QueryOptions{Console: ConsoleFull, CIB: true, ExpandedCIB: true},
		Condition:        domain.ClassUsed,
		RequireCondition: true,
		RequireComplete:  true,
	},
	{
		Name:      "console_any",
		Options:   QueryOptions{Console: ConsoleFull},
		Condition: domain.ClassAny,
	},
	{
		// Console dropped; completeness still required, on the single word.
		Name:            "cib_word_any",
		Options:         QueryOptions{Console: ConsoleNone, CIB: true},
		Condition:       domain.ClassAny,
		RequireComplete: true,
	},
	{
		Name:      "short_console_any",
		Options:   QueryOptions{Console: ConsoleShort},
		Condition: domain.ClassAny,
	},
	{
		Name:          "short_console_any_eur",
		Options:       QueryOptions{Console: ConsoleShort},
		Currency:      domain.CurrencyEUR,
		OnlyForTarget: domain.CurrencyUSD,
		Condition:     domain.ClassAny,
	},
}

// NewSteps returns the new-condition cascade. Its second step collects
// ANY-condition listings that only count once promoted.
func NewSteps(console ConsoleVariant) []SearchStep {
	return []SearchStep{
		{
			Name:             "console_new",
			Options:          QueryOptions{Console: console},
			Condition:        domain.ClassNew,
			RequireCondition: true,
		},
		{
			Name:      "console_any_ambiguous",
			Options:   QueryOptions{Console: console},
			Condition: domain.ClassAny,
			Ambiguous: true,
		},
	}
}

type cascadeResult struct {
	Samples   []domain.PriceSample
	Ambiguous []domain.PriceSample
	StepsRun  int
}

// runCascade executes steps in order until target direct samples have been
// collected. Results are merged and deduplicated by value after each step.
// A step whose query and filter repeat an earlier step is skipped.
func (f *Fetcher) runCascade(
	ctx context.Context,
	strategy string,
	params domain.SearchParams,
	steps []SearchStep,
	currency domain.Currency,
) (*cascadeResult, error) {
	res := &cascadeResult{
		Samples:   []domain.PriceSample{},
		Ambiguous: []domain.PriceSample{},
	}
	seen := make(map[ebay.SampleSearch]struct{}, len(steps))

	for i := range steps {
		step := &steps[i]

		if len(res.Samples) >= f.sampleTarget {
			break
		}
		if step.OnlyForTarget != "" && step.OnlyForTarget != currency {
			continue
		}

		search := step.search(params, currency)
		if _, dup := seen[search]; dup {
			f.log.Debug("skipping repeated cascade step",
				"strategy", strategy,
				"step", step.Name,
				"query", search.Query,
			)
			continue
		}
		seen[search] = struct{}{}

		samples, err := f.runStep(ctx, strategy, step, search, f.sampleTarget-len(res.Samples))
		if err != nil {
			return nil, fmt.Errorf("%s cascade step %s: %w", strategy, step.Name, err)
		}

		if step.Ambiguous {
			res.Ambiguous = DedupeByValue(append(res.Ambiguous, samples...))
		} else {
			res.Samples = DedupeByValue(append(res.Samples, samples...))
		}
		res.StepsRun++
	}

	return res, nil
}

func (f *Fetcher) runStep(
	ctx context.Context,
	strategy string,
	step *SearchStep,
	search ebay.SampleSearch,
	remaining int,
) ([]domain.PriceSample, error) {
	ctx, span := f.tracer.Start(ctx, "pricing.cascade_step",
		trace.WithAttributes(
			attribute.String("cascade.strategy", strategy),
			attribute.String("cascade.step", step.Name),
			attribute.String("ebay.query", search.Query),
			attribute.String("ebay.currency", string(search.Filter.Currency)),
		),
	)
	defer span.End()

	metrics.CascadeStepsTotal.WithLabelValues(strategy, step.Name).Inc()

	result, err := f.paginator.Paginate(ctx, search, remaining)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("cascade.samples", len(result.Samples)),
		attribute.Int("ebay.pages", result.PagesUsed),
	)

	f.log.Info("cascade step complete",
		"strategy", strategy,
		"step", step.Name,
		"query", search.Query,
		"samples", len(result.Samples),
		"pages", result.PagesUsed,
		"stopped_at", result.StoppedAt,
	)

	return result.Samples, nil
}
