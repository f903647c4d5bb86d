package ebay

import (
	"math"
	"strconv"

	"github.com/donaldgifford/game-price-tracker/pkg/listing"
	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

// SampleFilter decides which search results count as price samples.
type SampleFilter struct {
	Currency         domain.Currency
	Condition        domain.ConditionClass
	RequireCondition bool
	RequireComplete  bool
}

// ToSamples converts eBay item summaries into price samples, dropping every
// item the filter rejects.
func ToSamples(items []ItemSummary, f SampleFilter) []domain.PriceSample {
	samples := make([]domain.PriceSample, 0, len(items))
	for i := range items {
		if s, ok := toSample(&items[i], f); ok {
			samples = append(samples, s)
		}
	}
	return samples
}

func toSample(item *ItemSummary, f SampleFilter) (domain.PriceSample, bool) {
	value, err := strconv.ParseFloat(item.Price.Value, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return domain.PriceSample{}, false
	}

	// Currency must match the requested filter exactly.
	currency := domain.Currency(item.Price.Currency)
	if currency != f.Currency {
		return domain.PriceSample{}, false
	}

	if f.RequireCondition && !listing.MatchesCondition(item.Condition, f.Condition) {
		return domain.PriceSample{}, false
	}

	if f.RequireComplete && !listing.IsComplete(item.Title) {
		return domain.PriceSample{}, false
	}

	return domain.PriceSample{Value: value, Currency: currency}, true
}

// DedupeByKey removes samples sharing a value-currency key, keeping the
// first occurrence.
func DedupeByKey(samples []domain.PriceSample) []domain.PriceSample {
	seen := make(map[string]struct{}, len(samples))
	out := make([]domain.PriceSample, 0, len(samples))
	for _, s := range samples {
		k := s.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
