package pricing

import (
	"github.com/donaldgifford/game-price-tracker/pkg/pricestats"
	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

const (
	minOutlierSamples = 5

	// usedCeilingRatio rejects used samples priced above median*2.5,
	// typically sealed copies leaking into a used search.
	usedCeilingRatio = 2.5
	// newFloorRatio rejects new samples priced below median*0.5,
	// typically loose copies leaking into a new search.
	newFloorRatio = 0.5
	iqrMultiplier = 1.5
)

// FilterOutliers drops samples outside a directional fence for the given
// condition class. Used samples lose the expensive tail (above median*2.5)
// and anything below Q1-1.5*IQR. New samples lose the cheap tail (below
// median*0.5) and anything above Q3+1.5*IQR. Fewer than five samples, or the
// ANY class, pass through unchanged. Input order is preserved.
//
// The fence is computed on EUR-equivalent values, so a USD cascade topped up
// with EUR listings is fenced on one scale. Samples that cannot be converted
// are dropped.
func FilterOutliers(samples []domain.PriceSample, class domain.ConditionClass) []domain.PriceSample {
	out := make([]domain.PriceSample, 0, len(samples))
	if len(samples) < minOutlierSamples || class == domain.ClassAny {
		return append(out, samples...)
	}

	sorted := pricestats.ToEUR(samples)
	if len(sorted) == 0 {
		return out
	}
	q1 := pricestats.Quantile(sorted, 0.25)
	q3 := pricestats.Quantile(sorted, 0.75)
	median := pricestats.Median(sorted)
	iqr := q3 - q1

	var lo, hi float64
	switch class {
	case domain.ClassNew:
		lo, hi = median*newFloorRatio, q3+iqrMultiplier*iqr
	default:
		lo, hi = q1-iqrMultiplier*iqr, median*usedCeilingRatio
	}

	for _, s := range samples {
		if v, ok := pricestats.EURValue(s); ok && v >= lo && v <= hi {
			out = append(out, s)
		}
	}
	return out
}

// PromoteNewCandidates returns the ANY-condition samples priced strictly
// above usedMedian*ratio, both compared in EUR. Those listings are most likely new copies that the
// NEW condition filter missed. Nothing is promoted without a used median.
func PromoteNewCandidates(
	ambiguous []domain.PriceSample,
	usedMedian, ratio float64,
) []domain.PriceSample {
	out := make([]domain.PriceSample, 0, len(ambiguous))
	if usedMedian <= 0 {
		return out
	}

	threshold := usedMedian * ratio
	for _, s := range ambiguous {
		if v, ok := pricestats.EURValue(s); ok && v > threshold {
			out = append(out, s)
		}
	}
	return out
}

// DedupeByValue keeps the first sample for each distinct price value. The
// same figure in two currencies is two different prices and both are kept.
func DedupeByValue(samples []domain.PriceSample) []domain.PriceSample {
	seen := make(map[domain.PriceSample]struct{}, len(samples))
	out := make([]domain.PriceSample, 0, len(samples))
	for _, s := range samples {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
