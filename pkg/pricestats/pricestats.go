// Package pricestats turns raw, mixed-currency price samples into a single
// EUR-normalized price summary. Everything here is pure and deterministic.
package pricestats

import (
	"math"
	"slices"

	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

const (
	// USDToEUR is a fixed approximation, not a live exchange rate.
	USDToEUR = 0.92

	minSamplesForFence = 5
	minSamplesForTrim  = 10
	trimFraction       = 0.10
	iqrMultiplier      = 1.5
)

// Summarize computes the price summary for a game from its used samples and,
// optionally, its new-condition samples. It returns nil when no used sample
// survives conversion and fencing.
func Summarize(used, newSamples []domain.PriceSample) *domain.PriceSummary {
	if len(used) == 0 {
		return nil
	}

	values := Fence(ToEUR(used))
	if len(values) == 0 {
		return nil
	}

	s := &domain.PriceSummary{
		MinPrice:     values[0],
		MaxPrice:     values[len(values)-1],
		AveragePrice: Average(values),
		Currency:     DominantCurrency(used),
	}

	if len(newSamples) > 0 {
		if nv := Fence(ToEUR(newSamples)); len(nv) > 0 {
			s.NewPrice = Average(nv)
		}
	}

	return s
}

// ToEUR converts samples to EUR and returns the values sorted ascending.
// Non-finite or non-positive values and unsupported currencies are dropped.
func ToEUR(samples []domain.PriceSample) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		if v, ok := EURValue(s); ok {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

// EURValue returns the sample's value in EUR. It reports false for invalid
// values and unsupported currencies.
func EURValue(s domain.PriceSample) (float64, bool) {
	if !validValue(s.Value) {
		return 0, false
	}
	switch s.Currency {
	case domain.CurrencyEUR:
		return s.Value, true
	case domain.CurrencyUSD:
		return s.Value * USDToEUR, true
	default:
		return 0, false
	}
}

// Fence applies symmetric IQR fencing ([Q1-1.5IQR, Q3+1.5IQR]) to sorted
// values. Fewer than five values are returned unchanged.
func Fence(sorted []float64) []float64 {
	if len(sorted) < minSamplesForFence {
		return sorted
	}

	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	lo, hi := q1-iqrMultiplier*iqr, q3+iqrMultiplier*iqr

	out := make([]float64, 0, len(sorted))
	for _, v := range sorted {
		if v >= lo && v <= hi {
			out = append(out, v)
		}
	}
	return out
}

// Average returns the 10%-trimmed mean when there are at least ten values,
// the plain mean otherwise. Input must be sorted.
func Average(sorted []float64) float64 {
	if len(sorted) >= minSamplesForTrim {
		return TrimmedMean(sorted, trimFraction)
	}
	return Mean(sorted)
}

// TrimmedMean drops floor(n*fraction) values from each end of sorted before
// averaging.
func TrimmedMean(sorted []float64, fraction float64) float64 {
	k := int(math.Floor(float64(len(sorted)) * fraction))
	if 2*k >= len(sorted) {
		return Mean(sorted)
	}
	return Mean(sorted[k : len(sorted)-k])
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the median of sorted values, or 0 for no values.
func Median(sorted []float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case n%2 == 1:
		return sorted[n/2]
	default:
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
}

// Quantile returns sorted[floor(n*p)], clamped to the last index.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	i := int(math.Floor(float64(len(sorted)) * p))
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

// DominantCurrency returns EUR when EUR samples are at least as numerous as
// USD samples, USD otherwise.
func DominantCurrency(samples []domain.PriceSample) domain.Currency {
	var eur, usd int
	for _, s := range samples {
		switch s.Currency {
		case domain.CurrencyEUR:
			eur++
		case domain.CurrencyUSD:
			usd++
		}
	}
	if eur >= usd {
		return domain.CurrencyEUR
	}
	return domain.CurrencyUSD
}

func validValue(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
