// Package domain defines the core business types for the game price tracker.
package domain

import (
	"errors"
	"strconv"
	"strings"
)

// ErrEmptyTitle is returned when a price lookup is requested without a title.
var ErrEmptyTitle = errors.New("title is required")

// Currency is an ISO 4217 code supported by the price engine.
type Currency string

// Currency constants.
const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
)

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	return c == CurrencyEUR || c == CurrencyUSD
}

// ConditionClass is the condition requested from a marketplace search.
type ConditionClass string

// Condition class constants.
const (
	ClassUsed ConditionClass = "USED"
	ClassNew  ConditionClass = "NEW"
	ClassAny  ConditionClass = "ANY"
)

// Condition is the classified condition of a single listing.
type Condition string

// Condition constants.
const (
	ConditionUsed    Condition = "used"
	ConditionNew     Condition = "new"
	ConditionUnknown Condition = "unknown"
)

// Completeness tells whether a listing is sold complete-in-box.
type Completeness string

// Completeness constants.
const (
	Complete            Completeness = "complete"
	Incomplete          Completeness = "incomplete"
	CompletenessUnknown Completeness = "unknown"
)

// RegionHint narrows a search to a release region.
type RegionHint string

// Region hint constants.
const (
	RegionNone RegionHint = ""
	RegionEUR  RegionHint = "EUR"
	RegionPAL  RegionHint = "PAL"
)

// PriceSample is one observed listing price. Two samples with the same
// value and currency are treated as the same listing.
type PriceSample struct {
	Value    float64  `json:"value"`
	Currency Currency `json:"currency"`
}

// Key returns the value-currency composite key used for deduplication.
func (s PriceSample) Key() string {
	return strconv.FormatFloat(s.Value, 'f', -1, 64) + "-" + string(s.Currency)
}

// SearchParams identifies the game to price.
type SearchParams struct {
	Title        string     `json:"title"`
	PlatformName string     `json:"platform_name,omitempty"`
	RegionHint   RegionHint `json:"region_hint,omitempty"`
}

// Validate checks that the params can produce a marketplace query.
func (p SearchParams) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	switch p.RegionHint {
	case RegionNone, RegionEUR, RegionPAL:
		return nil
	default:
		return errors.New("region hint must be EUR or PAL")
	}
}

// Samples holds the cleaned used and new price samples for one game.
type Samples struct {
	Used []PriceSample `json:"used"`
	New  []PriceSample `json:"new"`
}

// PriceSummary is the resale value of a game. All prices are EUR-normalized;
// Currency is the dominant currency of the raw used samples and is a display
// label only.
type PriceSummary struct {
	MinPrice     float64  `json:"min_price"`
	MaxPrice     float64  `json:"max_price"`
	AveragePrice float64  `json:"average_price"`
	NewPrice     float64  `json:"new_price"`
	Currency     Currency `json:"currency"`
}
