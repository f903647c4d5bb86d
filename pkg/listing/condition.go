// Package listing classifies raw marketplace listings from their free-text
// condition and title fields.
package listing

import (
	"strings"

	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

// usedKeywords match seller condition text for second-hand items. The
// marketplace is mostly French, so French grades are listed alongside English.
var usedKeywords = []string{
	"used",
	"occasion",
	"très bon",
	"très bon état",
	"bon état",
	"bon",
	"état correct",
	"correct",
	"acceptable",
}

var newKeywords = []string{
	"new",
	"neuf",
	"comme neuf",
}

// conditionKeywords is the rule set behind both classifiers. Order
// matters: ClassifyCondition reports the first condition that matches.
var conditionKeywords = []struct {
	condition domain.Condition
	keywords  []string
}{
	{domain.ConditionUsed, usedKeywords},
	{domain.ConditionNew, newKeywords},
}

// ClassifyCondition maps a raw condition string to a domain.Condition.
// Empty text counts as used: most second-hand sellers leave the field blank.
func ClassifyCondition(raw string) domain.Condition {
	text := normalize(raw)
	for _, rule := range conditionKeywords {
		if hasCondition(text, rule.condition) {
			return rule.condition
		}
	}
	return domain.ConditionUnknown
}

// MatchesCondition reports whether a listing with the given condition text
// satisfies the requested class. ANY always matches. A listing whose text
// carries a new keyword matches NEW even when a used keyword wins the
// classification ("used - like new").
func MatchesCondition(raw string, class domain.ConditionClass) bool {
	switch class {
	case domain.ClassUsed:
		return ClassifyCondition(raw) == domain.ConditionUsed
	case domain.ClassNew:
		return hasCondition(normalize(raw), domain.ConditionNew)
	default:
		return true
	}
}

func hasCondition(text string, c domain.Condition) bool {
	if c == domain.ConditionUsed && text == "" {
		return true
	}
	for _, rule := range conditionKeywords {
		if rule.condition == c {
			return containsAny(text, rule.keywords)
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
