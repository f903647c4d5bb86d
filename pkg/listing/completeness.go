package listing

import (
	"strings"

	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

// ClassifyCompleteness reports whether a listing title advertises a
// complete-in-box copy: "complet"/"cib", or both "boite" and "notice".
func ClassifyCompleteness(title string) domain.Completeness {
	text := normalize(title)
	if text == "" {
		return domain.CompletenessUnknown
	}

	if strings.Contains(text, "complet") || strings.Contains(text, "cib") {
		return domain.Complete
	}
	if strings.Contains(text, "boite") && strings.Contains(text, "notice") {
		return domain.Complete
	}

	return domain.Incomplete
}

// IsComplete is shorthand for ClassifyCompleteness(title) == domain.Complete.
func IsComplete(title string) bool {
	return ClassifyCompleteness(title) == domain.Complete
}
