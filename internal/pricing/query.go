package pricing

import (
	"strings"

	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

// ConsoleVariant selects how the platform appears in a query.
type ConsoleVariant int

// Console variants.
const (
	ConsoleFull ConsoleVariant = iota
	ConsoleShort
	ConsoleNone
)

func (v ConsoleVariant) String() string {
	switch v {
	case ConsoleFull:
		return "full"
	case ConsoleShort:
		return "short"
	case ConsoleNone:
		return "none"
	default:
		return "unknown"
	}
}

const (
	regionMarker = "PAL"
	cibWord      = "complet"
	// Browse API keyword syntax: parentheses with commas OR the terms,
	// quotes keep a phrase together.
	cibExpanded = `(complet,cib,"boite notice")`
)

// QueryOptions controls which tokens BuildQuery adds after the title.
type QueryOptions struct {
	CIB           bool
	ExpandedCIB   bool
	IncludeRegion bool
	Console       ConsoleVariant
}

// BuildQuery joins the search tokens for a game: title, console name,
// region marker and complete-in-box marker, in that order. The region
// marker is only added when the caller gave a region hint.
func BuildQuery(params domain.SearchParams, opts QueryOptions) string {
	tokens := []string{strings.TrimSpace(params.Title)}

	if platform := strings.TrimSpace(params.PlatformName); platform != "" {
		switch opts.Console {
		case ConsoleFull:
			tokens = append(tokens, platform)
		case ConsoleShort:
			tokens = append(tokens, NormalizeConsoleName(platform))
		case ConsoleNone:
		}
	}

	if opts.IncludeRegion && params.RegionHint != domain.RegionNone {
		tokens = append(tokens, regionMarker)
	}

	if opts.CIB {
		if opts.ExpandedCIB {
			tokens = append(tokens, cibExpanded)
		} else {
			tokens = append(tokens, cibWord)
		}
	}

	return strings.Join(tokens, " ")
}
