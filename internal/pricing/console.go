package pricing

import (
	"cmp"
	"slices"
	"strings"
)

// consoleAbbreviations maps lowercased platform names to the short names
// sellers use in listing titles.
var consoleAbbreviations = map[string]string{
	"playstation":                   "PS1",
	"playstation 1":                 "PS1",
	"playstation 2":                 "PS2",
	"playstation 3":                 "PS3",
	"playstation 4":                 "PS4",
	"playstation 5":                 "PS5",
	"playstation portable":          "PSP",
	"playstation vita":              "PS Vita",
	"nintendo entertainment system": "NES",
	"super nintendo":                "SNES",
	"super nes":                     "SNES",
	"nintendo 64":                   "N64",
	"nintendo gamecube":             "GameCube",
	"gamecube":                      "GameCube",
	"nintendo wii":                  "Wii",
	"nintendo wii u":                "Wii U",
	"wii u":                         "Wii U",
	"nintendo switch":               "Switch",
	"nintendo switch 2":             "Switch 2",
	"nintendo ds":                   "DS",
	"nintendo 3ds":                  "3DS",
	"game boy":                      "Game Boy",
	"game boy color":                "GBC",
	"game boy advance":              "GBA",
	"sega master system":            "Master System",
	"sega mega drive":               "Mega Drive",
	"sega genesis":                  "Genesis",
	"sega saturn":                   "Saturn",
	"sega dreamcast":                "Dreamcast",
	"sega game gear":                "Game Gear",
	"microsoft xbox":                "Xbox",
	"xbox 360":                      "Xbox 360",
	"xbox one":                      "Xbox One",
	"xbox series x":                 "Xbox Series X",
	"neo geo":                       "Neo Geo",
	"atari 2600":                    "Atari 2600",
}

// consoleKeysByLength lists the table keys longest first so that a substring
// lookup prefers "nintendo wii u" over "nintendo wii".
var consoleKeysByLength = func() []string {
	keys := make([]string, 0, len(consoleAbbreviations))
	for k := range consoleAbbreviations {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return keys
}()

// NormalizeConsoleName shortens a platform name to its marketplace
// abbreviation. Lookup order: exact match, then substring match, then the
// last two words of the name. Single-word unknown names come back unchanged.
func NormalizeConsoleName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}

	lower := strings.ToLower(trimmed)
	if short, ok := consoleAbbreviations[lower]; ok {
		return short
	}

	for _, k := range consoleKeysByLength {
		if strings.Contains(lower, k) {
			return consoleAbbreviations[k]
		}
	}

	words := strings.Fields(trimmed)
	if len(words) >= 2 {
		return strings.Join(words[len(words)-2:], " ")
	}

	return trimmed
}
