// Package match decides whether a spoken token matches an expected reference
// word under a configurable strictness policy.
//
// Matching runs a cheap-to-expensive cascade: raw equality, the muqatta'at
// letter-name table, normalized equality, the elided-alef compensation form,
// substring containment, and finally Levenshtein similarity. [Matches] is a
// total function with no side effects, safe to call speculatively.
package match

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/msaudi/tasmee/pkg/arabic"
)

// Strictness selects the fuzzy-match tolerance for a practice session.
type Strictness string

const (
	StrictnessLenient Strictness = "lenient"
	StrictnessMedium  Strictness = "medium"
	StrictnessStrict  Strictness = "strict"
)

// IsValid reports whether s is a recognised strictness level.
func (s Strictness) IsValid() bool {
	switch s {
	case StrictnessLenient, StrictnessMedium, StrictnessStrict:
		return true
	}
	return false
}

// thresholds holds the acceptance floors for one strictness level:
// similarity is the minimum normalized Levenshtein similarity, containment
// the minimum length ratio for substring acceptance.
type thresholds struct {
	similarity  float64
	containment float64
}

// levels orders thresholds from most to least tolerant. A pair accepted at
// one level is accepted at every level below it.
var levels = map[Strictness]thresholds{
	StrictnessStrict:  {similarity: 0.95, containment: 0.90},
	StrictnessMedium:  {similarity: 0.80, containment: 0.70},
	StrictnessLenient: {similarity: 0.65, containment: 0.50},
}

// limits returns the thresholds for s, defaulting to medium for values that
// slipped past setter validation.
func (s Strictness) limits() thresholds {
	if t, ok := levels[s]; ok {
		return t
	}
	return levels[StrictnessMedium]
}

// Matches reports whether the spoken token is an acceptable rendition of the
// expected word at the given strictness.
func Matches(spoken, expected string, strictness Strictness) bool {
	if spoken == expected {
		return true
	}

	opts := arabic.DefaultOptions()
	normSpoken := arabic.Normalize(spoken, opts)
	normExpected := arabic.Normalize(expected, opts)

	if letterNameMatch(normSpoken, normExpected) {
		return true
	}

	if normSpoken != "" && normSpoken == normExpected {
		return true
	}

	// Recognizers often drop the vowel a superscript alef stands for; accept
	// the expected form with the filled-in alefs elided again.
	if arabic.HasDaggerAlef(expected) {
		elideOpts := opts
		elideOpts.ElideDaggerAlef = true
		if normSpoken != "" && normSpoken == arabic.Normalize(expected, elideOpts) {
			return true
		}
	}

	if normSpoken == "" || normExpected == "" {
		return false
	}

	t := strictness.limits()

	if strings.Contains(normSpoken, normExpected) || strings.Contains(normExpected, normSpoken) {
		shorter, longer := utf8.RuneCountInString(normSpoken), utf8.RuneCountInString(normExpected)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		if float64(shorter)/float64(longer) >= t.containment {
			return true
		}
	}

	return levenshteinSimilarity(normSpoken, normExpected) >= t.similarity
}

// levenshteinSimilarity returns 1 − distance/max(len) over runes, in [0, 1].
func levenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	if la == 0 || lb == 0 {
		return 0
	}
	return 1 - float64(matchr.Levenshtein(a, b))/float64(longest)
}
