package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fold returns the Unicode case-folded form of s for caseless comparison.
// A new caser is built per call because cases.Caser is not safe for
// concurrent use.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// ContainsFold reports whether needle occurs in haystack, ignoring case.
// An empty needle never matches.
func ContainsFold(haystack, needle string) bool {
	needle = Fold(strings.TrimSpace(needle))
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), needle)
}

// ContainsAnyFold reports whether any marker occurs in haystack, ignoring case.
func ContainsAnyFold(haystack string, markers ...string) bool {
	folded := Fold(haystack)
	for _, marker := range markers {
		m := Fold(strings.TrimSpace(marker))
		if m != "" && strings.Contains(folded, m) {
			return true
		}
	}
	return false
}

// DisplayTitle capitalizes the first letter of each word of a free-form name
// for the mashup's ID3 title. Existing capitals are kept, so "AC/DC" and
// "deadmau5" come out as "AC/DC" and "Deadmau5".
func DisplayTitle(s string) string {
	return cases.Title(language.Und, cases.NoLower).String(strings.TrimSpace(s))
}
