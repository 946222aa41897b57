// Package search implements the in-memory suggestion source: normalized
// substring matching over a static catalog, ranked by popularity then match quality.
package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s, strips diacritics and collapses whitespace,
// so that "Hémoglobine  A1c" and "hemoglobine a1c" compare equal.
func Normalize(s string) string {
	// transformers keep state, build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
