// Package textutil holds the text folding helpers used for keyword matching.
// All matching in the checker happens on normalized text: lower-cased,
// ASCII punctuation removed. Matching against mixed-case rule entries is a
// configuration mistake, so rule loading normalizes its keyword lists with
// the same function.
package textutil

import "strings"

// asciiPunctuation is the full ASCII punctuation set.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalize lower-cases text and strips ASCII punctuation. It is pure and
// total: empty input yields the empty string. No locale handling.
func Normalize(text string) string {
	lowered := strings.ToLower(text)
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(asciiPunctuation, r) {
			return -1
		}
		return r
	}, lowered)
}

// ContainsAny reports whether text contains at least one of the given
// substrings. Empty needles never match.
func ContainsAny(text string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// NormalizeAll returns a normalized copy of each element, preserving order.
// Returns nil for empty or nil input.
func NormalizeAll(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	result := make([]string, 0, len(s))
	for _, v := range s {
		result = append(result, Normalize(v))
	}
	return result
}
