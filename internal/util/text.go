package util

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

var (
	reSpaces     = regexp.MustCompile(`\s+`)
	reLabelHash  = regexp.MustCompile(`\s*#\s*`)
	reLabelPunct = regexp.MustCompile(`[_\-./\\:()\[\]*]+`)
)

// CollapseSpaces trims the input and folds whitespace runs (including NBSP) to one space.
func CollapseSpaces(input string) string {
	input = strings.ReplaceAll(input, "\u00a0", " ")
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeLabel lowercases a column header or alias and turns punctuation into spaces,
// so "Item_Desc." and "item desc" compare equal. "#" reads as "no".
func NormalizeLabel(input string) string {
	s := strings.ToLower(input)
	s = strings.TrimPrefix(s, "\ufeff")
	s = reLabelHash.ReplaceAllString(s, " no ")
	s = reLabelPunct.ReplaceAllString(s, " ")
	return CollapseSpaces(s)
}

func HasDigit(input string) bool {
	for _, r := range input {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	return levenshtein.Distance(a, b, nil)
}

// Similarity scores two labels in [0,1]. Containment short-circuits to the
// shorter/longer length ratio, otherwise 1 - distance/maxLen.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
		return float64(min(la, lb)) / float64(max(la, lb))
	}
	return levenshtein.Similarity(a, b, nil)
}
