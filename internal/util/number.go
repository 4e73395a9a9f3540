package util

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var reNumericCell = regexp.MustCompile(`^[+-]?[\d\s.,'%]+$`)

// IsNumeric reports whether a cell holds only a number, possibly with separators.
func IsNumeric(input string) bool {
	s := strings.TrimSpace(input)
	if s == "" || !HasDigit(s) {
		return false
	}
	return reNumericCell.MatchString(s)
}

// DigitRatio is the share of runes in input that are digits.
func DigitRatio(input string) float64 {
	total, digits := 0, 0
	for _, r := range input {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(digits) / float64(total)
}

// DecimalPlaces counts the fractional digits in the shortest representation of v.
func DecimalPlaces(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	idx := strings.IndexByte(s, '.')
	if idx < 0 {
		return 0
	}
	return len(s) - idx - 1
}

func IsAllDigits(input string) bool {
	if input == "" {
		return false
	}
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
