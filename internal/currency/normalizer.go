// Package currency parses price cells written in mixed regional formats and
// classifies the currency they are quoted in.
package currency

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"pricelist/internal"
)

type symbolRule struct {
	symbol   string
	currency string
	pattern  *regexp.Regexp
}

// Longer symbols first so "US$" wins over "$".
var symbolRules = []symbolRule{
	{symbol: "US$", currency: "USD", pattern: regexp.MustCompile(`US\$`)},
	{symbol: "A$", currency: "AUD", pattern: regexp.MustCompile(`A\$`)},
	{symbol: "C$", currency: "CAD", pattern: regexp.MustCompile(`C\$`)},
	{symbol: "NZ$", currency: "NZD", pattern: regexp.MustCompile(`NZ\$`)},
	{symbol: "R$", currency: "BRL", pattern: regexp.MustCompile(`R\$`)},
	{symbol: "€", currency: "EUR", pattern: regexp.MustCompile(`€`)},
	{symbol: "£", currency: "GBP", pattern: regexp.MustCompile(`£`)},
	{symbol: "¥", currency: "JPY", pattern: regexp.MustCompile(`¥`)},
	{symbol: "₹", currency: "INR", pattern: regexp.MustCompile(`₹`)},
	{symbol: "₦", currency: "NGN", pattern: regexp.MustCompile(`₦`)},
	{symbol: "$", currency: "USD", pattern: regexp.MustCompile(`\$`)},
	{symbol: "R", currency: "ZAR", pattern: regexp.MustCompile(`(?:^|[^A-Za-z])R\s?[\d(.,-]`)},
}

// KnownCurrencies are the ISO codes recognised in cells and accepted by validation.
var KnownCurrencies = []string{
	"ZAR", "USD", "EUR", "GBP", "AUD", "CAD", "NZD", "JPY", "CNY", "CHF",
	"INR", "BRL", "NGN", "KES", "BWP", "NAD", "MZN", "ZMW", "SEK", "NOK",
	"DKK", "AED", "SGD", "HKD",
}

// Codes may touch digits ("USD100") but not other letters.
var (
	reCurrencyCode = regexp.MustCompile(`(?i)(^|[^A-Za-z])(` + strings.Join(KnownCurrencies, "|") + `)([^A-Za-z]|$)`)
	reScientific   = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)[eE][+-]?\d+$`)
	reNonNumeric   = regexp.MustCompile(`[^\d.,' ]`)
)

func IsKnown(code string) bool {
	for _, c := range KnownCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// Normalizer holds the fallback currency used when a cell carries no marker.
type Normalizer struct {
	defaultCurrency string
}

func NewNormalizer(defaultCurrency string) *Normalizer {
	defaultCurrency = strings.ToUpper(strings.TrimSpace(defaultCurrency))
	if defaultCurrency == "" {
		defaultCurrency = internal.DefaultCurrency
	}
	return &Normalizer{defaultCurrency: defaultCurrency}
}

// ParsePrice returns the magnitude written in value, or nil when nothing
// usable is present. Text keeps accounting negatives such as "(99.99)";
// numeric input is accepted only when positive.
func (n *Normalizer) ParsePrice(value any) *float64 {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		return positive(v)
	case float32:
		return positive(float64(v))
	case int:
		return positive(float64(v))
	case int64:
		return positive(float64(v))
	case string:
		return parseText(v)
	default:
		return nil
	}
}

func positive(v float64) *float64 {
	if v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return &v
	}
	return nil
}

func parseText(raw string) *float64 {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if s == "" {
		return nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}

	s = reCurrencyCode.ReplaceAllString(s, "${1}${3}")
	s = strings.TrimSpace(s)
	if reScientific.MatchString(s) {
		v, err := strconv.ParseFloat(s, 64)
		return signed(v, err, negative)
	}
	s = reNonNumeric.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	normalized := NormalizeSeparators(s)
	if normalized == "" {
		return nil
	}
	v, err := strconv.ParseFloat(normalized, 64)
	return signed(v, err, negative)
}

// signed applies the sign captured from the raw text and rejects zero and
// non-finite values.
func signed(v float64, err error, negative bool) *float64 {
	if err != nil || v == 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	if negative {
		v = -v
	}
	return &v
}

// NormalizeSeparators rewrites a digits-and-separators token into a plain
// decimal string with "." as the decimal point.
func NormalizeSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	hasGroup := strings.ContainsAny(s, " '")
	s = strings.NewReplacer(" ", "", "'", "").Replace(s)

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case hasComma:
		if strings.Count(s, ",") == 1 {
			decimals := len(s) - strings.Index(s, ",") - 1
			if decimals == 2 || hasGroup {
				return strings.Replace(s, ",", ".", 1)
			}
		}
		return strings.ReplaceAll(s, ",", "")
	case hasDot:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
		return s
	default:
		return s
	}
}

// DetectCurrency classifies value by symbol, then ISO code, then falls back
// to hint or the configured default.
func (n *Normalizer) DetectCurrency(value string, hint string) internal.CurrencyInfo {
	for _, rule := range symbolRules {
		if rule.pattern.MatchString(value) {
			return internal.CurrencyInfo{Currency: rule.currency, Symbol: rule.symbol, Confidence: 0.95}
		}
	}
	if m := reCurrencyCode.FindStringSubmatch(value); len(m) > 2 {
		code := strings.ToUpper(m[2])
		return internal.CurrencyInfo{Currency: code, Symbol: SymbolFor(code), Confidence: 0.9}
	}

	fallback := n.defaultCurrency
	if h := strings.ToUpper(strings.TrimSpace(hint)); len(h) == 3 && IsKnown(h) {
		fallback = h
	}
	return internal.CurrencyInfo{Currency: fallback, Symbol: SymbolFor(fallback), Confidence: 0.5}
}

func (n *Normalizer) DefaultCurrency() string {
	return n.defaultCurrency
}

func SymbolFor(code string) string {
	switch code {
	case "ZAR":
		return "R"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	case "JPY", "CNY":
		return "¥"
	case "INR":
		return "₹"
	case "NGN":
		return "₦"
	case "USD", "AUD", "CAD", "NZD", "SGD", "HKD":
		return "$"
	default:
		return code
	}
}
