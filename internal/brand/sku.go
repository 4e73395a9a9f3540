package brand

import (
	"regexp"
	"strings"

	"pricelist/internal/util"
)

var (
	reSKUPrefix  = regexp.MustCompile(`(?i)^(SKU|ITEM|PART|PN|REF)[-_ ]?\d`)
	reLetterDash = regexp.MustCompile(`^[A-Za-z]-`)
	reVersion    = regexp.MustCompile(`\b[Vv]\d+(\.\d+)?\b`)
	reAlnumOnly  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	reUpperAlnum = regexp.MustCompile(`^[A-Z0-9]+$`)
	reHasLetter  = regexp.MustCompile(`[A-Za-z]`)
	reSeparator  = regexp.MustCompile(`[-_/]`)
)

// SKUChecker recognises values that look like product codes rather than
// brand names. Supplier prefixes match case-sensitively.
type SKUChecker struct {
	prefixes []string
}

func NewSKUChecker(prefixes []string) SKUChecker {
	var cleaned []string
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return SKUChecker{prefixes: cleaned}
}

// IsSKULike reports whether value reads as a code under the default rules.
func IsSKULike(value string) bool {
	return SKUChecker{}.IsSKULike(value)
}

func (c SKUChecker) IsSKULike(value string) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	hasDigit := util.HasDigit(v)
	noSpace := !strings.ContainsAny(v, " \t")

	if noSpace && hasDigit && reUpperAlnum.MatchString(v) && reHasLetter.MatchString(v) {
		return true
	}
	if reSKUPrefix.MatchString(v) {
		return true
	}
	if reLetterDash.MatchString(v) {
		return true
	}
	if util.DigitRatio(v) > 0.6 {
		return true
	}
	for _, p := range c.prefixes {
		if strings.HasPrefix(v, p) {
			return true
		}
	}
	if hasDigit && noSpace && reSeparator.MatchString(v) {
		return true
	}
	if hasDigit && len(v) > 5 && reAlnumOnly.MatchString(v) {
		return true
	}
	if hasDigit && len([]rune(v)) <= 3 {
		return true
	}
	return reVersion.MatchString(v)
}
