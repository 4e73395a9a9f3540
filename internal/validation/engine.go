// Package validation checks a normalized pricelist row and scores it.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"pricelist/internal"
	"pricelist/internal/currency"
	"pricelist/internal/util"
)

const (
	minSKULength      = 2
	maxSKULength      = 100
	minNameLength     = 3
	maxNameLength     = 500
	maxUOMLength      = 20
	maxCategoryLength = 200
	maxPackSizeLength = 50
	maxVATCodeLength  = 20
	maxPriceDecimals  = 4

	errorPenalty   = 0.3
	warningPenalty = 0.05
)

var (
	reCurrencyFormat  = regexp.MustCompile(`^[A-Z]{3}$`)
	reSuspiciousChars = regexp.MustCompile(`[<>{}\\|^~` + "`" + `;]`)
)

var placeholderNames = map[string]bool{
	"test": true, "testing": true, "sample": true, "example": true, "n/a": true,
	"na": true, "none": true, "null": true, "tbc": true, "tba": true, "todo": true,
	"xxx": true, "description": true, "product": true, "item": true, "name": true,
	"dummy": true, "placeholder": true, "-": true, "...": true,
}

// KnownUnits is the accepted unit-of-measure vocabulary, lowercase.
var KnownUnits = map[string]bool{
	"each": true, "ea": true, "unit": true, "units": true, "pc": true, "pcs": true,
	"piece": true, "pieces": true, "item": true, "pack": true, "pk": true,
	"box": true, "bx": true, "case": true, "cs": true, "carton": true, "ctn": true,
	"set": true, "pair": true, "pr": true, "dozen": true, "doz": true, "roll": true,
	"rl": true, "bag": true, "bottle": true, "btl": true, "can": true, "tin": true,
	"tube": true, "kg": true, "g": true, "gram": true, "mg": true, "ton": true,
	"lb": true, "oz": true, "l": true, "lt": true, "ltr": true, "litre": true,
	"liter": true, "ml": true, "m": true, "mtr": true, "metre": true, "meter": true,
	"cm": true, "mm": true, "km": true, "ft": true, "in": true, "sqm": true,
	"m2": true, "m3": true, "pallet": true, "drum": true, "bundle": true,
	"kit": true, "lot": true, "sheet": true, "hour": true, "hr": true,
	"шт": true, "упак": true, "м": true, "кг": true,
}

type priceRange struct {
	min, max, low float64
}

var priceRanges = map[string]priceRange{
	"ZAR": {min: 0.01, max: 10_000_000, low: 1},
	"USD": {min: 0.01, max: 1_000_000, low: 0.1},
	"EUR": {min: 0.01, max: 1_000_000, low: 0.1},
	"GBP": {min: 0.01, max: 1_000_000, low: 0.1},
	"JPY": {min: 1, max: 100_000_000, low: 10},
	"INR": {min: 0.01, max: 50_000_000, low: 5},
	"NGN": {min: 0.01, max: 500_000_000, low: 50},
}

var defaultRange = priceRange{min: 0.01, max: 10_000_000, low: 0.1}

// Result is the outcome of validating one row.
type Result struct {
	Valid      bool
	Confidence float64
	Warnings   []string
}

// Engine validates rows; strict mode treats every warning as fatal.
type Engine struct {
	strict bool
}

func NewEngine(strict bool) *Engine {
	return &Engine{strict: strict}
}

func (e *Engine) ValidateRow(row internal.RowFields) Result {
	if missing := missingRequired(row); len(missing) > 0 {
		warnings := make([]string, 0, len(missing))
		for _, f := range missing {
			warnings = append(warnings, fmt.Sprintf("Missing or invalid required field: %s", f))
		}
		return Result{Valid: false, Confidence: 0, Warnings: warnings}
	}

	var warnings []string
	warnings = append(warnings, checkSKU(row.SupplierSKU)...)
	warnings = append(warnings, checkName(row.Name)...)
	warnings = append(warnings, checkUOM(row.UOM)...)
	warnings = append(warnings, checkPrice(row.Price, row.Currency)...)
	warnings = append(warnings, checkCurrency(row.Currency)...)
	warnings = append(warnings, checkOptional(row)...)

	errors := 0
	for _, w := range warnings {
		if IsErrorWarning(w) {
			errors++
		}
	}
	confidence := 1.0 - errorPenalty*float64(errors) - warningPenalty*float64(len(warnings)-errors)
	confidence = max(0, min(1, confidence))

	valid := errors == 0
	if e.strict {
		valid = len(warnings) == 0
	}
	return Result{Valid: valid, Confidence: confidence, Warnings: warnings}
}

// IsErrorWarning reports whether a warning message counts as an error.
func IsErrorWarning(w string) bool {
	lower := strings.ToLower(w)
	return strings.Contains(lower, "missing") || strings.Contains(lower, "invalid")
}

func missingRequired(row internal.RowFields) []string {
	var missing []string
	if strings.TrimSpace(row.SupplierSKU) == "" {
		missing = append(missing, internal.FieldSupplierSKU.String())
	}
	if strings.TrimSpace(row.Name) == "" {
		missing = append(missing, internal.FieldName.String())
	}
	if strings.TrimSpace(row.UOM) == "" {
		missing = append(missing, internal.FieldUOM.String())
	}
	if row.Price <= 0 {
		missing = append(missing, internal.FieldPrice.String())
	}
	if strings.TrimSpace(row.Currency) == "" {
		missing = append(missing, "currency")
	}
	return missing
}

func checkSKU(sku string) []string {
	var out []string
	n := len([]rune(sku))
	if n < minSKULength || n > maxSKULength {
		out = append(out, fmt.Sprintf("Invalid SKU length: %d (expected %d-%d)", n, minSKULength, maxSKULength))
	}
	if reSuspiciousChars.MatchString(sku) {
		out = append(out, "SKU contains suspicious characters")
	}
	return out
}

func checkName(name string) []string {
	var out []string
	n := len([]rune(name))
	if n < minNameLength {
		out = append(out, fmt.Sprintf("Product name is very short (%d characters)", n))
	}
	if n > maxNameLength {
		out = append(out, fmt.Sprintf("Product name exceeds %d characters", maxNameLength))
	}
	if placeholderNames[strings.ToLower(strings.TrimSpace(name))] {
		out = append(out, fmt.Sprintf("Product name looks like a placeholder: %q", name))
	}
	return out
}

func checkUOM(uom string) []string {
	var out []string
	if len([]rune(uom)) > maxUOMLength {
		out = append(out, fmt.Sprintf("Unit of measure exceeds %d characters", maxUOMLength))
	}
	if !KnownUnits[strings.ToLower(strings.TrimSuffix(strings.TrimSpace(uom), "."))] {
		out = append(out, fmt.Sprintf("Unrecognised unit of measure: %s", uom))
	}
	return out
}

func checkPrice(price float64, code string) []string {
	var out []string
	r, ok := priceRanges[code]
	if !ok {
		r = defaultRange
	}
	switch {
	case price < r.min:
		out = append(out, fmt.Sprintf("Price %.4f is below the minimum %.2f for %s", price, r.min, code))
	case price > r.max:
		out = append(out, fmt.Sprintf("Price %.2f exceeds the maximum %.0f for %s", price, r.max, code))
	case price < r.low:
		out = append(out, fmt.Sprintf("Price %.2f is unusually low for %s", price, code))
	}
	if util.DecimalPlaces(price) > maxPriceDecimals {
		out = append(out, fmt.Sprintf("Price has more than %d decimal places", maxPriceDecimals))
	}
	return out
}

func checkCurrency(code string) []string {
	if !reCurrencyFormat.MatchString(code) {
		return []string{fmt.Sprintf("Invalid currency code format: %s", code)}
	}
	if !currency.IsKnown(code) {
		return []string{fmt.Sprintf("Unrecognised currency code: %s", code)}
	}
	return nil
}

func checkOptional(row internal.RowFields) []string {
	var out []string
	if row.Barcode != nil {
		b := strings.TrimSpace(*row.Barcode)
		switch len(b) {
		case 8, 12, 13, 14:
			if !util.IsAllDigits(b) {
				out = append(out, fmt.Sprintf("Barcode %s is not numeric", b))
			}
		default:
			out = append(out, fmt.Sprintf("Barcode %s has unusual length %d", b, len(b)))
		}
	}
	if row.CategoryRaw != nil && len([]rune(*row.CategoryRaw)) > maxCategoryLength {
		out = append(out, fmt.Sprintf("Category exceeds %d characters", maxCategoryLength))
	}
	if row.PackSize != nil && len([]rune(*row.PackSize)) > maxPackSizeLength {
		out = append(out, fmt.Sprintf("Pack size exceeds %d characters", maxPackSizeLength))
	}
	if row.VATCode != nil && len([]rune(*row.VATCode)) > maxVATCodeLength {
		out = append(out, fmt.Sprintf("VAT code exceeds %d characters", maxVATCodeLength))
	}
	return out
}
