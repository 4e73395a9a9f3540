// Package brand extracts a manufacturer name for a pricelist from its
// filename, worksheet name or column values while keeping product codes out
// of the candidate set.
package brand

import (
	"path/filepath"
	"regexp"
	"strings"

	"pricelist/internal"
)

// KnownBrands is matched case-insensitively as a whole word.
var KnownBrands = []string{
	"Adam Hall", "Akai", "AKG", "Allen & Heath", "Alto", "Audio-Technica",
	"Behringer", "Beyerdynamic", "Bosch", "Bose", "Boss", "Canon", "Casio",
	"Celestion", "Cordial", "Crown", "dbx", "DeWalt", "Denon", "DigiTech",
	"Electro-Voice", "Epson", "Fender", "Focusrite", "Gibson", "HP", "Ibanez",
	"JBL", "Klark Teknik", "Korg", "Lenovo", "LG", "Logitech", "Mackie",
	"Makita", "Marshall", "Martin Audio", "Midas", "Neumann", "Novation",
	"Numark", "Panasonic", "Peavey", "Philips", "Pioneer", "PreSonus", "QSC",
	"RCF", "Rode", "Roland", "Ryobi", "Samsung", "Sennheiser", "Shure",
	"Sony", "Soundcraft", "Stanley", "Steinberg", "Tascam", "TC Electronic",
	"Turbosound", "Yamaha", "Zoom",
}

var genericTokens = map[string]bool{
	"pricelist": true, "price": true, "prices": true, "list": true, "lists": true,
	"catalog": true, "catalogue": true, "dealer": true, "retail": true,
	"wholesale": true, "supplier": true, "vendor": true, "final": true, "updated": true, "update": true,
	"new": true, "copy": true, "rev": true, "revision": true, "export": true,
	"products": true, "product": true, "stock": true, "sheet": true,
	"data": true, "items": true, "item": true, "master": true, "current": true,
	"latest": true, "draft": true, "official": true, "full": true, "and": true,
	"the": true, "of": true, "for": true, "incl": true, "excl": true, "vat": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "may": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "sept": true, "oct": true, "nov": true,
	"dec": true, "january": true, "february": true, "march": true, "april": true,
	"june": true, "july": true, "august": true, "september": true,
	"october": true, "november": true, "december": true, "q1": true, "q2": true,
	"q3": true, "q4": true,
}

var genericSheets = map[string]bool{
	"sheet": true, "sheet1": true, "sheet2": true, "sheet3": true, "data": true,
	"export": true, "main": true, "summary": true, "notes": true, "info": true,
	"instructions": true, "help": true, "template": true, "pricelist": true,
	"price list": true, "prices": true, "products": true, "items": true,
	"catalog": true, "catalogue": true,
}

var blockedValues = map[string]bool{
	"n/a": true, "na": true, "none": true, "null": true, "generic": true,
	"various": true, "tbc": true, "tba": true, "-": true, "--": true,
	"unknown": true, "other": true, "misc": true, "no brand": true,
	"unbranded": true, "n.a.": true,
}

var (
	reFileSeparators = regexp.MustCompile(`[_\-.()\[\]]+`)
	reSheetSplit     = regexp.MustCompile(`\s+-\s+|_`)
	reDateToken      = regexp.MustCompile(`^\d{1,4}([/.]\d{1,2}){0,2}$`)
	reWord           = regexp.MustCompile(`^[A-Za-z][A-Za-z&'+]*$`)
)

const columnSampleSize = 100

// Input carries everything the detectors look at for one file.
type Input struct {
	FileName    string
	SheetName   string
	BrandValues []string
	NameValues  []string
}

// Detector runs the brand heuristics. It is stateless apart from the
// configured supplier prefixes.
type Detector struct {
	sku SKUChecker
}

func NewDetector(supplierPrefixes []string) *Detector {
	return &Detector{sku: NewSKUChecker(supplierPrefixes)}
}

func (d *Detector) IsSKULike(value string) bool {
	return d.sku.IsSKULike(value)
}

func none(source internal.BrandSource) internal.BrandDetectionResult {
	return internal.BrandDetectionResult{Source: source}
}

func found(brand string, confidence float64, source internal.BrandSource) internal.BrandDetectionResult {
	return internal.BrandDetectionResult{Brand: &brand, Confidence: confidence, Source: source}
}

// matchKnown returns the canonical spelling of the longest known brand
// contained in text as a whole word.
func matchKnown(text string) (string, bool) {
	lower := " " + strings.Join(strings.Fields(strings.ToLower(reFileSeparators.ReplaceAllString(text, " "))), " ") + " "
	best := ""
	for _, b := range KnownBrands {
		needle := " " + strings.ToLower(strings.ReplaceAll(b, "-", " ")) + " "
		if strings.Contains(lower, needle) && len(b) > len(best) {
			best = b
		}
	}
	return best, best != ""
}

func (d *Detector) FromFilename(name string) internal.BrandDetectionResult {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		return none(internal.BrandSourceFilename)
	}
	if b, ok := matchKnown(base); ok {
		return found(b, 0.9, internal.BrandSourceFilename)
	}

	var kept []string
	for _, tok := range strings.Fields(reFileSeparators.ReplaceAllString(base, " ")) {
		lower := strings.ToLower(tok)
		switch {
		case genericTokens[lower]:
		case reDateToken.MatchString(tok):
		case d.sku.IsSKULike(tok):
		case !reWord.MatchString(tok):
		default:
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return none(internal.BrandSourceFilename)
	}
	if len(kept) > 2 {
		kept = kept[:2]
	}
	return found(strings.Join(kept, " "), 0.7, internal.BrandSourceFilename)
}

func (d *Detector) FromSheetName(sheet string) internal.BrandDetectionResult {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" || genericSheets[strings.ToLower(sheet)] {
		return none(internal.BrandSourceSheetName)
	}
	if b, ok := matchKnown(sheet); ok {
		return found(b, 0.85, internal.BrandSourceSheetName)
	}
	for _, part := range reSheetSplit.Split(sheet, -1) {
		part = strings.TrimSpace(part)
		if part == "" || genericSheets[strings.ToLower(part)] || genericTokens[strings.ToLower(part)] {
			continue
		}
		if strings.Contains(part, " ") || !reWord.MatchString(part) || d.sku.IsSKULike(part) {
			continue
		}
		if len(part) < 2 {
			continue
		}
		return found(part, 0.6, internal.BrandSourceSheetName)
	}
	return none(internal.BrandSourceSheetName)
}

// FromColumn takes a majority vote over the first sampled brand cells.
func (d *Detector) FromColumn(values []string) internal.BrandDetectionResult {
	if len(values) > columnSampleSize {
		values = values[:columnSampleSize]
	}
	counts := map[string]int{}
	display := map[string]string{}
	var order []string
	sampled := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || blockedValues[key] || d.sku.IsSKULike(v) {
			continue
		}
		sampled++
		if _, ok := counts[key]; !ok {
			display[key] = v
			order = append(order, key)
		}
		counts[key]++
	}
	if len(order) == 0 {
		return none(internal.BrandSourceColumn)
	}
	winner := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[winner] {
			winner = k
		}
	}
	confidence := 0.8
	if float64(counts[winner]) > float64(sampled)*0.5 {
		confidence = 0.95
	}
	return found(display[winner], confidence, internal.BrandSourceColumn)
}

// FromPattern looks for a known brand opening the product names.
func (d *Detector) FromPattern(names []string) internal.BrandDetectionResult {
	if len(names) > columnSampleSize {
		names = names[:columnSampleSize]
	}
	counts := map[string]int{}
	var order []string
	sampled := 0
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		sampled++
		lower := strings.ToLower(n)
		best := ""
		for _, b := range KnownBrands {
			lb := strings.ToLower(b)
			if strings.HasPrefix(lower, lb+" ") && len(b) > len(best) {
				best = b
			}
		}
		if best == "" {
			continue
		}
		if _, ok := counts[best]; !ok {
			order = append(order, best)
		}
		counts[best]++
	}
	if len(order) == 0 {
		return none(internal.BrandSourcePattern)
	}
	winner := order[0]
	for _, b := range order[1:] {
		if counts[b] > counts[winner] {
			winner = b
		}
	}
	confidence := 0.6
	if float64(counts[winner]) > float64(sampled)*0.5 {
		confidence = 0.75
	}
	return found(winner, confidence, internal.BrandSourcePattern)
}

// Detect runs every detector and keeps the most confident hit. Earlier
// detectors win ties.
func (d *Detector) Detect(in Input) internal.BrandDetectionResult {
	candidates := []internal.BrandDetectionResult{
		d.FromFilename(in.FileName),
		d.FromSheetName(in.SheetName),
		d.FromColumn(in.BrandValues),
		d.FromPattern(in.NameValues),
	}
	best := internal.BrandDetectionResult{}
	for _, c := range candidates {
		if c.Brand == nil {
			continue
		}
		if best.Brand == nil || c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

// FilterBrand returns a cleaned cell value usable as a row brand, or nil
// when the cell is empty, generic or a product code.
func (d *Detector) FilterBrand(value string) *string {
	v := strings.Join(strings.Fields(value), " ")
	if v == "" || blockedValues[strings.ToLower(v)] || d.sku.IsSKULike(v) {
		return nil
	}
	return &v
}
