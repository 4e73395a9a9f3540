// Package confidence turns row and file signals into [0,1] trust scores.
package confidence

import (
	"strings"

	"pricelist/internal"
)

const completenessSample = 100

// RowConfidence weighs required presence 0.4, optional presence 0.2,
// quality 0.2 and format 0.2.
func RowConfidence(row internal.RowFields) float64 {
	required := ratio(
		nonEmpty(row.SupplierSKU),
		nonEmpty(row.Name),
		nonEmpty(row.UOM),
		row.Price > 0,
		nonEmpty(row.Currency),
	)
	optional := ratio(
		row.Brand != nil,
		row.PackSize != nil,
		row.Barcode != nil,
		row.CategoryRaw != nil,
		row.VATCode != nil,
	)
	skuLen := len([]rune(strings.TrimSpace(row.SupplierSKU)))
	quality := ratio(
		skuLen >= 2 && skuLen <= 100,
		len([]rune(strings.TrimSpace(row.Name))) >= 3,
		row.Price > 0 && row.Price < 10_000_000,
	)
	uomLen := len([]rune(strings.TrimSpace(row.UOM)))
	format := ratio(
		len(row.Currency) == 3,
		uomLen > 0 && uomLen <= 20,
	)
	return clamp(0.4*required + 0.2*optional + 0.2*quality + 0.2*format)
}

// MetadataConfidence weighs required-field mapping 0.4, brand detection 0.2,
// sampled completeness 0.2 and cross-row consistency 0.2.
func MetadataConfidence(mapping internal.FieldMapping, brand internal.BrandDetectionResult, rows []internal.NormalizedRow) float64 {
	mapped := 0.0
	for _, f := range internal.RequiredFields {
		mapped += mapping.Confidence(f)
	}
	mapped /= float64(len(internal.RequiredFields))

	brandScore := 0.5
	if brand.Brand != nil {
		brandScore = brand.Confidence
	}

	return clamp(0.4*mapped + 0.2*brandScore + 0.2*completeness(rows) + 0.2*consistency(rows))
}

func completeness(rows []internal.NormalizedRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	sample := rows
	if len(sample) > completenessSample {
		sample = sample[:completenessSample]
	}
	total := 0.0
	for _, r := range sample {
		total += ratio(nonEmpty(r.SupplierSKU), nonEmpty(r.Name), nonEmpty(r.UOM), r.Price > 0)
	}
	return total / float64(len(sample))
}

func consistency(rows []internal.NormalizedRow) float64 {
	score := 1.0
	currencies := map[string]bool{}
	uoms := map[string]bool{}
	brands := map[string]bool{}
	for _, r := range rows {
		if r.Currency != "" {
			currencies[r.Currency] = true
		}
		if r.UOM != "" {
			uoms[strings.ToLower(r.UOM)] = true
		}
		if r.Brand != nil {
			brands[strings.ToLower(*r.Brand)] = true
		}
	}
	if len(currencies) > 1 {
		score -= 0.3
	}
	if n := float64(len(rows)); len(rows) >= 10 {
		if float64(len(uoms)) > n*0.5 {
			score -= 0.2
		}
		if float64(len(brands)) > n*0.5 {
			score -= 0.2
		}
	}
	return clamp(score)
}

// Overall blends the mean row score with the file-level score. With no rows
// only half of the metadata score is credited.
func Overall(rowScores []float64, metadata float64) float64 {
	if len(rowScores) == 0 {
		return clamp(metadata * 0.5)
	}
	sum := 0.0
	for _, s := range rowScores {
		sum += s
	}
	return clamp(0.6*(sum/float64(len(rowScores))) + 0.4*metadata)
}

type Level string

const (
	LevelExcellent Level = "excellent"
	LevelGood      Level = "good"
	LevelFair      Level = "fair"
	LevelLow       Level = "low"
	LevelVeryLow   Level = "very_low"
)

type Report struct {
	Score          float64 `json:"score"`
	Level          Level   `json:"level"`
	Recommendation string  `json:"recommendation"`
}

func NewReport(score float64) Report {
	switch {
	case score >= 0.9:
		return Report{Score: score, Level: LevelExcellent, Recommendation: "Extraction looks reliable and can be imported as is."}
	case score >= 0.75:
		return Report{Score: score, Level: LevelGood, Recommendation: "Extraction looks good. Spot-check flagged rows before importing."}
	case score >= 0.6:
		return Report{Score: score, Level: LevelFair, Recommendation: "Review the column mapping and flagged rows before importing."}
	case score >= 0.4:
		return Report{Score: score, Level: LevelLow, Recommendation: "Manual review required. Check the column mapping and correct invalid rows."}
	default:
		return Report{Score: score, Level: LevelVeryLow, Recommendation: "Do not import automatically. Map columns manually or request a cleaner file from the supplier."}
	}
}

func ratio(checks ...bool) float64 {
	if len(checks) == 0 {
		return 0
	}
	n := 0
	for _, c := range checks {
		if c {
			n++
		}
	}
	return float64(n) / float64(len(checks))
}

func nonEmpty(s string) bool {
	return strings.TrimSpace(s) != ""
}

func clamp(v float64) float64 {
	return max(0, min(1, v))
}
