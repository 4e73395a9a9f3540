package pipeline

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"pricelist/internal"
	"pricelist/internal/brand"
	"pricelist/internal/currency"
	"pricelist/internal/util"
	"pricelist/internal/validation"
)

const maxRowWarnings = 100

// rowExtractor turns mapped table rows into NormalizedRows.
type rowExtractor struct {
	cfg       internal.ExtractionConfig
	mapping   internal.FieldMapping
	fileBrand *string
	priceHint string
	currency  *currency.Normalizer
	brands    *brand.Detector
	validator *validation.Engine
	logger    *slog.Logger
}

type rowOutcome struct {
	rows       []internal.NormalizedRow
	currencies []internal.CurrencyInfo
	processed  int
	skipped    int
	truncated  bool
}

func (x *rowExtractor) run(table internal.RawTable) rowOutcome {
	var out rowOutcome
	for _, raw := range table.Rows {
		if raw.IsEmpty() {
			continue
		}
		if x.cfg.MaxRows > 0 && out.processed >= x.cfg.MaxRows {
			out.truncated = true
			break
		}
		out.processed++
		row, info, keep := x.safeExtract(raw)
		if !keep {
			out.skipped++
			continue
		}
		out.rows = append(out.rows, row)
		out.currencies = append(out.currencies, info)
	}
	return out
}

// safeExtract keeps a failure inside one row from aborting the file.
func (x *rowExtractor) safeExtract(raw internal.RawRow) (row internal.NormalizedRow, info internal.CurrencyInfo, keep bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		x.logger.Warn("row extraction failed", "row", raw.RowNum, "panic", r)
		if x.cfg.SkipInvalidRows {
			row, info, keep = internal.NormalizedRow{}, internal.CurrencyInfo{}, false
			return
		}
		info = internal.CurrencyInfo{Currency: x.currency.DefaultCurrency(), Symbol: currency.SymbolFor(x.currency.DefaultCurrency())}
		row = internal.NormalizedRow{
			RowFields: internal.RowFields{Currency: info.Currency},
			RowNum:    raw.RowNum,
			Warnings:  []string{fmt.Sprintf("Row processing failed: %v", r)},
		}
		keep = true
	}()
	return x.extract(raw)
}

func (x *rowExtractor) extract(raw internal.RawRow) (internal.NormalizedRow, internal.CurrencyInfo, bool) {
	rawPrice := x.cell(raw, internal.FieldPrice)
	price := 0.0
	if p := x.currency.ParsePrice(rawPrice); p != nil && *p > 0 {
		price = *p
	} else if x.cfg.SkipInvalidRows {
		return internal.NormalizedRow{}, internal.CurrencyInfo{}, false
	}
	info := x.currency.DetectCurrency(rawPrice, x.priceHint)

	fields := internal.RowFields{
		SupplierSKU: x.cell(raw, internal.FieldSupplierSKU),
		Name:        x.cell(raw, internal.FieldName),
		UOM:         x.cell(raw, internal.FieldUOM),
		Price:       price,
		Currency:    info.Currency,
		Brand:       x.rowBrand(raw),
		PackSize:    util.OptionalString(x.cell(raw, internal.FieldPackSize)),
		Barcode:     util.OptionalString(x.cell(raw, internal.FieldBarcode)),
		CategoryRaw: util.OptionalString(x.cell(raw, internal.FieldCategoryRaw)),
		VATCode:     util.OptionalString(x.cell(raw, internal.FieldVATCode)),
	}

	res := x.validator.ValidateRow(fields)
	if !res.Valid && x.cfg.SkipInvalidRows {
		return internal.NormalizedRow{}, internal.CurrencyInfo{}, false
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return internal.NormalizedRow{
		RowFields:  fields,
		RowNum:     raw.RowNum,
		Confidence: res.Confidence,
		Warnings:   warnings,
		IsValid:    res.Valid,
	}, info, true
}

func (x *rowExtractor) cell(raw internal.RawRow, f internal.Field) string {
	c, ok := x.mapping.Get(f)
	if !ok {
		return ""
	}
	return util.CollapseSpaces(raw.Value(c.Index))
}

// rowBrand prefers the row's own brand cell and falls back to the file brand.
func (x *rowExtractor) rowBrand(raw internal.RawRow) *string {
	if b := x.brands.FilterBrand(x.cell(raw, internal.FieldBrand)); b != nil {
		return b
	}
	if x.fileBrand == nil {
		return nil
	}
	b := *x.fileBrand
	return &b
}

// rowWarnings lists row-level issues, capped with a trailing summary.
func rowWarnings(rows []internal.NormalizedRow) []internal.ExtractionWarning {
	var out []internal.ExtractionWarning
	extra := 0
	for _, r := range rows {
		if len(r.Warnings) == 0 {
			continue
		}
		if len(out) >= maxRowWarnings {
			extra++
			continue
		}
		severity := internal.SeverityLow
		prefix := "Row has issues"
		if !r.IsValid {
			severity = internal.SeverityHigh
			prefix = "Invalid row"
		}
		out = append(out, internal.ExtractionWarning{
			Type:     internal.WarningDataQuality,
			Message:  fmt.Sprintf("%s: %s", prefix, strings.Join(r.Warnings, "; ")),
			Severity: severity,
			RowNum:   util.IntPtr(r.RowNum),
		})
	}
	if extra > 0 {
		out = append(out, internal.ExtractionWarning{
			Type:     internal.WarningDataQuality,
			Message:  fmt.Sprintf("%d more rows have issues", extra),
			Severity: internal.SeverityMedium,
		})
	}
	return out
}

// duplicateSKUs warns once per supplier SKU that occurs on more than one row
// and counts the repeats beyond the first occurrence.
func duplicateSKUs(rows []internal.NormalizedRow) ([]internal.ExtractionWarning, int) {
	seen := map[string][]int{}
	var order []string
	for _, r := range rows {
		if r.SupplierSKU == "" {
			continue
		}
		if _, ok := seen[r.SupplierSKU]; !ok {
			order = append(order, r.SupplierSKU)
		}
		seen[r.SupplierSKU] = append(seen[r.SupplierSKU], r.RowNum)
	}

	var out []internal.ExtractionWarning
	count, extra := 0, 0
	for _, sku := range order {
		rowNums := seen[sku]
		if len(rowNums) < 2 {
			continue
		}
		count += len(rowNums) - 1
		if len(out) >= maxRowWarnings {
			extra++
			continue
		}
		nums := make([]string, len(rowNums))
		for i, n := range rowNums {
			nums[i] = strconv.Itoa(n)
		}
		out = append(out, internal.ExtractionWarning{
			Type:     internal.WarningDataQuality,
			Message:  fmt.Sprintf("Duplicate SKU found: %s (%d occurrences, rows %s)", sku, len(rowNums), strings.Join(nums, ", ")),
			Severity: internal.SeverityMedium,
			RowNum:   util.IntPtr(rowNums[1]),
			Field:    util.StringPtr(internal.FieldSupplierSKU.String()),
		})
	}
	if extra > 0 {
		out = append(out, internal.ExtractionWarning{
			Type:     internal.WarningDataQuality,
			Message:  fmt.Sprintf("%d more SKUs are duplicated", extra),
			Severity: internal.SeverityMedium,
		})
	}
	return out, count
}

// fileCurrency is the most common row currency, scored by the mean
// detection confidence of those rows. Ties go to the first seen.
func fileCurrency(infos []internal.CurrencyInfo, fallback string) internal.CurrencyInfo {
	if len(infos) == 0 {
		return internal.CurrencyInfo{Currency: fallback, Symbol: currency.SymbolFor(fallback)}
	}
	counts := map[string]int{}
	sums := map[string]float64{}
	var order []string
	for _, info := range infos {
		if _, ok := counts[info.Currency]; !ok {
			order = append(order, info.Currency)
		}
		counts[info.Currency]++
		sums[info.Currency] += info.Confidence
	}
	best := order[0]
	for _, c := range order[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return internal.CurrencyInfo{
		Currency:   best,
		Symbol:     currency.SymbolFor(best),
		Confidence: sums[best] / float64(counts[best]),
	}
}
