package pipeline

import (
	"strings"
	"testing"

	"pricelist/internal"
	"pricelist/internal/brand"
	"pricelist/internal/currency"
	"pricelist/internal/logging"
)

func mappedTable() (internal.RawTable, internal.FieldMapping) {
	table := internal.RawTable{
		SourceName: "stands.csv",
		Headers:    []string{"SKU", "Description", "Price", "UOM"},
		Rows: []internal.RawRow{
			{RowNum: 2, Cells: []string{"ST-1", "Speaker stand", "250.00", "each"}},
			{RowNum: 3, Cells: []string{"ST-2", "Boom stand", "310.00", "each"}},
		},
	}
	mapping := internal.FieldMapping{Columns: map[internal.Field]internal.ColumnMatch{
		internal.FieldSupplierSKU: {Header: "SKU", Index: 0, Confidence: 1},
		internal.FieldName:        {Header: "Description", Index: 1, Confidence: 1},
		internal.FieldPrice:       {Header: "Price", Index: 2, Confidence: 1},
		internal.FieldUOM:         {Header: "UOM", Index: 3, Confidence: 1},
	}}
	return table, mapping
}

// A nil validator panics once a row has every required field.
func TestRowFailureDoesNotAbortFile(t *testing.T) {
	table, mapping := mappedTable()
	x := &rowExtractor{
		cfg:      internal.ExtractionConfig{}.WithDefaults(),
		mapping:  mapping,
		currency: currency.NewNormalizer("ZAR"),
		brands:   brand.NewDetector(nil),
		logger:   logging.Discard(),
	}

	out := x.run(table)
	if out.processed != 2 || len(out.rows) != 2 {
		t.Fatalf("processed=%d rows=%d", out.processed, len(out.rows))
	}
	for i, row := range out.rows {
		if row.IsValid || row.Confidence != 0 {
			t.Fatalf("row %d: valid=%v confidence=%v", i, row.IsValid, row.Confidence)
		}
		if row.RowNum != table.Rows[i].RowNum || row.Currency != "ZAR" {
			t.Fatalf("row %d: %+v", i, row)
		}
		if len(row.Warnings) != 1 || !strings.HasPrefix(row.Warnings[0], "Row processing failed") {
			t.Fatalf("row %d warnings: %v", i, row.Warnings)
		}
	}

	x.cfg.SkipInvalidRows = true
	out = x.run(table)
	if out.processed != 2 || out.skipped != 2 || len(out.rows) != 0 {
		t.Fatalf("skip: processed=%d skipped=%d rows=%d", out.processed, out.skipped, len(out.rows))
	}
}

func TestDuplicateSKUs(t *testing.T) {
	rows := []internal.NormalizedRow{
		{RowFields: internal.RowFields{SupplierSKU: "AB-1"}, RowNum: 2},
		{RowFields: internal.RowFields{SupplierSKU: "AB-2"}, RowNum: 3},
		{RowFields: internal.RowFields{SupplierSKU: "AB-1"}, RowNum: 4},
		{RowFields: internal.RowFields{SupplierSKU: ""}, RowNum: 5},
		{RowFields: internal.RowFields{SupplierSKU: ""}, RowNum: 6},
		{RowFields: internal.RowFields{SupplierSKU: "AB-1"}, RowNum: 7},
	}
	warnings, count := duplicateSKUs(rows)
	if count != 2 {
		t.Fatalf("count=%d", count)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings=%+v", warnings)
	}
	w := warnings[0]
	if w.Type != internal.WarningDataQuality || w.Message != "Duplicate SKU found: AB-1 (3 occurrences, rows 2, 4, 7)" {
		t.Fatalf("warning=%+v", w)
	}
	if w.RowNum == nil || *w.RowNum != 4 || w.Field == nil || *w.Field != "supplier_sku" {
		t.Fatalf("warning position=%+v", w)
	}

	if warnings, count := duplicateSKUs(rows[:2]); count != 0 || len(warnings) != 0 {
		t.Fatalf("unique rows: count=%d warnings=%v", count, warnings)
	}
}

func TestExtractReportsDuplicateSKUs(t *testing.T) {
	content := "SKU,Description,Price,UOM\n" +
		"AB-100,Speaker stand,250.00,each\n" +
		"AB-101,Microphone clip,45.50,each\n" +
		"AB-100,Speaker stand black,255.00,each\n"
	res := newTestEngine().Extract([]byte(content), "stands.csv", internal.ExtractionConfig{})
	if !res.Success || len(res.Rows) != 3 {
		t.Fatalf("success=%v rows=%d errors=%v", res.Success, len(res.Rows), res.Errors)
	}
	if res.Metadata.DuplicateSKUs != 1 {
		t.Fatalf("duplicates=%d", res.Metadata.DuplicateSKUs)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.HasPrefix(w.Message, "Duplicate SKU found: AB-100 (2 occurrences") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no duplicate warning in %+v", res.Warnings)
	}
}
