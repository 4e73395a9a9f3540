package pipeline

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"pricelist/internal"
	"pricelist/internal/util"
)

func TestExportRowsToXLSX(t *testing.T) {
	rows := []internal.NormalizedRow{
		{
			RowFields: internal.RowFields{
				SupplierSKU: "AB-100",
				Name:        "Speaker stand",
				UOM:         "each",
				Price:       250,
				Currency:    "ZAR",
				Brand:       util.StringPtr("Adam Hall"),
			},
			RowNum:     2,
			Confidence: 1,
			IsValid:    true,
		},
		{
			RowFields: internal.RowFields{SupplierSKU: "AB-103", Name: "Broken row", UOM: "each", Currency: "ZAR"},
			RowNum:    5,
			Warnings:  []string{"Missing or invalid required field: price"},
		},
	}

	out := filepath.Join(t.TempDir(), "nested", "rows.xlsx")
	if err := ExportRowsToXLSX(rows, out); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(got))
	}
	if got[0][1] != "supplier_sku" || got[0][13] != "warnings" {
		t.Fatalf("header = %v", got[0])
	}
	if got[1][1] != "AB-100" || got[1][3] != "Adam Hall" || got[1][12] != "TRUE" {
		t.Fatalf("first row = %v", got[1])
	}
	if got[2][13] != "Missing or invalid required field: price" {
		t.Fatalf("second row = %v", got[2])
	}
}
