package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"pricelist/internal"
	"pricelist/internal/util"
)

var exportHeaders = []string{
	"row_num", "supplier_sku", "name", "brand", "price", "currency", "uom",
	"pack_size", "barcode", "category_raw", "vat_code", "confidence", "is_valid", "warnings",
}

// ExportRowsToXLSX writes normalized rows to a single-sheet workbook.
func ExportRowsToXLSX(rows []internal.NormalizedRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.RowNum)
		set(2, row.SupplierSKU)
		set(3, row.Name)
		set(4, util.Deref(row.Brand))
		set(5, row.Price)
		set(6, row.Currency)
		set(7, row.UOM)
		set(8, util.Deref(row.PackSize))
		set(9, util.Deref(row.Barcode))
		set(10, util.Deref(row.CategoryRaw))
		set(11, util.Deref(row.VATCode))
		set(12, row.Confidence)
		set(13, row.IsValid)
		set(14, strings.Join(row.Warnings, "; "))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
