package pipeline

import (
	"strings"

	"pricelist/internal"
)

var (
	preferredSheetKeywords = []string{"price", "product", "list", "catalog", "item"}
	excludedSheetKeywords  = []string{"summary", "notes", "info", "instructions", "help", "template"}
)

// selectSheet picks the worksheet most likely to hold the pricelist and
// returns its rows.
func selectSheet(wb WorksheetReader) (string, [][]string, error) {
	names := wb.SheetNames()
	if len(names) == 0 {
		return "", nil, ErrNoSheets
	}

	cache := map[string][][]string{}
	rowsOf := func(name string) [][]string {
		if rows, ok := cache[name]; ok {
			return rows
		}
		rows, err := wb.Rows(name)
		if err != nil {
			rows = nil
		}
		cache[name] = rows
		return rows
	}

	for _, kw := range preferredSheetKeywords {
		for _, name := range names {
			if strings.Contains(strings.ToLower(name), kw) && len(rowsOf(name)) > 0 {
				return name, rowsOf(name), nil
			}
		}
	}
	for _, name := range names {
		if isExcludedSheet(name) {
			continue
		}
		if len(rowsOf(name)) > 1 {
			return name, rowsOf(name), nil
		}
	}

	first := names[0]
	rows, err := wb.Rows(first)
	if err != nil {
		return "", nil, err
	}
	return first, rows, nil
}

func isExcludedSheet(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range excludedSheetKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// readWorkbook opens content, selects a sheet and builds its RawTable.
func readWorkbook(content []byte, source string) (internal.RawTable, string, string, int, error) {
	wb, err := OpenWorkbook(content)
	if err != nil {
		return internal.RawTable{}, "", "", -1, err
	}
	defer wb.Close()

	strategy := "excel_worksheet"
	if _, ok := wb.(*htmlWorkbook); ok {
		strategy = "html_table"
	}

	sheet, rows, err := selectSheet(wb)
	if err != nil {
		return internal.RawTable{}, "", strategy, -1, err
	}
	if len(rows) == 0 {
		return internal.RawTable{}, sheet, strategy, -1, ErrEmptyFile
	}

	rowNums := make([]int, len(rows))
	for i := range rows {
		rowNums[i] = i + 1
	}
	table, headerIdx, err := buildTable(source, rows, rowNums)
	if err != nil {
		return internal.RawTable{}, sheet, strategy, -1, err
	}
	return table, sheet, strategy, headerIdx, nil
}
