package pipeline

import (
	"fmt"
	"strings"

	"pricelist/internal"
	"pricelist/internal/util"
)

const headerScanRows = 10

var headerKeywords = []string{
	"sku", "code", "item", "description", "desc", "name", "product", "price",
	"cost", "brand", "uom", "unit", "barcode", "ean", "category", "vat", "qty",
	"pack", "model", "part", "артикул", "наимен", "цена", "ед",
}

// headerScore counts non-empty, non-numeric cells; cells holding a header
// keyword count twice.
func headerScore(cells []string) int {
	score := 0
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c == "" || util.IsNumeric(c) {
			continue
		}
		score++
		lower := strings.ToLower(c)
		for _, kw := range headerKeywords {
			if strings.Contains(lower, kw) {
				score++
				break
			}
		}
	}
	return score
}

// detectHeaderRow returns the index of the best scoring row among the first
// rows, earliest row on ties, or -1 when none scores.
func detectHeaderRow(rows [][]string) int {
	best, bestScore := -1, 0
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if s := headerScore(rows[i]); s > bestScore {
			best, bestScore = i, s
		}
	}
	return best
}

// buildTable turns raw records into a RawTable using the detected header row.
// rowNums holds the 1-based source position of each record; the returned
// header index is 0-based in the same coordinates.
func buildTable(source string, records [][]string, rowNums []int) (internal.RawTable, int, error) {
	headerIdx := detectHeaderRow(records)
	if headerIdx < 0 {
		return internal.RawTable{}, -1, ErrNoHeader
	}

	header := records[headerIdx]
	width := len(header)
	for _, rec := range records[headerIdx+1:] {
		width = max(width, len(rec))
	}

	headers := make([]string, width)
	for i := range headers {
		h := ""
		if i < len(header) {
			h = util.CollapseSpaces(strings.TrimPrefix(header[i], "\ufeff"))
		}
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		headers[i] = h
	}

	table := internal.RawTable{SourceName: source, Headers: headers}
	for i := headerIdx + 1; i < len(records); i++ {
		row := internal.RawRow{RowNum: rowNums[i], Cells: records[i]}
		if row.IsEmpty() {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, rowNums[headerIdx] - 1, nil
}
