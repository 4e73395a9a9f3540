package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"

	"pricelist/internal/util"
)

// WorksheetReader is the narrow view of a workbook the extractor needs.
type WorksheetReader interface {
	SheetNames() []string
	Rows(sheet string) ([][]string, error)
	Close() error
}

// OpenWorkbook opens an xlsx workbook, or an HTML table export saved with
// a spreadsheet extension.
func OpenWorkbook(content []byte) (WorksheetReader, error) {
	if looksLikeHTML(content) {
		return openHTMLWorkbook(content)
	}
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &ReadError{Format: "excel", Stage: "open", Err: err}
	}
	return &excelWorkbook{file: f}, nil
}

type excelWorkbook struct {
	file *excelize.File
}

func (w *excelWorkbook) SheetNames() []string {
	return w.file.GetSheetList()
}

func (w *excelWorkbook) Rows(sheet string) ([][]string, error) {
	rows, err := w.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ReadError{Format: "excel", Stage: "rows", Err: err}
	}
	return rows, nil
}

func (w *excelWorkbook) Close() error {
	return w.file.Close()
}

// htmlWorkbook exposes every <table> of an HTML document as one sheet.
type htmlWorkbook struct {
	names  []string
	tables map[string][][]string
}

func openHTMLWorkbook(content []byte) (*htmlWorkbook, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, &ReadError{Format: "html", Stage: "parse", Err: err}
	}

	wb := &htmlWorkbook{tables: map[string][][]string{}}
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		name := util.CollapseSpaces(table.Find("caption").First().Text())
		if name == "" {
			name = fmt.Sprintf("Table%d", i+1)
		}
		if _, dup := wb.tables[name]; dup {
			name = fmt.Sprintf("%s (%d)", name, i+1)
		}

		var rows [][]string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, util.CollapseSpaces(cell.Text()))
			})
			rows = append(rows, cells)
		})
		wb.names = append(wb.names, name)
		wb.tables[name] = rows
	})
	if len(wb.names) == 0 {
		return nil, &ReadError{Format: "html", Stage: "parse", Err: ErrNoSheets}
	}
	return wb, nil
}

func (w *htmlWorkbook) SheetNames() []string {
	return append([]string(nil), w.names...)
}

func (w *htmlWorkbook) Rows(sheet string) ([][]string, error) {
	rows, ok := w.tables[sheet]
	if !ok {
		return nil, fmt.Errorf("sheet %q not found", sheet)
	}
	return rows, nil
}

func (w *htmlWorkbook) Close() error {
	return nil
}

func looksLikeHTML(content []byte) bool {
	if bytes.HasPrefix(content, zipMagic) || bytes.HasPrefix(content, oleMagic) {
		return false
	}
	head := content
	if len(head) > 1024 {
		head = head[:1024]
	}
	lower := strings.ToLower(strings.TrimSpace(string(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")))))
	return strings.HasPrefix(lower, "<!doctype html") || strings.Contains(lower, "<html") || strings.Contains(lower, "<table")
}
