package pipeline

import (
	"bytes"

	pdf "github.com/ledongthuc/pdf"
)

// pdfPageCount returns the number of pages, or 0 when the document cannot
// be opened.
func pdfPageCount(content []byte) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}
