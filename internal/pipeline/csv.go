package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"pricelist/internal"
)

const delimiterSampleLines = 5

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// DetectDelimiter picks the delimiter from the first non-empty lines. For
// each candidate the most common non-zero per-line count is found; the
// candidate whose count is shared by the most lines wins, then the one with
// the higher count. Title lines without any delimiter do not count against
// a candidate.
func DetectDelimiter(text string) rune {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == delimiterSampleLines {
			break
		}
	}

	best, bestLines, bestCount := ',', 0, 0
	for _, d := range candidateDelimiters {
		freq := map[int]int{}
		for _, line := range lines {
			if n := strings.Count(line, string(d)); n > 0 {
				freq[n]++
			}
		}
		modeCount, modeLines := 0, 0
		for n, l := range freq {
			if l > modeLines || (l == modeLines && n > modeCount) {
				modeCount, modeLines = n, l
			}
		}
		if modeLines > bestLines || (modeLines == bestLines && modeLines > 0 && modeCount > bestCount) {
			best, bestLines, bestCount = d, modeLines, modeCount
		}
	}
	return best
}

// readCSV decodes delimited text into a RawTable.
func readCSV(content []byte, source string) (internal.RawTable, rune, int, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	text := strings.ToValidUTF8(string(content), "\uFFFD")
	if strings.TrimSpace(text) == "" {
		return internal.RawTable{}, 0, -1, ErrEmptyFile
	}

	delim := DetectDelimiter(text)
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var records [][]string
	var rowNums []int
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return internal.RawTable{}, delim, -1, &ReadError{Format: "csv", Stage: "decode", Err: err}
		}
		line, _ := r.FieldPos(0)
		records = append(records, rec)
		rowNums = append(rowNums, line)
	}
	if len(records) == 0 {
		return internal.RawTable{}, delim, -1, ErrEmptyFile
	}

	table, headerIdx, err := buildTable(source, records, rowNums)
	if err != nil {
		return internal.RawTable{}, delim, -1, err
	}
	return table, delim, headerIdx, nil
}
