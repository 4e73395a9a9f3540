package pipeline

import (
	"bytes"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"pricelist/internal"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	pdfMagic = []byte("%PDF")
)

const sniffBytes = 1024

// DetectFileType trusts the extension and sniffs the content only when the
// name has none. inferred reports the latter. Any other extension is
// unknown, matching IsSupported.
func DetectFileType(filename string, content []byte) (ft internal.FileType, inferred bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return internal.FileTypeCSV, false
	case ".xlsx", ".xls":
		return internal.FileTypeExcel, false
	case ".pdf":
		return internal.FileTypePDF, false
	case "":
		return sniffFileType(content), true
	default:
		return internal.FileTypeUnknown, false
	}
}

func sniffFileType(content []byte) internal.FileType {
	switch {
	case len(content) == 0:
		return internal.FileTypeUnknown
	case bytes.HasPrefix(content, zipMagic), bytes.HasPrefix(content, oleMagic):
		return internal.FileTypeExcel
	case bytes.HasPrefix(content, pdfMagic):
		return internal.FileTypePDF
	case looksLikeHTML(content):
		return internal.FileTypeExcel
	case isPrintable(content):
		return internal.FileTypeCSV
	default:
		return internal.FileTypeUnknown
	}
}

func isPrintable(content []byte) bool {
	sample := bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	if len(sample) > sniffBytes {
		sample = sample[:sniffBytes]
	}
	for len(sample) > 0 {
		r, size := utf8.DecodeRune(sample)
		if r == utf8.RuneError && size == 1 {
			// tolerate a rune cut by the sample boundary
			return len(sample) < utf8.UTFMax
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return false
		}
		sample = sample[size:]
	}
	return true
}

// DetectResult scores how likely an email carries a supplier pricelist.
type DetectResult struct {
	IsPricelist bool
	Score       float64
	Reason      string
}

var pricelistKeywords = []string{
	"price list", "pricelist", "price-list", "prices", "pricing", "price update",
	"catalogue", "catalog", "dealer", "tariff", "прайс", "цены",
}

const pricelistThreshold = 0.45

func DetectPricelistEmail(subject, text string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)

	score := 0.0
	for _, kw := range pricelistKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) {
			score += 0.1
		}
	}

	for _, name := range attachmentNames {
		if IsSupported(name) {
			score += 0.35
			if strings.Contains(strings.ToLower(name), "price") {
				score += 0.15
			}
			break
		}
	}
	if score > 1 {
		score = 1
	}

	isPricelist := score >= pricelistThreshold
	reason := "rules_negative"
	if isPricelist {
		reason = "rules_positive"
	}
	return DetectResult{IsPricelist: isPricelist, Score: score, Reason: reason}
}
