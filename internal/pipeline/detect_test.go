package pipeline

import (
	"testing"

	"pricelist/internal"
)

func TestDetectFileType(t *testing.T) {
	cases := []struct {
		name         string
		filename     string
		content      string
		want         internal.FileType
		wantInferred bool
	}{
		{"csv extension", "a.CSV", "", internal.FileTypeCSV, false},
		{"tsv extension", "a.tsv", "SKU\tPrice\n", internal.FileTypeUnknown, false},
		{"txt extension", "notes.txt", "SKU,Price\nA,1\n", internal.FileTypeUnknown, false},
		{"xlsm extension", "a.xlsm", "PK\x03\x04rest", internal.FileTypeUnknown, false},
		{"pdf extension", "a.pdf", "", internal.FileTypePDF, false},
		{"zip magic", "download", "PK\x03\x04rest", internal.FileTypeExcel, true},
		{"ole magic", "download", "\xd0\xcf\x11\xe0\xa1\xb1\x1a\xe1rest", internal.FileTypeExcel, true},
		{"pdf magic", "download", "%PDF-1.7", internal.FileTypePDF, true},
		{"html", "download", "<!DOCTYPE html><table></table>", internal.FileTypeExcel, true},
		{"text", "download", "SKU,Price\nA,1\n", internal.FileTypeCSV, true},
		{"binary", "download", "\x00\x00\x01", internal.FileTypeUnknown, true},
		{"empty", "download", "", internal.FileTypeUnknown, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, inferred := DetectFileType(tc.filename, []byte(tc.content))
			if got != tc.want || inferred != tc.wantInferred {
				t.Fatalf("DetectFileType() = %s, %v; want %s, %v", got, inferred, tc.want, tc.wantInferred)
			}
		})
	}
}

func TestDetectPricelistEmail(t *testing.T) {
	cases := []struct {
		name        string
		subject     string
		text        string
		attachments []string
		want        bool
	}{
		{"subject and attachment", "Updated price list", "", []string{"acme.xlsx"}, true},
		{"attachment name only", "Hi", "", []string{"Shure_Pricelist_2026.csv"}, true},
		{"keywords without attachment", "New pricing", "Our dealer prices change in June", nil, false},
		{"unsupported attachment", "Invoice", "", []string{"invoice.pdf"}, false},
		{"nothing", "Lunch?", "See you at noon", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectPricelistEmail(tc.subject, tc.text, tc.attachments)
			if got.IsPricelist != tc.want {
				t.Fatalf("IsPricelist = %v (score %.2f)", got.IsPricelist, got.Score)
			}
			if got.Score < 0 || got.Score > 1 {
				t.Fatalf("score out of range: %f", got.Score)
			}
		})
	}
}
