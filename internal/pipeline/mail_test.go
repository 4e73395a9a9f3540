package pipeline

import (
	"strings"
	"testing"
)

func pricelistMIME(attachmentName, attachment string) []byte {
	lines := []string{
		"From: ACME Sales <sales@ACME.co.za>",
		"To: buyer@example.com",
		"Subject: ACME price list",
		"Message-ID: <p1@acme.co.za>",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="BOUNDARY"`,
		"",
		"--BOUNDARY",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Please find our latest prices attached.",
		"--BOUNDARY",
		`Content-Type: text/csv; name="` + attachmentName + `"`,
		`Content-Disposition: attachment; filename="` + attachmentName + `"`,
		"",
		attachment,
		"--BOUNDARY--",
		"",
	}
	return []byte(strings.Join(lines, "\r\n"))
}

func TestReadPricelistEmail(t *testing.T) {
	msg, err := ReadPricelistEmail(pricelistMIME("acme.csv", "SKU,Name\r\nA1,Cable"))
	if err != nil {
		t.Fatalf("ReadPricelistEmail: %v", err)
	}
	if msg.Subject != "ACME price list" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "latest prices") {
		t.Fatalf("text = %q", msg.Text)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Name != "acme.csv" {
		t.Fatalf("attachments = %+v", msg.AttachmentNames())
	}
	if !strings.HasPrefix(string(msg.Attachments[0].Content), "SKU,Name") {
		t.Fatalf("content = %q", msg.Attachments[0].Content)
	}
}

func TestSenderDomain(t *testing.T) {
	cases := map[string]string{
		"ACME Sales <sales@ACME.co.za>": "acme.co.za",
		"orders@example.com":            "example.com",
		"  <x@Sub.Example.org>  ":       "sub.example.org",
		"no address here":               "",
		"":                              "",
	}
	for in, want := range cases {
		if got := SenderDomain(in); got != want {
			t.Fatalf("SenderDomain(%q) = %q, want %q", in, got, want)
		}
	}
}
