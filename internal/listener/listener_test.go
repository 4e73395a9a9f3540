package listener

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pricelist/internal"
	"pricelist/internal/config"
	"pricelist/internal/logging"
	"pricelist/internal/storage"
)

type stubConnector struct {
	messages []internal.MailMessage
}

func (s stubConnector) FetchInbox(_ context.Context, _ string, _ int) ([]internal.MailMessage, error) {
	return s.messages, nil
}

func mimeMessage(id, subject, attachmentName, attachment string) []byte {
	lines := []string{
		"From: Sales <sales@acme.co.za>",
		"To: buyer@example.com",
		"Subject: " + subject,
		"Message-ID: " + id,
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

func TestRunCycleProcessesAndExports(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	csv := "SKU,Description,Price,UOM\r\nAB-100,Speaker stand,250.00,each\r\nAB-101,Microphone clip,45.50,each"
	conn := stubConnector{messages: []internal.MailMessage{
		{
			Provider:   "imap",
			MessageID:  "<m1@acme.co.za>",
			Subject:    "Price list June",
			From:       "sales@acme.co.za",
			ReceivedAt: "2026-06-01T08:00:00Z",
			Raw:        mimeMessage("<m1@acme.co.za>", "Price list June", "pricelist.csv", csv),
		},
		{
			Provider:   "imap",
			MessageID:  "<m2@acme.co.za>",
			Subject:    "Lunch",
			From:       "friend@acme.co.za",
			ReceivedAt: "2026-06-01T09:00:00Z",
			Raw:        []byte("Subject: Lunch\r\nFrom: friend@acme.co.za\r\n\r\nSee you at noon."),
		},
	}}

	cfg := config.Config{
		RawMailDir:               filepath.Join(dir, "raw"),
		OutputDir:                filepath.Join(dir, "out"),
		ExtractDefaultCurrency:   "ZAR",
		ExtractMaxFileMB:         50,
		MailListenerProvider:     "imap",
		MailListenerLabel:        "INBOX",
		MailListenerFetchMax:     10,
		MailListenerProcessBatch: 10,
		MailListenerAutoExport:   true,
	}
	svc := NewService(db, cfg, logging.Discard()).WithConnector(conn)

	res, err := svc.runCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if res.Fetched != 2 || res.Stored != 2 || res.Processed != 2 {
		t.Fatalf("unexpected cycle result: %+v", res)
	}
	if res.Runs != 1 || res.Exported != 1 {
		t.Fatalf("expected one run exported, got %+v", res)
	}

	priced, _ := db.GetEmailByProviderMessageID("imap", "<m1@acme.co.za>")
	if priced == nil || priced.Status != "processed" {
		t.Fatalf("pricelist email: %+v", priced)
	}
	lunch, _ := db.GetEmailByProviderMessageID("imap", "<m2@acme.co.za>")
	if lunch == nil || lunch.Status != "skipped" {
		t.Fatalf("lunch email: %+v", lunch)
	}

	runs, err := db.ListRuns(10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs: %v %+v", err, runs)
	}
	if runs[0].SourceName != "pricelist.csv" || runs[0].ValidRows != 2 {
		t.Fatalf("run: %+v", runs[0])
	}

	exported, err := os.ReadDir(filepath.Join(dir, "out", "listener"))
	if err != nil || len(exported) != 1 {
		t.Fatalf("exported files: %v %v", err, exported)
	}

	last, err := db.GetMetadata(lastCycleKey)
	if err != nil || last == nil || *last == "" {
		t.Fatalf("last cycle metadata: %v %v", err, last)
	}
}

func TestMakeConnectorRejectsUnknownProvider(t *testing.T) {
	svc := NewService(nil, config.Config{}, logging.Discard())
	if _, err := svc.makeConnector(context.Background(), "pop3"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := sanitizeFileName("<a/b:c>"); got != "_a_b_c_" {
		t.Fatalf("got %q", got)
	}
}
