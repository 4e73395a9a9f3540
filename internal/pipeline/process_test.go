package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pricelist/internal"
	"pricelist/internal/logging"
	"pricelist/internal/storage"
)

func storeEmail(t *testing.T, db *storage.DB, dir, messageID string, raw []byte) internal.EmailRow {
	t.Helper()
	path := filepath.Join(dir, filepath.Base(messageID)+".eml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
	row, err := db.UpsertEmail("imap", messageID, "", "sales@acme.co.za", "2026-06-01T08:00:00Z", "h-"+messageID, path, StatusFetched)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return row
}

func TestProcessEmail(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	svc := NewProcessingService(db, newTestEngine(), internal.ExtractionConfig{}, logging.Discard())
	email := storeEmail(t, db, dir, "p1", pricelistMIME("acme_pricelist.csv", sampleCSV))

	res, err := svc.ProcessEmail(email)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Status != StatusProcessed || res.Attachments != 1 || len(res.RunIDs) != 1 || res.ValidRows != 3 {
		t.Fatalf("result: %+v", res)
	}

	run, err := db.GetRun(res.RunIDs[0])
	if err != nil || run == nil {
		t.Fatalf("run: %v %+v", err, run)
	}
	if run.EmailID == nil || *run.EmailID != email.ID || run.SourceName != "acme_pricelist.csv" {
		t.Fatalf("run: %+v", run)
	}

	rows, err := db.GetRunRows(res.RunIDs[0])
	if err != nil || len(rows) != 4 {
		t.Fatalf("rows: %v %d", err, len(rows))
	}

	// Reprocessing replaces the earlier run.
	again, err := svc.ProcessByProviderMessageID("imap", "p1")
	if err != nil {
		t.Fatalf("reprocess: %v", err)
	}
	if old, _ := db.GetRun(res.RunIDs[0]); old != nil {
		t.Fatalf("old run should be cleared")
	}
	if len(again.RunIDs) != 1 {
		t.Fatalf("reprocess result: %+v", again)
	}

	stored, _ := db.GetEmailByID(email.ID)
	if stored.Status != StatusProcessed {
		t.Fatalf("status = %q", stored.Status)
	}
}

func TestProcessPendingSkipsNonPricelists(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	storeEmail(t, db, dir, "lunch", []byte("Subject: Lunch\r\nFrom: friend@acme.co.za\r\n\r\nSee you at noon."))
	storeEmail(t, db, dir, "prices", pricelistMIME("acme.csv", sampleCSV))

	svc := NewProcessingService(db, newTestEngine(), internal.ExtractionConfig{}, logging.Discard())
	results, err := svc.ProcessPending(context.Background(), 10, "")
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results: %+v", results)
	}

	statuses := map[string]int{}
	for _, r := range results {
		statuses[r.Status]++
	}
	if statuses[StatusSkipped] != 1 || statuses[StatusProcessed] != 1 {
		t.Fatalf("statuses: %v", statuses)
	}

	pending, _ := db.ListEmailsByStatus(StatusFetched, 10)
	if len(pending) != 0 {
		t.Fatalf("pending left: %d", len(pending))
	}

	results, err = svc.ProcessPending(context.Background(), 10, "gmail")
	if err != nil || len(results) != 0 {
		t.Fatalf("provider filter: %v %+v", err, results)
	}
}

func TestProcessPendingWorkersAndFailures(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for i := 0; i < 5; i++ {
		storeEmail(t, db, dir, fmt.Sprintf("prices-%d", i), pricelistMIME("acme.csv", sampleCSV))
	}
	lost := storeEmail(t, db, dir, "lost", pricelistMIME("acme.csv", sampleCSV))
	if err := os.Remove(lost.RawRef); err != nil {
		t.Fatal(err)
	}

	svc := NewProcessingService(db, newTestEngine(), internal.ExtractionConfig{}, logging.Discard(),
		WithWorkers(3),
		WithRetry(2, time.Millisecond),
	)
	results, err := svc.ProcessPending(context.Background(), 10, "")
	if err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if len(results) != 6 {
		t.Fatalf("results: %+v", results)
	}

	processed, failed := 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusProcessed:
			processed++
			if r.Err != nil || len(r.RunIDs) != 1 {
				t.Fatalf("processed result: %+v", r)
			}
		case StatusFailed:
			failed++
			if r.EmailID != lost.ID || r.Err == nil {
				t.Fatalf("failed result: %+v", r)
			}
		}
	}
	if processed != 5 || failed != 1 {
		t.Fatalf("processed=%d failed=%d", processed, failed)
	}

	stored, _ := db.GetEmailByID(lost.ID)
	if stored.Status != StatusFailed {
		t.Fatalf("lost email status = %q", stored.Status)
	}
	if pending, _ := db.ListEmailsByStatus(StatusFetched, 10); len(pending) != 0 {
		t.Fatalf("pending left: %d", len(pending))
	}
}

func TestProcessPendingStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	storeEmail(t, db, dir, "prices", pricelistMIME("acme.csv", sampleCSV))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := NewProcessingService(db, newTestEngine(), internal.ExtractionConfig{}, logging.Discard())
	if _, err := svc.ProcessPending(ctx, 10, ""); err == nil {
		t.Fatalf("expected context error")
	}
	if pending, _ := db.ListEmailsByStatus(StatusFetched, 10); len(pending) != 1 {
		t.Fatalf("email should stay pending, got %d", len(pending))
	}
}
