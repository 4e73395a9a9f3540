package storage

import (
	"path/filepath"
	"testing"

	"pricelist/internal"
	"pricelist/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleResult() internal.ExtractionResult {
	return internal.ExtractionResult{
		Success: true,
		Metadata: internal.ExtractedMetadata{
			FileType:             internal.FileTypeCSV,
			FileName:             "prices.csv",
			FileHash:             "abc",
			TotalRows:            2,
			ValidRows:            1,
			InvalidRows:          1,
			ExtractionConfidence: 0.8,
		},
		Rows: []internal.NormalizedRow{
			{
				RowFields:  internal.RowFields{SupplierSKU: "AB-1", Name: "Stand", UOM: "each", Price: 10, Currency: "ZAR", Brand: util.StringPtr("K&M")},
				RowNum:     2,
				Confidence: 1,
				Warnings:   []string{},
				IsValid:    true,
			},
			{
				RowFields: internal.RowFields{SupplierSKU: "AB-2", Name: "Clip", UOM: "each", Currency: "ZAR"},
				RowNum:    3,
				Warnings:  []string{"Missing or invalid required field: price"},
			},
		},
	}
}

func TestInsertAndReadRun(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.InsertRun(sampleResult(), nil, "prices.csv")
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	run, err := db.GetRun(runID)
	if err != nil || run == nil {
		t.Fatalf("get run: %v %v", run, err)
	}
	if !run.Success || run.TotalRows != 2 || run.ValidRows != 1 || run.EmailID != nil || run.FileType != "csv" {
		t.Fatalf("unexpected run: %+v", run)
	}

	rows, err := db.GetRunRows(runID)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len=%d", len(rows))
	}
	if rows[0].Brand == nil || *rows[0].Brand != "K&M" || !rows[0].IsValid {
		t.Fatalf("row 0: %+v", rows[0])
	}
	if rows[1].Brand != nil || rows[1].IsValid || len(rows[1].Warnings) != 1 {
		t.Fatalf("row 1: %+v", rows[1])
	}

	missing, err := db.GetRun("nope")
	if err != nil || missing != nil {
		t.Fatalf("missing run: %v %v", missing, err)
	}
}

func TestEmailRunsLifecycle(t *testing.T) {
	db := openTestDB(t)
	email, err := db.UpsertEmail("imap", "<1@x>", "Price list", "sales@acme.co.za", "2026-01-01T00:00:00Z", "h", "/tmp/1.eml", "fetched")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := db.InsertRun(sampleResult(), &email.ID, "prices.csv"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	runs, err := db.ListRuns(10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs=%v err=%v", runs, err)
	}
	if runs[0].EmailID == nil || *runs[0].EmailID != email.ID {
		t.Fatalf("email id: %+v", runs[0])
	}

	if err := db.ClearEmailRuns(email.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	runs, _ = db.ListRuns(10)
	if len(runs) != 0 {
		t.Fatalf("runs after clear=%d", len(runs))
	}

	if err := db.UpdateEmailStatus(email.ID, "processed"); err != nil {
		t.Fatalf("status: %v", err)
	}
	pending, _ := db.ListEmailsByStatus("fetched", 10)
	if len(pending) != 0 {
		t.Fatalf("pending=%d", len(pending))
	}
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)
	if v, err := db.GetMetadata("listener.last_cycle"); err != nil || v != nil {
		t.Fatalf("empty metadata: %v %v", v, err)
	}
	if err := db.SetMetadata("listener.last_cycle", "x"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetMetadata("listener.last_cycle", "y"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := db.GetMetadata("listener.last_cycle"); v == nil || *v != "y" {
		t.Fatalf("value=%v", v)
	}
}
