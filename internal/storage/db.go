package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"pricelist/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers from concurrent workers.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS extraction_runs (
  id TEXT PRIMARY KEY,
  emailId INTEGER,
  sourceName TEXT NOT NULL,
  fileType TEXT NOT NULL,
  fileHash TEXT NOT NULL,
  supplierId TEXT,
  success INTEGER NOT NULL,
  confidence REAL NOT NULL,
  totalRows INTEGER NOT NULL,
  validRows INTEGER NOT NULL,
  invalidRows INTEGER NOT NULL,
  processingMs INTEGER NOT NULL,
  metadataJson TEXT NOT NULL,
  errorsJson TEXT NOT NULL,
  warningsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);
CREATE INDEX IF NOT EXISTS idx_runs_email ON extraction_runs(emailId);
CREATE INDEX IF NOT EXISTS idx_runs_hash ON extraction_runs(fileHash);

CREATE TABLE IF NOT EXISTS extracted_rows (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  rowNum INTEGER NOT NULL,
  supplierSku TEXT NOT NULL,
  name TEXT NOT NULL,
  brand TEXT,
  price REAL NOT NULL,
  currency TEXT NOT NULL,
  uom TEXT NOT NULL,
  packSize TEXT,
  barcode TEXT,
  categoryRaw TEXT,
  vatCode TEXT,
  confidence REAL NOT NULL,
  isValid INTEGER NOT NULL,
  warningsJson TEXT NOT NULL,
  FOREIGN KEY(runId) REFERENCES extraction_runs(id)
);
CREATE INDEX IF NOT EXISTS idx_rows_run ON extracted_rows(runId, rowNum);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

const emailColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef`

func scanEmail(s interface{ Scan(...any) error }, row *internal.EmailRow) error {
	return s.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef)
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := scanEmail(d.conn.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE provider = ? AND messageId = ?`, provider, messageID), &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetEmailByID(id int) (*internal.EmailRow, error) {
	var row internal.EmailRow
	err := scanEmail(d.conn.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE id = ?`, id), &row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`SELECT `+emailColumns+` FROM emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		var row internal.EmailRow
		if err := scanEmail(rows, &row); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

// ClearEmailRuns drops earlier runs of an email so it can be reprocessed.
func (d *DB) ClearEmailRuns(emailID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM extracted_rows WHERE runId IN (SELECT id FROM extraction_runs WHERE emailId = ?)`, emailID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM extraction_runs WHERE emailId = ?`, emailID); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertRun stores an extraction result and its rows, returning the new run id.
func (d *DB) InsertRun(result internal.ExtractionResult, emailID *int, sourceName string) (string, error) {
	runID := uuid.NewString()
	metadataJSON, err := json.Marshal(result.Metadata)
	if err != nil {
		return "", err
	}
	errorsJSON, _ := json.Marshal(result.Errors)
	warningsJSON, _ := json.Marshal(result.Warnings)

	tx, err := d.conn.Begin()
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	m := result.Metadata
	if _, err := tx.Exec(`
INSERT INTO extraction_runs (
  id, emailId, sourceName, fileType, fileHash, supplierId, success, confidence,
  totalRows, validRows, invalidRows, processingMs, metadataJson, errorsJson, warningsJson
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, runID, emailID, sourceName, string(m.FileType), m.FileHash, m.SupplierID, result.Success, m.ExtractionConfidence,
		m.TotalRows, m.ValidRows, m.InvalidRows, m.ProcessingTimeMs, string(metadataJSON), string(errorsJSON), string(warningsJSON)); err != nil {
		return "", err
	}

	stmt, err := tx.Prepare(`
INSERT INTO extracted_rows (
  runId, rowNum, supplierSku, name, brand, price, currency, uom,
  packSize, barcode, categoryRaw, vatCode, confidence, isValid, warningsJson
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, r := range result.Rows {
		rowWarnings, _ := json.Marshal(r.Warnings)
		if _, err := stmt.Exec(
			runID, r.RowNum, r.SupplierSKU, r.Name, r.Brand, r.Price, r.Currency, r.UOM,
			r.PackSize, r.Barcode, r.CategoryRaw, r.VATCode, r.Confidence, r.IsValid, string(rowWarnings),
		); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

const runColumns = `id, emailId, sourceName, fileType, success, confidence, totalRows, validRows, invalidRows, createdAt`

func scanRun(s interface{ Scan(...any) error }, run *internal.RunSummary) error {
	var emailID sql.NullInt64
	if err := s.Scan(&run.ID, &emailID, &run.SourceName, &run.FileType, &run.Success, &run.Confidence,
		&run.TotalRows, &run.ValidRows, &run.InvalidRows, &run.CreatedAt); err != nil {
		return err
	}
	if emailID.Valid {
		id := int(emailID.Int64)
		run.EmailID = &id
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(limit int) ([]internal.RunSummary, error) {
	rows, err := d.conn.Query(`SELECT `+runColumns+` FROM extraction_runs ORDER BY createdAt DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunSummary
	for rows.Next() {
		var run internal.RunSummary
		if err := scanRun(rows, &run); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (d *DB) GetRun(runID string) (*internal.RunSummary, error) {
	var run internal.RunSummary
	err := scanRun(d.conn.QueryRow(`SELECT `+runColumns+` FROM extraction_runs WHERE id = ?`, runID), &run)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunRows loads the stored rows of a run in source order.
func (d *DB) GetRunRows(runID string) ([]internal.NormalizedRow, error) {
	rows, err := d.conn.Query(`
SELECT rowNum, supplierSku, name, brand, price, currency, uom,
       packSize, barcode, categoryRaw, vatCode, confidence, isValid, warningsJson
FROM extracted_rows WHERE runId = ? ORDER BY rowNum ASC, id ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.NormalizedRow
	for rows.Next() {
		var r internal.NormalizedRow
		var warningsJSON string
		if err := rows.Scan(
			&r.RowNum, &r.SupplierSKU, &r.Name, &r.Brand, &r.Price, &r.Currency, &r.UOM,
			&r.PackSize, &r.Barcode, &r.CategoryRaw, &r.VATCode, &r.Confidence, &r.IsValid, &warningsJSON,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(warningsJSON), &r.Warnings)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
