package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/logger"
	"go-invoice-capture/pkg/models"
	"go-invoice-capture/pkg/validation"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS queued_invoices (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT    NOT NULL UNIQUE,
	image          BLOB    NOT NULL,
	content_type   TEXT    NOT NULL,
	supplier       TEXT    NOT NULL DEFAULT '',
	amount         TEXT    NOT NULL DEFAULT '',
	invoice_date   TEXT    NOT NULL DEFAULT '',
	invoice_number TEXT    NOT NULL DEFAULT '',
	confidence     REAL    NOT NULL,
	created_at     INTEGER NOT NULL,
	synced         INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_queued_invoices_synced ON queued_invoices(synced, seq);
`

const recordColumns = `id, image, content_type, supplier, amount, invoice_date, invoice_number, confidence, created_at, synced`

// SQLiteStore keeps the queue in a single SQLite database file
type SQLiteStore struct {
	db *sql.DB
	// serialises mutations; reads go straight to the database
	mu sync.Mutex
}

// NewSQLiteStore opens (creating if needed) the queue database at path
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.NewStorageError("failed to create queue directory", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open queue database", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("failed to migrate queue database", err)
	}

	logger.WithField("path", path).Debug("Queue database opened")
	return &SQLiteStore{db: db}, nil
}

// Append inserts a record as unsynced
func (s *SQLiteStore) Append(ctx context.Context, rec *models.QueuedInvoiceRecord) error {
	if err := validation.ValidateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queued_invoices (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		rec.ID, rec.Image, rec.ContentType,
		rec.Extraction.Supplier, rec.Extraction.Amount, rec.Extraction.Date, rec.Extraction.InvoiceNumber,
		rec.Extraction.Confidence, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return duplicateError(rec.ID)
		}
		return apperrors.NewStorageError("failed to append record", err)
	}

	logger.WithFields(logrus.Fields{"record_id": rec.ID, "bytes": len(rec.Image)}).Debug("Record appended")
	return nil
}

// MarkSynced flips the synced flag once; repeated calls do nothing
func (s *SQLiteStore) MarkSynced(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `UPDATE queued_invoices SET synced = 1 WHERE id = ? AND synced = 0`, id); err != nil {
		return apperrors.NewStorageError("failed to mark record synced", err)
	}
	return nil
}

// ListUnsynced returns unsynced records oldest first
func (s *SQLiteStore) ListUnsynced(ctx context.Context) ([]*models.QueuedInvoiceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM queued_invoices WHERE synced = 0 ORDER BY seq`)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list records", err)
	}
	defer rows.Close()

	var out []*models.QueuedInvoiceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to read record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("failed to list records", err)
	}
	return out, nil
}

// Get returns a single record regardless of its sync state
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.QueuedInvoiceRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM queued_invoices WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to read record", err)
	}
	return rec, nil
}

// PurgeSynced deletes synced records and reports how many were removed
func (s *SQLiteStore) PurgeSynced(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM queued_invoices WHERE synced = 1`)
	if err != nil {
		return 0, apperrors.NewStorageError("failed to purge synced records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStorageError("failed to purge synced records", err)
	}
	return int(n), nil
}

// Discard deletes a record the operator chose to drop
func (s *SQLiteStore) Discard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM queued_invoices WHERE id = ?`, id)
	if err != nil {
		return apperrors.NewStorageError("failed to discard record", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFoundError(id)
	}
	return nil
}

// Stats counts records by sync state
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN synced = 0 THEN 1 ELSE 0 END), 0) FROM queued_invoices`,
	).Scan(&st.Total, &st.Unsynced)
	if err != nil {
		return Stats{}, apperrors.NewStorageError("failed to count records", err)
	}
	st.Synced = st.Total - st.Unsynced
	return st, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*models.QueuedInvoiceRecord, error) {
	var (
		rec       models.QueuedInvoiceRecord
		createdAt int64
		synced    int
	)
	err := sc.Scan(&rec.ID, &rec.Image, &rec.ContentType,
		&rec.Extraction.Supplier, &rec.Extraction.Amount, &rec.Extraction.Date, &rec.Extraction.InvoiceNumber,
		&rec.Extraction.Confidence, &createdAt, &synced)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.Synced = synced != 0
	return &rec, nil
}
