// ABOUTME: SQLite document backend for the store snapshots
// ABOUTME: Upserts whole documents and records each write in a bounded log
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/dealboard/persist"
)

// DefaultLogRetention is how many write log rows are kept per key.
const DefaultLogRetention = 50

// DocumentInfo describes the stored copy of a document.
type DocumentInfo struct {
	Key       string
	Revision  int64
	Bytes     int
	UpdatedAt time.Time
}

// WriteRecord is one row of the write log.
type WriteRecord struct {
	Key      string
	Revision int64
	Bytes    int
	SavedAt  time.Time
}

// DocumentStore implements persist.Backend on top of SQLite.
type DocumentStore struct {
	db        *sql.DB
	retention int
	now       func() time.Time
}

var _ persist.Backend = (*DocumentStore)(nil)

// Open opens (or creates) the database at path.
func Open(path string) (*DocumentStore, error) {
	conn, err := OpenDatabase(path)
	if err != nil {
		return nil, err
	}
	return NewDocumentStore(conn), nil
}

// NewDocumentStore wraps an already initialized connection.
func NewDocumentStore(conn *sql.DB) *DocumentStore {
	return &DocumentStore{db: conn, retention: DefaultLogRetention, now: time.Now}
}

// Load returns the stored document or persist.ErrNoDocument.
func (s *DocumentStore) Load(key string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRow(`SELECT body FROM documents WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persist.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", key, err)
	}
	return body, nil
}

// Save overwrites the document and appends to the write log in one transaction.
func (s *DocumentStore) Save(key string, doc []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now().UTC()
	_, err = tx.Exec(`
		INSERT INTO documents (key, body, revision, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			revision = documents.revision + 1,
			updated_at = excluded.updated_at
	`, key, doc, now)
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", key, err)
	}

	var revision int64
	if err := tx.QueryRow(`SELECT revision FROM documents WHERE key = ?`, key).Scan(&revision); err != nil {
		return fmt.Errorf("failed to read revision: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO document_log (key, revision, bytes, saved_at) VALUES (?, ?, ?, ?)
	`, key, revision, len(doc), now)
	if err != nil {
		return fmt.Errorf("failed to log write: %w", err)
	}

	_, err = tx.Exec(`
		DELETE FROM document_log
		WHERE key = ? AND id NOT IN (
			SELECT id FROM document_log WHERE key = ? ORDER BY id DESC LIMIT ?
		)
	`, key, key, s.retention)
	if err != nil {
		return fmt.Errorf("failed to prune write log: %w", err)
	}

	return tx.Commit()
}

// Stat returns metadata for a stored document.
func (s *DocumentStore) Stat(key string) (*DocumentInfo, error) {
	info := DocumentInfo{Key: key}
	err := s.db.QueryRow(`
		SELECT revision, length(body), updated_at FROM documents WHERE key = ?
	`, key).Scan(&info.Revision, &info.Bytes, &info.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persist.ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat document %s: %w", key, err)
	}
	return &info, nil
}

// History returns the most recent writes of key, newest first.
func (s *DocumentStore) History(key string, limit int) ([]WriteRecord, error) {
	if limit <= 0 {
		limit = s.retention
	}
	rows, err := s.db.Query(`
		SELECT key, revision, bytes, saved_at FROM document_log
		WHERE key = ? ORDER BY id DESC LIMIT ?
	`, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query write log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []WriteRecord
	for rows.Next() {
		var r WriteRecord
		if err := rows.Scan(&r.Key, &r.Revision, &r.Bytes, &r.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan write log: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the underlying connection.
func (s *DocumentStore) Close() error {
	return s.db.Close()
}
