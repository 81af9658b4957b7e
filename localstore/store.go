// Package localstore keeps the on-device copy of every record in a SQLite
// file. It is a plain key-value table addressed by collection and id; the
// sync coordinator decides what goes in and when.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logging"
)

// Store wraps a SQLite database holding the records table.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
}

// Open opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema. Use ":memory:" for a throwaway
// store.
func Open(path string, logger *logging.Logger) (*Store, error) {
	logger = logging.OrSilent(logger)
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", content.ErrStorageUnavailable, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", content.ErrStorageUnavailable, err)
	}
	if path == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	// WAL lets readers run alongside the writer; the busy timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", content.ErrStorageUnavailable, err)
	}
	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug().Str("path", path).Msg("local store opened")
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS records (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    ord INTEGER NOT NULL DEFAULT 0,
    project_id TEXT NOT NULL DEFAULT '',
    seq INTEGER NOT NULL,
    body TEXT NOT NULL,
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS records_order ON records (collection, ord, seq);
`)
	if err != nil {
		return unavailable("create schema", err)
	}
	return nil
}

// GetAll returns every record of c ordered by order, then insertion.
// A collection with no records yields an empty slice.
func (s *Store) GetAll(ctx context.Context, c content.Collection) ([]content.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ord, project_id, body FROM records WHERE collection = ? ORDER BY ord ASC, seq ASC`, string(c))
	if err != nil {
		return nil, unavailable("list "+string(c), err)
	}
	defer rows.Close()

	docs := []content.Document{}
	for rows.Next() {
		var d content.Document
		var body string
		if err := rows.Scan(&d.ID, &d.Order, &d.ProjectID, &body); err != nil {
			return nil, unavailable("scan "+string(c), err)
		}
		d.Body = []byte(body)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list "+string(c), err)
	}
	return docs, nil
}

// GetOne returns a record by id. The bool is false when no record exists.
func (s *Store) GetOne(ctx context.Context, c content.Collection, id string) (content.Document, bool, error) {
	d := content.Document{ID: id}
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT ord, project_id, body FROM records WHERE collection = ? AND id = ?`, string(c), id).
		Scan(&d.Order, &d.ProjectID, &body)
	if err == sql.ErrNoRows {
		return content.Document{}, false, nil
	}
	if err != nil {
		return content.Document{}, false, unavailable("get "+string(c)+" "+id, err)
	}
	d.Body = []byte(body)
	return d, true, nil
}

// Put upserts a record. The body is replaced wholesale; a record keeps the
// insertion sequence it got when first written.
func (s *Store) Put(ctx context.Context, c content.Collection, d content.Document) error {
	if d.ID == "" {
		return fmt.Errorf("%w: %s record without id", content.ErrInvalid, c)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO records (collection, id, ord, project_id, seq, body)
VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records), ?)
ON CONFLICT (collection, id) DO UPDATE SET
    ord = excluded.ord,
    project_id = excluded.project_id,
    body = excluded.body`,
		string(c), d.ID, d.Order, d.ProjectID, string(d.Body))
	if err != nil {
		return unavailable("put "+string(c)+" "+d.ID, err)
	}
	return nil
}

// Delete removes a record. Deleting an absent id is not an error.
func (s *Store) Delete(ctx context.Context, c content.Collection, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ? AND id = ?`, string(c), id); err != nil {
		return unavailable("delete "+string(c)+" "+id, err)
	}
	return nil
}

// Clear removes every record of c.
func (s *Store) Clear(ctx context.Context, c content.Collection) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, string(c)); err != nil {
		return unavailable("clear "+string(c), err)
	}
	return nil
}

// Count returns the number of records in c.
func (s *Store) Count(ctx context.Context, c content.Collection) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE collection = ?`, string(c)).Scan(&n); err != nil {
		return 0, unavailable("count "+string(c), err)
	}
	return n, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", content.ErrStorageUnavailable, op, err)
}
