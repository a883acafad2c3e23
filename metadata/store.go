// Package metadata implements the persistent key/value store of per-artifact
// signatures used to decide freshness: a single-file embedded database at
// the execution root, write-ahead-logged so readers during a build are not
// blocked by a builder committing a new signature.
package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/gocons/gocons/graph"
)

// ClosureSignature is the signature stored for one built Entry: the map
// from each dependency's absolute path to that dependency's on-disk
// signature, collected over the entry's full ancestor closure restricted
// to Entries.
type ClosureSignature map[string]graph.EntrySignature

// Equal reports whether a and b contain the same path -> signature pairs.
func (a ClosureSignature) Equal(b ClosureSignature) bool {
	if len(a) != len(b) {
		return false
	}
	for path, sig := range a {
		other, ok := b[path]
		if !ok || !EntrySignatureEqual(sig, other) {
			return false
		}
	}
	return true
}

// EntrySignatureEqual reports whether two EntrySignature values describe
// the same on-disk identity.
func EntrySignatureEqual(a, b graph.EntrySignature) bool {
	if (a.File == nil) != (b.File == nil) || (a.Dir == nil) != (b.Dir == nil) {
		return false
	}
	if a.File != nil && *a.File != *b.File {
		return false
	}
	if a.Dir != nil {
		if a.Dir.IsDirectory != b.Dir.IsDirectory || len(a.Dir.Files) != len(b.Dir.Files) {
			return false
		}
		for rel, fs := range a.Dir.Files {
			ofs, ok := b.Dir.Files[rel]
			if !ok || fs != ofs {
				return false
			}
		}
	}
	return true
}

// Store is a process-local durable mapping from absolute path to an opaque
// ClosureSignature. Reads may run concurrently with each other; writes
// serialize on an internal lock (the database is additionally configured
// for WAL journalling, so readers never block on an in-flight writer).
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if necessary) the metadata database at path,
// configuring WAL journal mode and a busy timeout so concurrent readers
// during a build never block on the single writer.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_pragma=synchronous(normal)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &graph.StorageError{Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &graph.StorageError{Err: err}
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS file_metadata (
		path TEXT PRIMARY KEY,
		metadata TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, &graph.StorageError{Err: err}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &graph.StorageError{Err: err}
	}
	return nil
}

// Get returns the stored signature for path, if any.
func (s *Store) Get(ctx context.Context, path string) (sig ClosureSignature, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT metadata FROM file_metadata WHERE path = ?`, path)
	var raw string
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, &graph.StorageError{Err: err}
	}
	if err := json.Unmarshal([]byte(raw), &sig); err != nil {
		return nil, false, &graph.StorageError{Err: fmt.Errorf("decoding stored signature for %s: %w", path, err)}
	}
	return sig, true, nil
}

// Put upserts the signature for path.
//
// The upsert uses the portable ANSI form (INSERT ... ON CONFLICT DO
// UPDATE) rather than a dialect-specific "INSERT OR REPLACE", which is
// broken in SQLite when the table has triggers or foreign keys depending
// on the row's prior state — a REPLACE is a DELETE followed by an INSERT,
// not a true update.
func (s *Store) Put(ctx context.Context, path string, sig ClosureSignature) error {
	raw, err := json.Marshal(sig)
	if err != nil {
		return &graph.StorageError{Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO file_metadata (path, metadata) VALUES (?, ?)
		ON CONFLICT(path) DO UPDATE SET metadata = excluded.metadata
	`, path, string(raw))
	if err != nil {
		return &graph.StorageError{Err: err}
	}
	return nil
}
