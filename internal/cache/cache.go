// Package cache implements the local artifact cache.
//
// Artifacts are stored content-addressed under {cacheDir}/sha256/{digest}
// with a SQLite index recording digest, size, and origin. The cache is
// shared and read-mostly: writers hold an exclusive per-digest lock while
// committing, readers share entries once the checksum has been verified.
// An entry is only ever written through Put, which re-verifies the digest
// before committing, so a cached file always matches its key.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/outpost-tools/outpost-ctl/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	digest     TEXT PRIMARY KEY,
	local_path TEXT NOT NULL,
	size_bytes INTEGER NOT NULL,
	source_url TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Entry is a row in the artifact index.
type Entry struct {
	Digest    string
	LocalPath string
	SizeBytes int64
	SourceURL string
	CreatedAt string
}

// Store is the artifact cache: content-addressed files plus a SQLite index.
type Store struct {
	db  *sql.DB
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open opens (creating if necessary) the cache rooted at dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, "sha256"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache index: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply cache schema: %w", err)
	}

	return &Store{
		db:    db,
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the index database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lock acquires the exclusive writer lock for a digest and returns the
// release function. Readers of committed entries do not need the lock.
func (s *Store) Lock(digest string) func() {
	s.mu.Lock()
	l, ok := s.locks[digest]
	if !ok {
		l = &sync.Mutex{}
		s.locks[digest] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// path returns the content-addressed location for a digest.
func (s *Store) path(digest string) string {
	return filepath.Join(s.dir, "sha256", digest)
}

// PartialPath returns the staging location for an in-flight download of a
// digest. Partial files live outside the content-addressed area and are
// only promoted through Put after verification.
func (s *Store) PartialPath(digest string) (string, error) {
	dir := filepath.Join(s.dir, "partial")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create partial directory: %w", err)
	}
	return filepath.Join(dir, digest), nil
}

// Get returns the index entry for a digest, or nil if absent.
func (s *Store) Get(ctx context.Context, digest string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT digest, local_path, size_bytes, source_url, created_at FROM artifacts WHERE digest = ?`, digest)

	var e Entry
	if err := row.Scan(&e.Digest, &e.LocalPath, &e.SizeBytes, &e.SourceURL, &e.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query cache index: %w", err)
	}

	return &e, nil
}

// GetVerified returns the entry for a digest only if its file still exists
// and hashes to the digest. A stale or corrupted entry is removed and nil
// is returned, forcing a re-fetch.
func (s *Store) GetVerified(ctx context.Context, digest string) (*Entry, error) {
	entry, err := s.Get(ctx, digest)
	if err != nil || entry == nil {
		return nil, err
	}

	got, err := ComputeFileDigest(entry.LocalPath)
	if err != nil || got != digest {
		logging.Warn("evicting invalid cache entry", "digest", digest, "path", entry.LocalPath)
		_ = s.Remove(ctx, digest)
		return nil, nil
	}

	return entry, nil
}

// Put commits a fully downloaded file into the cache under digest.
// The file is re-hashed before commit; a mismatch leaves the cache
// untouched and removes the source file. Callers must hold Lock(digest).
func (s *Store) Put(ctx context.Context, srcPath, digest, sourceURL string) (*Entry, error) {
	got, err := ComputeFileDigest(srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", srcPath, err)
	}
	if got != digest {
		_ = os.Remove(srcPath)
		return nil, fmt.Errorf("refusing to cache %s: digest %s does not match key %s", srcPath, got, digest)
	}

	stat, err := os.Stat(srcPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}

	dest := s.path(digest)
	if err := os.Rename(srcPath, dest); err != nil {
		return nil, fmt.Errorf("failed to move artifact into cache: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (digest, local_path, size_bytes, source_url)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(digest) DO UPDATE SET
			local_path=excluded.local_path,
			size_bytes=excluded.size_bytes,
			source_url=excluded.source_url
		`, digest, dest, stat.Size(), sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to insert cache entry: %w", err)
	}

	logging.Debug("cached artifact", "digest", digest, "size", stat.Size())

	return s.Get(ctx, digest)
}

// Remove drops an entry and its file.
func (s *Store) Remove(ctx context.Context, digest string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE digest = ?`, digest); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	if err := os.Remove(s.path(digest)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cached file: %w", err)
	}
	return nil
}

// List returns all index entries.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT digest, local_path, size_bytes, source_url, created_at FROM artifacts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cache index: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Digest, &e.LocalPath, &e.SizeBytes, &e.SourceURL, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// GC removes entries whose files are missing or no longer match their
// digest. Returns the number of entries removed.
func (s *Store) GC(ctx context.Context) (int, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		got, err := ComputeFileDigest(e.LocalPath)
		if err == nil && got == e.Digest {
			continue
		}
		if err := s.Remove(ctx, e.Digest); err != nil {
			return removed, err
		}
		removed++
	}

	return removed, nil
}

// ComputeFileDigest returns the lowercase hex SHA-256 of a file.
func ComputeFileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var h hash.Hash = sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
