package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Store is a local SQLite database holding any number of named collections.
// Entries survive process restarts; reopening the file recovers them all.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// Open opens (or creates) the store at path and runs the schema migration.
// Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("%w: create %s: %w", ErrUnavailable, dir, err)
			}
		}
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUnavailable, path, err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// alive for the lifetime of the store.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, locks: make(map[string]*sync.RWMutex)}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS collections (
    name        TEXT    PRIMARY KEY,
    dimension   INTEGER NOT NULL,
    created_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE TABLE IF NOT EXISTS entries (
    collection   TEXT    NOT NULL REFERENCES collections(name),
    id           TEXT    NOT NULL,
    seq          INTEGER NOT NULL,
    text         TEXT    NOT NULL,
    source       TEXT    NOT NULL,
    chunk_index  INTEGER NOT NULL,
    length       INTEGER NOT NULL,
    vector       BLOB    NOT NULL,
    PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_entries_collection_seq
    ON entries (collection, seq);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("%w: migrate: %w", ErrUnavailable, err)
	}
	return nil
}

// Collections returns the names of all collections in the store.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("index: list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("index: list collections scan: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Collection opens the named collection, creating it with dimension dim if
// it does not exist. Opening an existing collection with a different
// non-zero dim fails with ErrDimensionMismatch; dim zero adopts the stored
// dimension, or the dimension of the first Add for a new collection.
func (s *Store) Collection(ctx context.Context, name string, dim int) (*Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("index: collection name must not be empty")
	}

	var stored int
	err := s.db.QueryRowContext(ctx, `SELECT dimension FROM collections WHERE name = ?`, name).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO collections (name, dimension, created_at) VALUES (?, ?, ?)`,
			name, dim, time.Now().Unix())
		if err != nil {
			return nil, fmt.Errorf("index: create collection %q: %w", name, err)
		}
		stored = dim
	case err != nil:
		return nil, fmt.Errorf("%w: read collection %q: %w", ErrUnavailable, name, err)
	case dim > 0 && stored > 0 && stored != dim:
		return nil, fmt.Errorf("%w: collection %q has %d dimensions, embedder produces %d",
			ErrDimensionMismatch, name, stored, dim)
	}

	return &Collection{store: s, name: name, dim: stored, lock: s.lockFor(name)}, nil
}

func (s *Store) lockFor(name string) *sync.RWMutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[name]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[name] = l
	}
	return l
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("index: close: %w", err)
	}
	return nil
}

// OpenCollection opens the store at path and returns the named collection.
// Closing the returned collection closes the store.
func OpenCollection(ctx context.Context, path, name string, dim int) (*Collection, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	c, err := s.Collection(ctx, name, dim)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	c.owned = true
	return c, nil
}

// Collection is an [Index] over one named collection of a [Store].
// Reads run concurrently; writes hold the collection lock exclusively.
type Collection struct {
	store *Store
	name  string
	lock  *sync.RWMutex
	owned bool

	dimMu sync.Mutex
	dim   int
}

var _ Index = (*Collection)(nil)

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Add stores entries in a single transaction.
func (c *Collection) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	// A collection created with dimension zero adopts the dimension of its
	// first committed batch.
	c.dimMu.Lock()
	dim := c.dim
	c.dimMu.Unlock()
	adopt := dim == 0
	if adopt {
		dim = len(entries[0].Vector)
	}
	if err := validateBatch(entries, dim); err != nil {
		return err
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM entries WHERE collection = ? AND id = ?`, c.name, e.ID).Scan(&exists)
		if err == nil {
			return fmt.Errorf("%w: %q already in collection %q", ErrDuplicateKey, e.ID, c.name)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("index: add: lookup %q: %w", e.ID, err)
		}
	}

	if adopt {
		if _, err := tx.ExecContext(ctx,
			`UPDATE collections SET dimension = ? WHERE name = ?`, dim, c.name); err != nil {
			return fmt.Errorf("index: set dimension of %q: %w", c.name, err)
		}
	}

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM entries WHERE collection = ?`, c.name).Scan(&next); err != nil {
		return fmt.Errorf("index: add: next seq: %w", err)
	}

	const q = `INSERT INTO entries (collection, id, seq, text, source, chunk_index, length, vector)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for i, e := range entries {
		_, err := tx.ExecContext(ctx, q, c.name, e.ID, next+int64(i), e.Text,
			e.Metadata.Source, e.Metadata.ChunkIndex, e.Metadata.Length, encodeVector(e.Vector))
		if err != nil {
			return fmt.Errorf("index: add %q: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: add: commit: %w", err)
	}
	if adopt {
		c.dimMu.Lock()
		c.dim = dim
		c.dimMu.Unlock()
	}
	return nil
}

// Query scans the collection and returns the k entries nearest to vector.
// Ties keep insertion order.
func (c *Collection) Query(ctx context.Context, vector []float32, k int) ([]Result, error) {
	if err := validateQuery(vector, k); err != nil {
		return nil, err
	}

	c.lock.RLock()
	defer c.lock.RUnlock()

	c.dimMu.Lock()
	dim := c.dim
	c.dimMu.Unlock()
	if dim > 0 && len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %q has %d",
			ErrDimensionMismatch, len(vector), c.name, dim)
	}

	rows, err := c.store.db.QueryContext(ctx,
		`SELECT id, text, source, chunk_index, length, vector FROM entries WHERE collection = ? ORDER BY seq`,
		c.name)
	if err != nil {
		return nil, fmt.Errorf("%w: query %q: %w", ErrUnavailable, c.name, err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		var blob []byte
		if err := rows.Scan(&r.ID, &r.Text, &r.Metadata.Source, &r.Metadata.ChunkIndex, &r.Metadata.Length, &blob); err != nil {
			return nil, fmt.Errorf("index: query scan: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("index: entry %q: %w", r.ID, err)
		}
		r.Distance = CosineDistance(vector, vec)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: query rows: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Count returns the number of entries in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var n int
	if err := c.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE collection = ?`, c.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count %q: %w", ErrUnavailable, c.name, err)
	}
	return n, nil
}

// Close closes the underlying store when the collection was opened with
// [OpenCollection]; otherwise the store's owner closes it.
func (c *Collection) Close() error {
	if c.owned {
		return c.store.Close()
	}
	return nil
}

func encodeVector(v []float32) []byte {
	blob := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(f))
	}
	return blob
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}
