// Package index stores embedded document chunks in named, durable
// collections and answers nearest-neighbour queries by cosine distance.
//
// Two backends satisfy [Index]: a local SQLite file holding any number of
// collections ([Store]), and a remote Qdrant collection ([QdrantIndex]).
// Both reject duplicate ids and report distances on the same scale, so a
// result's similarity is always 1 - distance in [0, 1].
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDuplicateKey is returned by Add when an entry id already exists in
	// the collection or appears twice in the batch. Nothing is written.
	ErrDuplicateKey = errors.New("index: duplicate key")

	// ErrUnavailable wraps failures to open or reach the underlying store.
	ErrUnavailable = errors.New("index: unavailable")

	// ErrDimensionMismatch is returned when a vector's length differs from
	// the collection's dimension.
	ErrDimensionMismatch = errors.New("index: vector dimension mismatch")
)

// Metadata describes where an entry's text came from.
type Metadata struct {
	// Source is the path of the indexed document.
	Source string `json:"source"`
	// ChunkIndex is the ordinal of the chunk within its document.
	ChunkIndex int `json:"chunkIndex"`
	// Length is the chunk length in characters.
	Length int `json:"length"`
}

// Entry is one stored chunk with its embedding.
type Entry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata Metadata
}

// Result is a query hit. Results are returned ordered by ascending Distance.
type Result struct {
	ID       string
	Text     string
	Metadata Metadata
	// Distance is the half-scaled cosine distance (1 - cos) / 2, in [0, 1].
	Distance float64
}

// Similarity returns 1 - Distance, in [0, 1].
func (r Result) Similarity() float64 {
	return 1 - r.Distance
}

// Index is a single named collection of entries. Collections are
// append-only: there is no update or delete path.
// Implementations must be safe to call from multiple goroutines.
type Index interface {
	// Name returns the collection name.
	Name() string

	// Add stores entries atomically. Any id already present, or repeated
	// within entries, fails the whole batch with ErrDuplicateKey.
	Add(ctx context.Context, entries []Entry) error

	// Query returns up to k entries nearest to vector, ordered by ascending
	// distance. An empty collection yields an empty, non-nil slice.
	Query(ctx context.Context, vector []float32, k int) ([]Result, error)

	// Count returns the number of entries in the collection.
	Count(ctx context.Context) (int, error)

	// Close releases the resources owned by this handle.
	Close() error
}

// CosineDistance returns (1 - cos(a, b)) / 2. Identical directions give 0,
// opposite directions give 1. A zero vector is treated as orthogonal to
// everything (0.5). Vectors of different lengths are compared over their
// common prefix; callers validate dimensions first.
func CosineDistance(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := range n {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0.5
	}
	return distanceFromCosine(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// distanceFromCosine maps a cosine similarity in [-1, 1] to the distance
// scale shared by every backend, clamping rounding error.
func distanceFromCosine(cos float64) float64 {
	d := (1 - cos) / 2
	switch {
	case d < 0:
		return 0
	case d > 1:
		return 1
	}
	return d
}

// validateBatch checks ids, vector dimensions and in-batch duplicates.
// dim is the collection dimension; zero accepts any non-empty vector.
func validateBatch(entries []Entry, dim int) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("index: entry %d has an empty id", i)
		}
		if len(e.Vector) == 0 {
			return fmt.Errorf("index: entry %q has an empty vector", e.ID)
		}
		if dim > 0 && len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %q has %d dimensions, collection has %d",
				ErrDimensionMismatch, e.ID, len(e.Vector), dim)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: %q repeated in batch", ErrDuplicateKey, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}

func validateQuery(vector []float32, k int) error {
	if k <= 0 {
		return fmt.Errorf("index: k must be positive, got %d", k)
	}
	if len(vector) == 0 {
		return fmt.Errorf("index: empty query vector")
	}
	return nil
}
