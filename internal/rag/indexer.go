package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/54b3r/budgetai-go/internal/chunker"
	"github.com/54b3r/budgetai-go/internal/embedder"
	"github.com/54b3r/budgetai-go/internal/index"
	"github.com/54b3r/budgetai-go/internal/loader"
	"github.com/54b3r/budgetai-go/internal/logging"
)

// ErrNoChunks is returned when a document yields no chunk long enough to keep.
var ErrNoChunks = errors.New("rag: document produced no chunks")

// IndexerConfig holds the configuration for the indexing pipeline.
type IndexerConfig struct {
	// ChunkSize is the window width in characters. Defaults to 1000.
	ChunkSize int

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	// Defaults to 100 when negative; zero is a valid overlap.
	ChunkOverlap int

	// BatchSize is the number of chunks embedded per request. Defaults to 32.
	BatchSize int
}

// Progress reports indexing progress: done of total chunks embedded.
type Progress func(done, total int)

// Indexer orchestrates the load → chunk → embed → add flow for documents.
type Indexer struct {
	embedder embedder.Embedder
	index    index.Index
	cfg      IndexerConfig
}

// NewIndexer constructs an Indexer. The chunking stride is validated here so
// a misconfiguration fails before any document is read.
func NewIndexer(e embedder.Embedder, idx index.Index, cfg IndexerConfig) (*Indexer, error) {
	if e == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if idx == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = chunker.DefaultOverlap
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.ChunkSize-cfg.ChunkOverlap <= 0 {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", chunker.ErrInvalidStride, cfg.ChunkSize, cfg.ChunkOverlap)
	}
	return &Indexer{embedder: e, index: idx, cfg: cfg}, nil
}

// IndexDocument extracts the text of the document at path and indexes it.
// It returns the number of chunks added.
func (x *Indexer) IndexDocument(ctx context.Context, path string, progress Progress) (int, error) {
	text, err := loader.Load(path)
	if err != nil {
		return 0, fmt.Errorf("rag: %w", err)
	}
	return x.IndexText(ctx, path, text, progress)
}

// IndexText chunks, embeds and adds already-extracted text. Every chunk is
// embedded before anything is written, and the index rejects the whole
// document if any chunk id is already present, so a failed call leaves the
// collection unchanged.
func (x *Indexer) IndexText(ctx context.Context, sourcePath, text string, progress Progress) (int, error) {
	if progress == nil {
		progress = func(int, int) {}
	}
	log := logging.FromContext(ctx)
	start := time.Now()

	chunks, err := chunker.Split(text, sourcePath, x.cfg.ChunkSize, x.cfg.ChunkOverlap)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoChunks, sourcePath)
	}
	log.Info("rag: chunked document",
		slog.String("source", sourcePath),
		slog.Int("chunks", len(chunks)),
	)

	entries := make([]index.Entry, 0, len(chunks))
	progress(0, len(chunks))
	for lo := 0; lo < len(chunks); lo += x.cfg.BatchSize {
		hi := min(lo+x.cfg.BatchSize, len(chunks))
		batch := chunks[lo:hi]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vecs, err := x.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("rag: embedding failed for %s: %w", sourcePath, err)
		}

		for i, c := range batch {
			entries = append(entries, index.Entry{
				ID:     c.ID,
				Vector: vecs[i],
				Text:   c.Text,
				Metadata: index.Metadata{
					Source:     c.SourcePath,
					ChunkIndex: c.Ordinal,
					Length:     c.Length,
				},
			})
		}
		progress(hi, len(chunks))
	}

	if err := x.index.Add(ctx, entries); err != nil {
		return 0, fmt.Errorf("rag: add failed for %s: %w", sourcePath, err)
	}

	log.Info("rag: indexed document",
		slog.String("source", sourcePath),
		slog.String("collection", x.index.Name()),
		slog.Int("chunks", len(entries)),
		slog.Duration("duration", time.Since(start)),
	)
	return len(entries), nil
}
