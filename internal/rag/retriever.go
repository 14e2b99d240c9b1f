// Package rag turns questions into ranked document context and documents
// into indexed chunks. The [Retriever] is the read path shared by the
// question-answering engine and the agent's RAG tool; the [Indexer] is the
// write path behind `budgetai index`.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/budgetai-go/internal/embedder"
	"github.com/54b3r/budgetai-go/internal/index"
	"github.com/54b3r/budgetai-go/internal/logging"
)

// NoInformationFound is returned in place of context when retrieval finds
// nothing, and is the fixed answer of the engine in that case.
const NoInformationFound = "Aucune information trouvée dans les documents indexés."

// contextSeparator joins ranked chunk texts into one context block.
const contextSeparator = "\n\n"

// Retriever embeds a query with the same embedder used at indexing time and
// searches the index. It is safe for concurrent use.
type Retriever struct {
	embedder    embedder.Embedder
	index       index.Index
	defaultTopK int
}

// NewRetriever constructs a Retriever. defaultTopK is used when callers
// pass k <= 0.
func NewRetriever(e embedder.Embedder, idx index.Index, defaultTopK int) (*Retriever, error) {
	if e == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if idx == nil {
		return nil, fmt.Errorf("rag: index must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 1
	}
	return &Retriever{embedder: e, index: idx, defaultTopK: defaultTopK}, nil
}

// Retrieve returns up to k chunks nearest to query, ascending by distance.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]index.Result, error) {
	if k <= 0 {
		k = r.defaultTopK
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("rag: query must not be empty")
	}

	log := logging.FromContext(ctx)
	start := time.Now()

	vec, err := embedder.EmbedOne(ctx, r.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("rag: embedding query failed: %w", err)
	}

	results, err := r.index.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	log.Debug("rag: retrieved",
		slog.String("collection", r.index.Name()),
		slog.Int("k", k),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)),
	)
	return results, nil
}

// RetrieveContext returns the texts of the top-k chunks joined by a blank
// line, or [NoInformationFound] when nothing was retrieved.
func (r *Retriever) RetrieveContext(ctx context.Context, query string, k int) (string, error) {
	results, err := r.Retrieve(ctx, query, k)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return NoInformationFound, nil
	}
	return JoinContext(results), nil
}

// JoinContext concatenates result texts in rank order.
func JoinContext(results []index.Result) string {
	texts := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Text
	}
	return strings.Join(texts, contextSeparator)
}
