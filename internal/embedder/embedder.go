// Package embedder converts text into dense vectors for the vector index.
// Each implementation talks to a different backend (Ollama, OpenAI, Azure
// OpenAI) over plain HTTP. Chunks and queries must go through the same
// Embedder so they share one vector space.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrEmptyInput is returned when a batch is empty or holds a blank text.
	ErrEmptyInput = errors.New("embedder: empty input")

	// ErrUnavailable wraps transport failures reaching the embedding backend.
	ErrUnavailable = errors.New("embedder: backend unavailable")
)

// Embedder is the interface for converting text into embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their embeddings. The returned
	// slice is parallel to texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text, typically a user query.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder: expected 1 embedding, got %d", len(vecs))
	}
	return vecs[0], nil
}

// checkInput rejects empty batches and blank texts before any network call.
func checkInput(texts []string) error {
	if len(texts) == 0 {
		return ErrEmptyInput
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: text %d is blank", ErrEmptyInput, i)
		}
	}
	return nil
}

// transportError wraps err with ErrUnavailable when it is a network failure
// rather than a protocol error.
func transportError(prefix string, err error) error {
	var netErr net.Error
	var opErr *net.OpError
	if errors.As(err, &netErr) || errors.As(err, &opErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", prefix, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: request failed: %w", prefix, err)
}
