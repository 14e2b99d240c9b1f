// Package engine answers a question from the indexed documents: retrieve
// the nearest chunks, build the grounded French prompt, generate.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/54b3r/budgetai-go/internal/budget"
	"github.com/54b3r/budgetai-go/internal/generator"
	"github.com/54b3r/budgetai-go/internal/index"
	"github.com/54b3r/budgetai-go/internal/logging"
	"github.com/54b3r/budgetai-go/internal/prompt"
	"github.com/54b3r/budgetai-go/internal/rag"
)

const (
	// DefaultTopK is the number of chunks used as context.
	DefaultTopK = 1

	excerptChars     = 200
	contextUsedChars = 500
)

// Retriever is the read path the engine depends on. *rag.Retriever
// satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]index.Result, error)
}

// Source cites one retrieved chunk.
type Source struct {
	// Excerpt is the first 200 characters of the chunk, with "..." appended.
	Excerpt    string  `json:"excerpt"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunkIndex"`
	Similarity float64 `json:"similarity"`
}

// Answer is the result of one question.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
	// ContextUsed is the prompt context, cut to 500 characters plus "...".
	ContextUsed string `json:"contextUsed"`
}

// Config holds the dependencies of an Engine.
type Config struct {
	Retriever Retriever
	Generator generator.Generator
	// TopK defaults to DefaultTopK when zero.
	TopK int
}

// Engine is Pipeline A. It is safe for concurrent use when its retriever
// and generator are.
type Engine struct {
	retriever Retriever
	generator generator.Generator
	topK      int
}

// New constructs an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("engine: Retriever must not be nil")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("engine: Generator must not be nil")
	}
	k := cfg.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	return &Engine{retriever: cfg.Retriever, generator: cfg.Generator, topK: k}, nil
}

// TopK returns the number of chunks retrieved per question.
func (e *Engine) TopK() int { return e.topK }

// Answer runs retrieval then generation. When nothing is retrieved the
// answer is [rag.NoInformationFound] and the generator is not called.
func (e *Engine) Answer(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("engine: question must not be empty")
	}

	log := logging.FromContext(ctx)
	start := time.Now()

	results, err := e.retriever.Retrieve(ctx, question, e.topK)
	if err != nil {
		return nil, fmt.Errorf("engine: retrieval failed: %w", err)
	}
	if len(results) == 0 {
		log.Info("engine: empty retrieval, skipping generation")
		return &Answer{Text: rag.NoInformationFound, Sources: []Source{}}, nil
	}

	docContext := rag.JoinContext(results)
	text, err := e.generator.Generate(ctx, prompt.Build(question, docContext))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{
			Excerpt:    excerpt(r.Text),
			Source:     r.Metadata.Source,
			ChunkIndex: r.Metadata.ChunkIndex,
			Similarity: r.Similarity(),
		}
	}

	log.Info("engine: answered",
		slog.Int("sources", len(sources)),
		slog.Float64("top_similarity", sources[0].Similarity),
		slog.Duration("duration", time.Since(start)),
	)
	return &Answer{
		Text:        text,
		Sources:     sources,
		ContextUsed: budget.TruncateRunes(docContext, contextUsedChars),
	}, nil
}

// excerpt always appends "...", matching how sources are displayed.
func excerpt(text string) string {
	r := []rune(text)
	if len(r) > excerptChars {
		r = r[:excerptChars]
	}
	return string(r) + "..."
}
