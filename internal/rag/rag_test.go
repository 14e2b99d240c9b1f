package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/54b3r/budgetai-go/internal/chunker"
	"github.com/54b3r/budgetai-go/internal/index"
	"github.com/54b3r/budgetai-go/internal/rag"
	"github.com/54b3r/budgetai-go/internal/rag/ragtest"
)

// failingEmbedder always returns err.
type failingEmbedder struct{ err error }

func (f failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, f.err
}

// ---------------------------------------------------------------------------
// Retriever
// ---------------------------------------------------------------------------

func TestRetrieveContext_EmptyIndex(t *testing.T) {
	t.Parallel()

	r, err := rag.NewRetriever(&ragtest.HashEmbedder{}, ragtest.NewIndex(t), 3)
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.RetrieveContext(context.Background(), "recettes fiscales", 3)
	if err != nil {
		t.Fatalf("RetrieveContext: %v", err)
	}
	if got != rag.NoInformationFound {
		t.Errorf("RetrieveContext = %q, want the no-information sentinel", got)
	}
}

func TestRetrieveContext_JoinsInRankOrder(t *testing.T) {
	t.Parallel()

	r := ragtest.NewRetriever(t, map[string]string{"note.txt": ragtest.BudgetDocument}, 500, 100)

	got, err := r.RetrieveContext(context.Background(), "Quel est le montant des recettes fiscales ?", 2)
	if err != nil {
		t.Fatalf("RetrieveContext: %v", err)
	}
	parts := strings.Split(got, "\n\n")
	if len(parts) < 2 {
		t.Fatalf("expected two chunks joined by a blank line, got %q", got)
	}
	if !strings.Contains(parts[0], ragtest.RevenueFigure) {
		t.Errorf("first chunk should hold the revenue figure: %q", parts[0])
	}
}

func TestRetrieve_TopResultIsRevenueChunk(t *testing.T) {
	t.Parallel()

	r := ragtest.NewRetriever(t, map[string]string{"note.txt": ragtest.BudgetDocument}, 500, 100)

	results, err := r.Retrieve(context.Background(), "Quel est le montant des recettes fiscales ?", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	top := results[0]
	if top.ID != "note.txt_chunk_0" || !strings.Contains(top.Text, "recettes") {
		t.Errorf("top result = %s %q", top.ID, top.Text)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Fatal("results not ordered by ascending distance")
		}
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	t.Parallel()

	r := ragtest.NewRetriever(t, map[string]string{"note.txt": ragtest.BudgetDocument}, 500, 100)
	results, err := r.Retrieve(context.Background(), "dette", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Errorf("default k returned %d results, want 1", len(results))
	}
}

func TestRetrieve_EmbedderFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r, err := rag.NewRetriever(failingEmbedder{err: boom}, ragtest.NewIndex(t), 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Retrieve(context.Background(), "q", 1); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
	if _, err := r.Retrieve(context.Background(), "   ", 1); err == nil {
		t.Error("blank query should fail")
	}
}

// ---------------------------------------------------------------------------
// Indexer
// ---------------------------------------------------------------------------

func TestIndexer_IndexText(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	emb := &ragtest.HashEmbedder{}
	idx := ragtest.NewIndex(t)
	x, err := rag.NewIndexer(emb, idx, rag.IndexerConfig{ChunkSize: 500, ChunkOverlap: 100, BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}

	var lastDone, lastTotal int
	n, err := x.IndexText(ctx, "/docs/note.txt", ragtest.BudgetDocument, func(done, total int) {
		lastDone, lastTotal = done, total
	})
	if err != nil {
		t.Fatalf("IndexText: %v", err)
	}
	if n != 3 {
		t.Errorf("indexed %d chunks, want 3", n)
	}
	if lastDone != n || lastTotal != n {
		t.Errorf("final progress %d/%d, want %d/%d", lastDone, lastTotal, n, n)
	}
	if emb.Calls() != 2 {
		t.Errorf("embedder called %d times, want 2 batches", emb.Calls())
	}

	count, err := idx.Count(ctx)
	if err != nil || count != 3 {
		t.Errorf("Count = %d, %v", count, err)
	}

	res, err := idx.Query(ctx, ragtest.Vector(ragtest.RevenueParagraph), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res[0].Metadata.Source != "/docs/note.txt" || res[0].Metadata.ChunkIndex != 0 {
		t.Errorf("metadata = %+v", res[0].Metadata)
	}
}

func TestIndexer_ReindexIsRejected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := ragtest.NewIndex(t)
	x, err := rag.NewIndexer(&ragtest.HashEmbedder{}, idx, rag.IndexerConfig{ChunkSize: 500, ChunkOverlap: 100})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := x.IndexText(ctx, "note.txt", ragtest.BudgetDocument, nil); err != nil {
		t.Fatal(err)
	}
	_, err = x.IndexText(ctx, "note.txt", ragtest.BudgetDocument, nil)
	if !errors.Is(err, index.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
	if n, _ := idx.Count(ctx); n != 3 {
		t.Errorf("Count = %d after rejected re-index, want 3", n)
	}
}

func TestIndexer_NoChunks(t *testing.T) {
	t.Parallel()

	x, err := rag.NewIndexer(&ragtest.HashEmbedder{}, ragtest.NewIndex(t), rag.IndexerConfig{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = x.IndexText(context.Background(), "tiny.txt", "trop court", nil)
	if !errors.Is(err, rag.ErrNoChunks) {
		t.Errorf("err = %v, want ErrNoChunks", err)
	}
}

func TestNewIndexer_InvalidStride(t *testing.T) {
	t.Parallel()

	_, err := rag.NewIndexer(&ragtest.HashEmbedder{}, ragtest.NewIndex(t), rag.IndexerConfig{ChunkSize: 100, ChunkOverlap: 100})
	if !errors.Is(err, chunker.ErrInvalidStride) {
		t.Errorf("err = %v, want ErrInvalidStride", err)
	}
}
