// Package ragtest provides deterministic embedders and in-memory indexes
// for tests of packages built on the retrieval pipeline.
package ragtest

import (
	"context"
	"hash/fnv"
	"strings"
	"sync/atomic"
	"testing"
	"unicode"

	"github.com/54b3r/budgetai-go/internal/index"
	"github.com/54b3r/budgetai-go/internal/rag"
)

// Dim is the vector size produced by [HashEmbedder].
const Dim = 512

// Paragraphs of a short budget execution note. Only the first mentions
// tax revenue; the others avoid every word of the question
// "Quel est le montant des recettes fiscales ?".
const (
	RevenueParagraph = "Au premier trimestre 2025, le montant des recettes fiscales est de " +
		"1 234,5 milliards de FCFA, soit une hausse de 8,2 % par rapport à la même période de 2024. " +
		"Les recettes fiscales sont portées par l'impôt sur les sociétés et par la TVA intérieure, " +
		"dont le recouvrement a été renforcé."

	SpendingParagraph = "Les dépenses publiques exécutées sur la période atteignent 1 502,3 milliards de FCFA. " +
		"Les dépenses de personnel représentent 412,0 milliards, tandis que les transferts courants " +
		"et les subventions totalisent 298,7 milliards. Les investissements financés sur ressources " +
		"internes progressent nettement, avec un taux d'exécution de 61 % à la fin mars. " +
		"Les charges d'intérêts sur la dette augmentent également."

	DebtParagraph = "Au titre du service de la dette, les échéances payées sur la période s'élèvent " +
		"à 640 milliards de FCFA. La stratégie d'endettement privilégie les financements " +
		"concessionnels et l'allongement de la maturité moyenne du portefeuille. " +
		"L'encours total atteint 13 850 milliards à fin mars 2025, soit environ 76 % du produit " +
		"intérieur brut, un niveau suivi de près par les partenaires techniques et financiers."

	RevenueFigure = "1 234,5"
)

// BudgetDocument is the three paragraphs separated by blank lines.
var BudgetDocument = RevenueParagraph + "\n\n" + SpendingParagraph + "\n\n" + DebtParagraph

// HashEmbedder is a bag-of-words embedder: each lower-cased word increments
// the dimension selected by its FNV-1a hash. Texts sharing words get a
// positive cosine similarity; texts sharing none are orthogonal.
type HashEmbedder struct {
	calls atomic.Int64
}

// Calls returns the number of Embed invocations.
func (h *HashEmbedder) Calls() int { return int(h.calls.Load()) }

// Embed implements embedder.Embedder.
func (h *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	h.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = Vector(t)
	}
	return out, nil
}

// Vector returns the bag-of-words vector of text.
func Vector(text string) []float32 {
	v := make([]float32, Dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%Dim]++
	}
	return v
}

// NewIndex returns an empty in-memory SQLite collection sized for
// [HashEmbedder], closed when the test ends.
func NewIndex(t testing.TB) index.Index {
	t.Helper()
	store, err := index.Open(":memory:")
	if err != nil {
		t.Fatalf("ragtest: open index: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	c, err := store.Collection(context.Background(), index.DefaultCollection, Dim)
	if err != nil {
		t.Fatalf("ragtest: open collection: %v", err)
	}
	return c
}

// NewRetriever indexes each document text under its source name and returns
// a retriever over the result. chunkSize and overlap configure the chunker.
func NewRetriever(t testing.TB, docs map[string]string, chunkSize, overlap int) *rag.Retriever {
	t.Helper()
	ctx := context.Background()
	emb := &HashEmbedder{}
	idx := NewIndex(t)

	indexer, err := rag.NewIndexer(emb, idx, rag.IndexerConfig{ChunkSize: chunkSize, ChunkOverlap: overlap})
	if err != nil {
		t.Fatalf("ragtest: indexer: %v", err)
	}
	for source, text := range docs {
		if _, err := indexer.IndexText(ctx, source, text, nil); err != nil {
			t.Fatalf("ragtest: index %s: %v", source, err)
		}
	}

	r, err := rag.NewRetriever(emb, idx, 1)
	if err != nil {
		t.Fatalf("ragtest: retriever: %v", err)
	}
	return r
}
