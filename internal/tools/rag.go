package tools

import (
	"context"
	"fmt"
)

// RAGToolName is the name of the indexed-documents tool.
const RAGToolName = "search_rag_database"

// DefaultRAGTopK is the number of chunks the RAG tool returns.
const DefaultRAGTopK = 3

// ContextRetriever returns ranked chunk texts joined into one block.
// *rag.Retriever satisfies it.
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, query string, k int) (string, error)
}

// RAGTool searches the indexed budget documents and returns raw context;
// it does not generate.
type RAGTool struct {
	retriever ContextRetriever
	k         int
}

// NewRAGTool constructs a RAGTool returning up to k chunks
// (DefaultRAGTopK when k <= 0).
func NewRAGTool(r ContextRetriever, k int) *RAGTool {
	if k <= 0 {
		k = DefaultRAGTopK
	}
	return &RAGTool{retriever: r, k: k}
}

// Name implements Tool.
func (t *RAGTool) Name() string { return RAGToolName }

// Description implements Tool.
func (t *RAGTool) Description() string {
	return "Recherche des informations dans la base de données des documents budgétaires officiels du Sénégal. " +
		"Utile pour répondre aux questions sur le contenu du document budgétaire (montants, évolutions, ministères). " +
		"Prend une chaîne de caractères en entrée."
}

// Invoke implements Tool.
func (t *RAGTool) Invoke(ctx context.Context, query string) (string, error) {
	out, err := t.retriever.RetrieveContext(ctx, query, t.k)
	if err != nil {
		return "", fmt.Errorf("%s: %w", RAGToolName, err)
	}
	return out, nil
}
