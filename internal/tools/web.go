package tools

import (
	"context"
	"fmt"

	"github.com/54b3r/budgetai-go/internal/websearch"
)

// WebToolName is the name of the ministry web search tool.
const WebToolName = "search_ministere_web"

// WebTool searches the official government sites.
type WebTool struct {
	searcher websearch.Searcher
}

// NewWebTool constructs a WebTool. s is normally a *websearch.Ministere so
// queries are restricted to the official domains.
func NewWebTool(s websearch.Searcher) *WebTool {
	return &WebTool{searcher: s}
}

// Name implements Tool.
func (t *WebTool) Name() string { return WebToolName }

// Description implements Tool.
func (t *WebTool) Description() string {
	return "Effectue une recherche sur les sites officiels du gouvernement sénégalais, notamment finances.gouv.sn et vie-publique.sn. " +
		"Utile pour trouver des liens, des informations générales ou des mises à jour absentes des documents indexés. " +
		"Prend une chaîne de caractères en entrée."
}

// Invoke implements Tool.
func (t *WebTool) Invoke(ctx context.Context, query string) (string, error) {
	out, err := t.searcher.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("%s: %w", WebToolName, err)
	}
	return out, nil
}
