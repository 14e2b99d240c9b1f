// Package websearch queries the Serper Google Search API and restricts
// queries to the official Senegalese public-finance sites.
package websearch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/54b3r/budgetai-go/internal/config"
)

var (
	// ErrUnavailable is returned when the search API cannot be reached or
	// times out. The caller may retry.
	ErrUnavailable = errors.New("websearch: search service unavailable")

	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("websearch: SERPER_API_KEY is not set")
)

// SiteFilter restricts a query to the ministry of finance and Vie Publique.
const SiteFilter = " site:finances.gouv.sn OR site:vie-publique.sn"

// NoResults is returned in place of formatted results when the search
// matched nothing.
const NoResults = "Aucun résultat trouvé sur les sites officiels."

// Searcher runs a web search and returns the results as plain text.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Restrict appends [SiteFilter] to query.
func Restrict(query string) string {
	return query + SiteFilter
}

// Ministere restricts every query to the official sites before delegating.
type Ministere struct {
	inner Searcher
}

// NewMinistere wraps s.
func NewMinistere(s Searcher) *Ministere {
	return &Ministere{inner: s}
}

// Search implements Searcher.
func (m *Ministere) Search(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("websearch: query must not be empty")
	}
	return m.inner.Search(ctx, Restrict(query))
}

// NewFromEnv builds the ministry-restricted Serper searcher.
//
//	SERPER_API_KEY      required
//	SERPER_ENDPOINT     default https://google.serper.dev/search
//	WEB_SEARCH_TIMEOUT  default 15s
func NewFromEnv() (*Ministere, error) {
	key := config.String("SERPER_API_KEY", "")
	if key == "" {
		return nil, ErrNotConfigured
	}
	return NewMinistere(NewSerper(SerperConfig{
		APIKey:   key,
		Endpoint: config.String("SERPER_ENDPOINT", DefaultEndpoint),
		Timeout:  config.Duration("WEB_SEARCH_TIMEOUT", DefaultTimeout),
	})), nil
}
