package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/budgetai-go/internal/logging"
)

const (
	// DefaultEndpoint is the Serper search URL.
	DefaultEndpoint = "https://google.serper.dev/search"
	// DefaultTimeout bounds one search call.
	DefaultTimeout = 15 * time.Second
)

// SerperConfig holds the settings for a SerperClient.
type SerperConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
	// Country and Language are the gl and hl parameters. Default "sn", "fr".
	Country  string
	Language string
}

// SerperClient calls the Serper search endpoint.
type SerperClient struct {
	cfg    SerperConfig
	client *http.Client
}

var _ Searcher = (*SerperClient)(nil)

// NewSerper constructs a SerperClient, applying defaults for empty fields.
func NewSerper(cfg SerperConfig) *SerperClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Country == "" {
		cfg.Country = "sn"
	}
	if cfg.Language == "" {
		cfg.Language = "fr"
	}
	return &SerperClient{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type serperRequest struct {
	Q  string `json:"q"`
	GL string `json:"gl"`
	HL string `json:"hl"`
}

type serperResponse struct {
	AnswerBox *struct {
		Title   string `json:"title"`
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"answerBox"`
	KnowledgeGraph *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Website     string `json:"website"`
	} `json:"knowledgeGraph"`
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search sends query unchanged and formats the response.
func (c *SerperClient) Search(ctx context.Context, query string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	log := logging.FromContext(ctx)
	start := time.Now()

	payload, err := json.Marshal(serperRequest{Q: query, GL: c.cfg.Country, HL: c.cfg.Language})
	if err != nil {
		return "", fmt.Errorf("websearch: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("websearch: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.cfg.APIKey)

	log.Debug("websearch: request", slog.String("query", query))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("websearch: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", err
	}

	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", fmt.Errorf("websearch: decode response: %w", err)
	}

	text := format(&out)
	log.Info("websearch: response",
		slog.Int("organic", len(out.Organic)),
		slog.Int("chars", len(text)),
		slog.Duration("duration", time.Since(start)),
	)
	return text, nil
}

// format renders the answer box, knowledge graph and organic results as
// plain text, keeping every link.
func format(r *serperResponse) string {
	var b strings.Builder
	if ab := r.AnswerBox; ab != nil {
		answer := ab.Answer
		if answer == "" {
			answer = ab.Snippet
		}
		if answer != "" {
			fmt.Fprintf(&b, "Réponse directe : %s", answer)
			if ab.Link != "" {
				fmt.Fprintf(&b, " (%s)", ab.Link)
			}
			b.WriteString("\n\n")
		}
	}
	if kg := r.KnowledgeGraph; kg != nil && kg.Description != "" {
		fmt.Fprintf(&b, "%s : %s", kg.Title, kg.Description)
		if kg.Website != "" {
			fmt.Fprintf(&b, " (%s)", kg.Website)
		}
		b.WriteString("\n\n")
	}
	for i, o := range r.Organic {
		fmt.Fprintf(&b, "%d. %s\n   %s\n   %s\n", i+1, o.Title, o.Link, o.Snippet)
	}
	if b.Len() == 0 {
		return NoResults
	}
	return strings.TrimRight(b.String(), "\n")
}
