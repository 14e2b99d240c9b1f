package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/budgetai-go/internal/logging"
)

// OllamaConfig holds the settings for an OllamaGenerator.
type OllamaConfig struct {
	// Host is the Ollama base URL, e.g. "http://localhost:11434".
	Host string
	// Model is the generation model, e.g. "llama3.2:3b".
	Model string
	// Timeout bounds one generation call. Defaults to 120s.
	Timeout time.Duration
}

// OllamaGenerator calls the Ollama /api/generate endpoint with streaming
// disabled and returns the complete response.
type OllamaGenerator struct {
	host    string
	model   string
	timeout time.Duration
	client  *http.Client
}

var _ Generator = (*OllamaGenerator)(nil)

// NewOllama constructs an OllamaGenerator.
func NewOllama(cfg OllamaConfig) *OllamaGenerator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &OllamaGenerator{
		host:    strings.TrimRight(cfg.Host, "/"),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// Generate sends prompt and waits for the full answer.
func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	log := logging.FromContext(ctx)
	start := time.Now()

	payload, err := json.Marshal(ollamaGenerateRequest{Model: g.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Debug("generator: ollama request", slog.String("model", g.model), slog.Int("prompt_chars", len(prompt)))

	resp, err := g.client.Do(req)
	if err != nil {
		log.Warn("generator: ollama unreachable", slog.String("host", g.host), slog.String("error", err.Error()))
		return "", classify("ollama", err)
	}
	defer resp.Body.Close()

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if IsUnavailable(err) {
			return "", classify("ollama", err)
		}
		return "", fmt.Errorf("%w: ollama: decode response (HTTP %d): %w", ErrGeneration, resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if out.Error != "" {
			msg = out.Error
		}
		return "", fmt.Errorf("%w: ollama: %s", ErrGeneration, msg)
	}

	log.Info("generator: ollama response",
		slog.String("model", g.model),
		slog.Int("answer_chars", len(out.Response)),
		slog.Duration("duration", time.Since(start)),
	)
	return out.Response, nil
}

// Ping checks that the Ollama server answers.
func (g *OllamaGenerator) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("generator: ping: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return classify("ollama", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama: ping returned HTTP %d", ErrGeneration, resp.StatusCode)
	}
	return nil
}
