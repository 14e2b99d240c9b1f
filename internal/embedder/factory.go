package embedder

import (
	"fmt"
	"time"

	"github.com/54b3r/budgetai-go/internal/config"
)

// Default embedding models per backend.
const (
	// defaultOllamaModel is all-MiniLM-L6-v2 as published by Ollama.
	defaultOllamaModel = "all-minilm"
	defaultOpenAIModel = "text-embedding-3-small"

	defaultOllamaDimensions = 384
	defaultOpenAIDimensions = 1536
)

// Backend returns the effective embedding backend: EMBEDDING_PROVIDER, or
// MODEL_PROVIDER when that names a backend with an embeddings API, or ollama.
func Backend() string {
	if b := config.String("EMBEDDING_PROVIDER", ""); b != "" {
		return b
	}
	switch p := config.String("MODEL_PROVIDER", ""); p {
	case "openai", "azure":
		return p
	}
	return "ollama"
}

// DefaultDimensions returns the embedding vector size for backend.
// EMBEDDING_DIMENSIONS always takes precedence when set.
func DefaultDimensions(backend string) int {
	if v := config.Int("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case "ollama":
		return defaultOllamaDimensions
	default:
		return defaultOpenAIDimensions
	}
}

// NewFromEnv constructs an Embedder using cascading defaults that inherit
// from the chat provider configuration when embedding-specific overrides are
// not set.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER, see [Backend]
//  2. Per-backend credentials are inherited from the chat provider's env vars
//  3. EMBEDDING_MODEL overrides the default model for the resolved backend
//  4. EMBEDDING_API_KEY overrides the inherited API key
//  5. EMBEDDING_ENDPOINT overrides the inherited endpoint
//  6. EMBEDDING_DIMENSIONS overrides the default dimensions
//  7. EMBEDDING_TIMEOUT bounds each request (default 60s)
func NewFromEnv() (Embedder, error) {
	backend := Backend()
	timeout := config.Duration("EMBEDDING_TIMEOUT", 60*time.Second)

	switch backend {
	case "ollama":
		host := config.String("EMBEDDING_ENDPOINT", config.String("OLLAMA_HOST", "http://localhost:11434"))
		return NewOllamaEmbedder(&OllamaConfig{
			Host:    host,
			Model:   config.String("EMBEDDING_MODEL", defaultOllamaModel),
			Timeout: timeout,
		}), nil

	case "openai":
		apiKey := config.String("EMBEDDING_API_KEY", config.String("OPENAI_API_KEY", ""))
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    config.String("EMBEDDING_ENDPOINT", "https://api.openai.com/v1"),
			APIKey:     apiKey,
			Model:      config.String("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: config.Int("EMBEDDING_DIMENSIONS", defaultOpenAIDimensions),
			Timeout:    timeout,
		}), nil

	case "azure":
		apiKey := config.String("EMBEDDING_API_KEY", config.String("AZURE_OPENAI_API_KEY", ""))
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		endpoint := config.String("EMBEDDING_ENDPOINT", config.String("AZURE_OPENAI_ENDPOINT", ""))
		if endpoint == "" {
			return nil, fmt.Errorf("embedder: azure requires AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    endpoint + "/openai",
			APIKey:     apiKey,
			Model:      config.String("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: config.Int("EMBEDDING_DIMENSIONS", defaultOpenAIDimensions),
			Azure:      true,
			APIVersion: config.String("AZURE_OPENAI_API_VERSION", "2025-04-01-preview"),
			Timeout:    timeout,
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid values: ollama, openai, azure)", backend)
	}
}
