package embedder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/54b3r/budgetai-go/internal/config"
)

// knownChatModelPrefixes contains name fragments that identify chat or
// completion models, which are not suitable for embedding.
var knownChatModelPrefixes = []string{
	"gpt-4",
	"gpt-3.5",
	"gpt-35",
	"o1",
	"o3",
	"llama3",
	"llama2",
	"llama-3",
	"mistral",
	"mixtral",
	"gemma",
	"phi3",
	"claude",
	"deepseek",
	"qwen",
}

func looksLikeChatModel(model string) bool {
	lower := strings.ToLower(model)
	for _, prefix := range knownChatModelPrefixes {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}

// Validate is a pre-flight check run before the embedder and the index are
// built. It returns an error when the configuration is clearly broken and
// logs a warning when EMBEDDING_MODEL names a chat model, so operators get a
// clear message at startup rather than a cryptic failure on the first call.
func Validate(log *slog.Logger) error {
	backend := Backend()

	switch backend {
	case "ollama":
	case "openai":
		if config.String("EMBEDDING_API_KEY", config.String("OPENAI_API_KEY", "")) == "" {
			return fmt.Errorf("embedder: no OpenAI API key found, set OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
	case "azure":
		if config.String("EMBEDDING_API_KEY", config.String("AZURE_OPENAI_API_KEY", "")) == "" {
			return fmt.Errorf("embedder: no Azure API key found, set AZURE_OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		if config.String("EMBEDDING_ENDPOINT", config.String("AZURE_OPENAI_ENDPOINT", "")) == "" {
			return fmt.Errorf("embedder: no Azure endpoint found, set AZURE_OPENAI_ENDPOINT or EMBEDDING_ENDPOINT")
		}
	default:
		return fmt.Errorf("embedder: unknown backend %q (valid values: ollama, openai, azure)", backend)
	}

	if model := config.String("EMBEDDING_MODEL", ""); model != "" && looksLikeChatModel(model) {
		log.Warn("embedder: EMBEDDING_MODEL looks like a chat model, not an embedding model",
			slog.String("model", model),
			slog.String("hint", "use a dedicated embedding model e.g. all-minilm, nomic-embed-text, text-embedding-3-small"),
		)
	}

	return nil
}
