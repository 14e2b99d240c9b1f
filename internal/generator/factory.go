package generator

import (
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/budgetai-go/internal/config"
)

// Backend returns GENERATOR_BACKEND: "ollama" (default) or "chat".
func Backend() string {
	return config.String("GENERATOR_BACKEND", "ollama")
}

// NewFromEnv builds the generator selected by GENERATOR_BACKEND.
//
//	ollama: OLLAMA_HOST (default http://localhost:11434), GENERATOR_MODEL (default llama3.2:3b)
//	chat:   the chat model cm, labelled chatName
//
// GENERATOR_TIMEOUT bounds each call (default 120s).
func NewFromEnv(cm model.BaseChatModel, chatName string) (Generator, error) {
	timeout := config.Duration("GENERATOR_TIMEOUT", 120*time.Second)

	switch b := Backend(); b {
	case "ollama":
		return NewOllama(OllamaConfig{
			Host:    config.String("OLLAMA_HOST", "http://localhost:11434"),
			Model:   config.String("GENERATOR_MODEL", "llama3.2:3b"),
			Timeout: timeout,
		}), nil
	case "chat":
		if cm == nil {
			return nil, fmt.Errorf("generator: GENERATOR_BACKEND=chat requires a configured chat model (MODEL_PROVIDER)")
		}
		return NewChat(cm, chatName, timeout), nil
	default:
		return nil, fmt.Errorf("generator: unknown backend %q (valid values: ollama, chat)", b)
	}
}
