package assistant

import (
	"errors"
	"fmt"

	"github.com/54b3r/budgetai-go/internal/embedder"
	"github.com/54b3r/budgetai-go/internal/generator"
	"github.com/54b3r/budgetai-go/internal/index"
	"github.com/54b3r/budgetai-go/internal/websearch"
)

// ErrAgentNotConfigured is returned for agent turns when no chat model is
// configured.
var ErrAgentNotConfigured = errors.New("assistant: agent mode requires MODEL_PROVIDER")

// Kind classifies a failed turn.
type Kind string

const (
	KindBackendUnavailable Kind = "backend_unavailable"
	KindIndexUnavailable   Kind = "index_unavailable"
	KindEmbedUnavailable   Kind = "embedding_unavailable"
	KindWebUnavailable     Kind = "web_unavailable"
	KindNotConfigured      Kind = "not_configured"
	KindGeneration         Kind = "generation_error"
	KindInternal           Kind = "internal"
)

// Retryable reports whether repeating the same turn later may succeed
// without operator action.
func (k Kind) Retryable() bool {
	return k == KindWebUnavailable
}

// Classify maps a turn error to its Kind and the French message shown to
// the user in place of an answer.
func Classify(err error) (Kind, string) {
	switch {
	case errors.Is(err, index.ErrUnavailable):
		return KindIndexUnavailable,
			"Erreur : la base documentaire est indisponible. Vérifiez la connexion à l'index ou indexez d'abord vos documents avec 'budgetai index'."
	case errors.Is(err, embedder.ErrUnavailable):
		// Ahead of the transport case: embeddings may be hosted.
		return KindEmbedUnavailable,
			"Erreur : le service d'embeddings est injoignable. Vérifiez EMBEDDING_PROVIDER et EMBEDDING_ENDPOINT."
	case errors.Is(err, websearch.ErrNotConfigured), errors.Is(err, ErrAgentNotConfigured):
		return KindNotConfigured, fmt.Sprintf("Erreur de configuration : %v", err)
	case errors.Is(err, websearch.ErrUnavailable):
		return KindWebUnavailable,
			"Erreur : la recherche web est momentanément indisponible. Réessayez dans quelques instants."
	case errors.Is(err, generator.ErrGeneration):
		return KindGeneration, fmt.Sprintf("Erreur lors de la génération de la réponse : %v", err)
	case generator.IsUnavailable(err):
		return KindBackendUnavailable,
			"Erreur : le modèle de langage n'est pas démarré. Lancez 'ollama serve' dans un terminal."
	default:
		return KindInternal, fmt.Sprintf("Erreur : %v", err)
	}
}
