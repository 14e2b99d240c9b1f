package index

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/54b3r/budgetai-go/internal/config"
)

// DefaultCollection is the collection holding the indexed budget documents.
const DefaultCollection = "documents_senegal"

// Settings describes which index backend to open. Zero values are filled
// from the environment by [SettingsFromEnv].
type Settings struct {
	// Backend is "sqlite" or "qdrant".
	Backend string
	// Path is the SQLite database file.
	Path string
	// Collection is the collection name.
	Collection string
	// Dimension is the embedding size produced by the configured embedder.
	Dimension int
	// Qdrant holds connection settings for the qdrant backend.
	Qdrant QdrantConfig
}

// SettingsFromEnv reads INDEX_BACKEND, INDEX_PATH, INDEX_COLLECTION and the
// QDRANT_* variables.
func SettingsFromEnv(dim int) Settings {
	return Settings{
		Backend:    config.String("INDEX_BACKEND", "sqlite"),
		Path:       config.String("INDEX_PATH", filepath.Join(config.HomeDir(), "vectorstore.db")),
		Collection: config.String("INDEX_COLLECTION", DefaultCollection),
		Dimension:  dim,
		Qdrant: QdrantConfig{
			Host:   config.String("QDRANT_HOST", "localhost"),
			Port:   config.Int("QDRANT_PORT", 6334),
			APIKey: config.String("QDRANT_API_KEY", ""),
			UseTLS: config.Bool("QDRANT_TLS"),
		},
	}
}

// OpenFrom opens the collection described by s. The returned Index owns its
// backend connection; Close releases it.
func OpenFrom(ctx context.Context, s Settings) (Index, error) {
	switch s.Backend {
	case "", "sqlite":
		c, err := OpenCollection(ctx, s.Path, s.Collection, s.Dimension)
		if err != nil {
			return nil, err
		}
		return c, nil

	case "qdrant":
		cfg := s.Qdrant
		cfg.Collection = s.Collection
		cfg.VectorSize = uint64(max(s.Dimension, 0))
		q, err := NewQdrant(ctx, &cfg)
		if err != nil {
			return nil, err
		}
		return q, nil

	default:
		return nil, fmt.Errorf("index: unknown backend %q (valid values: sqlite, qdrant)", s.Backend)
	}
}
