package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/54b3r/budgetai-go/internal/app"
	"github.com/54b3r/budgetai-go/internal/index"
	"github.com/54b3r/budgetai-go/internal/loader"
	"github.com/54b3r/budgetai-go/internal/logging"
)

// NewIndexCmd constructs the `budgetai index` command, which extracts,
// chunks, embeds and stores documents in the vector index.
func NewIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index <file>...",
		Short: "Add documents (PDF, text, Markdown) to the vector index",
		Long: `Extract the text of each document, split it into overlapping chunks,
embed the chunks and store them in the configured collection.

A document already indexed under the same path is rejected and skipped;
the collection is append-only.

Relevant environment variables:
  INDEX_BACKEND        sqlite (default) or qdrant
  INDEX_PATH           SQLite file (default: ~/.budgetai/vectorstore.db)
  INDEX_COLLECTION     collection name (default: documents_senegal)
  EMBEDDING_PROVIDER   ollama (default), openai, azure
  CHUNK_SIZE           characters per chunk (default: 1000)
  CHUNK_OVERLAP        characters shared by consecutive chunks (default: 100)

Examples:
  budgetai index loi_de_finances_2025.pdf
  budgetai index docs/*.pdf notes/execution_t1.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if !loader.IsSupported(path) {
					return fmt.Errorf("index: %s: %w (accepted: %s)", path, loader.ErrUnsupportedFormat, strings.Join(loader.Supported, ", "))
				}
			}

			ctx := cmd.Context()
			log := logging.FromContext(ctx)

			a, err := openApp(cmd, app.Options{RequireIndex: true})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			defer a.Close()

			var failed, total int
			for _, path := range args {
				progress, finish := chunkProgress(filepath.Base(path))
				n, err := a.Indexer.IndexDocument(ctx, path, progress)
				finish()

				switch {
				case errors.Is(err, index.ErrDuplicateKey):
					fmt.Fprintf(cmd.OutOrStdout(), "%s : déjà indexé, ignoré\n", path)
				case err != nil:
					failed++
					log.Error("index: document failed", slog.String("source", path), slog.Any("error", err))
					fmt.Fprintf(cmd.ErrOrStderr(), "%s : échec (%v)\n", path, err)
				default:
					total += n
					fmt.Fprintf(cmd.OutOrStdout(), "%s : %d extraits indexés\n", path, n)
				}
			}

			count, err := a.Index.Count(ctx)
			if err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nCollection %q : %d extraits au total (+%d)\n", a.Index.Name(), count, total)
			}
			if failed > 0 {
				return fmt.Errorf("index: %d of %d documents failed", failed, len(args))
			}
			return nil
		},
	}
}
