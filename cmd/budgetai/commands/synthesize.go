package commands

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/budgetai-go/internal/app"
	"github.com/54b3r/budgetai-go/internal/config"
	"github.com/54b3r/budgetai-go/internal/logging"
	"github.com/54b3r/budgetai-go/internal/tools"
)

// NewSynthesizeCmd constructs the `budgetai synthesize` command, which
// merges a document result and a web result into one answer.
func NewSynthesizeCmd() *cobra.Command {
	var (
		ragText string
		webText string
		noWeb   bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "synthesize <question>",
		Short: "Merge the document and web results for a question",
		Long: `Gather the indexed passages and the ministry web results for the
question, then ask the chat model for one answer citing its sources.
Either result can be supplied directly with --rag-text or --web-text.
A missing result is reported as such in the synthesis.

Requires MODEL_PROVIDER.

Examples:
  budgetai synthesize "Quel est l'encours de la dette ?"
  budgetai synthesize --no-web --json "Quelles sont les recettes non fiscales ?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.FromContext(ctx)
			question := questionArg(args)

			a, err := openApp(cmd, app.Options{Agent: true, RequireAgent: true})
			if err != nil {
				return fmt.Errorf("synthesize: %w", err)
			}
			defer a.Close()

			if !cmd.Flags().Changed("rag-text") {
				k := config.Int("AGENT_RAG_TOP_K", tools.DefaultRAGTopK)
				if ragText, err = a.Retriever.RetrieveContext(ctx, question, k); err != nil {
					log.Warn("synthesize: document retrieval failed", slog.Any("error", err))
					ragText = ""
				}
			}
			if !noWeb && !cmd.Flags().Changed("web-text") && a.Web != nil {
				if webText, err = a.Web.Search(ctx, question); err != nil {
					log.Warn("synthesize: web search failed", slog.Any("error", err))
					webText = ""
				}
			}

			stop := startSpinner("synthèse")
			out, err := a.Synthesizer.Synthesize(ctx, question, ragText, webText)
			stop()
			if err != nil {
				return fmt.Errorf("synthesize: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.SynthesizedAnswer)
			if len(out.SourceDocuments) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "\nSources :")
				for _, s := range out.SourceDocuments {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", s)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ragText, "rag-text", "", "Use this text as the document result instead of querying the index")
	cmd.Flags().StringVar(&webText, "web-text", "", "Use this text as the web result instead of searching")
	cmd.Flags().BoolVar(&noWeb, "no-web", false, "Do not run the web search")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the synthesis as JSON")

	return cmd
}
