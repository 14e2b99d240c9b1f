package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/budgetai-go/internal/app"
	"github.com/54b3r/budgetai-go/internal/session"
)

// NewAskCmd constructs the `budgetai ask` command, which answers one
// question from the indexed documents.
func NewAskCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Long: `Retrieve the passage most similar to the question and let the
generation model answer from it alone. When the index holds nothing
relevant the answer says so without calling the model.

Examples:
  budgetai ask "Quel est le montant des recettes fiscales ?"
  budgetai ask --json "Quelle est la part des dépenses de personnel ?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(cmd, app.Options{})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer a.Close()

			question := questionArg(args)
			if asJSON {
				ans, err := a.Engine.Answer(ctx, question)
				if err != nil {
					return fmt.Errorf("ask: %w", err)
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ans)
			}

			stop := startSpinner("recherche")
			msg := a.Assistant.Turn(ctx, session.NewLog(), question, session.ModeRAG)
			stop()

			printMessage(cmd.OutOrStdout(), msg)
			if msg.Failed {
				return fmt.Errorf("ask: %s", msg.Kind)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the answer, sources and context as JSON")

	return cmd
}
