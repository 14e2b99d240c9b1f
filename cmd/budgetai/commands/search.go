package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/budgetai-go/internal/websearch"
)

// NewSearchCmd constructs the `budgetai search` command, which runs the
// agent's web tool directly.
func NewSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search the ministry's website",
		Long: `Run a web search restricted to the ministry's website and print the
formatted results the agent would see.

Requires SERPER_API_KEY.

Example:
  budgetai search "loi de finances rectificative 2025"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			web, err := websearch.NewFromEnv()
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			stop := startSpinner("recherche web")
			out, err := web.Search(cmd.Context(), questionArg(args))
			stop()
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
