package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/54b3r/budgetai-go/internal/app"
)

// NewStatsCmd constructs the `budgetai stats` command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the size of the document index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, app.Options{Agent: true})
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			defer a.Close()

			st := a.Assistant.Stats(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Collection : %s\n", st.Collection)
			if !st.Available {
				fmt.Fprintln(out, st.Warning)
				return nil
			}
			fmt.Fprintf(out, "Extraits indexés : %d\n", st.Chunks)
			fmt.Fprintf(out, "Mode agent : %s\n", enabled(a.Assistant.AgentEnabled()))
			return nil
		},
	}
}

func enabled(b bool) string {
	if b {
		return "disponible"
	}
	return "indisponible"
}
