package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/54b3r/budgetai-go/internal/app"
	"github.com/54b3r/budgetai-go/internal/assistant"
)

// NewAgentCmd constructs the `budgetai agent` command, which answers one
// question with the tool-using agent.
func NewAgentCmd() *cobra.Command {
	var showTools bool

	cmd := &cobra.Command{
		Use:   "agent <question>",
		Short: "Answer a question with the agent (documents, then web search)",
		Long: `Let a tool-using chat model answer the question. The agent searches
the indexed documents first and falls back to a search restricted to the
ministry's website when the documents do not hold the answer.

Requires MODEL_PROVIDER (and the matching credentials). The web tool is
enabled when SERPER_API_KEY is set.

Examples:
  budgetai agent "Quelles sont les dernières annonces du ministère sur la dette ?"
  budgetai agent --tools "Quel est le taux d'exécution des investissements ?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := openApp(cmd, app.Options{Agent: true, RequireAgent: true})
			if err != nil {
				return fmt.Errorf("agent: %w", err)
			}
			defer a.Close()

			stop := startSpinner("réflexion")
			start := time.Now()
			res, err := a.Agent.Run(ctx, questionArg(args), nil)
			stop()
			if err != nil {
				kind, text := assistant.Classify(err)
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return fmt.Errorf("agent: %s: %w", kind, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.Answer)
			if len(res.Links) > 0 {
				fmt.Fprintln(out, "\nLiens :")
				for _, l := range res.Links {
					fmt.Fprintf(out, "  - %s\n", l)
				}
			}
			if showTools {
				fmt.Fprintln(out, "\nOutils appelés :")
				for _, c := range res.ToolCalls {
					status := "ok"
					if c.Err != nil {
						status = c.Err.Error()
					}
					fmt.Fprintf(out, "  - %s(%q) %d caractères en %s [%s]\n",
						c.Tool, c.Query, c.ResultChars, c.Duration.Round(time.Millisecond), status)
				}
			}
			fmt.Fprintf(out, "\n(%.1f s)\n", time.Since(start).Seconds())
			return nil
		},
	}

	cmd.Flags().BoolVar(&showTools, "tools", false, "List the tool calls made by the agent")

	return cmd
}
