// Package commands defines all Cobra CLI commands for the budgetai binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/budgetai-go/internal/audit"
	"github.com/54b3r/budgetai-go/internal/config"
	"github.com/54b3r/budgetai-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "budgetai",
		Short: "Assistant for questions on public budget documents",
		Long: `budgetai answers questions about budget documents (finance laws,
execution reports, budget notes) from a local vector index.

Two answer modes are available:
  rag    retrieve the most relevant passage and let the model answer from it
  agent  let a tool-using model search the documents, then the ministry's
         website when the documents are not enough

Settings come from environment variables or a YAML config file
(~/.budgetai/config.yaml). See 'budgetai --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Env vars always override YAML values.
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			audit.LogCommandStart(log, cmd.Name(), path)

			cmd.SetContext(logging.WithLogger(cmd.Context(), log))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.budgetai/config.yaml)")

	root.AddCommand(
		NewIndexCmd(),
		NewAskCmd(),
		NewAgentCmd(),
		NewSearchCmd(),
		NewSynthesizeCmd(),
		NewChatCmd(),
		NewStatsCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
