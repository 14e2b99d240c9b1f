package commands

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/54b3r/budgetai-go/internal/app"
	"github.com/54b3r/budgetai-go/internal/config"
	"github.com/54b3r/budgetai-go/internal/generator"
	"github.com/54b3r/budgetai-go/internal/logging"
	"github.com/54b3r/budgetai-go/internal/server"
)

// NewServeCmd constructs the `budgetai serve` command, which starts the
// JSON HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the budgetai HTTP API",
		Long: `Start the HTTP API on localhost.

Routes:
  POST   /api/chat            {sessionId, message, mode} -> answer and sources
  GET    /api/sessions/{id}   conversation history
  DELETE /api/sessions/{id}   forget a conversation
  GET    /api/presets         suggested questions
  GET    /api/stats           index size
  POST   /api/index           {path} index a document on the server host
  POST   /api/synthesize      {question, ragResult, webResult}
  GET    /api/health          liveness
  GET    /api/ready           dependency readiness
  GET    /metrics             Prometheus metrics

Set BUDGETAI_API_KEY to require a Bearer token on /api/* (except health
and ready).

Examples:
  budgetai serve
  budgetai serve --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			log := logging.FromContext(ctx)

			a, err := app.New(ctx, log, app.Options{Agent: true, Tracing: true})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer a.Close()

			deps := server.Deps{Assistant: a.Assistant, Indexer: a.Indexer}
			if a.Synthesizer != nil {
				deps.Synthesizer = a.Synthesizer
			}

			if !cmd.Flags().Changed("host") {
				host = config.String("BUDGETAI_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = config.Int("BUDGETAI_PORT", port)
			}

			srv, err := server.New(deps, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: buildPingers(a, log),
				APIKey:  config.String("BUDGETAI_API_KEY", ""),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}

// buildPingers registers a readiness probe for the index and the answer
// backend. The chat model is probed only when it generates RAG answers,
// since its probe consumes tokens.
func buildPingers(a *app.App, log *slog.Logger) []server.Pinger {
	pingers := []server.Pinger{server.NewIndexPinger(a.Index)}

	switch g := a.Generator.(type) {
	case *generator.OllamaGenerator:
		pingers = append(pingers, server.NewPingFunc("generator", g.Ping))
	default:
		if a.ChatModel != nil {
			pingers = append(pingers, server.NewLLMPinger(a.ChatModel, "chat_model"))
		}
	}

	names := make([]string, len(pingers))
	for i, p := range pingers {
		names[i] = p.Name()
	}
	log.Info("readiness probes registered", slog.Any("probes", names))
	return pingers
}
