// Package app builds the runtime of one budgetai process from the
// environment: the index, embedder, retriever and indexer, the answer
// engine and, when a chat model is configured, the agent and synthesizer.
// Commands and the HTTP server receive the handle explicitly.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"

	"github.com/54b3r/budgetai-go/internal/agent"
	"github.com/54b3r/budgetai-go/internal/assistant"
	"github.com/54b3r/budgetai-go/internal/budget"
	"github.com/54b3r/budgetai-go/internal/chunker"
	"github.com/54b3r/budgetai-go/internal/config"
	"github.com/54b3r/budgetai-go/internal/embedder"
	"github.com/54b3r/budgetai-go/internal/engine"
	"github.com/54b3r/budgetai-go/internal/generator"
	"github.com/54b3r/budgetai-go/internal/index"
	"github.com/54b3r/budgetai-go/internal/logging"
	"github.com/54b3r/budgetai-go/internal/provider"
	"github.com/54b3r/budgetai-go/internal/rag"
	"github.com/54b3r/budgetai-go/internal/synth"
	"github.com/54b3r/budgetai-go/internal/tools"
	"github.com/54b3r/budgetai-go/internal/tracing"
	"github.com/54b3r/budgetai-go/internal/websearch"
)

// synthTemperature keeps the synthesis close to its sources.
const synthTemperature = 0.1

// Options selects the optional parts of the runtime.
type Options struct {
	// Agent builds the chat model, the agent and the synthesizer.
	Agent bool
	// RequireAgent makes a chat model failure fatal instead of a warning.
	RequireAgent bool
	// Tracing registers the Langfuse callback handler when configured.
	Tracing bool
	// RequireIndex makes an unreachable index fatal. Otherwise the process
	// starts degraded and every index call fails with index.ErrUnavailable.
	RequireIndex bool
}

// App is the runtime handle. Fields left nil are not configured.
type App struct {
	Log *slog.Logger

	Embedder  embedder.Embedder
	Index     index.Index
	Retriever *rag.Retriever
	Indexer   *rag.Indexer
	Generator generator.Generator
	Engine    *engine.Engine

	Provider    *provider.Config
	ChatModel   model.ToolCallingChatModel
	Web         websearch.Searcher
	Agent       *agent.Agent
	Synthesizer *synth.Synthesizer

	Assistant *assistant.Assistant

	closers []func() error
}

// New builds the runtime. On error everything built so far is released.
func New(ctx context.Context, log *slog.Logger, opts Options) (_ *App, err error) {
	if log == nil {
		log = logging.New()
	}
	ctx = logging.WithLogger(ctx, log)
	a := &App{Log: log}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if opts.Tracing {
		if handler, flush, ok := tracing.Setup(); ok {
			callbacks.AppendGlobalHandlers(handler)
			a.closers = append(a.closers, func() error { flush(); return nil })
			log.Info("langfuse tracing enabled")
		}
	}

	if err := embedder.Validate(log); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	if a.Embedder, err = embedder.NewFromEnv(); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	backend := embedder.Backend()

	settings := index.SettingsFromEnv(embedder.DefaultDimensions(backend))
	idx, openErr := index.OpenFrom(ctx, settings)
	switch {
	case openErr == nil:
		a.Index = idx
		a.closers = append(a.closers, idx.Close)
		log.Info("index opened",
			slog.String("backend", settings.Backend),
			slog.String("collection", settings.Collection),
			slog.String("embedder", backend),
		)
	case errors.Is(openErr, index.ErrUnavailable) && !opts.RequireIndex:
		a.Index = index.NewOffline(settings.Collection, openErr)
		log.Warn("index unavailable, running without documents",
			slog.String("backend", settings.Backend),
			slog.String("collection", settings.Collection),
			slog.String("error", openErr.Error()),
		)
	default:
		return nil, fmt.Errorf("app: %w", openErr)
	}

	if a.Retriever, err = rag.NewRetriever(a.Embedder, a.Index, config.Int("RAG_TOP_K", engine.DefaultTopK)); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.Indexer, err = rag.NewIndexer(a.Embedder, a.Index, rag.IndexerConfig{
		ChunkSize:    config.Int("CHUNK_SIZE", chunker.DefaultSize),
		ChunkOverlap: config.Int("CHUNK_OVERLAP", chunker.DefaultOverlap),
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	needChat := opts.Agent || generator.Backend() == "chat"
	if needChat {
		if err := a.buildChatModel(ctx); err != nil {
			if opts.RequireAgent || generator.Backend() == "chat" {
				return nil, err
			}
			log.Warn("chat model unavailable, agent mode disabled", slog.String("error", err.Error()))
		}
	}

	var chat model.BaseChatModel
	if a.ChatModel != nil {
		chat = a.ChatModel
	}
	if a.Generator, err = generator.NewFromEnv(chat, a.providerModel()); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.Engine, err = engine.New(engine.Config{
		Retriever: a.Retriever,
		Generator: a.Generator,
		TopK:      config.Int("RAG_TOP_K", engine.DefaultTopK),
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	if opts.Agent && a.ChatModel != nil {
		if err := a.buildAgent(ctx); err != nil {
			return nil, err
		}
	}

	cfg := assistant.Config{Engine: a.Engine, Index: a.Index, Collection: a.Index.Name()}
	if a.Agent != nil {
		cfg.Agent = a.Agent
	}
	if a.Assistant, err = assistant.New(cfg); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	return a, nil
}

func (a *App) buildChatModel(ctx context.Context) error {
	cfg := provider.FromEnv()
	cm, err := provider.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("app: chat model: %w", err)
	}
	a.Provider = cfg
	a.ChatModel = cm
	a.Log.Info("chat model initialised",
		slog.String("provider", string(cfg.Backend)),
		slog.String("model", cfg.ModelName()),
	)
	return nil
}

func (a *App) buildAgent(ctx context.Context) error {
	agentTools := []tools.Tool{
		tools.NewRAGTool(a.Retriever, config.Int("AGENT_RAG_TOP_K", tools.DefaultRAGTopK)),
	}

	web, err := websearch.NewFromEnv()
	switch {
	case errors.Is(err, websearch.ErrNotConfigured):
		a.Log.Warn("web search disabled", slog.String("reason", "SERPER_API_KEY not set"))
	case err != nil:
		return fmt.Errorf("app: %w", err)
	default:
		a.Web = web
		agentTools = append(agentTools, tools.NewWebTool(web))
	}

	ag, err := agent.New(ctx, &agent.Config{
		ChatModel:        a.ChatModel,
		Tools:            agentTools,
		MaxStep:          config.Int("AGENT_MAX_STEP", agent.DefaultMaxStep),
		MaxContextTokens: config.Int("MODEL_MAX_CONTEXT", budget.DefaultMaxContextTokens),
	})
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.Agent = ag

	synthCfg := *a.Provider
	synthCfg.Tuning.Temperature = synthTemperature
	synthModel, err := provider.New(ctx, &synthCfg)
	if err != nil {
		return fmt.Errorf("app: synthesizer model: %w", err)
	}
	if a.Synthesizer, err = synth.New(synthModel); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	a.Log.Info("agent initialised", slog.Any("tools", ag.Tools()))
	return nil
}

func (a *App) providerModel() string {
	if a.Provider == nil {
		return ""
	}
	return a.Provider.ModelName()
}

// Close releases resources in reverse construction order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
