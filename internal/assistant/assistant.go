// Package assistant runs one conversation turn: it records the question,
// answers it with the document engine or the agent, and records the answer
// or a readable failure. The CLI chat and the HTTP API share it.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/54b3r/budgetai-go/internal/agent"
	"github.com/54b3r/budgetai-go/internal/engine"
	"github.com/54b3r/budgetai-go/internal/logging"
	"github.com/54b3r/budgetai-go/internal/session"
)

// Answerer is the document question-answering pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string) (*engine.Answer, error)
}

// AgentRunner is the tool-using pipeline.
type AgentRunner interface {
	Run(ctx context.Context, question string, history []session.Message) (*agent.Result, error)
}

// Counter reports the number of indexed chunks.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Config holds the pipelines of an Assistant.
type Config struct {
	Engine Answerer
	// Agent may be nil; agent turns then fail with ErrAgentNotConfigured.
	Agent AgentRunner
	// Index may be nil; Stats then reports it unavailable.
	Index Counter
	// Collection names the searched collection in Stats.
	Collection string
}

// Assistant is safe for concurrent use; turns of one session must be
// sequential.
type Assistant struct {
	engine     Answerer
	agent      AgentRunner
	index      Counter
	collection string
}

// New constructs an Assistant.
func New(cfg Config) (*Assistant, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("assistant: Engine must not be nil")
	}
	return &Assistant{engine: cfg.Engine, agent: cfg.Agent, index: cfg.Index, collection: cfg.Collection}, nil
}

// AgentEnabled reports whether agent turns can run.
func (a *Assistant) AgentEnabled() bool { return a.agent != nil }

// Turn appends question to log, answers it in mode, appends and returns
// the assistant message. Failures become failed assistant messages; Turn
// never returns an error.
func (a *Assistant) Turn(ctx context.Context, log *session.Log, question string, mode session.Mode) session.Message {
	history := log.Snapshot()
	log.Append(session.Message{Role: session.RoleUser, Content: question, Mode: mode})

	start := time.Now()
	content, sources, err := a.answer(ctx, question, mode, history)
	elapsed := time.Since(start).Seconds()

	msg := session.Message{Role: session.RoleAssistant, Mode: mode, Elapsed: elapsed}
	if err != nil {
		kind, text := Classify(err)
		msg.Content = text
		msg.Failed = true
		msg.Kind = string(kind)
		logging.FromContext(ctx).Warn("assistant: turn failed",
			slog.String("mode", string(mode)),
			slog.String("kind", string(kind)),
			slog.Bool("retryable", kind.Retryable()),
			slog.String("error", err.Error()),
		)
	} else {
		msg.Content = content
		msg.Sources = sources
		logging.FromContext(ctx).Info("assistant: turn completed",
			slog.String("mode", string(mode)),
			slog.Int("sources", len(sources)),
			slog.Float64("elapsed_seconds", elapsed),
		)
	}
	log.Append(msg)
	return msg
}

func (a *Assistant) answer(ctx context.Context, question string, mode session.Mode, history []session.Message) (string, []session.Citation, error) {
	if mode == session.ModeAgent {
		if a.agent == nil {
			return "", nil, ErrAgentNotConfigured
		}
		res, err := a.agent.Run(ctx, question, history)
		if err != nil {
			return "", nil, err
		}
		cites := make([]session.Citation, len(res.Links))
		for i, l := range res.Links {
			cites[i] = session.Citation{URL: l}
		}
		return res.Answer, cites, nil
	}

	ans, err := a.engine.Answer(ctx, question)
	if err != nil {
		return "", nil, err
	}
	cites := make([]session.Citation, len(ans.Sources))
	for i, s := range ans.Sources {
		sim := s.Similarity
		cites[i] = session.Citation{Source: s.Source, Excerpt: s.Excerpt, ChunkIndex: s.ChunkIndex, Similarity: &sim}
	}
	return ans.Text, cites, nil
}

// Presets returns the suggested questions offered to new users.
func Presets() []string {
	return []string{
		"Quel est le montant des recettes fiscales ?",
		"Comment ont évolué les dépenses publiques ?",
		"Quels sont les principaux ministères du budget ?",
		"Quelle est la situation budgétaire du premier trimestre ?",
		"Quelles sont les recettes non fiscales ?",
	}
}

// Stats describes the document index.
type Stats struct {
	Collection string `json:"collection"`
	Chunks     int    `json:"chunks"`
	Available  bool   `json:"available"`
	// Warning is set when the index could not be read.
	Warning string `json:"warning,omitempty"`
}

// Stats reports the chunk count. An unreadable index degrades to a warning
// instead of an error.
func (a *Assistant) Stats(ctx context.Context) Stats {
	st := Stats{Collection: a.collection}
	if a.index == nil {
		st.Warning = "Base documentaire non chargée."
		return st
	}
	n, err := a.index.Count(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("assistant: stats unavailable", slog.String("error", err.Error()))
		st.Warning = fmt.Sprintf("Base documentaire indisponible : %v", err)
		return st
	}
	st.Chunks = n
	st.Available = true
	return st
}
