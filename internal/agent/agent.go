// Package agent is the tool-using assistant. An Eino ReAct loop lets the
// chat model decide, turn by turn, whether to search the indexed budget
// documents, the official ministry websites, or to answer.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/budgetai-go/internal/budget"
	"github.com/54b3r/budgetai-go/internal/logging"
	"github.com/54b3r/budgetai-go/internal/prompt"
	"github.com/54b3r/budgetai-go/internal/session"
	"github.com/54b3r/budgetai-go/internal/tools"
)

const (
	// DefaultMaxStep bounds the number of graph steps of one turn.
	DefaultMaxStep = 12

	defaultHistoryDepth = 10
)

// Config holds the dependencies required to construct an Agent.
type Config struct {
	// ChatModel is the tool-calling backend built by the provider factory.
	ChatModel model.ToolCallingChatModel

	// Tools are exposed to the model in order.
	Tools []tools.Tool

	// MaxStep defaults to DefaultMaxStep when zero.
	MaxStep int

	// HistoryDepth is the number of prior turns (user+assistant pairs)
	// replayed per question. Defaults to 10.
	HistoryDepth int

	// MaxContextTokens is the estimated input budget. History is trimmed
	// oldest-first to fit. Defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int
}

// Result is the outcome of one agent turn.
type Result struct {
	Answer string `json:"answer"`
	// Links are the URLs cited in Answer, deduplicated and sorted.
	Links     []string     `json:"links"`
	ToolCalls []tools.Call `json:"toolCalls"`
}

// Agent wraps the Eino ReAct agent. It is safe for concurrent use: each
// Run records its tool calls in its own trace.
type Agent struct {
	reactAgent       *react.Agent
	toolNames        []string
	historyDepth     int
	maxContextTokens int
}

// New constructs an Agent from cfg.
func New(ctx context.Context, cfg *Config) (*Agent, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("agent: ChatModel must not be nil")
	}
	if len(cfg.Tools) == 0 {
		return nil, fmt.Errorf("agent: at least one tool is required")
	}

	baseTools := make([]tool.BaseTool, len(cfg.Tools))
	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		baseTools[i] = tools.Adapt(t, nil)
		names[i] = t.Name()
	}

	maxStep := cfg.MaxStep
	if maxStep <= 0 {
		maxStep = DefaultMaxStep
	}

	reactAgent, err := react.NewAgent(ctx, &react.AgentConfig{
		ToolCallingModel: cfg.ChatModel,
		ToolsConfig: compose.ToolsNodeConfig{
			Tools: baseTools,
		},
		MaxStep: maxStep,
	})
	if err != nil {
		return nil, fmt.Errorf("agent: failed to create ReAct agent: %w", err)
	}

	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = defaultHistoryDepth
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}

	return &Agent{
		reactAgent:       reactAgent,
		toolNames:        names,
		historyDepth:     depth,
		maxContextTokens: maxCtx,
	}, nil
}

// Tools returns the names of the registered tools.
func (a *Agent) Tools() []string {
	return append([]string(nil), a.toolNames...)
}

// Run answers question. history is the conversation so far, oldest first;
// failed assistant messages are not replayed.
func (a *Agent) Run(ctx context.Context, question string, history []session.Message) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("agent: question must not be empty")
	}

	log := logging.FromContext(ctx)
	start := time.Now()

	trace := &tools.Trace{}
	ctx = tools.WithTrace(ctx, trace)

	msg, err := a.reactAgent.Generate(ctx, a.buildMessages(ctx, question, history))
	if err != nil {
		return nil, fmt.Errorf("agent: generate failed: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("agent: model returned no message")
	}

	res := &Result{
		Answer:    msg.Content,
		Links:     ExtractLinks(msg.Content),
		ToolCalls: trace.Calls(),
	}
	log.Info("agent: answered",
		slog.Int("tool_calls", len(res.ToolCalls)),
		slog.Int("links", len(res.Links)),
		slog.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// buildMessages returns [system, ...history, user] with history trimmed to
// the context budget.
func (a *Agent) buildMessages(ctx context.Context, question string, history []session.Message) []*schema.Message {
	system := schema.SystemMessage(prompt.AgentSystem)
	user := schema.UserMessage(question)

	var prior []*schema.Message
	for _, m := range history {
		if m.Failed || strings.TrimSpace(m.Content) == "" {
			continue
		}
		switch m.Role {
		case session.RoleUser:
			prior = append(prior, schema.UserMessage(m.Content))
		case session.RoleAssistant:
			prior = append(prior, schema.AssistantMessage(m.Content, nil))
		}
	}
	if n := a.historyDepth * 2; len(prior) > n {
		prior = prior[len(prior)-n:]
	}

	before := len(prior)
	prior = budget.TrimHistory([]*schema.Message{system, user}, prior, a.maxContextTokens)
	if dropped := before - len(prior); dropped > 0 {
		logging.FromContext(ctx).Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(prior)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	out := make([]*schema.Message, 0, len(prior)+2)
	out = append(out, system)
	out = append(out, prior...)
	return append(out, user)
}
