package server

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/budgetai-go/internal/index"
)

// PingFunc adapts a probe function to the Pinger interface.
type PingFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewPingFunc returns a Pinger named name that runs fn.
func NewPingFunc(name string, fn func(ctx context.Context) error) *PingFunc {
	return &PingFunc{name: name, fn: fn}
}

// Name implements Pinger.
func (p *PingFunc) Name() string { return p.name }

// Ping implements Pinger.
func (p *PingFunc) Ping(ctx context.Context) error { return p.fn(ctx) }

// IndexPinger probes the document index. Backends with a native health check
// (Qdrant) use it; the others answer a Count.
type IndexPinger struct {
	idx index.Index
}

// NewIndexPinger constructs an IndexPinger.
func NewIndexPinger(idx index.Index) *IndexPinger {
	return &IndexPinger{idx: idx}
}

// Name implements Pinger.
func (p *IndexPinger) Name() string { return "index" }

// Ping implements Pinger.
func (p *IndexPinger) Ping(ctx context.Context) error {
	if hc, ok := p.idx.(interface{ Ping(context.Context) error }); ok {
		return hc.Ping(ctx)
	}
	if _, err := p.idx.Count(ctx); err != nil {
		return fmt.Errorf("count failed: %w", err)
	}
	return nil
}

// LLMPinger probes a chat model with a one-word generate call. It consumes
// tokens, so it is registered only when the chat model is the answer
// backend.
type LLMPinger struct {
	model model.BaseChatModel
	name  string
}

// NewLLMPinger constructs an LLMPinger labelled name.
func NewLLMPinger(m model.BaseChatModel, name string) *LLMPinger {
	return &LLMPinger{model: m, name: name}
}

// Name implements Pinger.
func (p *LLMPinger) Name() string { return p.name }

// Ping implements Pinger.
func (p *LLMPinger) Ping(ctx context.Context) error {
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return fmt.Errorf("generate returned nil response")
	}
	return nil
}
