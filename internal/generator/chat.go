package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/budgetai-go/internal/logging"
)

// ChatGenerator sends the prompt as a single user message to an eino chat
// model, typically a hosted backend built by the provider package.
type ChatGenerator struct {
	model   model.BaseChatModel
	name    string
	timeout time.Duration
}

var _ Generator = (*ChatGenerator)(nil)

// NewChat wraps cm. name labels log records; timeout bounds each call
// (default 120s).
func NewChat(cm model.BaseChatModel, name string, timeout time.Duration) *ChatGenerator {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ChatGenerator{model: cm, name: name, timeout: timeout}
}

// Generate performs one non-streaming chat completion.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	msg, err := g.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", classify(g.name, err)
	}
	if msg == nil {
		return "", fmt.Errorf("%w: %s: empty response", ErrGeneration, g.name)
	}

	logging.FromContext(ctx).Info("generator: chat response",
		slog.String("model", g.name),
		slog.Int("answer_chars", len(msg.Content)),
		slog.Duration("duration", time.Since(start)),
	)
	return msg.Content, nil
}
