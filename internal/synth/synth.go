// Package synth merges a document retrieval result and a web search result
// into one answer with a chat model instructed to reply in JSON.
package synth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/budgetai-go/internal/logging"
	"github.com/54b3r/budgetai-go/internal/prompt"
)

// ErrMalformedOutput is returned when the model reply holds no usable JSON
// object.
var ErrMalformedOutput = errors.New("synth: malformed model output")

// Output is the structured synthesis.
type Output struct {
	SynthesizedAnswer string   `json:"synthesizedAnswer"`
	SourceDocuments   []string `json:"sourceDocuments"`
}

// Synthesizer calls the chat model once per synthesis.
type Synthesizer struct {
	model model.BaseChatModel
}

// New constructs a Synthesizer over cm.
func New(cm model.BaseChatModel) (*Synthesizer, error) {
	if cm == nil {
		return nil, fmt.Errorf("synth: chat model must not be nil")
	}
	return &Synthesizer{model: cm}, nil
}

// Synthesize answers question from ragResult and webResult. Blank inputs
// are marked with prompt.EmptySource so the model reports them.
func (s *Synthesizer) Synthesize(ctx context.Context, question, ragResult, webResult string) (*Output, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("synth: question must not be empty")
	}
	start := time.Now()

	msg, err := s.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(prompt.SynthesizerSystem),
		schema.UserMessage(prompt.Synthesis(question, ragResult, webResult)),
	})
	if err != nil {
		return nil, fmt.Errorf("synth: generate failed: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedOutput)
	}

	out, err := Parse(msg.Content)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("synth: completed",
		slog.Int("sources", len(out.SourceDocuments)),
		slog.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// Parse extracts the Output object from a model reply. Markdown code
// fences and text around the object are tolerated.
func Parse(reply string) (*Output, error) {
	body := strings.TrimSpace(reply)
	start := strings.IndexByte(body, '{')
	end := strings.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object in reply", ErrMalformedOutput)
	}

	out := &Output{}
	if err := json.Unmarshal([]byte(body[start:end+1]), out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	if strings.TrimSpace(out.SynthesizedAnswer) == "" {
		return nil, fmt.Errorf("%w: synthesizedAnswer is empty", ErrMalformedOutput)
	}
	if out.SourceDocuments == nil {
		out.SourceDocuments = []string{}
	}
	return out, nil
}
