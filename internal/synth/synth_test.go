package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/budgetai-go/internal/prompt"
)

const validReply = `{"synthesizedAnswer": "Les recettes fiscales atteignent 1 234,5 milliards de FCFA.", "sourceDocuments": ["note_execution.pdf", "https://www.finances.gouv.sn/lfi-2025"]}`

type fakeModel struct {
	reply string
	err   error
	seen  []*schema.Message
}

func (f *fakeModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.seen = in
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{"plain", validReply, false},
		{"fenced", "```json\n" + validReply + "\n```", false},
		{"prose around", "Voici la synthèse :\n" + validReply + "\nBonne lecture.", false},
		{"no json", "Je ne sais pas.", true},
		{"broken json", `{"synthesizedAnswer": "x",`, true},
		{"empty answer", `{"synthesizedAnswer": "  ", "sourceDocuments": []}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := Parse(tt.reply)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedOutput) {
					t.Fatalf("err = %v, want ErrMalformedOutput", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if !strings.Contains(out.SynthesizedAnswer, "1 234,5") || len(out.SourceDocuments) != 2 {
				t.Errorf("Parse = %+v", out)
			}
		})
	}
}

func TestParse_MissingSources(t *testing.T) {
	t.Parallel()

	out, err := Parse(`{"synthesizedAnswer": "ok"}`)
	if err != nil {
		t.Fatal(err)
	}
	if out.SourceDocuments == nil {
		t.Error("SourceDocuments must be non-nil")
	}
}

func TestSynthesize(t *testing.T) {
	t.Parallel()

	fm := &fakeModel{reply: validReply}
	s, err := New(fm)
	if err != nil {
		t.Fatal(err)
	}
	out, err := s.Synthesize(context.Background(), "Recettes fiscales ?", "Les recettes fiscales ...", "")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if out.SourceDocuments[1] != "https://www.finances.gouv.sn/lfi-2025" {
		t.Errorf("sources = %v", out.SourceDocuments)
	}

	if len(fm.seen) != 2 || fm.seen[0].Role != schema.System || fm.seen[1].Role != schema.User {
		t.Fatalf("model received %d messages", len(fm.seen))
	}
	if !strings.Contains(fm.seen[1].Content, prompt.EmptySource) {
		t.Error("the empty web block must be flagged in the user message")
	}
}

func TestSynthesize_ModelError(t *testing.T) {
	t.Parallel()

	cause := errors.New("401 unauthorized")
	s, _ := New(&fakeModel{err: cause})
	if _, err := s.Synthesize(context.Background(), "Q ?", "a", "b"); !errors.Is(err, cause) {
		t.Fatalf("err = %v, want wrapped cause", err)
	}
}

func TestNew_NilModel(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Fatal("expected error")
	}
}
