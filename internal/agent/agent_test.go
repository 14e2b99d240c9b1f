package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/budgetai-go/internal/rag"
	"github.com/54b3r/budgetai-go/internal/rag/ragtest"
	"github.com/54b3r/budgetai-go/internal/session"
	"github.com/54b3r/budgetai-go/internal/tools"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// scriptedModel plays a model that follows the system prompt: it calls the
// RAG tool first, escalates to the web tool when the RAG observation does
// not contain needle, and then answers from the last observation.
type scriptedModel struct {
	needle string

	mu     sync.Mutex
	inputs [][]*schema.Message
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, in)
	m.mu.Unlock()

	var observations []string
	for _, msg := range in {
		if msg.Role == schema.Tool {
			observations = append(observations, msg.Content)
		}
	}

	switch {
	case len(observations) == 0:
		return toolCall("call_1", tools.RAGToolName, `{"query":"recettes fiscales"}`), nil
	case len(observations) == 1 && !strings.Contains(observations[0], m.needle):
		return toolCall("call_2", tools.WebToolName, `{"question":"recettes fiscales 2025"}`), nil
	default:
		last := observations[len(observations)-1]
		return schema.AssistantMessage("Voici ce que j'ai trouvé :\n"+last, nil), nil
	}
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *scriptedModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func (m *scriptedModel) firstInput() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputs[0]
}

func toolCall(id, name, args string) *schema.Message {
	return schema.AssistantMessage("", []schema.ToolCall{{
		ID:       id,
		Type:     "function",
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

// fakeSearcher returns a fixed result page and counts calls.
type fakeSearcher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeSearcher) Search(_ context.Context, q string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return "1. Loi de finances 2025\n   https://www.finances.gouv.sn/lfi-2025\n   Recettes fiscales prévues.", nil
}

const unrelatedText = "Le calendrier des marées de la côte atlantique est publié chaque semaine " +
	"par le service hydrographique, avec les horaires de pleine mer et de basse mer pour chaque port."

func newAgent(t *testing.T, m model.ToolCallingChatModel, ts ...tools.Tool) *Agent {
	t.Helper()
	a, err := New(context.Background(), &Config{ChatModel: m, Tools: ts})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun_EscalatesToWebWhenDocumentsUnrelated(t *testing.T) {
	t.Parallel()

	r := ragtest.NewRetriever(t, map[string]string{"marees.txt": unrelatedText}, 1000, 100)
	web := &fakeSearcher{}
	m := &scriptedModel{needle: "recettes"}

	a := newAgent(t, m, tools.NewRAGTool(r, 3), tools.NewWebTool(web))
	res, err := a.Run(context.Background(), "Quel est le montant des recettes fiscales ?", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(web.calls) < 1 {
		t.Fatal("web tool was never invoked")
	}
	var ragCalls, webCalls int
	for _, c := range res.ToolCalls {
		switch c.Tool {
		case tools.RAGToolName:
			ragCalls++
		case tools.WebToolName:
			webCalls++
		}
	}
	if ragCalls != 1 || webCalls < 1 {
		t.Errorf("tool calls rag=%d web=%d, want rag=1 web>=1", ragCalls, webCalls)
	}
	if res.ToolCalls[0].Tool != tools.RAGToolName {
		t.Error("RAG tool must be tried first")
	}
	if !slices.Equal(res.Links, []string{"https://www.finances.gouv.sn/lfi-2025"}) {
		t.Errorf("links = %v", res.Links)
	}
}

func TestRun_AnswersFromDocumentsWithoutWeb(t *testing.T) {
	t.Parallel()

	r := ragtest.NewRetriever(t, map[string]string{"note.txt": ragtest.BudgetDocument}, 500, 100)
	web := &fakeSearcher{}
	m := &scriptedModel{needle: ragtest.RevenueFigure}

	res, err := newAgent(t, m, tools.NewRAGTool(r, 3), tools.NewWebTool(web)).
		Run(context.Background(), "Quel est le montant des recettes fiscales ?", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(web.calls) != 0 {
		t.Errorf("web tool invoked %d times; documents were sufficient", len(web.calls))
	}
	if !strings.Contains(res.Answer, ragtest.RevenueFigure) {
		t.Errorf("answer = %q", res.Answer)
	}
	if len(res.ToolCalls) != 1 {
		t.Errorf("tool calls = %d, want 1", len(res.ToolCalls))
	}
}

func TestRun_EmptyIndexEscalates(t *testing.T) {
	t.Parallel()

	r, err := rag.NewRetriever(&ragtest.HashEmbedder{}, ragtest.NewIndex(t), 3)
	if err != nil {
		t.Fatal(err)
	}
	web := &fakeSearcher{}
	res, err := newAgent(t, &scriptedModel{needle: "recettes"}, tools.NewRAGTool(r, 3), tools.NewWebTool(web)).
		Run(context.Background(), "Quelles sont les recettes non fiscales ?", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(web.calls) != 1 {
		t.Errorf("web calls = %d, want 1", len(web.calls))
	}
	if len(res.Links) != 1 {
		t.Errorf("links = %v", res.Links)
	}
}

func TestRun_ToolFailureIsObservation(t *testing.T) {
	t.Parallel()

	r, err := rag.NewRetriever(&ragtest.HashEmbedder{}, ragtest.NewIndex(t), 3)
	if err != nil {
		t.Fatal(err)
	}
	web := &fakeSearcher{err: errors.New("dial tcp: connection refused")}
	res, err := newAgent(t, &scriptedModel{needle: "recettes"}, tools.NewRAGTool(r, 3), tools.NewWebTool(web)).
		Run(context.Background(), "Budget 2026 ?", nil)
	if err != nil {
		t.Fatalf("a tool failure must not fail the turn: %v", err)
	}
	if !strings.Contains(res.Answer, tools.ObservationErrorPrefix) {
		t.Errorf("answer should relay the tool error observation: %q", res.Answer)
	}
	last := res.ToolCalls[len(res.ToolCalls)-1]
	if !errors.Is(last.Err, tools.ErrToolInvocation) {
		t.Errorf("last call err = %v, want ErrToolInvocation", last.Err)
	}
}

func TestRun_ReplaysHistory(t *testing.T) {
	t.Parallel()

	r := ragtest.NewRetriever(t, map[string]string{"note.txt": ragtest.BudgetDocument}, 500, 100)
	m := &scriptedModel{needle: ragtest.RevenueFigure}
	a := newAgent(t, m, tools.NewRAGTool(r, 3), tools.NewWebTool(&fakeSearcher{}))

	history := []session.Message{
		{Role: session.RoleUser, Content: "Bonjour"},
		{Role: session.RoleAssistant, Content: "Bonjour, que voulez-vous savoir ?"},
		{Role: session.RoleUser, Content: "Dépenses ?"},
		{Role: session.RoleAssistant, Content: "Erreur : service indisponible", Failed: true},
	}
	if _, err := a.Run(context.Background(), "Et les recettes fiscales ?", history); err != nil {
		t.Fatalf("Run: %v", err)
	}

	in := m.firstInput()
	if len(in) != 5 {
		t.Fatalf("first model input has %d messages, want system + 3 history + question", len(in))
	}
	if in[0].Role != schema.System || in[0].Content == "" {
		t.Error("first message must be the system prompt")
	}
	if in[4].Content != "Et les recettes fiscales ?" {
		t.Errorf("last message = %q", in[4].Content)
	}
	for _, msg := range in {
		if strings.Contains(msg.Content, "service indisponible") {
			t.Error("failed assistant messages must not be replayed")
		}
	}
}

func TestRun_HistoryTrimmedToBudget(t *testing.T) {
	t.Parallel()

	m := &scriptedModel{needle: "x"}
	a, err := New(context.Background(), &Config{
		ChatModel:        m,
		Tools:            []tools.Tool{tools.NewWebTool(&fakeSearcher{})},
		MaxContextTokens: 1500,
	})
	if err != nil {
		t.Fatal(err)
	}

	var history []session.Message
	for i := range 20 {
		history = append(history, session.Message{Role: session.RoleUser, Content: fmt.Sprintf("%d %s", i, strings.Repeat("mot ", 100))})
	}
	msgs := a.buildMessages(context.Background(), "Q ?", history)
	if len(msgs) >= 22 {
		t.Fatalf("history not trimmed: %d messages", len(msgs))
	}
	if !strings.HasPrefix(msgs[len(msgs)-2].Content, "19 ") {
		t.Error("the most recent history message must be kept")
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(context.Background(), &Config{Tools: []tools.Tool{tools.NewWebTool(&fakeSearcher{})}}); err == nil {
		t.Error("nil model should fail")
	}
	if _, err := New(context.Background(), &Config{ChatModel: &scriptedModel{}}); err == nil {
		t.Error("no tools should fail")
	}
}

func TestRun_BlankQuestion(t *testing.T) {
	t.Parallel()

	a := newAgent(t, &scriptedModel{}, tools.NewWebTool(&fakeSearcher{}))
	if _, err := a.Run(context.Background(), " ", nil); err == nil {
		t.Fatal("expected error")
	}
}

// ---------------------------------------------------------------------------
// ExtractLinks
// ---------------------------------------------------------------------------

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "dedup and sort",
			text: "Voir https://www.vie-publique.sn/b et https://finances.gouv.sn/a puis https://www.vie-publique.sn/b.",
			want: []string{"https://finances.gouv.sn/a", "https://www.vie-publique.sn/b"},
		},
		{
			name: "markdown and punctuation",
			text: "[LFI](https://www.finances.gouv.sn/lfi-2025), (http://vie-publique.sn/dette); fin.",
			want: []string{"http://vie-publique.sn/dette", "https://www.finances.gouv.sn/lfi-2025"},
		},
		{
			name: "balanced parentheses kept",
			text: "Voir (https://fr.wikipedia.org/wiki/Budget_(Sénégal)) et https://finances.gouv.sn/a_(b).",
			want: []string{"https://finances.gouv.sn/a_(b)", "https://fr.wikipedia.org/wiki/Budget_(Sénégal)"},
		},
		{
			name: "query strings kept",
			text: "https://finances.gouv.sn/doc?id=12&lang=fr",
			want: []string{"https://finances.gouv.sn/doc?id=12&lang=fr"},
		},
		{
			name: "none",
			text: "Aucune information trouvée dans les documents indexés.",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractLinks(tt.text); !slices.Equal(got, tt.want) {
				t.Errorf("ExtractLinks = %v, want %v", got, tt.want)
			}
		})
	}
}
