package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/54b3r/budgetai-go/internal/websearch"
)

// fakeTool returns out or err and remembers the last query.
type fakeTool struct {
	out  string
	err  error
	last string
}

func (f *fakeTool) Name() string        { return "fake_tool" }
func (f *fakeTool) Description() string { return "fake" }
func (f *fakeTool) Invoke(_ context.Context, q string) (string, error) {
	f.last = q
	return f.out, f.err
}

type fakeRetriever struct {
	k   int
	out string
	err error
}

func (f *fakeRetriever) RetrieveContext(_ context.Context, _ string, k int) (string, error) {
	f.k = k
	return f.out, f.err
}

type fakeSearcher struct{ query string }

func (f *fakeSearcher) Search(_ context.Context, q string) (string, error) {
	f.query = q
	return "1. Budget\n   https://www.finances.gouv.sn/budget\n   ...", nil
}

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

func TestAdapter_Info(t *testing.T) {
	t.Parallel()

	info, err := Adapt(NewRAGTool(&fakeRetriever{}, 0), nil).Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Name != RAGToolName {
		t.Errorf("Name = %q", info.Name)
	}
	if info.ParamsOneOf == nil {
		t.Error("tool must declare its query parameter")
	}
}

func TestAdapter_ArgumentForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args string
		want string
	}{
		{"query", `{"query":"recettes fiscales"}`, "recettes fiscales"},
		{"question", `{"question":"dépenses publiques"}`, "dépenses publiques"},
		{"both prefers query", `{"query":"a","question":"b"}`, "a"},
		{"bare string", `"dette"`, "dette"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ft := &fakeTool{out: "ok"}
			got, err := Adapt(ft, nil).InvokableRun(context.Background(), tt.args)
			if err != nil || got != "ok" {
				t.Fatalf("InvokableRun = %q, %v", got, err)
			}
			if ft.last != tt.want {
				t.Errorf("tool received %q, want %q", ft.last, tt.want)
			}
		})
	}
}

func TestAdapter_FailureBecomesObservation(t *testing.T) {
	t.Parallel()

	trace := &Trace{}
	ft := &fakeTool{err: websearch.ErrUnavailable}
	got, err := Adapt(ft, trace).InvokableRun(context.Background(), `{"query":"q"}`)
	if err != nil {
		t.Fatalf("a failing tool must not abort the agent: %v", err)
	}
	if !strings.HasPrefix(got, ObservationErrorPrefix) {
		t.Errorf("observation = %q, want %s prefix", got, ObservationErrorPrefix)
	}

	calls := trace.Calls()
	if len(calls) != 1 {
		t.Fatalf("recorded %d calls, want 1", len(calls))
	}
	if !errors.Is(calls[0].Err, ErrToolInvocation) || !errors.Is(calls[0].Err, websearch.ErrUnavailable) {
		t.Errorf("call error = %v, want ErrToolInvocation wrapping the cause", calls[0].Err)
	}
}

func TestAdapter_InvalidArguments(t *testing.T) {
	t.Parallel()

	tests := []string{`{}`, `{"query":"  "}`, `not json`}
	for _, args := range tests {
		ft := &fakeTool{out: "ok"}
		got, err := Adapt(ft, nil).InvokableRun(context.Background(), args)
		if err != nil {
			t.Fatalf("InvokableRun(%q) returned error %v", args, err)
		}
		if !strings.HasPrefix(got, ObservationErrorPrefix) {
			t.Errorf("InvokableRun(%q) = %q, want error observation", args, got)
		}
		if ft.last != "" {
			t.Errorf("tool invoked for invalid arguments %q", args)
		}
	}
}

func TestAdapter_RecordsInContextTrace(t *testing.T) {
	t.Parallel()

	own, turn := &Trace{}, &Trace{}
	a := Adapt(&fakeTool{out: "résultat"}, own)
	ctx := WithTrace(context.Background(), turn)

	if _, err := a.InvokableRun(ctx, `{"query":"q"}`); err != nil {
		t.Fatal(err)
	}
	if own.Count("fake_tool") != 1 || turn.Count("fake_tool") != 1 {
		t.Errorf("counts own=%d turn=%d, want 1 each", own.Count("fake_tool"), turn.Count("fake_tool"))
	}
	if c := turn.Calls()[0]; c.ResultChars != len("résultat") || c.Query != "q" {
		t.Errorf("call = %+v", c)
	}

	// The same trace in both places is recorded once.
	same := &Trace{}
	if _, err := Adapt(&fakeTool{out: "x"}, same).InvokableRun(WithTrace(context.Background(), same), `{"query":"q"}`); err != nil {
		t.Fatal(err)
	}
	if same.Count("fake_tool") != 1 {
		t.Errorf("count = %d, want 1", same.Count("fake_tool"))
	}
}

func TestTrace_Nil(t *testing.T) {
	t.Parallel()

	var tr *Trace
	tr.record(Call{Tool: "x"})
	if tr.Calls() != nil || tr.Count("x") != 0 {
		t.Error("nil trace must discard records")
	}
}

// ---------------------------------------------------------------------------
// Tools
// ---------------------------------------------------------------------------

func TestRAGTool(t *testing.T) {
	t.Parallel()

	r := &fakeRetriever{out: "Les recettes fiscales ..."}
	tool := NewRAGTool(r, 0)
	got, err := tool.Invoke(context.Background(), "recettes")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != r.out || r.k != DefaultRAGTopK {
		t.Errorf("Invoke = %q with k=%d", got, r.k)
	}

	r.err = errors.New("index down")
	if _, err := tool.Invoke(context.Background(), "recettes"); err == nil {
		t.Error("expected retriever error")
	}
}

func TestWebTool(t *testing.T) {
	t.Parallel()

	s := &fakeSearcher{}
	m := websearch.NewMinistere(s)
	got, err := NewWebTool(m).Invoke(context.Background(), "budget 2026")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if s.query != websearch.Restrict("budget 2026") {
		t.Errorf("search query = %q, want restricted query", s.query)
	}
	if !strings.Contains(got, "finances.gouv.sn") {
		t.Errorf("Invoke = %q", got)
	}
}
