package session

import (
	"fmt"
	"sync"
	"testing"
)

func TestLog_AppendSnapshotReset(t *testing.T) {
	t.Parallel()

	l := NewLog()
	l.Append(Message{Role: RoleUser, Content: "Quel est le montant des recettes fiscales ?"})
	l.Append(Message{Role: RoleAssistant, Content: "1 234,5 milliards", Elapsed: 1.5, Mode: ModeRAG})

	snap := l.Snapshot()
	if len(snap) != 2 || l.Len() != 2 {
		t.Fatalf("len = %d/%d, want 2", len(snap), l.Len())
	}
	if snap[0].Role != RoleUser || snap[1].Role != RoleAssistant {
		t.Error("messages out of order")
	}
	if snap[0].At.IsZero() {
		t.Error("Append must stamp At")
	}

	snap[0].Content = "modifié"
	if l.Snapshot()[0].Content == "modifié" {
		t.Error("Snapshot must return a copy")
	}

	l.Reset()
	if l.Len() != 0 {
		t.Errorf("len after Reset = %d", l.Len())
	}
}

func TestLog_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	l := NewLog()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(Message{Role: RoleUser, Content: fmt.Sprint(i)})
		}()
	}
	wg.Wait()
	if l.Len() != 50 {
		t.Errorf("len = %d, want 50", l.Len())
	}
}

func TestManager(t *testing.T) {
	t.Parallel()

	m := NewManager()
	a := m.Get("a")
	a.Append(Message{Role: RoleUser, Content: "x"})

	if m.Get("a") != a {
		t.Error("Get must return the same log for the same id")
	}
	if _, ok := m.Lookup("b"); ok {
		t.Error("Lookup must not create sessions")
	}

	m.Reset("a")
	if a.Len() != 0 {
		t.Error("Reset must clear the log")
	}
	m.Reset("absent")

	m.Delete("a")
	if m.Len() != 0 {
		t.Errorf("Len = %d after Delete", m.Len())
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	cases := map[string]Mode{"agent": ModeAgent, "rag": ModeRAG, "": ModeRAG, "AGENT": ModeRAG}
	for in, want := range cases {
		if got := ParseMode(in); got != want {
			t.Errorf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}
}
