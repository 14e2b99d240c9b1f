package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/54b3r/budgetai-go/internal/assistant"
	"github.com/54b3r/budgetai-go/internal/session"
)

// echoAssistant answers every question by repeating it.
type echoAssistant struct {
	agent bool
	modes []session.Mode
}

func (e *echoAssistant) Turn(_ context.Context, log *session.Log, q string, mode session.Mode) session.Message {
	e.modes = append(e.modes, mode)
	log.Append(session.Message{Role: session.RoleUser, Content: q, Mode: mode})
	msg := session.Message{Role: session.RoleAssistant, Content: "écho : " + q, Mode: mode}
	log.Append(msg)
	return msg
}

func (e *echoAssistant) AgentEnabled() bool { return e.agent }

func runScript(t *testing.T, a chatAssistant, mode session.Mode, lines ...string) string {
	t.Helper()
	var out strings.Builder
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	if err := runChat(context.Background(), in, &out, a, mode); err != nil {
		t.Fatalf("runChat: %v", err)
	}
	return out.String()
}

func TestRunChat_PresetByNumber(t *testing.T) {
	t.Parallel()

	a := &echoAssistant{}
	out := runScript(t, a, session.ModeRAG, "1", "/quit")

	if !strings.Contains(out, "écho : "+assistant.Presets()[0]) {
		t.Errorf("preset 1 was not asked:\n%s", out)
	}
	if len(a.modes) != 1 || a.modes[0] != session.ModeRAG {
		t.Errorf("turns = %v", a.modes)
	}
}

func TestRunChat_OutOfRangePreset(t *testing.T) {
	t.Parallel()

	a := &echoAssistant{}
	out := runScript(t, a, session.ModeRAG, "9")
	if len(a.modes) != 0 || !strings.Contains(out, "entre 1 et 5") {
		t.Errorf("out-of-range preset should be refused:\n%s", out)
	}
}

func TestRunChat_HistoryAndReset(t *testing.T) {
	t.Parallel()

	out := runScript(t, &echoAssistant{}, session.ModeRAG,
		"Quel est le déficit ?", "/history", "/reset", "/history")

	if strings.Count(out, "Vous : Quel est le déficit ?") != 1 {
		t.Errorf("history should list the question once:\n%s", out)
	}
	if !strings.Contains(out, "Conversation effacée.") || !strings.Contains(out, "Aucun message.") {
		t.Errorf("reset did not clear the log:\n%s", out)
	}
}

func TestRunChat_ModeSwitch(t *testing.T) {
	t.Parallel()

	disabled := &echoAssistant{}
	out := runScript(t, disabled, session.ModeRAG, "/mode agent", "Q")
	if !strings.Contains(out, "pas disponible") || disabled.modes[0] != session.ModeRAG {
		t.Errorf("agent mode should be refused without a chat model:\n%s", out)
	}

	enabled := &echoAssistant{agent: true}
	runScript(t, enabled, session.ModeRAG, "/mode agent", "Q", "/mode rag", "Q")
	if len(enabled.modes) != 2 || enabled.modes[0] != session.ModeAgent || enabled.modes[1] != session.ModeRAG {
		t.Errorf("modes = %v, want [agent rag]", enabled.modes)
	}
}

func TestRunChat_UnknownCommand(t *testing.T) {
	t.Parallel()

	out := runScript(t, &echoAssistant{}, session.ModeRAG, "/bogus")
	if !strings.Contains(out, "Commande inconnue") {
		t.Errorf("unknown command not reported:\n%s", out)
	}
}
