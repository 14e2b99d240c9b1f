package tools

import (
	"context"
	"sync"
	"time"
)

// Call records one tool invocation. Calls are kept only for the duration of
// a turn.
type Call struct {
	Tool        string        `json:"tool"`
	Query       string        `json:"query"`
	ResultChars int           `json:"resultChars"`
	Duration    time.Duration `json:"duration"`
	// Err wraps ErrToolInvocation when the call failed.
	Err error `json:"-"`
}

// Trace collects the calls made during one agent turn. A nil *Trace
// discards records. It is safe for concurrent use.
type Trace struct {
	mu    sync.Mutex
	calls []Call
}

func (t *Trace) record(c Call) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.calls = append(t.calls, c)
	t.mu.Unlock()
}

// Calls returns a copy of the recorded calls in order.
func (t *Trace) Calls() []Call {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// Count returns the number of calls made to the named tool.
func (t *Trace) Count(name string) int {
	n := 0
	for _, c := range t.Calls() {
		if c.Tool == name {
			n++
		}
	}
	return n
}

type traceKey struct{}

// WithTrace returns a context whose tool calls are also recorded in t.
// The agent attaches a fresh Trace per turn this way.
func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

func traceFrom(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey{}).(*Trace)
	return t
}
