// Package session keeps conversation logs in memory. A log is appended to
// turn by turn and only ever cleared as a whole; nothing is persisted.
package session

import (
	"sync"
	"time"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Mode identifies the pipeline that produced an assistant message.
type Mode string

const (
	// ModeRAG is the single-engine question answering pipeline.
	ModeRAG Mode = "rag"
	// ModeAgent is the tool-using agent.
	ModeAgent Mode = "agent"
)

// ParseMode maps "agent" to ModeAgent and anything else to ModeRAG.
func ParseMode(s string) Mode {
	if Mode(s) == ModeAgent {
		return ModeAgent
	}
	return ModeRAG
}

// Citation points at the material an answer was drawn from: an indexed
// chunk (Source, ChunkIndex, Similarity) or a web link (URL).
type Citation struct {
	Source     string   `json:"source,omitempty"`
	Excerpt    string   `json:"excerpt,omitempty"`
	ChunkIndex int      `json:"chunkIndex"`
	Similarity *float64 `json:"similarity,omitempty"`
	URL        string   `json:"url,omitempty"`
}

// Message is one entry of a conversation log.
type Message struct {
	Role    Role       `json:"role"`
	Content string     `json:"content"`
	Sources []Citation `json:"sources,omitempty"`
	// Elapsed is the answer time in seconds; zero for user messages.
	Elapsed float64 `json:"elapsedSeconds,omitempty"`
	// Failed marks an assistant message reporting an error.
	Failed bool `json:"failed,omitempty"`
	// Kind classifies the failure of a failed message.
	Kind string    `json:"kind,omitempty"`
	Mode Mode      `json:"mode,omitempty"`
	At   time.Time `json:"at"`
}

// Log is an append-only conversation. It is safe for concurrent use.
type Log struct {
	mu   sync.Mutex
	msgs []Message
}

// NewLog returns an empty Log.
func NewLog() *Log { return &Log{} }

// Append adds m, stamping At when unset.
func (l *Log) Append(m Message) {
	if m.At.IsZero() {
		m.At = time.Now()
	}
	l.mu.Lock()
	l.msgs = append(l.msgs, m)
	l.mu.Unlock()
}

// Snapshot returns a copy of the messages in order.
func (l *Log) Snapshot() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.msgs)
}

// Reset clears the whole log.
func (l *Log) Reset() {
	l.mu.Lock()
	l.msgs = nil
	l.mu.Unlock()
}

// Manager maps session ids to logs. Sessions live until deleted; there is
// no eviction. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Log
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Log)}
}

// Get returns the log for id, creating it on first use.
func (m *Manager) Get(id string) *Log {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.sessions[id]
	if !ok {
		l = NewLog()
		m.sessions[id] = l
	}
	return l
}

// Lookup returns the log for id without creating it.
func (m *Manager) Lookup(id string) (*Log, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.sessions[id]
	return l, ok
}

// Reset clears the log for id if it exists.
func (m *Manager) Reset(id string) {
	if l, ok := m.Lookup(id); ok {
		l.Reset()
	}
}

// Delete forgets id.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
