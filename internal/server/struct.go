package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/budgetai-go/internal/assistant"
	"github.com/54b3r/budgetai-go/internal/rag"
	"github.com/54b3r/budgetai-go/internal/session"
	"github.com/54b3r/budgetai-go/internal/synth"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response. It must
	// exceed ChatTimeout.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// ChatTimeout bounds one conversation turn (default: 5m).
	ChatTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks.
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on chat,
	// synthesize and index (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on the protected /api/* routes.
	// If empty, authentication is disabled.
	APIKey string
	// MetricsRegistry receives the server metrics. Defaults to
	// prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer is served on GET /metrics. Defaults to
	// prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// turner runs conversation turns. *assistant.Assistant satisfies it; tests
// inject a fake.
type turner interface {
	Turn(ctx context.Context, log *session.Log, question string, mode session.Mode) session.Message
	AgentEnabled() bool
	Stats(ctx context.Context) assistant.Stats
}

// documentIndexer adds one document to the index. *rag.Indexer satisfies it.
type documentIndexer interface {
	IndexDocument(ctx context.Context, path string, progress rag.Progress) (int, error)
}

// synthesizer merges two retrieval results. *synth.Synthesizer satisfies it.
type synthesizer interface {
	Synthesize(ctx context.Context, question, ragResult, webResult string) (*synth.Output, error)
}

// Deps are the pipelines served over HTTP. Only Assistant is required;
// the index and synthesize routes answer 503 when their dependency is nil.
type Deps struct {
	Assistant   turner
	Indexer     documentIndexer
	Synthesizer synthesizer
	// Sessions defaults to an empty manager.
	Sessions *session.Manager
}

// Server is the HTTP server exposing the assistant.
type Server struct {
	assistant   turner
	indexer     documentIndexer
	synthesizer synthesizer
	sessions    *session.Manager

	cfg        *Config
	httpServer *http.Server
	log        *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /api/chat.
type chatRequest struct {
	// SessionID identifies the conversation; a new one is issued when empty.
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	// Mode is "rag" (default) or "agent".
	Mode string `json:"mode"`
}

// chatResponse is the JSON body returned by POST /api/chat.
type chatResponse struct {
	SessionID      string             `json:"sessionId"`
	Answer         string             `json:"answer"`
	Sources        []session.Citation `json:"sources"`
	ElapsedSeconds float64            `json:"elapsedSeconds"`
	Failed         bool               `json:"failed"`
	Kind           string             `json:"kind,omitempty"`
	Mode           session.Mode       `json:"mode"`
}

// sessionResponse is the JSON body returned by GET /api/sessions/{id}.
type sessionResponse struct {
	SessionID string            `json:"sessionId"`
	Messages  []session.Message `json:"messages"`
}

// indexRequest is the JSON body for POST /api/index.
type indexRequest struct {
	// Path is a document path on the server host.
	Path string `json:"path"`
}

// indexResponse is the JSON body returned by POST /api/index.
type indexResponse struct {
	Path   string `json:"path"`
	Chunks int    `json:"chunks"`
}

// synthesizeRequest is the JSON body for POST /api/synthesize.
type synthesizeRequest struct {
	Question  string `json:"question"`
	RAGResult string `json:"ragResult"`
	WebResult string `json:"webResult"`
}

// presetsResponse is the JSON body returned by GET /api/presets.
type presetsResponse struct {
	Presets      []string `json:"presets"`
	AgentEnabled bool     `json:"agentEnabled"`
}

// errorResponse is the JSON body of every 4xx/5xx answer.
type errorResponse struct {
	Error string `json:"error"`
}
