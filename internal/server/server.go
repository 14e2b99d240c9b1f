// Package server exposes the budget assistant over a JSON HTTP API: chat
// turns in document or agent mode, session history, index statistics,
// document indexing and two-source synthesis.
// The server is started by the `budgetai serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/54b3r/budgetai-go/internal/assistant"
	"github.com/54b3r/budgetai-go/internal/index"
	"github.com/54b3r/budgetai-go/internal/loader"
	"github.com/54b3r/budgetai-go/internal/logging"
	"github.com/54b3r/budgetai-go/internal/rag"
	"github.com/54b3r/budgetai-go/internal/session"
	"github.com/54b3r/budgetai-go/internal/synth"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// New constructs a Server from deps and cfg.
func New(deps Deps, cfg *Config) (*Server, error) {
	if deps.Assistant == nil {
		return nil, fmt.Errorf("server: assistant must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.ChatTimeout == 0 {
		cfg.ChatTimeout = 5 * time.Minute
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = cfg.ChatTimeout + 30*time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.DefaultRegisterer
	}
	if cfg.MetricsGatherer == nil {
		cfg.MetricsGatherer = prometheus.DefaultGatherer
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewManager()
	}

	s := &Server{
		assistant:   deps.Assistant,
		indexer:     deps.Indexer,
		synthesizer: deps.Synthesizer,
		sessions:    deps.Sessions,
		cfg:         cfg,
		log:         cfg.Logger,
		pingers:     cfg.Pingers,
		metrics:     newServerMetrics(cfg.MetricsRegistry, deps.Sessions),
	}

	rl, stop := newRateLimiter(cfg.RateLimit, cfg.RateBurst, s.log)
	s.stopRL = stop

	protect := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, authMiddleware(cfg.APIKey, h))
	}
	limited := func(name string, h http.HandlerFunc) http.Handler {
		return s.instrument(name, authMiddleware(cfg.APIKey, rl.middleware(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/chat", limited("chat", s.handleChat))
	mux.Handle("POST /api/synthesize", limited("synthesize", s.handleSynthesize))
	mux.Handle("POST /api/index", limited("index", s.handleIndex))
	mux.Handle("GET /api/sessions/{id}", protect("session", s.handleGetSession))
	mux.Handle("DELETE /api/sessions/{id}", protect("session", s.handleDeleteSession))
	mux.Handle("GET /api/presets", protect("presets", s.handlePresets))
	mux.Handle("GET /api/stats", protect("stats", s.handleStats))
	mux.Handle("GET /api/health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /api/ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsGatherer, promhttp.HandlerOpts{}))

	if cfg.APIKey == "" {
		s.log.Warn("server: BUDGETAI_API_KEY not set, authentication disabled")
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(s.log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	defer s.stopRL()
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		s.log.Info("server: stopped")
		return nil
	}
}

// handleChat handles POST /api/chat. The turn's failure, if any, is part of
// the 200 response: the message is recorded in the session like an answer.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	question := strings.TrimSpace(req.Message)
	if question == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	switch session.Mode(req.Mode) {
	case "", session.ModeRAG, session.ModeAgent:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown mode %q", req.Mode))
		return
	}
	mode := session.ParseMode(req.Mode)
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	s.metrics.chatInFlight.Inc()
	defer s.metrics.chatInFlight.Dec()

	msg := s.assistant.Turn(ctx, s.sessions.Get(req.SessionID), question, mode)

	outcome := "ok"
	if msg.Failed {
		outcome = msg.Kind
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
	}
	s.metrics.chatRequestsTotal.WithLabelValues(string(mode), outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(string(mode)).Observe(msg.Elapsed)

	sources := msg.Sources
	if sources == nil {
		sources = []session.Citation{}
	}
	writeJSON(w, http.StatusOK, chatResponse{
		SessionID:      req.SessionID,
		Answer:         msg.Content,
		Sources:        sources,
		ElapsedSeconds: msg.Elapsed,
		Failed:         msg.Failed,
		Kind:           msg.Kind,
		Mode:           mode,
	})
}

// handleGetSession handles GET /api/sessions/{id}.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	log, ok := s.sessions.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: id, Messages: log.Snapshot()})
}

// handleDeleteSession handles DELETE /api/sessions/{id}. Deleting an
// unknown session is not an error.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

// handlePresets handles GET /api/presets.
func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, presetsResponse{
		Presets:      assistant.Presets(),
		AgentEnabled: s.assistant.AgentEnabled(),
	})
}

// handleStats handles GET /api/stats. An unavailable index is reported in
// the body, not as an error status.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.assistant.Stats(r.Context()))
}

// handleIndex handles POST /api/index.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.indexer == nil {
		writeError(w, http.StatusServiceUnavailable, "indexing is not available")
		return
	}
	var req indexRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	if !loader.IsSupported(req.Path) {
		writeError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("unsupported document format %q (accepted: %s)", filepath.Ext(req.Path), strings.Join(loader.Supported, ", ")))
		return
	}

	n, err := s.indexer.IndexDocument(r.Context(), req.Path, nil)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, index.ErrDuplicateKey):
			status = http.StatusConflict
		case errors.Is(err, rag.ErrNoChunks), errors.Is(err, loader.ErrUnsupportedFormat):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, index.ErrUnavailable):
			status = http.StatusServiceUnavailable
		}
		logging.FromContext(r.Context()).Warn("index request failed",
			slog.String("source", req.Path),
			slog.Any("error", err),
		)
		writeError(w, status, err.Error())
		return
	}
	s.metrics.indexedChunksTotal.Add(float64(n))
	writeJSON(w, http.StatusOK, indexResponse{Path: req.Path, Chunks: n})
}

// handleSynthesize handles POST /api/synthesize.
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if s.synthesizer == nil {
		writeError(w, http.StatusServiceUnavailable, "synthesis requires MODEL_PROVIDER")
		return
	}
	var req synthesizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ChatTimeout)
	defer cancel()

	out, err := s.synthesizer.Synthesize(ctx, req.Question, req.RAGResult, req.WebResult)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, synth.ErrMalformedOutput) {
			status = http.StatusUnprocessableEntity
		}
		logging.FromContext(r.Context()).Warn("synthesize request failed", slog.Any("error", err))
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a size-capped JSON body into v, answering 400 itself on
// failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
