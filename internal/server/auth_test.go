package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/54b3r/budgetai-go/internal/synth"
)

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		apiKey     string
		header     string
		wantStatus int
		wantError  string
	}{
		{"disabled", "", "", http.StatusOK, ""},
		{"missing header", "secret", "", http.StatusUnauthorized, ""},
		{"wrong token", "secret", "Bearer nope", http.StatusUnauthorized, "invalid_token"},
		{"prefix of key", "secret", "Bearer sec", http.StatusUnauthorized, "invalid_token"},
		{"basic scheme", "secret", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"correct", "secret", "Bearer secret", http.StatusOK, ""},
		{"lowercase scheme", "secret", "bearer secret", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := authMiddleware(tt.apiKey, okHandler)
			req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusUnauthorized {
				return
			}
			challenge := w.Header().Get("WWW-Authenticate")
			if !strings.HasPrefix(challenge, `Bearer realm="budgetai"`) || !strings.Contains(challenge, tt.wantError) {
				t.Errorf("WWW-Authenticate = %q", challenge)
			}
			if got := decode[errorResponse](t, w); got.Error == "" {
				t.Error("401 body should be a JSON error")
			}
			if strings.Contains(w.Body.String(), "nope") {
				t.Error("presented token must not be echoed")
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer mytoken", "mytoken", true},
		{"BEARER mytoken", "mytoken", true},
		{"Bearer  spaced ", "spaced", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		if got != tt.want || ok != tt.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func TestRoutes_TokenRequired(t *testing.T) {
	t.Parallel()

	s, _ := newDepsTestServer(t, Deps{
		Assistant:   &fakeTurner{},
		Indexer:     &fakeIndexer{chunks: 1},
		Synthesizer: &fakeSynthesizer{out: &synth.Output{SynthesizedAnswer: "Synthèse"}},
	}, "secret")

	tests := []struct {
		method    string
		path      string
		body      string
		protected bool
	}{
		{http.MethodPost, "/api/chat", `{"message":"Quel est le budget ?"}`, true},
		{http.MethodPost, "/api/index", `{"path":"/docs/loi.pdf"}`, true},
		{http.MethodPost, "/api/synthesize", `{"question":"Q"}`, true},
		{http.MethodGet, "/api/sessions/s1", "", true},
		{http.MethodDelete, "/api/sessions/s1", "", true},
		{http.MethodGet, "/api/presets", "", true},
		{http.MethodGet, "/api/stats", "", true},
		{http.MethodGet, "/api/health", "", false},
		{http.MethodGet, "/api/ready", "", false},
		{http.MethodGet, "/metrics", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()

			send := func(token string) int {
				req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
				if token != "" {
					req.Header.Set("Authorization", "Bearer "+token)
				}
				w := httptest.NewRecorder()
				s.Handler().ServeHTTP(w, req)
				return w.Code
			}

			anon := send("")
			if tt.protected && anon != http.StatusUnauthorized {
				t.Errorf("without token: %d, want 401", anon)
			}
			if !tt.protected && anon == http.StatusUnauthorized {
				t.Error("health and metrics routes must stay open")
			}
			if code := send("secret"); code == http.StatusUnauthorized {
				t.Errorf("with token: %d", code)
			}
		})
	}
}
