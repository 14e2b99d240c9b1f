package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric returns the metric of family name whose labels include every
// pair in labels, or nil.
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			return m
		}
	}
	return nil
}

func Test_Metrics_EndpointServesRegistry(t *testing.T) {
	t.Parallel()
	s, _ := newMetricsTestServer(t, &fakeTurner{})

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("want text/plain content-type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "budgetai_chat_in_flight") {
		t.Error("metrics page should list budgetai_chat_in_flight")
	}
}

func Test_Metrics_ChatTurnsCounted(t *testing.T) {
	t.Parallel()

	turner := &fakeTurner{}
	s, reg := newMetricsTestServer(t, turner)
	postJSON(t, s, "/api/chat", `{"sessionId":"s1","message":"Quel est le budget ?"}`)

	turner.failKind = "backend_unavailable"
	postJSON(t, s, "/api/chat", `{"sessionId":"s1","message":"Et la dette ?","mode":"agent"}`)

	ok := findMetric(t, reg, "budgetai_chat_requests_total", map[string]string{"mode": "rag", "outcome": "ok"})
	if ok == nil || ok.GetCounter().GetValue() != 1 {
		t.Errorf("rag/ok counter = %v, want 1", ok)
	}
	failed := findMetric(t, reg, "budgetai_chat_requests_total", map[string]string{"mode": "agent", "outcome": "backend_unavailable"})
	if failed == nil || failed.GetCounter().GetValue() != 1 {
		t.Errorf("agent/backend_unavailable counter = %v, want 1", failed)
	}

	httpTotal := findMetric(t, reg, "budgetai_http_requests_total", map[string]string{"handler": "chat", "code": "200"})
	if httpTotal == nil || httpTotal.GetCounter().GetValue() != 2 {
		t.Errorf("http chat counter = %v, want 2", httpTotal)
	}

	active := findMetric(t, reg, "budgetai_sessions_active", nil)
	if active == nil || active.GetGauge().GetValue() != 1 {
		t.Errorf("sessions_active = %v, want 1", active)
	}

	inFlight := findMetric(t, reg, "budgetai_chat_in_flight", nil)
	if inFlight == nil || inFlight.GetGauge().GetValue() != 0 {
		t.Errorf("in_flight = %v, want 0 after both turns", inFlight)
	}
}
