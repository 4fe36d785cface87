package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yndnr/pairhub-go/internal/core/domain"
)

func scrape(t *testing.T, r *Registry) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil || r.Transitions == nil || r.ReadyWait == nil {
		t.Fatal("NewRegistry() left metrics nil")
	}

	body := scrape(t, r)
	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestSessionMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordTransition("IDLE", "INITIALIZING")
	r.RecordTransition("IDLE", "INITIALIZING")
	r.RecordDisconnect("fatal")
	r.RecordReconnect("connected")
	r.RecordLogin("ok")
	r.RecordSend("text", "ok")
	r.ObserveReadyWait(1.5)
	r.IncBroadcastDropped()

	body := scrape(t, r)
	for _, want := range []string{
		`pairhub_session_transitions_total{from="IDLE",to="INITIALIZING"} 2`,
		`pairhub_session_disconnects_total{class="fatal"} 1`,
		`pairhub_session_reconnects_total{result="connected"} 1`,
		`pairhub_session_logins_total{result="ok"} 1`,
		`pairhub_session_sends_total{kind="text",result="ok"} 1`,
		`pairhub_session_ready_wait_seconds_count 1`,
		`pairhub_broadcast_dropped_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s", want)
		}
	}
}

func TestRequestMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordRequest("GET", "/tenants", "200")
	r.ObserveRequestDuration("GET", "/tenants", 0.005)

	body := scrape(t, r)
	if !strings.Contains(body, `pairhub_http_requests_total{code="200",method="GET",route="/tenants"} 1`) {
		t.Error("expected http request counter")
	}
	if !strings.Contains(body, `pairhub_http_request_duration_seconds_count{method="GET",route="/tenants"} 1`) {
		t.Error("expected http duration histogram")
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	r.RecordTransition("a", "b")
	r.RecordDisconnect("fatal")
	r.RecordReconnect("failed")
	r.RecordLogin("ok")
	r.RecordSend("file", "error")
	r.ObserveReadyWait(1)
	r.IncBroadcastDropped()
	r.RecordRequest("GET", "/", "200")
	r.ObserveRequestDuration("GET", "/", 1)
}

type fakeCounter map[domain.Status]int

func (f fakeCounter) CountByStatus() map[domain.Status]int { return f }

func TestCollector(t *testing.T) {
	r := NewRegistry()
	src := fakeCounter{domain.StatusConnected: 3, domain.StatusAwaitingPairing: 1}
	if err := r.RegisterCollector(src); err != nil {
		t.Fatalf("RegisterCollector() error = %v", err)
	}

	body := scrape(t, r)
	for _, want := range []string{
		`pairhub_sessions{status="CONNECTED"} 3`,
		`pairhub_sessions{status="AWAITING_PAIRING"} 1`,
		`pairhub_sessions{status="ERROR"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s", want)
		}
	}
	if strings.Contains(body, `status="NOT_INITIALIZED"`) {
		t.Error("NOT_INITIALIZED should not be reported")
	}
}
