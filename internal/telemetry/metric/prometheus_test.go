package metric

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/apnsconn/internal/core/service"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	return string(body)
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.registry == nil {
		t.Error("registry field is nil")
	}
	if r.ConnectionUp == nil {
		t.Error("ConnectionUp is nil")
	}
	if r.EnableAttempts == nil {
		t.Error("EnableAttempts is nil")
	}
	if r.EnableDuration == nil {
		t.Error("EnableDuration is nil")
	}
	if r.RequestsTotal == nil {
		t.Error("RequestsTotal is nil")
	}
}

func TestGlobal(t *testing.T) {
	if Global() != Global() {
		t.Error("Global() should return the same instance")
	}
}

func TestRegistry_RuntimeCollectors(t *testing.T) {
	body := scrape(t, NewRegistry().Handler())

	if !strings.Contains(body, "go_goroutines") {
		t.Error("expected go_goroutines metric")
	}
	if !strings.Contains(body, "process_") {
		t.Error("expected process metrics")
	}
}

func TestLifecycleMetrics(t *testing.T) {
	r := NewRegistry()

	r.ObserveEnable(service.OutcomeSuccess, 20*time.Millisecond)
	r.SetConnected(true)
	r.ObserveEnable(service.OutcomeCredentialLoad, time.Millisecond)
	r.ObserveEnable(service.OutcomeCredentialLoad, time.Millisecond)

	body := scrape(t, r.Handler())

	for _, want := range []string{
		"apnsconn_connection_up 1",
		`apnsconn_enable_attempts_total{outcome="success"} 1`,
		`apnsconn_enable_attempts_total{outcome="credential_load"} 2`,
		`apnsconn_enable_attempts_total{outcome="connection_build"} 0`,
		"apnsconn_enable_duration_seconds_count 3",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in output", want)
		}
	}

	r.ObserveDisable()
	r.SetConnected(false)

	body = scrape(t, r.Handler())
	if !strings.Contains(body, "apnsconn_connection_up 0") {
		t.Error("expected apnsconn_connection_up 0")
	}
	if !strings.Contains(body, "apnsconn_disables_total 1") {
		t.Error("expected apnsconn_disables_total 1")
	}
}

func TestCredentialReloadMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordCredentialReload("success")
	r.RecordCredentialReload("failure")
	r.RecordCredentialReload("success")

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `apnsconn_credential_reloads_total{result="success"} 2`) {
		t.Error(`expected apnsconn_credential_reloads_total{result="success"} 2`)
	}
	if !strings.Contains(body, `apnsconn_credential_reloads_total{result="failure"} 1`) {
		t.Error(`expected apnsconn_credential_reloads_total{result="failure"} 1`)
	}
}

func TestRequestMetrics(t *testing.T) {
	r := NewRegistry()

	r.RecordRequest("/ready", "GET", "200")
	r.RecordRequest("/ready", "GET", "503")
	r.ObserveRequestDuration("/ready", "GET", 0.001)

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `apnsconn_http_requests_total{method="GET",path="/ready",status="200"} 1`) {
		t.Error("expected apnsconn_http_requests_total for /ready 200")
	}
	if !strings.Contains(body, "apnsconn_http_request_duration_seconds_count") {
		t.Error("expected apnsconn_http_request_duration_seconds_count")
	}
}

func TestConcurrentMetricUpdates(t *testing.T) {
	r := NewRegistry()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				r.ObserveEnable(service.OutcomeSuccess, time.Millisecond)
				r.SetConnected(j%2 == 0)
				r.RecordRequest("/status", "GET", "200")
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	body := scrape(t, r.Handler())
	if !strings.Contains(body, `apnsconn_enable_attempts_total{outcome="success"} 1000`) {
		t.Error("expected 1000 successful enable attempts")
	}
}
