package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/apnsconn/internal/core/domain"
	"github.com/yndnr/apnsconn/internal/core/service"
	"github.com/yndnr/apnsconn/internal/server/httpserver/handler"
	"github.com/yndnr/apnsconn/internal/telemetry/metric"
)

type stubSource struct {
	reloads int
}

func (s *stubSource) Status() service.ConnectionStatus {
	return service.ConnectionStatus{State: service.StateDisabled}
}

func (s *stubSource) GetConnection() (service.Connection, error) {
	return nil, domain.ErrNotConnected
}

func (s *stubSource) Reload(context.Context) error {
	s.reloads++
	return domain.ErrInvalidConfiguration.WithDetails("no configuration to reload")
}

func TestNew(t *testing.T) {
	s := New(":8080", okHandler())
	if s == nil {
		t.Fatal("New returned nil")
	}
	if s.httpServer.ReadHeaderTimeout != DefaultReadHeaderTimeout {
		t.Errorf("ReadHeaderTimeout = %v", s.httpServer.ReadHeaderTimeout)
	}
	if s.Addr() != ":8080" {
		t.Errorf("Addr() = %q before Listen", s.Addr())
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s := New("127.0.0.1:0", okHandler())
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	if strings.HasSuffix(s.Addr(), ":0") {
		t.Fatalf("Addr() = %q, want the bound port", s.Addr())
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Serve()
	}()

	resp, err := http.Get("http://" + s.Addr() + "/")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Serve returned %v after Shutdown, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for Serve to return")
	}
}

func TestServer_ListenError(t *testing.T) {
	s := New("127.0.0.1:-1", okHandler())
	if err := s.Listen(); err == nil || errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Listen() error = %v, want listen error", err)
	}
}

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()
	if cfg.GlobalRateLimit <= 0 {
		t.Error("GlobalRateLimit should be positive")
	}
	if len(cfg.AdminAllowList) == 0 {
		t.Error("AdminAllowList should restrict admin routes to loopback")
	}
}

func TestNewRouter(t *testing.T) {
	src := &stubSource{}
	reg := metric.NewRegistry()
	router := NewRouter(&RouterConfig{
		Source:         src,
		Metrics:        reg,
		Logger:         discardLogger(),
		AdminAllowList: []string{"127.0.0.1"},
	})

	do := func(method, path, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("health", func(t *testing.T) {
		rec := do("GET", "/health", "10.0.0.1:1")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID missing")
		}
		if !strings.HasPrefix(rec.Header().Get("Server"), "apnsconn/") {
			t.Errorf("Server = %q", rec.Header().Get("Server"))
		}
	})

	t.Run("ready while disabled", func(t *testing.T) {
		rec := do("GET", "/ready", "10.0.0.1:1")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
		var resp handler.Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Code != domain.CodeNotConnected {
			t.Errorf("code = %q", resp.Code)
		}
		if resp.RequestID == "" || resp.RequestID != rec.Header().Get("X-Request-ID") {
			t.Errorf("request_id = %q, header = %q", resp.RequestID, rec.Header().Get("X-Request-ID"))
		}
	})

	t.Run("status", func(t *testing.T) {
		rec := do("GET", "/status", "10.0.0.1:1")
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"state":"disabled"`) {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rec := do("GET", "/metrics", "10.0.0.1:1")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		body, _ := io.ReadAll(rec.Body)
		for _, name := range []string{"apnsconn_connection_up", "apnsconn_http_requests_total"} {
			if !strings.Contains(string(body), name) {
				t.Errorf("metrics output missing %s", name)
			}
		}
	})

	t.Run("reload denied outside allowlist", func(t *testing.T) {
		before := src.reloads
		rec := do("POST", "/admin/v1/reload", "10.0.0.1:1")
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rec.Code)
		}
		if src.reloads != before {
			t.Error("Reload called for denied client")
		}
	})

	t.Run("reload from loopback", func(t *testing.T) {
		before := src.reloads
		rec := do("POST", "/admin/v1/reload", "127.0.0.1:1")
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", rec.Code)
		}
		if src.reloads != before+1 {
			t.Error("Reload not called")
		}
	})

	t.Run("unknown route", func(t *testing.T) {
		rec := do("GET", "/sessions", "10.0.0.1:1")
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestNewRouter_NilConfig(t *testing.T) {
	router := NewRouter(nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
