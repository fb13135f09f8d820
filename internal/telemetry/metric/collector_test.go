package metric

import (
	"strings"
	"testing"
	"time"
)

func TestCredentialCollector(t *testing.T) {
	notBefore := time.Unix(1700000000, 0)
	notAfter := time.Unix(1731536000, 0)
	loaded := true

	r := NewRegistry()
	err := r.Register(NewCollector(func() (time.Time, time.Time, bool) {
		return notBefore, notAfter, loaded
	}))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	body := scrape(t, r.Handler())
	if !strings.Contains(body, "apnsconn_credential_not_after_timestamp_seconds 1.731536e+09") {
		t.Errorf("expected not_after metric, got:\n%s", body)
	}
	if !strings.Contains(body, "apnsconn_credential_not_before_timestamp_seconds 1.7e+09") {
		t.Error("expected not_before metric")
	}

	loaded = false
	body = scrape(t, r.Handler())
	if strings.Contains(body, "apnsconn_credential_not_after_timestamp_seconds") {
		t.Error("no credential metric expected when nothing is loaded")
	}
}

func TestCredentialCollector_NilSource(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewCollector(nil)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	scrape(t, r.Handler())
}
