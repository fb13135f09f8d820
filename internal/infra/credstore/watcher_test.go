package credstore

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/apnsconn/internal/tests/gatewaytest"
)

func TestNewWatcher(t *testing.T) {
	pki := gatewaytest.NewPKI(t)
	path := pki.WriteBundle(t, t.TempDir(), "push.p12", "com.example.app", "secret")

	w, err := NewWatcher(path, "secret")
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.Info().Topic != "com.example.app" {
		t.Errorf("Info().Topic = %q, want %q", w.Info().Topic, "com.example.app")
	}
}

func TestNewWatcher_WrongPassword(t *testing.T) {
	pki := gatewaytest.NewPKI(t)
	path := pki.WriteBundle(t, t.TempDir(), "push.p12", "com.example.app", "secret")

	if _, err := NewWatcher(path, "nope"); err == nil {
		t.Error("NewWatcher() expected error for wrong password")
	}
}

func TestNewWatcher_NonexistentFile(t *testing.T) {
	if _, err := NewWatcher("/nonexistent/push.p12", ""); err == nil {
		t.Error("NewWatcher() expected error for nonexistent file")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	pki := gatewaytest.NewPKI(t)
	path := pki.WriteBundle(t, t.TempDir(), "push.p12", "com.example.app", "")

	w, err := NewWatcher(path, "",
		WithLogger(slog.Default()),
		WithDebounce(100*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	w.StartAsync()
	time.Sleep(50 * time.Millisecond)

	// Stop should not block and is idempotent.
	w.Stop()
	w.Stop()
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	pki := gatewaytest.NewPKI(t)
	dir := t.TempDir()
	path := pki.WriteBundle(t, dir, "push.p12", "com.example.app", "secret")

	w, err := NewWatcher(path, "secret", WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	var changes atomic.Int32
	w.OnChange(func(changed string) {
		if changed != path {
			t.Errorf("callback path = %q, want %q", changed, path)
		}
		changes.Add(1)
	})

	w.StartAsync()
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	pki.WriteBundle(t, dir, "push.p12", "com.example.other", "secret")

	deadline := time.Now().Add(3 * time.Second)
	for changes.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if changes.Load() == 0 {
		t.Fatal("OnChange callback not invoked after bundle rewrite")
	}
	if got := w.Info().Topic; got != "com.example.other" {
		t.Errorf("Info().Topic = %q, want %q", got, "com.example.other")
	}
}

func TestWatcher_IgnoresUndecodableBundle(t *testing.T) {
	pki := gatewaytest.NewPKI(t)
	dir := t.TempDir()
	path := pki.WriteBundle(t, dir, "push.p12", "com.example.app", "secret")

	w, err := NewWatcher(path, "secret", WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	var changes atomic.Int32
	w.OnChange(func(string) { changes.Add(1) })

	w.StartAsync()
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("truncated"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	time.Sleep(500 * time.Millisecond)

	if changes.Load() != 0 {
		t.Errorf("callback invoked %d times for an undecodable bundle", changes.Load())
	}
	if got := w.Info().Topic; got != "com.example.app" {
		t.Errorf("Info().Topic = %q, want last good bundle", got)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	pki := gatewaytest.NewPKI(t)
	dir := t.TempDir()
	path := pki.WriteBundle(t, dir, "push.p12", "com.example.app", "")

	w, err := NewWatcher(path, "", WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	var changes atomic.Int32
	w.OnChange(func(string) { changes.Add(1) })

	w.StartAsync()
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	if changes.Load() != 0 {
		t.Errorf("callback invoked for unrelated file")
	}
}

func TestWatcher_ReloadLimit(t *testing.T) {
	pki := gatewaytest.NewPKI(t)
	dir := t.TempDir()
	path := pki.WriteBundle(t, dir, "push.p12", "com.example.app", "")

	w, err := NewWatcher(path, "",
		WithDebounce(time.Millisecond),
		WithReloadLimit(time.Hour, 1),
	)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	var changes atomic.Int32
	w.OnChange(func(string) { changes.Add(1) })

	for i := 0; i < 3; i++ {
		wait, err := w.reload()
		if err != nil {
			t.Fatalf("reload() error = %v", err)
		}
		if i == 0 && wait != 0 {
			t.Errorf("reload() #%d wait = %v, want 0", i, wait)
		}
		if i > 0 && wait <= 0 {
			t.Errorf("reload() #%d wait = %v, want a retry delay", i, wait)
		}
	}

	if got := changes.Load(); got != 1 {
		t.Errorf("callbacks = %d, want 1 with a burst of 1", got)
	}
}

func TestWatcher_RotationWrittenInTwoSteps(t *testing.T) {
	pki := gatewaytest.NewPKI(t)
	dir := t.TempDir()
	path := pki.WriteBundle(t, dir, "push.p12", "com.example.app", "secret")

	w, err := NewWatcher(path, "secret", WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	var changes atomic.Int32
	w.OnChange(func(string) { changes.Add(1) })

	w.StartAsync()
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	next := pki.BundleBytes(t, "com.example.rotated", "secret")
	if err := os.WriteFile(path, next[:len(next)/2], 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := os.WriteFile(path, next, 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	waitFor(t, 3*time.Second, func() bool { return changes.Load() > 0 })
	if got := w.Info().Topic; got != "com.example.rotated" {
		t.Errorf("Info().Topic = %q, want %q", got, "com.example.rotated")
	}
}

func TestWatcher_ThrottledRotationDeliveredLater(t *testing.T) {
	pki := gatewaytest.NewPKI(t)
	dir := t.TempDir()
	path := pki.WriteBundle(t, dir, "push.p12", "com.example.app", "")

	w, err := NewWatcher(path, "",
		WithDebounce(20*time.Millisecond),
		WithReloadLimit(300*time.Millisecond, 1),
	)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	var changes atomic.Int32
	w.OnChange(func(string) { changes.Add(1) })

	w.StartAsync()
	defer w.Stop()
	time.Sleep(100 * time.Millisecond)

	pki.WriteBundle(t, dir, "push.p12", "com.example.first", "")
	waitFor(t, 3*time.Second, func() bool { return changes.Load() >= 1 })

	pki.WriteBundle(t, dir, "push.p12", "com.example.second", "")
	waitFor(t, 3*time.Second, func() bool { return w.Info().Topic == "com.example.second" })

	if got := changes.Load(); got < 2 {
		t.Errorf("callbacks = %d, want the throttled change delivered", got)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatcher_Options(t *testing.T) {
	pki := gatewaytest.NewPKI(t)
	path := pki.WriteBundle(t, t.TempDir(), "push.p12", "com.example.app", "")

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	w, err := NewWatcher(path, "",
		WithLogger(logger),
		WithDebounce(200*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if w.logger != logger {
		t.Error("WithLogger() option not applied")
	}
	if w.debounce != 200*time.Millisecond {
		t.Errorf("WithDebounce() option not applied, got %v", w.debounce)
	}
}
