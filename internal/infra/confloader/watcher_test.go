package confloader

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := NewWatcher(WithWatcherLogger(logger))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestNewWatcher(t *testing.T) {
	w := newTestWatcher(t)

	if w.watcher == nil {
		t.Error("NewWatcher() watcher is nil")
	}
	if w.done == nil {
		t.Error("NewWatcher() done channel is nil")
	}
	if w.logger == nil {
		t.Error("NewWatcher() logger is nil")
	}
}

func TestWatcher_Watch_NonexistentDir(t *testing.T) {
	w := newTestWatcher(t)

	if err := w.Watch("/nonexistent/dir/apnsconn.yaml"); err == nil {
		t.Error("Watch() should fail for a missing directory")
	}
}

func TestWatcher_OnChange_MultipleCallbacks(t *testing.T) {
	w := newTestWatcher(t)

	var count int
	var mu sync.Mutex
	for i := 0; i < 3; i++ {
		w.OnChange(func(path string) {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}

	w.notifyCallbacks("/etc/apnsconn/apnsconn.yaml")

	mu.Lock()
	defer mu.Unlock()
	if count != 3 {
		t.Errorf("callbacks called %d times, want 3", count)
	}
}

func TestWatcher_StopIdempotent(t *testing.T) {
	w := newTestWatcher(t)
	w.StartAsync()

	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_FileChange(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "apnsconn.yaml")
	writeFile(t, configFile, "log:\n  level: info\n")

	w := newTestWatcher(t)
	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) {
		select {
		case changed <- path:
		default:
		}
	})
	w.StartAsync()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, configFile, "log:\n  level: debug\n")

	select {
	case path := <-changed:
		if filepath.Clean(path) != filepath.Clean(configFile) {
			t.Errorf("callback path = %q, want %q", path, configFile)
		}
	case <-time.After(2 * time.Second):
		t.Error("OnChange() callback was not triggered within timeout")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "apnsconn.yaml")
	writeFile(t, configFile, "log:\n  level: info\n")

	w := newTestWatcher(t)
	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) {
		changed <- path
	})
	w.StartAsync()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, filepath.Join(dir, "unrelated.txt"), "noise")

	select {
	case path := <-changed:
		t.Errorf("unexpected callback for %q", path)
	case <-time.After(300 * time.Millisecond):
	}
}
