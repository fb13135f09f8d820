package credstore

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// Watcher watches a credential bundle and reports when a new, decodable
// version has been written. Bundles that fail to decode are logged and
// ignored so a half-written file never replaces a working credential.
type Watcher struct {
	path     string
	password string
	loader   *BundleLoader

	mu        sync.RWMutex
	info      BundleInfo
	callbacks []func(path string)

	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger

	// A change is reported once the file has been quiet for debounce.
	debounce time.Duration
	limiter  *rate.Limiter
}

// maxDecodeRetries bounds how often an undecodable bundle is re-read
// without a further write event.
const maxDecodeRetries = 3

// minRetryDelay is the wait before re-reading an undecodable bundle when
// debounce is shorter.
const minRetryDelay = 100 * time.Millisecond

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithDebounce sets the debounce duration.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithReloadLimit caps how often a change may be reported: at most burst
// reloads, refilled once per every.
func WithReloadLimit(every time.Duration, burst int) WatcherOption {
	return func(w *Watcher) {
		w.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// NewWatcher creates a watcher for the bundle at path. The bundle must
// decode with password at creation time.
func NewWatcher(path, password string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		password: password,
		loader:   NewBundleLoader(),
		done:     make(chan struct{}),
		logger:   slog.Default(),
		debounce: 500 * time.Millisecond,
		limiter:  rate.NewLimiter(rate.Every(10*time.Second), 3),
	}

	for _, opt := range opts {
		opt(w)
	}

	cert, err := w.loader.Load(path, password)
	if err != nil {
		return nil, fmt.Errorf("credstore: initial load: %w", err)
	}
	w.info = Describe(cert)

	return w, nil
}

// OnChange registers a callback invoked after a changed bundle has been
// decoded successfully.
func (w *Watcher) OnChange(callback func(path string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Info returns the description of the last good bundle.
func (w *Watcher) Info() BundleInfo {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.info
}

// Start starts watching for bundle changes.
// This function blocks until Stop() is called.
func (w *Watcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("credstore: create watcher: %w", err)
	}

	// Watch the directory, not the file, to catch atomic renames.
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("credstore: watch dir %s: %w", dir, err)
	}

	w.logger.Info("credential watcher started", "credential_path", w.path)

	base := filepath.Base(w.path)

	var (
		timer    *time.Timer
		fire     <-chan time.Time
		failures int
	)
	schedule := func(d time.Duration) {
		if timer == nil {
			timer = time.NewTimer(d)
		} else {
			timer.Reset(d)
		}
		fire = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			w.logger.Debug("credential bundle changed",
				"file", event.Name,
				"op", event.Op.String(),
			)

			failures = 0
			schedule(w.debounce)

		case <-fire:
			fire = nil

			wait, err := w.reload()
			switch {
			case err != nil:
				failures++
				if failures > maxDecodeRetries {
					w.logger.Error("credential reload failed, waiting for next change",
						"error", err,
						"credential_path", w.path,
					)
					continue
				}
				w.logger.Warn("credential reload failed, retrying",
					"error", err,
					"credential_path", w.path,
					"attempt", failures,
				)
				schedule(max(w.debounce, minRetryDelay))
			case wait > 0:
				w.logger.Warn("credential reload throttled",
					"credential_path", w.path,
					"retry_in", wait,
				)
				schedule(wait)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("credential watcher error",
				"error", err,
				"credential_path", w.path,
			)

		case <-w.done:
			return watcher.Close()
		}
	}
}

// StartAsync starts watching in a goroutine.
func (w *Watcher) StartAsync() {
	go func() {
		if err := w.Start(); err != nil {
			w.logger.Error("credential watcher stopped with error", "error", err)
		}
	}()
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// reload decodes the bundle and reports it to the callbacks. When the
// reload limit is exhausted nothing is reported and the returned
// duration says how long to wait before trying again.
func (w *Watcher) reload() (time.Duration, error) {
	cert, err := w.loader.Load(w.path, w.password)
	if err != nil {
		return 0, err
	}

	r := w.limiter.Reserve()
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return d, nil
	}

	info := Describe(cert)

	w.mu.Lock()
	w.info = info
	callbacks := slices.Clone(w.callbacks)
	w.mu.Unlock()

	w.logger.Info("credential bundle reloaded",
		"credential_path", w.path,
		"subject", info.Subject,
		"not_after", info.NotAfter,
	)

	for _, cb := range callbacks {
		cb(w.path)
	}
	return 0, nil
}
