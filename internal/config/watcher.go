package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls the config file so a running server can pick up edits
// without a restart. Reloadable settings are the ones [Diff] reports: the
// log level and the assessment defaults (grade, language). Listener address
// and provider wiring still require a restart.
//
// Polling is deliberate: it keeps fsnotify out of the dependency set and a
// few-second delay is irrelevant for a file an operator edits by hand.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	mu      sync.Mutex
	current *Config
	// lastRaw holds the bytes of the last good load; reloads compare
	// against it so touching the file without editing it stays silent.
	lastRaw   []byte
	lastMtime time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path and starts polling it in a background
// goroutine. onChange runs after every accepted reload with the previous and
// the new config; an edit that fails validation is logged and discarded, so
// a bad save never takes down a server mid-session.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, raw, mtime, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastRaw = raw
	w.lastMtime = mtime

	go w.loop()
	return w, nil
}

// Current returns the most recently accepted config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends the polling goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.reload()
		}
	}
}

// reload re-reads the file when its mtime moved and swaps the config in if
// the content actually changed and still validates.
func (w *Watcher) reload() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()

	if info.ModTime().Equal(mtime) {
		return
	}

	cfg, raw, newMtime, err := w.read()
	if err != nil {
		slog.Warn("config watcher: edit rejected, keeping previous config",
			"path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if bytes.Equal(raw, w.lastRaw) {
		w.lastMtime = newMtime
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.lastRaw = raw
	w.lastMtime = newMtime
	w.mu.Unlock()

	slog.Info("config watcher: configuration reloaded", "path", w.path)

	// Callback runs outside the lock so it may call Current().
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}

// read loads and validates the file once, returning the parsed config with
// the raw bytes and mtime used for change detection.
func (w *Watcher) read() (*Config, []byte, time.Time, error) {
	f, err := os.Open(w.path)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, time.Time{}, err
	}

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, time.Time{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, nil, time.Time{}, err
	}

	return cfg, raw, info.ModTime(), nil
}
