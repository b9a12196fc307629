// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"log/slog"
	"os"
	"reflect"
	"sync"
	"time"
)

// Change is delivered to watchers after a successful reload.
type Change struct {
	Previous *Config
	Current  *Config
}

// LogChanged reports whether the log level changed. The format is fixed at
// startup because it selects the handler.
func (c Change) LogChanged() bool {
	return c.Previous.Log.Level != c.Current.Log.Level
}

// PromptSyncChanged reports whether the prompt sync target or policy changed.
func (c Change) PromptSyncChanged() bool {
	return c.Previous.PromptSync != c.Current.PromptSync
}

// RestartRequired lists the sections that changed but only take effect on
// the next start.
func (c Change) RestartRequired() []string {
	var out []string
	if c.Previous.Server != c.Current.Server {
		out = append(out, "server")
	}
	if c.Previous.Log.Format != c.Current.Log.Format {
		out = append(out, "log.format")
	}
	if c.Previous.Storage != c.Current.Storage {
		out = append(out, "storage")
	}
	if !reflect.DeepEqual(c.Previous.Telemetry, c.Current.Telemetry) {
		out = append(out, "telemetry")
	}
	if c.Previous.Seed != c.Current.Seed {
		out = append(out, "seed")
	}
	return out
}

// Watcher polls the config file, and the active profile file, and reloads
// the configuration when either is modified. Reloads apply the same profile
// and command line overrides as the initial load. A reload that fails to
// parse or validate is logged and the previous configuration is kept.
type Watcher struct {
	path      string
	profile   string
	overrides map[string]string
	interval  time.Duration
	logger    *slog.Logger

	mu        sync.RWMutex
	current   *Config
	modTimes  map[string]time.Time
	listeners []func(Change)

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets the polling interval.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchProfile layers config.<profile>.yaml over the base file.
func WithWatchProfile(profile string) WatcherOption {
	return func(w *Watcher) { w.profile = profile }
}

// WithWatchOverrides reapplies --set style overrides on every reload.
func WithWatchOverrides(overrides map[string]string) WatcherOption {
	return func(w *Watcher) { w.overrides = overrides }
}

// WithWatchLogger sets the logger.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher loads path and prepares to watch it. Call Start to begin polling.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: time.Second,
		logger:   slog.Default(),
		modTimes: make(map[string]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, err := load(w.path, w.profile, w.overrides)
	if err != nil {
		return nil, err
	}
	w.current = cfg
	_ = w.modified()
	return w, nil
}

// WatchConfig creates a watcher for path and starts it. It returns the
// watcher and the initial configuration.
func WatchConfig(ctx context.Context, path string, opts ...WatcherOption) (*Watcher, *Config, error) {
	w, err := NewWatcher(path, opts...)
	if err != nil {
		return nil, nil, err
	}
	w.Start(ctx)
	return w, w.Config(), nil
}

// OnChange registers fn to run after every successful reload.
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Config returns the current configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Paths returns the files being watched.
func (w *Watcher) Paths() []string {
	paths := []string{w.path}
	if p := profileConfigPath(w.path, w.profile); p != "" {
		paths = append(paths, p)
	}
	return paths
}

// Start polls until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
				if w.modified() {
					w.reload()
				}
			}
		}
	}()
}

// Stop ends polling and waits for the poller to exit. It must follow Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

// modified records the modification time of every watched file and reports
// whether any of them moved forward.
func (w *Watcher) modified() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := false
	for _, p := range w.Paths() {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		if last, seen := w.modTimes[p]; !seen || info.ModTime().After(last) {
			w.modTimes[p] = info.ModTime()
			changed = true
		}
	}
	return changed
}

func (w *Watcher) reload() {
	next, err := load(w.path, w.profile, w.overrides)
	if err != nil {
		w.logger.Error("config.reload.failed", slog.String("path", w.path), slog.Any("error", err))
		return
	}

	w.mu.Lock()
	change := Change{Previous: w.current, Current: next}
	w.current = next
	listeners := append(([]func(Change))(nil), w.listeners...)
	w.mu.Unlock()

	w.logger.Info("config.reloaded", slog.String("path", w.path))
	for _, fn := range listeners {
		fn(change)
	}
}
