package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/JonMunkholm/badgemerge/internal/sources"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the source directory must stay quiet after a
// change before a run starts. Exports are often written in several chunks.
const DefaultDebounce = 2 * time.Second

// WatcherStats tracks watcher activity.
type WatcherStats struct {
	Events        int       `json:"events"`
	RunsTriggered int       `json:"runs_triggered"`
	Errors        int       `json:"errors"`
	LastEventTime time.Time `json:"last_event_time"`
	LastEventPath string    `json:"last_event_path"`
}

// Watcher triggers a run when a source export is created or rewritten in a
// directory. Bursts of events are collapsed into one run once the
// directory has been quiet for the debounce window.
type Watcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration
	run      func(ctx context.Context) error
	logger   *slog.Logger

	mu        sync.Mutex
	pending   bool
	lastEvent time.Time
	stats     WatcherStats
}

// NewWatcher watches dir and calls run after each debounced burst of
// changes to export files.
func NewWatcher(dir string, debounce time.Duration, run func(ctx context.Context) error, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		watcher:  fw,
		dir:      dir,
		debounce: debounce,
		run:      run,
		logger:   logger.With("watch_dir", dir),
	}, nil
}

// Run processes events until ctx is cancelled, then closes the watcher.
// Runs triggered by the watcher execute on this goroutine, one at a time.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	tick := w.debounce / 4
	if tick > 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	w.logger.Info("source watcher started", "debounce", w.debounce)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("source watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("source watcher error", "error", err)
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case <-ticker.C:
			if w.due(time.Now()) {
				w.trigger(ctx)
			}
		}
	}
}

// handleEvent marks a pending run for creates, writes and renames of
// export files. Removals and chmods are ignored.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
		return
	}
	name := filepath.Base(event.Name)
	if !sources.IsCandidate(name) || sources.DetectKind(name) == "" {
		return
	}

	w.logger.Debug("source file changed", "path", event.Name, "op", event.Op.String())

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = true
	w.lastEvent = time.Now()
	w.stats.Events++
	w.stats.LastEventTime = w.lastEvent
	w.stats.LastEventPath = event.Name
}

// due reports whether a pending run has waited out the debounce window,
// clearing the pending flag when it has.
func (w *Watcher) due(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.pending || now.Sub(w.lastEvent) < w.debounce {
		return false
	}
	w.pending = false
	w.stats.RunsTriggered++
	return true
}

func (w *Watcher) trigger(ctx context.Context) {
	w.logger.Info("source files changed; starting run")
	if err := w.run(ctx); err != nil {
		w.logger.Warn("watched run failed", "error", err)
		w.mu.Lock()
		w.stats.Errors++
		w.mu.Unlock()
	}
}

// Stats returns a snapshot of watcher activity.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Watch runs req every time new exports land in the source directory
// until ctx is cancelled.
func (s *Service) Watch(ctx context.Context, debounce time.Duration, req RunRequest) error {
	dir := req.SourceDir
	if dir == "" {
		dir = s.sourceDir
	}
	w, err := NewWatcher(dir, debounce, func(ctx context.Context) error {
		_, err := s.Run(ContextWithTrigger(ctx, TriggerWatch), req)
		return err
	}, s.logger)
	if err != nil {
		return err
	}
	return w.Run(ctx)
}
