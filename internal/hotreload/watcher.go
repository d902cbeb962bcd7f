// Package hotreload keeps the capability registry in sync with the forge's
// managed directory, so a freshly synthesized module becomes dispatchable
// without a process restart.
package hotreload

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDefault coalesces the burst of events one synthesis produces
// (directory create, source write, manifest append) into one reload.
const debounceDefault = 200 * time.Millisecond

// Reloader rebuilds handlers from persisted sources.
type Reloader interface {
	Reload() (int, error)
}

// Status is the watcher's externally visible state.
type Status struct {
	Enabled    bool      `json:"enabled"`
	LastReload time.Time `json:"last_reload,omitzero"`
	LastCount  int       `json:"last_count"`
}

// Watcher reloads the registry when the managed directory changes.
// Reloading can be toggled at runtime; a disabled watcher keeps watching
// but drops events.
type Watcher struct {
	dir      string
	reloader Reloader
	logger   *zap.Logger
	debounce time.Duration

	enabled atomic.Bool

	mu         sync.Mutex
	lastReload time.Time
	lastCount  int
}

// New creates a Watcher over the managed directory. Reloading starts
// enabled.
func New(dir string, reloader Reloader, logger *zap.Logger) *Watcher {
	w := &Watcher{
		dir:      dir,
		reloader: reloader,
		logger:   logger,
		debounce: debounceDefault,
	}
	w.enabled.Store(true)
	return w
}

// Enabled reports whether file events trigger reloads.
func (w *Watcher) Enabled() bool {
	return w.enabled.Load()
}

// SetEnabled toggles event-driven reloading.
func (w *Watcher) SetEnabled(on bool) {
	w.enabled.Store(on)
}

// Status returns the current watcher state.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		Enabled:    w.enabled.Load(),
		LastReload: w.lastReload,
		LastCount:  w.lastCount,
	}
}

// Trigger reloads immediately, regardless of the enabled flag. This is the
// manual path behind the trigger endpoint.
func (w *Watcher) Trigger() (int, error) {
	count, err := w.reloader.Reload()
	if err != nil {
		return 0, err
	}

	w.mu.Lock()
	w.lastReload = time.Now().UTC()
	w.lastCount = count
	w.mu.Unlock()

	w.logger.Info("capabilities reloaded", zap.Int("loaded", count))
	return count, nil
}

// Run watches the managed directory until ctx is cancelled. Events are
// debounced with a single timer; no per-event goroutines.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return err
	}

	debounceTimer := time.NewTimer(w.debounce)
	debounceTimer.Stop()
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			if !w.enabled.Load() {
				continue
			}
			if _, err := w.Trigger(); err != nil {
				w.logger.Warn("reload failed", zap.Error(err))
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			debounceTimer.Reset(w.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}
