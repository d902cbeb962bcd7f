package hotreload

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

type countingReloader struct {
	calls  atomic.Int32
	loaded int
	fired  chan struct{}
}

func (c *countingReloader) Reload() (int, error) {
	c.calls.Add(1)
	if c.fired != nil {
		select {
		case c.fired <- struct{}{}:
		default:
		}
	}
	return c.loaded, nil
}

func TestTriggerUpdatesStatus(t *testing.T) {
	r := &countingReloader{loaded: 3}
	w := New(t.TempDir(), r, zap.NewNop())

	count, err := w.Trigger()
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	st := w.Status()
	if !st.Enabled || st.LastCount != 3 || st.LastReload.IsZero() {
		t.Errorf("status = %+v", st)
	}
}

func TestSetEnabledToggles(t *testing.T) {
	w := New(t.TempDir(), &countingReloader{}, zap.NewNop())
	if !w.Enabled() {
		t.Fatal("watcher not enabled by default")
	}
	w.SetEnabled(false)
	if w.Enabled() {
		t.Error("disable did not stick")
	}
	w.SetEnabled(true)
	if !w.Enabled() {
		t.Error("re-enable did not stick")
	}
}

func TestRunReloadsOnCreate(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{fired: make(chan struct{}, 1)}
	w := New(dir, r, zap.NewNop())
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to install.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "manifest.jsonl"), []byte("{}\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-r.fired:
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after file creation")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunDisabledDropsEvents(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{fired: make(chan struct{}, 1)}
	w := New(dir, r, zap.NewNop())
	w.debounce = 20 * time.Millisecond
	w.SetEnabled(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "ignored.go"), []byte("package x\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-r.fired:
		t.Fatal("disabled watcher reloaded")
	case <-time.After(500 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
