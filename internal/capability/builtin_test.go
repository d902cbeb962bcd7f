package capability

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/hearthd/hearth/internal/firewall"
	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/store"
)

func newBuiltinDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	st, err := store.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	reg := NewRegistry(st, zap.NewNop())
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	guard := firewall.NewGuard(firewall.Config{}, st)
	return NewDispatcher(reg, guard, st, zap.NewNop())
}

func TestBuiltinRememberRecall(t *testing.T) {
	d := newBuiltinDispatcher(t)
	ctx := context.Background()

	_, err := d.Invoke(ctx, "memory_remember", map[string]any{
		"key": "favorite_tea", "value": "lapsang",
	})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}

	got, err := d.Invoke(ctx, "memory_recall", map[string]any{"key": "favorite_tea"})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok || m["value"] != "lapsang" {
		t.Errorf("recall = %#v, want value lapsang", got)
	}
}

func TestBuiltinScheduleRoundTrip(t *testing.T) {
	d := newBuiltinDispatcher(t)
	ctx := context.Background()

	for _, id := range []string{"standup", "dentist"} {
		_, err := d.Invoke(ctx, "schedule_add", map[string]any{
			"id": id, "at": "2026-09-01T09:00:00Z",
		})
		if err != nil {
			t.Fatalf("schedule_add %s: %v", id, err)
		}
	}

	got, err := d.Invoke(ctx, "schedule_list", map[string]any{})
	if err != nil {
		t.Fatalf("schedule_list: %v", err)
	}
	m := got.(map[string]any)
	entries, ok := m["entries"].([]string)
	if !ok || len(entries) != 2 {
		t.Errorf("schedule_list = %#v, want 2 entries", got)
	}
}

func TestBuiltinMissingParameter(t *testing.T) {
	d := newBuiltinDispatcher(t)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"memory_remember", map[string]any{"value": "x"}},
		{"memory_recall", map[string]any{}},
		{"preferences_set", map[string]any{"key": "tone"}},
		{"preferences_get", map[string]any{"key": 7}},
	}
	for _, tt := range tests {
		if _, err := d.Invoke(context.Background(), tt.name, tt.payload); err == nil {
			t.Errorf("%s accepted payload %v", tt.name, tt.payload)
		}
	}
}

func TestBuiltinsAreCoreTier(t *testing.T) {
	st, err := store.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	reg := NewRegistry(st, zap.NewNop())
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("register builtins: %v", err)
	}
	if err := RegisterBuiltins(reg); err != nil {
		t.Fatalf("second register not idempotent: %v", err)
	}

	desc, err := reg.Describe("preferences_set")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if desc.Tier != model.TierCore {
		t.Errorf("tier = %v, want core", desc.Tier)
	}
}
