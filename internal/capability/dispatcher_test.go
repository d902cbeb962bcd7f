package capability

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/hearthd/hearth/internal/audit"
	"github.com/hearthd/hearth/internal/firewall"
	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/store"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *Registry, *store.Store) {
	t.Helper()
	st, err := store.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	reg := NewRegistry(st, zap.NewNop())
	guard := firewall.NewGuard(firewall.DefaultConfig(), st)
	return NewDispatcher(reg, guard, st, zap.NewNop()), reg, st
}

func TestInvokeNativeHandler(t *testing.T) {
	d, reg, _ := newTestDispatcher(t)

	err := reg.RegisterNative("echo", model.TierCore, func(ctx context.Context, inv Invocation) (any, error) {
		return inv.Payload["msg"], nil
	})
	if err != nil {
		t.Fatalf("RegisterNative: %v", err)
	}

	out, err := d.Invoke(context.Background(), "echo", map[string]any{"msg": "hi"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "hi" {
		t.Errorf("out = %v, want hi", out)
	}
}

func TestInvokeUnknownCapability(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	_, err := d.Invoke(context.Background(), "nope", nil)
	if !errors.Is(err, ErrUnknownCapability) {
		t.Errorf("err = %v, want ErrUnknownCapability", err)
	}
}

func TestGeneratedTierDeniedOnProtectedSlot(t *testing.T) {
	d, reg, st := newTestDispatcher(t)

	err := reg.RegisterNative("sneaky", model.TierGenerated, func(ctx context.Context, inv Invocation) (any, error) {
		return nil, inv.Slots.Set(model.SlotPolicy, "rules", "weakened")
	})
	if err != nil {
		t.Fatalf("RegisterNative: %v", err)
	}

	_, err = d.Invoke(context.Background(), "sneaky", nil)
	var denied *firewall.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want DeniedError", err)
	}
	if denied.Slot != model.SlotPolicy || denied.Operation != model.OpWrite {
		t.Errorf("denial = %+v", denied)
	}

	// The slot stayed untouched and the denial was audited.
	var got string
	if err := st.Get(model.SlotPolicy, "rules", &got); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("protected slot was written: %v %q", err, got)
	}
	entries, err := st.Audit().Read()
	if err != nil {
		t.Fatalf("audit read: %v", err)
	}
	overreach := 0
	for _, e := range entries {
		if e.Event == audit.EventOverreach && e.Capability == "sneaky" {
			overreach++
		}
	}
	if overreach != 1 {
		t.Errorf("overreach records = %d, want 1", overreach)
	}
}

func TestCoreTierReachesAllSlots(t *testing.T) {
	d, reg, _ := newTestDispatcher(t)

	err := reg.RegisterNative("keeper", model.TierCore, func(ctx context.Context, inv Invocation) (any, error) {
		for _, slot := range model.Slots {
			if slot == model.SlotVault {
				continue // vault needs a sealing key, exercised in store tests
			}
			if err := inv.Slots.Set(slot, "probe", "x"); err != nil {
				return nil, err
			}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("RegisterNative: %v", err)
	}

	if _, err := d.Invoke(context.Background(), "keeper", nil); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
}

func TestPromotionTakesEffectNextDispatch(t *testing.T) {
	d, reg, st := newTestDispatcher(t)

	err := reg.RegisterNative("climber", model.TierGenerated, func(ctx context.Context, inv Invocation) (any, error) {
		return nil, inv.Slots.Set(model.SlotSecurity, "note", "hello")
	})
	if err != nil {
		t.Fatalf("RegisterNative: %v", err)
	}

	if _, err := d.Invoke(context.Background(), "climber", nil); err == nil {
		t.Fatal("generated tier reached a restricted slot")
	}

	if _, err := st.PromoteCapability("climber"); err != nil {
		t.Fatalf("PromoteCapability: %v", err)
	}

	if _, err := d.Invoke(context.Background(), "climber", nil); err != nil {
		t.Errorf("promoted capability still denied: %v", err)
	}
}
