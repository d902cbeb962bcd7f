package capability

import (
	"context"
	"fmt"

	"github.com/hearthd/hearth/internal/model"
)

// RegisterBuiltins installs the core-tier capabilities shipped with the
// daemon. They are thin slot wrappers; the interesting assistant behavior
// is synthesized into generated capabilities at runtime.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		name string
		h    Handler
	}{
		{"memory_remember", rememberHandler},
		{"memory_recall", recallHandler},
		{"schedule_add", scheduleAddHandler},
		{"schedule_list", scheduleListHandler},
		{"preferences_set", preferencesSetHandler},
		{"preferences_get", preferencesGetHandler},
	}
	for _, b := range builtins {
		if err := r.RegisterNative(b.name, model.TierCore, b.h); err != nil {
			return err
		}
	}
	return nil
}

func stringArg(inv Invocation, name string) (string, error) {
	v, ok := inv.Payload[name]
	if !ok {
		return "", fmt.Errorf("missing required parameter %q", name)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string", name)
	}
	return s, nil
}

func rememberHandler(ctx context.Context, inv Invocation) (any, error) {
	key, err := stringArg(inv, "key")
	if err != nil {
		return nil, err
	}
	value, ok := inv.Payload["value"]
	if !ok {
		return nil, fmt.Errorf("missing required parameter %q", "value")
	}
	if err := inv.Slots.Set(model.SlotKnowledge, key, value); err != nil {
		return nil, err
	}
	return map[string]any{"stored": key}, nil
}

func recallHandler(ctx context.Context, inv Invocation) (any, error) {
	key, err := stringArg(inv, "key")
	if err != nil {
		return nil, err
	}
	var value any
	if err := inv.Slots.Get(model.SlotKnowledge, key, &value); err != nil {
		return nil, err
	}
	return map[string]any{"key": key, "value": value}, nil
}

func scheduleAddHandler(ctx context.Context, inv Invocation) (any, error) {
	id, err := stringArg(inv, "id")
	if err != nil {
		return nil, err
	}
	entry := map[string]any{}
	for k, v := range inv.Payload {
		if k != "id" {
			entry[k] = v
		}
	}
	if err := inv.Slots.Set(model.SlotSchedule, id, entry); err != nil {
		return nil, err
	}
	return map[string]any{"scheduled": id}, nil
}

func scheduleListHandler(ctx context.Context, inv Invocation) (any, error) {
	prefix, _ := inv.Payload["prefix"].(string)
	keys, err := inv.Slots.Scan(model.SlotSchedule, prefix)
	if err != nil {
		return nil, err
	}
	return map[string]any{"entries": keys}, nil
}

func preferencesSetHandler(ctx context.Context, inv Invocation) (any, error) {
	key, err := stringArg(inv, "key")
	if err != nil {
		return nil, err
	}
	value, ok := inv.Payload["value"]
	if !ok {
		return nil, fmt.Errorf("missing required parameter %q", "value")
	}
	if err := inv.Slots.Set(model.SlotPreferences, key, value); err != nil {
		return nil, err
	}
	return map[string]any{"set": key}, nil
}

func preferencesGetHandler(ctx context.Context, inv Invocation) (any, error) {
	key, err := stringArg(inv, "key")
	if err != nil {
		return nil, err
	}
	var value any
	if err := inv.Slots.Get(model.SlotPreferences, key, &value); err != nil {
		return nil, err
	}
	return map[string]any{"key": key, "value": value}, nil
}
