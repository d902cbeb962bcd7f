package capability

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hearthd/hearth/internal/firewall"
	"github.com/hearthd/hearth/internal/store"
)

// ErrUnknownCapability is returned for a name with no descriptor.
var ErrUnknownCapability = errors.New("capability: unknown capability")

// Dispatcher is the single choke point for capability invocation. All
// callers (HTTP handlers, scheduled tasks) route through Invoke, so the
// firewall cannot be bypassed.
type Dispatcher struct {
	registry *Registry
	guard    *firewall.Guard
	store    *store.Store
	logger   *zap.Logger
}

// NewDispatcher wires the registry, firewall guard, and store together.
func NewDispatcher(reg *Registry, guard *firewall.Guard, st *store.Store, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{registry: reg, guard: guard, store: st, logger: logger}
}

// Invoke runs one capability. The descriptor is read per call, so a tier
// promotion takes effect on the very next dispatch.
func (d *Dispatcher) Invoke(ctx context.Context, name string, payload map[string]any) (any, error) {
	desc, err := d.registry.Describe(name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, name)
		}
		return nil, fmt.Errorf("capability: describe %s: %w", name, err)
	}

	h, ok := d.registry.Handler(name)
	if !ok {
		// Generated modules are interpretable on demand from their
		// persisted source.
		if desc.SourcePath == "" {
			return nil, fmt.Errorf("capability: %s has no loaded handler", name)
		}
		h, err = LoadGenerated(desc.SourcePath)
		if err != nil {
			return nil, err
		}
		d.registry.Bind(name, h)
	}

	inv := Invocation{
		Payload: payload,
		Slots: &guardedSlots{
			name:  name,
			tier:  desc.Tier,
			guard: d.guard,
			store: d.store,
		},
	}

	result, err := h(ctx, inv)
	if err != nil {
		var denied *firewall.DeniedError
		if errors.As(err, &denied) {
			d.logger.Warn("capability overreach",
				zap.String("capability", name),
				zap.String("slot", string(denied.Slot)),
				zap.String("operation", string(denied.Operation)))
		}
		return nil, err
	}
	return result, nil
}
