package capability

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/store"
)

// Registry maps capability names to runnable handlers. Descriptors (name,
// tier, source path) live in the store; the registry holds the executable
// side and can rebuild it from disk at any time.
type Registry struct {
	store  *store.Store
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns a Registry over the descriptor store.
func NewRegistry(st *store.Store, logger *zap.Logger) *Registry {
	return &Registry{
		store:    st,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

// RegisterNative binds a compiled-in handler and ensures its descriptor
// exists. Used for capabilities shipped with the process; re-registering
// on restart is a no-op.
func (r *Registry) RegisterNative(name string, tier model.TrustTier, h Handler) error {
	desc := model.CapabilityDescriptor{
		Name:         name,
		Tier:         tier,
		RegisteredAt: time.Now().UTC(),
	}
	if err := r.store.RegisterCapability(desc); err != nil && !errors.Is(err, store.ErrAlreadyRegistered) {
		return fmt.Errorf("capability: register %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
	return nil
}

// Bind attaches a handler for an already-described capability.
func (r *Registry) Bind(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// Handler returns the executable side of a capability, if loaded.
func (r *Registry) Handler(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Describe returns the stored descriptor for a capability.
func (r *Registry) Describe(name string) (*model.CapabilityDescriptor, error) {
	return r.store.GetCapability(name)
}

// List returns every stored descriptor.
func (r *Registry) List() ([]model.CapabilityDescriptor, error) {
	return r.store.ListCapabilities()
}

// Reload re-interprets every generated capability from its persisted
// source. Returns how many handlers were (re)loaded; a module that fails
// to load is skipped and logged, it does not abort the rest.
func (r *Registry) Reload() (int, error) {
	descs, err := r.store.ListCapabilities()
	if err != nil {
		return 0, fmt.Errorf("capability: list for reload: %w", err)
	}

	loaded := 0
	for _, d := range descs {
		if d.SourcePath == "" {
			continue
		}
		h, err := LoadGenerated(d.SourcePath)
		if err != nil {
			r.logger.Warn("skipping unloadable capability",
				zap.String("capability", d.Name),
				zap.String("source", d.SourcePath),
				zap.Error(err))
			continue
		}
		r.mu.Lock()
		r.handlers[d.Name] = h
		r.mu.Unlock()
		loaded++
	}
	return loaded, nil
}
