package capability

import (
	"github.com/hearthd/hearth/internal/firewall"
	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/store"
)

// guardedSlots routes every slot access through the firewall before it
// reaches the store. One instance is bound per invocation to the calling
// capability's name and tier.
type guardedSlots struct {
	name  string
	tier  model.TrustTier
	guard *firewall.Guard
	store *store.Store
}

func (g *guardedSlots) Get(slot model.Slot, key string, out any) error {
	if err := g.guard.Check(g.name, g.tier, slot, model.OpRead); err != nil {
		return err
	}
	return g.store.Get(slot, key, out)
}

func (g *guardedSlots) Set(slot model.Slot, key string, value any) error {
	if err := g.guard.Check(g.name, g.tier, slot, model.OpWrite); err != nil {
		return err
	}
	return g.store.Set(slot, key, value)
}

func (g *guardedSlots) Scan(slot model.Slot, prefix string) ([]string, error) {
	if err := g.guard.Check(g.name, g.tier, slot, model.OpScan); err != nil {
		return nil, err
	}
	return g.store.Scan(slot, prefix)
}
