// Package firewall enforces trust-tier slot access. It is the single choke
// point between capability dispatch and the store: decisions come from
// static tier/slot tables, never from the capability's own code or claims.
package firewall

import (
	"fmt"

	"github.com/hearthd/hearth/internal/model"
)

// Result is one authorization outcome with its reason.
type Result struct {
	Decision model.Decision
	Reason   string
}

// Config holds the only tunable part of the decision tables: which
// Restricted slots Import-tier capabilities may read.
type Config struct {
	ImportRestricted map[model.Slot]bool
}

// DefaultConfig allows Import-tier reads on the security slot only.
func DefaultConfig() Config {
	return Config{
		ImportRestricted: map[model.Slot]bool{
			model.SlotSecurity: true,
		},
	}
}

// Authorize decides whether a capability at the given tier may perform op
// on the target slot. Pure function over static classification; the
// operation payload is never consulted.
func Authorize(cfg Config, tier model.TrustTier, slot model.Slot, op model.Operation) Result {
	if !model.KnownSlot(slot) {
		return Result{model.Deny, fmt.Sprintf("unknown slot %q", slot)}
	}

	class := model.SlotClass[slot]

	switch tier {
	case model.TierCore:
		return Result{model.Allow, "core tier"}

	case model.TierImport:
		switch class {
		case model.SensOpen:
			return Result{model.Allow, "open slot"}
		case model.SensRestricted:
			if cfg.ImportRestricted[slot] && op != model.OpWrite {
				return Result{model.Allow, "import tier, configured restricted slot"}
			}
			return Result{model.Deny, fmt.Sprintf("import tier may not %s restricted slot %q", op, slot)}
		default:
			return Result{model.Deny, fmt.Sprintf("import tier may not touch core-only slot %q", slot)}
		}

	default: // Generated and anything unknown: fail closed.
		if class == model.SensOpen {
			return Result{model.Allow, "open slot"}
		}
		return Result{model.Deny, fmt.Sprintf("generated tier may not touch %s slot %q", class, slot)}
	}
}
