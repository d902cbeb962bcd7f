// Package model holds the core types shared across the hearth subsystems.
// Pure data, no I/O.
package model

import "time"

// TrustTier classifies a capability's provenance and determines which
// storage slots it may touch. Ordering matters: higher value = more trusted.
type TrustTier int

const (
	// TierGenerated is code synthesized at runtime by the forge.
	TierGenerated TrustTier = 0
	// TierImport is third-party code reviewed and imported by an operator.
	TierImport TrustTier = 1
	// TierCore is first-party code shipped with the process.
	TierCore TrustTier = 2
)

// String returns the wire label for a tier.
func (t TrustTier) String() string {
	switch t {
	case TierCore:
		return "core"
	case TierImport:
		return "import"
	case TierGenerated:
		return "generated"
	default:
		return "unknown"
	}
}

// ParseTier maps a wire label to a TrustTier. Fail-closed: unknown labels
// parse as Generated, the least trusted tier.
func ParseTier(s string) TrustTier {
	switch s {
	case "core":
		return TierCore
	case "import":
		return TierImport
	default:
		return TierGenerated
	}
}

// Sensitivity classifies a storage slot. Static configuration, never
// runtime-mutable.
type Sensitivity int

const (
	// SensOpen slots are readable and writable by every tier.
	SensOpen Sensitivity = 0
	// SensRestricted slots are reachable by Core and a configured subset
	// of Import access.
	SensRestricted Sensitivity = 1
	// SensCoreOnly slots hold identity, policy, and vault material.
	SensCoreOnly Sensitivity = 2
)

// String returns the label for a sensitivity class.
func (s Sensitivity) String() string {
	switch s {
	case SensCoreOnly:
		return "core_only"
	case SensRestricted:
		return "restricted"
	default:
		return "open"
	}
}

// Slot names the nine logical partitions of the capability store.
type Slot string

const (
	SlotIdentity    Slot = "identity"
	SlotPolicy      Slot = "policy"
	SlotVault       Slot = "vault"
	SlotSecurity    Slot = "security"
	SlotAudit       Slot = "audit"
	SlotKnowledge   Slot = "knowledge"
	SlotSchedule    Slot = "schedule"
	SlotPreferences Slot = "preferences"
	SlotScratch     Slot = "scratch"
)

// SlotClass is the static sensitivity classification of every slot.
var SlotClass = map[Slot]Sensitivity{
	SlotIdentity:    SensCoreOnly,
	SlotPolicy:      SensCoreOnly,
	SlotVault:       SensCoreOnly,
	SlotSecurity:    SensRestricted,
	SlotAudit:       SensRestricted,
	SlotKnowledge:   SensOpen,
	SlotSchedule:    SensOpen,
	SlotPreferences: SensOpen,
	SlotScratch:     SensOpen,
}

// Slots lists all slot names in a stable order.
var Slots = []Slot{
	SlotIdentity, SlotPolicy, SlotVault,
	SlotSecurity, SlotAudit,
	SlotKnowledge, SlotSchedule, SlotPreferences, SlotScratch,
}

// KnownSlot reports whether the name is one of the nine partitions.
func KnownSlot(s Slot) bool {
	_, ok := SlotClass[s]
	return ok
}

// Operation is a slot access kind, used by the firewall decision tables.
type Operation string

const (
	OpRead  Operation = "read"
	OpWrite Operation = "write"
	OpScan  Operation = "scan"
)

// Decision is the firewall authorization outcome.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// Trigger identifies what caused a safety-state transition.
type Trigger string

const (
	TriggerManual     Trigger = "manual"
	TriggerAutoRevert Trigger = "auto_revert"
	TriggerKillSwitch Trigger = "kill_switch"
)

// CapabilityDescriptor is a registry entry for one dispatchable capability.
type CapabilityDescriptor struct {
	Name         string    `json:"name"`
	Tier         TrustTier `json:"-"`
	TierLabel    string    `json:"trust_tier"`
	SourcePath   string    `json:"source_path,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
	PromotedAt   *time.Time `json:"promoted_at,omitempty"`
}

// Normalize fills the wire label from the tier value.
func (d *CapabilityDescriptor) Normalize() {
	d.TierLabel = d.Tier.String()
}
