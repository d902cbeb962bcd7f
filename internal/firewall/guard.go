package firewall

import (
	"fmt"

	"github.com/hearthd/hearth/internal/audit"
	"github.com/hearthd/hearth/internal/model"
)

// Auditor is the audit partition dependency. Appends are synchronous.
type Auditor interface {
	Append(audit.Entry) error
}

// DeniedError is returned to the dispatch caller when a capability is
// refused slot access. The denial has already been audited by the time
// the caller sees it.
type DeniedError struct {
	Capability string
	Tier       model.TrustTier
	Slot       model.Slot
	Operation  model.Operation
	Reason     string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("firewall: %s (%s) denied %s on slot %q: %s",
		e.Capability, e.Tier, e.Operation, e.Slot, e.Reason)
}

// Guard couples authorization with the mandatory overreach audit. Every
// denial produces exactly one audit record before it is returned; a denial
// whose audit append fails escalates to a hard error rather than being
// silently permitted or silently dropped.
type Guard struct {
	cfg     Config
	auditor Auditor
}

// NewGuard creates a guard over the given decision config and audit sink.
func NewGuard(cfg Config, auditor Auditor) *Guard {
	return &Guard{cfg: cfg, auditor: auditor}
}

// Check authorizes one slot access. Allow returns nil. Deny appends a
// capability-overreach record and returns *DeniedError; if the append
// fails, that failure is returned instead (fail closed, never fail open).
func (g *Guard) Check(capability string, tier model.TrustTier, slot model.Slot, op model.Operation) error {
	res := Authorize(g.cfg, tier, slot, op)
	if res.Decision == model.Allow {
		return nil
	}

	entry := audit.Entry{
		Event:      audit.EventOverreach,
		Capability: capability,
		Tier:       tier.String(),
		Slot:       string(slot),
		Operation:  string(op),
		Denied:     true,
		Message:    res.Reason,
	}
	if err := g.auditor.Append(entry); err != nil {
		return fmt.Errorf("firewall: denial for %q could not be audited: %w", capability, err)
	}

	return &DeniedError{
		Capability: capability,
		Tier:       tier,
		Slot:       slot,
		Operation:  op,
		Reason:     res.Reason,
	}
}
