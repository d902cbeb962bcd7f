// Package governor owns the process-wide safety state: human-in-the-loop
// (approval required) versus autonomous synthesis. The state is a single
// atomic flag so the kill-switch never contends for a lock a stuck
// compilation might hold. Every transition call is audited, including
// same-state no-ops.
package governor

import (
	"fmt"
	"sync/atomic"

	"github.com/hearthd/hearth/internal/audit"
	"github.com/hearthd/hearth/internal/model"
)

// Mode labels for the two governor states.
const (
	ModeHITL       = "HITL"
	ModeAutonomous = "Autonomous"
)

// Auditor is the audit partition dependency.
type Auditor interface {
	Append(audit.Entry) error
}

// Terminator kills in-flight compiler subprocesses. Wired to the forge's
// process table; must not share locks with the synthesis pipeline.
type Terminator interface {
	KillActive() int
}

// Governor holds the safety flag and enforces its transition rules.
type Governor struct {
	autonomous atomic.Bool
	auditor    Auditor
	terminator Terminator
}

// New creates a governor with the given startup default. The startup state
// is configuration, not a transition, so it is not audited.
func New(autonomousDefault bool, auditor Auditor) *Governor {
	g := &Governor{auditor: auditor}
	g.autonomous.Store(autonomousDefault)
	return g
}

// SetTerminator wires the compiler process table. Optional; without it the
// kill-switch still reverts the mode.
func (g *Governor) SetTerminator(t Terminator) {
	g.terminator = t
}

// IsAutonomous is the lock-free hot-path read.
func (g *Governor) IsAutonomous() bool {
	return g.autonomous.Load()
}

// Mode returns the label for the current state.
func (g *Governor) Mode() string {
	if g.IsAutonomous() {
		return ModeAutonomous
	}
	return ModeHITL
}

// SetAutonomous transitions the safety state. Enabling is only legal with
// an explicit manual trigger; disabling is legal with any trigger. The
// audit append completes before the caller returns; state is idempotent,
// the audit record is not. An enable whose record cannot be appended is
// rolled back, so the process never runs autonomously unaudited.
func (g *Governor) SetAutonomous(enabled bool, trigger model.Trigger, message string) error {
	if enabled && trigger != model.TriggerManual {
		return fmt.Errorf("governor: autonomous mode can only be enabled manually, not via %s", trigger)
	}

	g.autonomous.Store(enabled)

	state := ModeHITL
	if enabled {
		state = ModeAutonomous
	}
	entry := audit.Entry{
		Event:    audit.EventSafetyTransition,
		Trigger:  string(trigger),
		NewState: state,
		Message:  message,
	}
	if err := g.auditor.Append(entry); err != nil {
		if enabled {
			g.autonomous.Store(false)
		}
		return fmt.Errorf("governor: transition could not be audited: %w", err)
	}
	return nil
}

// AutoRevert forces HITL after a compile failure observed under autonomous
// mode. Called by the forge before the failed result reaches the caller.
func (g *Governor) AutoRevert(message string) error {
	return g.SetAutonomous(false, model.TriggerAutoRevert, message)
}

// KillSwitch forces HITL and terminates any in-flight compiler process
// groups. It takes no pipeline lock: the atomic store and the out-of-band
// process kill both proceed even while a compilation is blocked.
func (g *Governor) KillSwitch(message string) error {
	g.autonomous.Store(false)

	killed := 0
	if g.terminator != nil {
		killed = g.terminator.KillActive()
	}

	entry := audit.Entry{
		Event:    audit.EventSafetyTransition,
		Trigger:  string(model.TriggerKillSwitch),
		NewState: ModeHITL,
		Message:  fmt.Sprintf("%s (terminated %d compiler process(es))", message, killed),
	}
	if err := g.auditor.Append(entry); err != nil {
		return fmt.Errorf("governor: kill-switch could not be audited: %w", err)
	}
	return nil
}
