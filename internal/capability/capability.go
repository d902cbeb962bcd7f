// Package capability holds the registry of dispatchable capabilities and
// the single choke point through which every invocation passes. The
// firewall is enforced here, on the slot accessor handed to a running
// capability, never inside the capabilities themselves.
package capability

import (
	"context"

	"github.com/hearthd/hearth/internal/model"
)

// Slots is the tier-scoped view of the store a capability runs against.
type Slots interface {
	Get(slot model.Slot, key string, out any) error
	Set(slot model.Slot, key string, value any) error
	Scan(slot model.Slot, prefix string) ([]string, error)
}

// Invocation carries one dispatch request into a handler.
type Invocation struct {
	// Payload is the decoded JSON request body.
	Payload map[string]any
	// Slots is bound to the invoking capability's tier. Access outside
	// the tier's allowance returns a firewall denial.
	Slots Slots
}

// Handler executes one capability invocation.
type Handler func(ctx context.Context, inv Invocation) (any, error)
