package audit

// Event identifies what kind of state change an entry records.
type Event string

const (
	// EventSafetyTransition records a governor mode change or toggle call.
	EventSafetyTransition Event = "safety_transition"
	// EventOverreach records a denied slot access by an under-tier capability.
	EventOverreach Event = "capability_overreach"
	// EventSynthesis records one forge pipeline run reaching a terminal state.
	EventSynthesis Event = "synthesis"
	// EventPromotion records an operator-initiated tier promotion.
	EventPromotion Event = "promotion"
)

// Entry is one line in the hash-chained JSONL audit log.
// All fields are scalars (no map[string]any) to guarantee deterministic
// json.Marshal field order for reproducible hashing.
type Entry struct {
	Timestamp  string `json:"ts"`
	Event      Event  `json:"event"`
	TraceID    string `json:"trace_id,omitempty"`
	Capability string `json:"capability,omitempty"`
	Tier       string `json:"tier,omitempty"`
	Slot       string `json:"slot,omitempty"`
	Operation  string `json:"operation,omitempty"`
	Denied     bool   `json:"denied,omitempty"`
	Trigger    string `json:"trigger,omitempty"`
	NewState   string `json:"new_state,omitempty"`
	ModuleID   string `json:"module_id,omitempty"`
	Message    string `json:"message,omitempty"`
	PrevHash   string `json:"prev_hash"`
}
