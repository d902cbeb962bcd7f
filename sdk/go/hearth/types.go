package hearth

import (
	"fmt"
	"time"
)

// SafetyStatus is the governor's externally visible state.
type SafetyStatus struct {
	Enabled bool   `json:"enabled"`
	Mode    string `json:"mode"`
	Message string `json:"message,omitempty"`
}

// ReloadStatus mirrors the hot-reload watcher state.
type ReloadStatus struct {
	Enabled    bool      `json:"enabled"`
	LastReload time.Time `json:"last_reload"`
	LastCount  int       `json:"last_count"`
}

// Warrant is a single-use administrative token.
type Warrant struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Approval is one pending or resolved synthesis request.
type Approval struct {
	Key        string    `json:"key"`
	ModuleID   string    `json:"module_id"`
	SpecDigest string    `json:"spec_digest"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// APIError is a non-2xx response from hearthd.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hearth: server returned %d: %s", e.StatusCode, e.Message)
}
