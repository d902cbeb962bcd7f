// Package approval manages pending synthesis requests awaiting operator
// review. A request is keyed by the sanitized module id plus a digest of
// the submitted spec, so approving is idempotent per spec revision and a
// one-time Consume guarantees each approval compiles at most once even
// under concurrent administrative actions.
package approval

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hearthd/hearth/internal/model"
)

// validKey matches alphanumeric, dash, underscore, and dot characters only.
var validKey = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateKey rejects keys that could cause path traversal.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("key must not contain '..'")
	}
	if !validKey.MatchString(key) {
		return fmt.Errorf("key contains invalid characters: only alphanumeric, dash, underscore, and dot are allowed")
	}
	return nil
}

// Status represents the state of a pending synthesis request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusConsumed Status = "consumed"
	StatusExpired  Status = "expired"
)

// Request is a synthesis run halted at the pre-compilation gate.
type Request struct {
	Key        string     `json:"key"`
	ModuleID   string     `json:"module_id"`
	SpecDigest string     `json:"spec_digest"`
	Status     Status     `json:"status"`
	Reason     string     `json:"reason"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Key derives the approval key for a module id and spec. The digest covers
// the full spec so a changed spec requires a fresh approval.
func Key(moduleID string, spec model.CapabilitySpec) string {
	data, _ := json.Marshal(spec)
	h := sha256.Sum256(data)
	return moduleID + "." + hex.EncodeToString(h[:8])
}

// Store manages request files on disk.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store backed by the given directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("cannot create approval directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Request files a pending request. No-op if the key already exists, so a
// resubmitted spec does not reset an operator's pending queue.
func (s *Store) Request(key, moduleID, specDigest, reason string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	if _, err := os.Stat(path); err == nil {
		return nil // already exists
	}

	r := Request{
		Key:        key,
		ModuleID:   moduleID,
		SpecDigest: specDigest,
		Status:     StatusPending,
		Reason:     reason,
		CreatedAt:  time.Now().UTC(),
	}

	return s.writeAtomic(path, r)
}

// Approve marks a request as approved. If duration > 0, sets expiration;
// duration == 0 leaves a one-time approval consumed on first use.
func (s *Store) Approve(key string, duration time.Duration) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.read(key)
	if err != nil {
		return fmt.Errorf("approval %q not found: %w", key, err)
	}

	r.Status = StatusApproved
	now := time.Now().UTC()
	r.ResolvedAt = &now
	if duration > 0 {
		exp := now.Add(duration)
		r.ExpiresAt = &exp
	}

	return s.writeAtomic(s.path(key), *r)
}

// Deny marks a request as denied.
func (s *Store) Deny(key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.read(key)
	if err != nil {
		return fmt.Errorf("approval %q not found: %w", key, err)
	}

	r.Status = StatusDenied
	now := time.Now().UTC()
	r.ResolvedAt = &now

	return s.writeAtomic(s.path(key), *r)
}

// Check returns the current status of a request.
// Returns StatusExpired if the approval has passed its deadline.
func (s *Store) Check(key string) (Status, error) {
	if err := validateKey(key); err != nil {
		return "", fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.read(key)
	if err != nil {
		return "", fmt.Errorf("approval %q not found", key)
	}

	if r.Status == StatusApproved && r.ExpiresAt != nil && time.Now().UTC().After(*r.ExpiresAt) {
		r.Status = StatusExpired
		s.writeAtomic(s.path(key), *r)
		return StatusExpired, nil
	}

	return r.Status, nil
}

// Consume atomically claims an approved request for compilation. Exactly
// one concurrent caller wins; the rest get an error. Pending or denied
// requests cannot be consumed.
func (s *Store) Consume(key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.read(key)
	if err != nil {
		return fmt.Errorf("approval %q not found: %w", key, err)
	}

	if r.Status != StatusApproved {
		return fmt.Errorf("approval %q is %s, not approved", key, r.Status)
	}
	if r.ExpiresAt != nil && time.Now().UTC().After(*r.ExpiresAt) {
		return fmt.Errorf("approval %q has expired", key)
	}

	r.Status = StatusConsumed
	now := time.Now().UTC()
	r.ResolvedAt = &now

	return s.writeAtomic(s.path(key), *r)
}

// List returns all requests in the store.
func (s *Store) List() ([]Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var requests []Request
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		key := strings.TrimSuffix(e.Name(), ".json")
		r, err := s.read(key)
		if err != nil {
			continue
		}
		requests = append(requests, *r)
	}

	return requests, nil
}

// Cleanup removes all request files in the store.
func (s *Store) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) read(key string) (*Request, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, err
	}

	var r Request
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}

	return &r, nil
}

func (s *Store) writeAtomic(path string, r Request) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
