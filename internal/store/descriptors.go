package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hearthd/hearth/internal/model"
)

// ErrAlreadyRegistered is returned when a capability name is taken.
var ErrAlreadyRegistered = errors.New("store: capability already registered")

// RegisterCapability persists a descriptor. Names are unique; registering
// an existing name fails rather than silently replacing it.
func (s *Store) RegisterCapability(d model.CapabilityDescriptor) error {
	if d.RegisteredAt.IsZero() {
		d.RegisteredAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO capabilities (name, tier, source_path, registered_at) VALUES (?, ?, ?, ?)`,
		d.Name, d.Tier.String(), d.SourcePath, d.RegisteredAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("store: register capability %q: %w", d.Name, err)
	}
	return nil
}

// GetCapability loads one descriptor by name.
func (s *Store) GetCapability(name string) (*model.CapabilityDescriptor, error) {
	row := s.db.QueryRow(
		`SELECT name, tier, source_path, registered_at, promoted_at FROM capabilities WHERE name = ?`, name)
	d, err := scanDescriptor(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get capability %q: %w", name, err)
	}
	return d, nil
}

// ListCapabilities returns all descriptors ordered by registration time.
func (s *Store) ListCapabilities() ([]model.CapabilityDescriptor, error) {
	rows, err := s.db.Query(
		`SELECT name, tier, source_path, registered_at, promoted_at FROM capabilities ORDER BY registered_at`)
	if err != nil {
		return nil, fmt.Errorf("store: list capabilities: %w", err)
	}
	defer rows.Close()

	var out []model.CapabilityDescriptor
	for rows.Next() {
		d, err := scanDescriptor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// PromoteCapability elevates a Generated capability to Core. Promotion is
// monotonic and happens at most once; promoting a Core or already-promoted
// capability is an error.
func (s *Store) PromoteCapability(name string) (*model.CapabilityDescriptor, error) {
	d, err := s.GetCapability(name)
	if err != nil {
		return nil, err
	}
	if d.Tier != model.TierGenerated {
		return nil, fmt.Errorf("store: capability %q is %s, only generated capabilities can be promoted", name, d.Tier)
	}
	if d.PromotedAt != nil {
		return nil, fmt.Errorf("store: capability %q was already promoted", name)
	}

	now := time.Now().UTC()
	res, err := s.db.Exec(
		`UPDATE capabilities SET tier = ?, promoted_at = ? WHERE name = ? AND tier = ?`,
		model.TierCore.String(), now.Format(time.RFC3339Nano), name, model.TierGenerated.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: promote capability %q: %w", name, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		// Lost a race with a concurrent promotion.
		return nil, fmt.Errorf("store: capability %q was already promoted", name)
	}

	d.Tier = model.TierCore
	d.PromotedAt = &now
	d.Normalize()
	return d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDescriptor(row rowScanner) (*model.CapabilityDescriptor, error) {
	var d model.CapabilityDescriptor
	var tier, registered string
	var source, promoted sql.NullString
	if err := row.Scan(&d.Name, &tier, &source, &registered, &promoted); err != nil {
		return nil, err
	}
	d.Tier = model.ParseTier(tier)
	d.SourcePath = source.String
	if t, err := time.Parse(time.RFC3339Nano, registered); err == nil {
		d.RegisteredAt = t
	}
	if promoted.Valid {
		if t, err := time.Parse(time.RFC3339Nano, promoted.String); err == nil {
			d.PromotedAt = &t
		}
	}
	d.Normalize()
	return &d, nil
}

// isUniqueViolation reports whether the error is a primary-key conflict.
// The modernc driver surfaces SQLITE_CONSTRAINT in the error string.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
