// Package store implements the capability store: nine logical slots backed
// by SQLite, a capability descriptor table, and the append-only audit
// partition. Slot operations are atomic at the key level; there are no
// cross-slot transactions.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hearthd/hearth/internal/audit"
	"github.com/hearthd/hearth/internal/model"
)

// ErrNotFound is returned when a slot key does not exist.
var ErrNotFound = errors.New("store: key not found")

// Store is the multi-slot persistent store.
type Store struct {
	db       *sql.DB
	auditLog *audit.Log
	vault    *Vault
}

// Open initializes the store under dir: hearth.db for slot and descriptor
// data, audit.jsonl for the audit partition. vaultKey enables the encrypted
// vault slot; a nil key leaves the vault sealed off (reads and writes fail).
func Open(dir string, vaultKey []byte) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "hearth.db"))
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	log, err := audit.Open(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		db.Close()
		return nil, err
	}
	s.auditLog = log

	if vaultKey != nil {
		v, err := NewVault(vaultKey)
		if err != nil {
			db.Close()
			log.Close()
			return nil, err
		}
		s.vault = v
	}

	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS slots (
		slot TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB NOT NULL,
		sealed INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (slot, key)
	);
	CREATE TABLE IF NOT EXISTS capabilities (
		name TEXT PRIMARY KEY,
		tier TEXT NOT NULL,
		source_path TEXT,
		registered_at TEXT NOT NULL,
		promoted_at TEXT
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// Audit returns the audit partition. Appends are synchronous.
func (s *Store) Audit() *audit.Log {
	return s.auditLog
}

// Append records an entry in the audit partition.
func (s *Store) Append(e audit.Entry) error {
	return s.auditLog.Record(e)
}

// Set stores a JSON-encoded value under (slot, key). Vault values are
// sealed before they touch disk.
func (s *Store) Set(slot model.Slot, key string, value any) error {
	if !model.KnownSlot(slot) {
		return fmt.Errorf("store: unknown slot %q", slot)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encode value: %w", err)
	}

	sealed := 0
	if slot == model.SlotVault {
		if s.vault == nil {
			return fmt.Errorf("store: vault key not configured")
		}
		data, err = s.vault.Seal(data)
		if err != nil {
			return err
		}
		sealed = 1
	}

	_, err = s.db.Exec(
		`INSERT INTO slots (slot, key, value, sealed, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(slot, key) DO UPDATE SET value=excluded.value, sealed=excluded.sealed, updated_at=excluded.updated_at`,
		string(slot), key, data, sealed, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: set %s/%s: %w", slot, key, err)
	}
	return nil
}

// Get decodes the value under (slot, key) into out.
func (s *Store) Get(slot model.Slot, key string, out any) error {
	if !model.KnownSlot(slot) {
		return fmt.Errorf("store: unknown slot %q", slot)
	}
	var data []byte
	var sealed int
	err := s.db.QueryRow(
		`SELECT value, sealed FROM slots WHERE slot = ? AND key = ?`,
		string(slot), key,
	).Scan(&data, &sealed)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("store: get %s/%s: %w", slot, key, err)
	}

	if sealed == 1 {
		if s.vault == nil {
			return fmt.Errorf("store: vault key not configured")
		}
		// Decrypt into a locked buffer; the plaintext is zeroed on every
		// exit path, including the decode error path.
		return s.vault.WithOpen(data, func(plain []byte) error {
			return json.Unmarshal(plain, out)
		})
	}
	return json.Unmarshal(data, out)
}

// Delete removes the value under (slot, key). Missing keys are not an error.
func (s *Store) Delete(slot model.Slot, key string) error {
	if !model.KnownSlot(slot) {
		return fmt.Errorf("store: unknown slot %q", slot)
	}
	if _, err := s.db.Exec(`DELETE FROM slots WHERE slot = ? AND key = ?`, string(slot), key); err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", slot, key, err)
	}
	return nil
}

// Scan returns the keys in a slot with the given prefix, sorted.
func (s *Store) Scan(slot model.Slot, prefix string) ([]string, error) {
	if !model.KnownSlot(slot) {
		return nil, fmt.Errorf("store: unknown slot %q", slot)
	}
	// Escape LIKE metacharacters in the prefix.
	esc := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	rows, err := s.db.Query(
		`SELECT key FROM slots WHERE slot = ? AND key LIKE ? ESCAPE '\' ORDER BY key`,
		string(slot), esc+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("store: scan %s: %w", slot, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database and the audit log.
func (s *Store) Close() error {
	var errs []error
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.auditLog.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
