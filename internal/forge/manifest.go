package forge

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// ManifestEntry is one registration line in the module manifest.
type ManifestEntry struct {
	ModuleID   string    `json:"module_id"`
	SourceFile string    `json:"source_file"`
	SpecDigest string    `json:"spec_digest"`
	WrittenAt  time.Time `json:"written_at"`
}

// Manifest is the append-only JSONL ledger of persisted modules. Appends
// are whole-line and synced, so the file stays parseable after every
// individual completion.
type Manifest struct {
	path string
	mu   sync.Mutex
}

// NewManifest returns a Manifest backed by the given file path.
func NewManifest(path string) *Manifest {
	return &Manifest{path: path}
}

// Path returns the manifest file location.
func (m *Manifest) Path() string {
	return m.path
}

// Append writes one registration line and syncs it to disk.
func (m *Manifest) Append(e ManifestEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("forge: marshal manifest entry: %w", err)
	}

	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("forge: open manifest: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("forge: append manifest: %w", err)
	}
	return f.Sync()
}

// Entries reads every registration line. A missing manifest is empty, not
// an error.
func (m *Manifest) Entries() ([]ManifestEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, err := os.Open(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("forge: open manifest: %w", err)
	}
	defer f.Close()

	var entries []ManifestEntry
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		var e ManifestEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("forge: manifest line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("forge: read manifest: %w", err)
	}
	return entries, nil
}
