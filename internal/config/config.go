// Package config loads the hearthd runtime configuration: YAML file over
// built-in defaults, with a small set of environment overrides for the
// safety-relevant flags.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Forge controls the synthesis pipeline.
type Forge struct {
	// Enabled is the global synthesis flag. Off unless explicitly set in
	// the file or via HEARTH_FORGE_ENABLED; when false, synthesis is
	// disabled regardless of governor state.
	Enabled bool `yaml:"enabled"`
	// AutonomousDefault is the governor's startup mode. Defaults to
	// approval-required.
	AutonomousDefault bool `yaml:"autonomous_default"`
	// CompileTimeout bounds one compiler invocation.
	CompileTimeout time.Duration `yaml:"compile_timeout"`
}

// Server controls the HTTP surface.
type Server struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Config holds all hearthd parameters.
type Config struct {
	// DataDir is the root for the store, audit log, managed forge
	// directory, approvals, and warrants.
	DataDir string `yaml:"data_dir"`
	Forge   Forge  `yaml:"forge"`
	Server  Server `yaml:"server"`
	// ImportRestricted lists the restricted slots import-tier
	// capabilities may read and scan.
	ImportRestricted []string `yaml:"import_restricted"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Forge: Forge{
			Enabled:           false,
			AutonomousDefault: false,
			CompileTimeout:    30 * time.Second,
		},
		Server: Server{
			Listen:          "127.0.0.1:8470",
			ShutdownTimeout: 10 * time.Second,
		},
		ImportRestricted: []string{"security"},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hearth"
	}
	return filepath.Join(home, ".hearth")
}

// Load reads configuration from a YAML file. Empty path falls back to
// ~/.hearth/config.yaml. Missing file returns defaults; invalid YAML is an
// error. Environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and returns the SHA-256 of the raw YAML
// bytes on disk, for logging which config a process booted with. When no
// file exists the hash is over empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = filepath.Join(defaultDataDir(), "config.yaml")
	}

	cfg := Default()
	var raw []byte

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		raw = data
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults apply.
	default:
		return nil, "", fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnv(cfg)

	h := sha256.Sum256(raw)
	return cfg, "sha256:" + hex.EncodeToString(h[:]), nil
}

// applyEnv overlays the safety-relevant environment flags. These exist so
// a deployment can force-disable synthesis without editing the file.
func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("HEARTH_FORGE_ENABLED"); ok {
		cfg.Forge.Enabled = isTrue(v)
	}
	if v, ok := os.LookupEnv("HEARTH_AUTONOMOUS"); ok {
		cfg.Forge.AutonomousDefault = isTrue(v)
	}
	if v, ok := os.LookupEnv("HEARTH_DATA_DIR"); ok && v != "" {
		cfg.DataDir = v
	}
	if v, ok := os.LookupEnv("HEARTH_LISTEN"); ok && v != "" {
		cfg.Server.Listen = v
	}
}

func isTrue(v string) bool {
	switch v {
	case "1", "true", "TRUE", "yes", "on":
		return true
	default:
		return false
	}
}

// VaultKey reads the 32-byte vault key from HEARTH_VAULT_KEY (hex). An
// unset key disables the vault slot; sealing then fails closed.
func VaultKey() ([]byte, error) {
	v, ok := os.LookupEnv("HEARTH_VAULT_KEY")
	if !ok || v == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("config: HEARTH_VAULT_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("config: HEARTH_VAULT_KEY must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
