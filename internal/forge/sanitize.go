// Package forge implements the capability synthesis pipeline: sanitize the
// requested name, render source from a fixed template, persist it to the
// managed directory, validate it with an external compiler pass, and
// register the result at the generated tier.
package forge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/hearthd/hearth/internal/model"
)

const (
	// ModulePrefix marks every synthesized module id.
	ModulePrefix = "forge_gen_"
	// MaxNameLength bounds a requested capability name.
	MaxNameLength = 64
)

// validName matches word characters only. No dots, no separators.
var validName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// SpecError reports a malformed synthesis request, rejected before any I/O.
type SpecError struct {
	Reason string
}

func (e *SpecError) Error() string {
	return "forge: invalid spec: " + e.Reason
}

// Sanitize validates an untrusted capability name and derives the module id
// used as the on-disk filename and registry key. Deterministic, no I/O.
func Sanitize(name string) (string, error) {
	if name == "" {
		return "", &SpecError{Reason: "name must not be empty"}
	}
	if len(name) > MaxNameLength {
		return "", &SpecError{Reason: fmt.Sprintf("name exceeds %d characters", MaxNameLength)}
	}
	if strings.Contains(name, "..") {
		return "", &SpecError{Reason: "name must not contain '..'"}
	}
	if strings.ContainsAny(name, `/\`) {
		return "", &SpecError{Reason: "name must not contain path separators"}
	}
	if !validName.MatchString(name) {
		return "", &SpecError{Reason: "name contains characters outside [A-Za-z0-9_]"}
	}
	if strings.HasPrefix(name, "_") || strings.HasSuffix(name, "_") {
		return "", &SpecError{Reason: "name must not start or end with an underscore"}
	}
	return ModulePrefix + name, nil
}

// SpecDigest returns a short stable digest of a spec, used to key approvals
// and manifest entries so a changed spec is never mistaken for an already
// reviewed one.
func SpecDigest(spec model.CapabilitySpec) string {
	data, _ := json.Marshal(spec)
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:8])
}
