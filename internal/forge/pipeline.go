package forge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hearthd/hearth/internal/approval"
	"github.com/hearthd/hearth/internal/audit"
	"github.com/hearthd/hearth/internal/governor"
	"github.com/hearthd/hearth/internal/model"
	"github.com/hearthd/hearth/internal/store"
)

// ErrPersist marks a failed write to the managed directory, manifest, or
// registry. The pipeline aborts with no partial registration.
var ErrPersist = errors.New("forge: persistence failure")

// Auditor receives synthesis audit records.
type Auditor interface {
	Append(e audit.Entry) error
}

// Registry is the descriptor store a successful run registers into.
type Registry interface {
	RegisterCapability(d model.CapabilityDescriptor) error
}

// Config controls one Forge instance.
type Config struct {
	// Dir is the managed directory. One package per module plus the
	// manifest live here; nothing else is ever written by this subsystem.
	Dir string
	// Enabled is the global synthesis flag. When false every request is
	// blocked regardless of governor state.
	Enabled bool
	// CompileTimeout bounds stage 4. Zero means DefaultCompileTimeout.
	CompileTimeout time.Duration
}

// Forge runs the five-stage synthesis pipeline.
type Forge struct {
	cfg       Config
	gov       *governor.Governor
	approvals *approval.Store
	registry  Registry
	auditor   Auditor
	logger    *zap.Logger
	compiler  Compiler
	manifest  *Manifest

	// mu serializes stages 3 through 5. The manifest is append-order
	// sensitive and two compiler invocations against the same workspace
	// can corrupt shared build state.
	mu sync.Mutex
}

// New creates a Forge over the managed directory.
func New(cfg Config, gov *governor.Governor, approvals *approval.Store, registry Registry, auditor Auditor, compiler Compiler, logger *zap.Logger) (*Forge, error) {
	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("forge: create managed directory: %w", err)
	}
	return &Forge{
		cfg:       cfg,
		gov:       gov,
		approvals: approvals,
		registry:  registry,
		auditor:   auditor,
		logger:    logger,
		compiler:  compiler,
		manifest:  NewManifest(filepath.Join(cfg.Dir, "manifest.jsonl")),
	}, nil
}

// Manifest exposes the registration ledger for listing and hot-reload.
func (f *Forge) Manifest() *Manifest {
	return f.manifest
}

// Dir returns the managed directory.
func (f *Forge) Dir() string {
	return f.cfg.Dir
}

// Create runs one synthesis request through the pipeline. A compile
// failure is a normal outcome reported in the result; the returned error is
// reserved for spec validation and persistence problems.
func (f *Forge) Create(ctx context.Context, spec model.CapabilitySpec) (*model.SynthesisResult, error) {
	res := &model.SynthesisResult{RequestID: uuid.NewString()}

	if !f.cfg.Enabled {
		res.Status = model.SynthesisBlocked
		res.Message = "synthesis is disabled by configuration"
		return res, nil
	}

	// Stage 1: sanitize. Pure, no I/O; a bad name leaves no trace.
	moduleID, err := Sanitize(spec.Name)
	if err != nil {
		return nil, err
	}
	res.ModuleID = moduleID

	// Stage 2: generate. String templating over a closed grammar.
	source, err := Generate(moduleID, spec)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Stage 3: persist source and manifest line.
	pkgDir := filepath.Join(f.cfg.Dir, moduleID)
	srcPath := filepath.Join(pkgDir, moduleID+".go")
	if err := writeSource(pkgDir, srcPath, source); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	digest := SpecDigest(spec)
	entry := ManifestEntry{
		ModuleID:   moduleID,
		SourceFile: srcPath,
		SpecDigest: digest,
		WrittenAt:  time.Now().UTC(),
	}
	if err := f.manifest.Append(entry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}
	res.ArtifactPath = srcPath

	// Pre-compilation gate. In HITL mode the run halts here unless this
	// exact spec was already approved; consuming the approval is atomic,
	// so a granted approval compiles at most once.
	autonomous := f.gov.IsAutonomous()
	if !autonomous {
		key := approval.Key(moduleID, spec)
		if err := f.approvals.Consume(key); err != nil {
			if reqErr := f.approvals.Request(key, moduleID, digest, "autonomy disabled"); reqErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrPersist, reqErr)
			}
			res.Status = model.SynthesisPendingApproval
			res.Message = "approval required before compilation; pending as " + key
			f.recordOutcome(res)
			f.logger.Info("synthesis pending approval",
				zap.String("module_id", moduleID),
				zap.String("approval_key", key))
			return res, nil
		}
	}

	// Stage 4: validate with the external compiler. A timeout is a
	// failure like any other.
	output, compileErr := f.compiler.Validate(ctx, pkgDir)
	res.CompilerOutput = output
	if compileErr != nil {
		res.Status = model.SynthesisFailed
		res.Message = compileErr.Error()
		if autonomous {
			// Revert before the caller can observe the failed
			// autonomous compile.
			if revErr := f.gov.AutoRevert("compile failure for " + moduleID); revErr != nil {
				f.logger.Error("auto-revert failed", zap.Error(revErr))
			}
		}
		f.recordOutcome(res)
		f.logger.Warn("synthesis failed",
			zap.String("module_id", moduleID),
			zap.Bool("autonomous", autonomous),
			zap.Error(compileErr))
		return res, nil
	}
	res.Compiled = true

	// Stage 5: register at the generated tier.
	desc := model.CapabilityDescriptor{
		Name:         spec.Name,
		Tier:         model.TierGenerated,
		SourcePath:   srcPath,
		RegisteredAt: time.Now().UTC(),
	}
	if err := f.registry.RegisterCapability(desc); err != nil {
		if errors.Is(err, store.ErrAlreadyRegistered) {
			return nil, fmt.Errorf("forge: %s: %w", spec.Name, store.ErrAlreadyRegistered)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	res.Success = true
	res.Status = model.SynthesisOK
	res.Message = "capability registered at generated tier"
	f.recordOutcome(res)
	f.logger.Info("synthesis complete",
		zap.String("module_id", moduleID),
		zap.String("artifact", srcPath))
	return res, nil
}

// recordOutcome appends a synthesis audit record. A failed append is
// logged but does not change the already-determined result.
func (f *Forge) recordOutcome(res *model.SynthesisResult) {
	err := f.auditor.Append(audit.Entry{
		Event:    audit.EventSynthesis,
		TraceID:  res.RequestID,
		ModuleID: res.ModuleID,
		Message:  string(res.Status),
	})
	if err != nil {
		f.logger.Error("synthesis audit append failed",
			zap.String("module_id", res.ModuleID),
			zap.Error(err))
	}
}

func writeSource(pkgDir, path, source string) error {
	if err := os.MkdirAll(pkgDir, 0700); err != nil {
		return err
	}
	// Each module is its own tiny Go module so the validator runs scoped
	// to just this package.
	modFile := filepath.Join(pkgDir, "go.mod")
	if _, err := os.Stat(modFile); os.IsNotExist(err) {
		mod := fmt.Sprintf("module %s\n\ngo 1.25\n", filepath.Base(pkgDir))
		if err := os.WriteFile(modFile, []byte(mod), 0600); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(source), 0600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
