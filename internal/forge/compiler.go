package forge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultCompileTimeout bounds one compiler invocation. A timeout is
// treated identically to a compile failure.
const DefaultCompileTimeout = 30 * time.Second

// Compiler type-checks one generated package and reports diagnostics.
// The combined stdout/stderr is returned even when validation fails.
type Compiler interface {
	Validate(ctx context.Context, dir string) (output string, err error)
}

// ProcessTable tracks the process groups of in-flight compiler invocations.
// The kill-switch terminates them through here without touching the
// pipeline lock, so it works even while a compilation is wedged inside the
// critical section.
type ProcessTable struct {
	mu    sync.Mutex
	pgids map[int]struct{}
}

// NewProcessTable returns an empty table.
func NewProcessTable() *ProcessTable {
	return &ProcessTable{pgids: make(map[int]struct{})}
}

func (p *ProcessTable) track(pgid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pgids[pgid] = struct{}{}
}

func (p *ProcessTable) untrack(pgid int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pgids, pgid)
}

// KillActive terminates every tracked compiler process group and returns
// how many were signalled. Satisfies the governor's Terminator.
func (p *ProcessTable) KillActive() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	killed := 0
	for pgid := range p.pgids {
		if err := unix.Kill(-pgid, unix.SIGKILL); err == nil {
			killed++
		}
		delete(p.pgids, pgid)
	}
	return killed
}

// VetCompiler validates a generated package by running the Go toolchain's
// vet pass against it. Each invocation runs in its own process group so it
// can be terminated as a unit.
type VetCompiler struct {
	GoBin   string
	Timeout time.Duration
	procs   *ProcessTable
}

// NewVetCompiler returns a VetCompiler registering its subprocesses with
// the given table.
func NewVetCompiler(timeout time.Duration, procs *ProcessTable) *VetCompiler {
	if timeout <= 0 {
		timeout = DefaultCompileTimeout
	}
	return &VetCompiler{GoBin: "go", Timeout: timeout, procs: procs}
}

// Validate runs the type-check scoped to dir. The returned output is the
// combined compiler stdout/stderr regardless of outcome.
func (c *VetCompiler) Validate(ctx context.Context, dir string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.GoBin, "vet", ".")
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("forge: start compiler: %w", err)
	}

	pgid := cmd.Process.Pid
	c.procs.track(pgid)
	defer c.procs.untrack(pgid)

	err := cmd.Wait()
	output := buf.String()

	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return output, fmt.Errorf("forge: compilation timed out after %s", c.Timeout)
	}
	if err != nil {
		return output, fmt.Errorf("forge: compilation failed: %w", err)
	}
	return output, nil
}
