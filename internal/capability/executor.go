package capability

import (
	"context"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Generated capabilities are interpreted, not linked in, so a freshly
// forged module becomes dispatchable without a process restart. The
// interpreter only ever sees whitelisted stdlib imports; filesystem,
// network, and exec access stay out of reach.
var allowedImports = map[string]bool{
	"context":         true,
	"fmt":             true,
	"strings":         true,
	"strconv":         true,
	"math":            true,
	"regexp":          true,
	"sort":            true,
	"time":            true,
	"bytes":           true,
	"encoding/json":   true,
	"encoding/base64": true,
	"unicode/utf8":    true,
}

// executeFunc is the entry point every generated module must export.
type executeFunc func(ctx context.Context, payload map[string]any) (any, error)

// LoadGenerated interprets a generated source file and returns a Handler
// for it. The source must declare package capability with an Execute entry
// point.
func LoadGenerated(sourcePath string) (Handler, error) {
	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("capability: read source: %w", err)
	}
	if err := checkImports(string(src)); err != nil {
		return nil, err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("capability: load interpreter stdlib: %w", err)
	}
	if _, err := i.Eval(string(src)); err != nil {
		return nil, fmt.Errorf("capability: evaluate %s: %w", sourcePath, err)
	}

	v, err := i.Eval("capability.Execute")
	if err != nil {
		return nil, fmt.Errorf("capability: %s does not export Execute: %w", sourcePath, err)
	}
	execute, ok := v.Interface().(func(context.Context, map[string]any) (any, error))
	if !ok {
		return nil, fmt.Errorf("capability: %s has wrong Execute signature", sourcePath)
	}

	run := executeFunc(execute)
	return func(ctx context.Context, inv Invocation) (any, error) {
		return run(ctx, inv.Payload)
	}, nil
}

// checkImports rejects source importing anything outside the whitelist.
// The file is parsed, not pattern-matched, so aliased and dot imports are
// checked by their real import paths.
func checkImports(src string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "capability.go", src, parser.ImportsOnly)
	if err != nil {
		return fmt.Errorf("capability: parse source: %w", err)
	}

	var forbidden []string
	for _, spec := range file.Imports {
		pkg, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			return fmt.Errorf("capability: malformed import path %s", spec.Path.Value)
		}
		if !allowedImports[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("capability: forbidden imports: %s", strings.Join(forbidden, ", "))
	}
	return nil
}
