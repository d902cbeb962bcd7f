package forge

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/hearthd/hearth/internal/model"
)

// sourceTemplate is the closed grammar every generated capability is
// rendered from. The entry point is always Execute(ctx, payload); the only
// variation is the parameter checks emitted per declared required flag.
// The trailing `var _` keeps the fmt import used when no parameter is
// required.
var sourceTemplate = template.Must(template.New("capability").Parse(`// Code generated by hearthd forge. DO NOT EDIT.
package capability

import (
	"context"
	"fmt"
)

// Name identifies this capability in the registry.
const Name = {{printf "%q" .Name}}

// Description summarizes what this capability does.
const Description = {{printf "%q" .Description}}

// Execute runs the capability against a decoded JSON payload.
func Execute(ctx context.Context, payload map[string]any) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
{{range .Parameters}}{{if .Required}}	if _, ok := payload[{{printf "%q" .Name}}]; !ok {
		return nil, fmt.Errorf("missing required parameter %q", {{printf "%q" .Name}})
	}
{{end}}{{end}}
	result := map[string]any{
		"capability": Name,
		"status":     "ok",
	}
	for _, key := range []string{ {{range $i, $p := .Parameters}}{{if $i}}, {{end}}{{printf "%q" $p.Name}}{{end}} } {
		if v, ok := payload[key]; ok {
			result[key] = v
		}
	}
	return result, nil
}

var _ = fmt.Sprintf
`))

// Generate renders the capability source for an already sanitized spec.
// Pure string templating; no code from the spec is ever executed here.
func Generate(moduleID string, spec model.CapabilitySpec) (string, error) {
	for _, p := range spec.Parameters {
		if !validName.MatchString(p.Name) {
			return "", &SpecError{Reason: fmt.Sprintf("parameter name %q contains invalid characters", p.Name)}
		}
	}
	data := struct {
		ModuleID    string
		Name        string
		Description string
		Parameters  []model.ParameterSpec
	}{
		ModuleID:    moduleID,
		Name:        spec.Name,
		Description: spec.Description,
		Parameters:  spec.Parameters,
	}

	var b strings.Builder
	if err := sourceTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("forge: render template: %w", err)
	}
	return b.String(), nil
}
