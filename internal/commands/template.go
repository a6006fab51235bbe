package commands

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// templateFuncs provides utility functions for templates.
var templateFuncs = sprig.TxtFuncMap()

// ExpandTemplate expands a template string using the provided data.
// The data can be any struct - templates access fields via {{ .FieldName }}.
func ExpandTemplate(tmplStr string, data any) (string, error) {
	// Quick check: if no template markers, return as-is
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}

	tmpl, err := template.New("").Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

func parseTemplate(tmplStr string) error {
	_, err := template.New("").Funcs(templateFuncs).Parse(tmplStr)
	return err
}

// formatKey names the config value a handler renders itself, against its
// own view type. It is never expanded against the inputs.
const formatKey = "format"

// expandConfig expands every config value against the input context.
func expandConfig(config map[string]string, ctx *InputContext) (map[string]string, error) {
	out := make(map[string]string, len(config))
	for k, v := range config {
		if k == formatKey {
			out[k] = v
			continue
		}
		s, err := ExpandTemplate(v, ctx)
		if err != nil {
			return nil, fmt.Errorf("config %q: %w", k, err)
		}
		out[k] = s
	}
	return out, nil
}
