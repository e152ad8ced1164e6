// Package tmpl renders user supplied output templates.
package tmpl

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// shellQuote returns a shell-safe quoted string. It wraps the string in single
// quotes and escapes any existing single quotes using the '\'' technique.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	escaped := strings.ReplaceAll(s, "'", `'\''`)
	return "'" + escaped + "'"
}

func clock(t time.Time) string {
	return t.Local().Format(time.TimeOnly)
}

var funcs = template.FuncMap{
	"shq":   shellQuote,
	"clock": clock,
}

// Template is a parsed output template, safe to execute repeatedly.
type Template struct {
	t *template.Template
}

// Compile parses tmpl. Referencing an undefined key is an error at execution
// time.
//
// Available template functions:
//   - shq: Shell-quote a string for safe use in shell commands
//   - clock: Format a time.Time as local HH:MM:SS
func Compile(tmpl string) (*Template, error) {
	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Template{t: t}, nil
}

// Execute renders the template with data.
func (t *Template) Execute(data any) (string, error) {
	var buf bytes.Buffer
	if err := t.t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// Render compiles and executes tmpl in one step.
func Render(tmpl string, data any) (string, error) {
	t, err := Compile(tmpl)
	if err != nil {
		return "", err
	}
	return t.Execute(data)
}
