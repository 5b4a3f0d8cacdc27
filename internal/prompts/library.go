// Package prompts loads the role prompt templates the harness fills with
// case data. Templates are standard text/template files; rendering is done
// with maps so a placeholder missing from the data surfaces as an error
// instead of silently producing a malformed prompt.
package prompts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Template names, one per file under the prompts directory.
const (
	Patient       = "patient"
	Doctor        = "doctor"
	Assistant     = "assistant"
	Router        = "router"
	Expert        = "expert"
	OneStepDoctor = "one_step_doctor"
	OneStepExpert = "one_step_expert"
)

// MultiTurnSet and OneStepSet are the templates each execution mode requires.
var (
	MultiTurnSet = []string{Patient, Doctor, Assistant, Router, Expert}
	OneStepSet   = []string{OneStepDoctor, OneStepExpert}
)

type Library struct {
	templates map[string]*template.Template
}

// Load reads and parses the named templates from dir. Every requested
// template must exist and parse; a benchmark run must not discover a broken
// prompt halfway through a case.
func Load(dir string, names []string) (*Library, error) {
	lib := &Library{templates: make(map[string]*template.Template, len(names))}

	for _, name := range names {
		path := filepath.Join(dir, name+".txt")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", name, err)
		}

		tmpl, err := template.New(name).Option("missingkey=error").Parse(string(data))
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", name, err)
		}

		lib.templates[name] = tmpl
	}

	return lib, nil
}

func (l *Library) Has(name string) bool {
	_, ok := l.templates[name]
	return ok
}

// Render fills the named template with data. Data is a map so that a
// template referencing an unknown placeholder fails the render.
func (l *Library) Render(name string, data map[string]string) (string, error) {
	tmpl, ok := l.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt %q not loaded", name)
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("prompt %q: %w", name, err)
	}
	return b.String(), nil
}
