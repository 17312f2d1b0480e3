package prompts

import (
	"fmt"
	"strings"
	"text/template"

	errs "election-insights/pkg/errors"
)

var funcs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"inc": func(i int) int { return i + 1 },
}

// Manager renders the embedded prompt templates. The set is parsed once and
// is read-only afterwards, so a Manager is safe for concurrent use.
type Manager struct {
	set *template.Template
}

// NewManager parses every *.txt.tmpl file under templates/.
func NewManager() (*Manager, error) {
	set, err := template.New("prompts").Funcs(funcs).ParseFS(FS(), "*.txt.tmpl")
	if err != nil {
		return nil, errs.NewData("prompts.NewManager", "templates", "failed to load prompts", err)
	}
	return &Manager{set: set}, nil
}

// Has reports whether a template with the logical name was loaded.
func (m *Manager) Has(name string) bool {
	return m.set.Lookup(PathFor(name)) != nil
}

// Render executes the template called name, e.g. "cluster_user".
func (m *Manager) Render(name string, data any) (string, error) {
	tpl := m.set.Lookup(PathFor(name))
	if tpl == nil {
		return "", errs.NewValidation("prompts.Render", "prompt template not found: "+name, nil)
	}
	var sb strings.Builder
	if err := tpl.Execute(&sb, data); err != nil {
		return "", errs.NewData("prompts.Render", name, "failed to execute template", err)
	}
	return sb.String(), nil
}
