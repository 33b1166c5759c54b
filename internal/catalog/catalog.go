package catalog

import (
	"fmt"
	"sort"
	"strings"
)

type Field struct {
	Key      string
	Label    string
	Default  string
	Required bool
	Secret   bool
}

type Template struct {
	ID      string
	Name    string
	Icon    string
	Version string
	Fields  []Field
}

func (t Template) Configurable() bool {
	return len(t.Fields) > 0
}

// MissingConfigError lists the required keys absent from a deploy config.
type MissingConfigError struct {
	TemplateID string
	Keys       []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("%s: missing required config %s", e.TemplateID, strings.Join(e.Keys, ", "))
}

// Normalize keeps only the keys t declares and checks that every required
// one is non-empty. Templates without fields always yield an empty map.
// The second return value lists the dropped keys.
func (t Template) Normalize(config map[string]string) (map[string]string, []string, error) {
	out := make(map[string]string, len(t.Fields))
	declared := make(map[string]bool, len(t.Fields))
	var missing []string

	for _, f := range t.Fields {
		declared[f.Key] = true
		v, ok := config[f.Key]
		if ok {
			out[f.Key] = v
		}
		if f.Required && strings.TrimSpace(v) == "" {
			missing = append(missing, f.Key)
		}
	}

	var dropped []string
	for k := range config {
		if !declared[k] {
			dropped = append(dropped, k)
		}
	}
	sort.Strings(dropped)

	if len(missing) > 0 {
		return nil, dropped, &MissingConfigError{TemplateID: t.ID, Keys: missing}
	}
	return out, dropped, nil
}

// Defaults returns the prefilled form values for t.
func (t Template) Defaults() map[string]string {
	out := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		out[f.Key] = f.Default
	}
	return out
}

type Catalog struct {
	templates []Template
	byID      map[string]Template
}

func New(templates []Template) *Catalog {
	c := &Catalog{
		templates: templates,
		byID:      make(map[string]Template, len(templates)),
	}
	for _, t := range templates {
		c.byID[t.ID] = t
	}
	return c
}

func (c *Catalog) All() []Template {
	return append([]Template(nil), c.templates...)
}

func (c *Catalog) Get(id string) (Template, bool) {
	t, ok := c.byID[id]
	return t, ok
}
