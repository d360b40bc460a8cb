package registry

import (
	"fmt"
	"strings"
)

// ValuePlaceholder is replaced by the key's value in a category template.
const ValuePlaceholder = "{value}"

// Category turns a per-key value into a sentence for translators,
// e.g. {Name: "speaker", Template: "Spoken by {value}."}.
type Category struct {
	Name     string `yaml:"name" json:"name"`
	Template string `yaml:"template,omitempty" json:"template,omitempty"`
}

// Render applies the template to value.
func (c Category) Render(value string) string {
	if c.Template == "" {
		return value
	}
	return strings.ReplaceAll(c.Template, ValuePlaceholder, value)
}

// Categories returns the categories in declaration order.
func (r *Registry) Categories() []Category {
	return append([]Category(nil), r.categories...)
}

func (r *Registry) categoryIndex(name string) int {
	for i, c := range r.categories {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// AddCategory registers a category and gives every key an empty context
// entry for it. Adding an existing category only replaces its template,
// and only when template is non-empty. Returns true if the category is new.
func (r *Registry) AddCategory(name, template string) bool {
	if i := r.categoryIndex(name); i >= 0 {
		if template != "" {
			r.categories[i].Template = template
		}
		return false
	}
	r.categories = append(r.categories, Category{Name: name, Template: template})
	for _, e := range r.entries {
		if e.Context == nil {
			e.Context = make(map[string]string)
		}
		if _, ok := e.Context[name]; !ok {
			e.Context[name] = ""
		}
	}
	return true
}

// UpdateTextCategory moves one key's context from category oldName to
// newName. The old value is carried over unless the key already has a
// non-empty value under newName. Context values that literally equal
// oldName are rewritten to newName. Afterwards oldName is no longer one
// of the key's categories.
func (r *Registry) UpdateTextCategory(key, oldName, newName string) error {
	e, ok := r.entries[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if oldName == newName {
		return nil
	}
	if e.Context == nil {
		e.Context = make(map[string]string)
	}

	if v, had := e.Context[oldName]; had {
		if e.Context[newName] == "" {
			e.Context[newName] = v
		}
		delete(e.Context, oldName)
	}
	for cat, v := range e.Context {
		if v == oldName {
			e.Context[cat] = newName
		}
	}
	return nil
}

// RenameCategory renames a category everywhere.
func (r *Registry) RenameCategory(oldName, newName string) error {
	i := r.categoryIndex(oldName)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, oldName)
	}
	if oldName == newName {
		return nil
	}
	if r.categoryIndex(newName) >= 0 {
		return fmt.Errorf("category %q already exists", newName)
	}
	r.categories[i].Name = newName
	for _, k := range r.keys {
		if err := r.UpdateTextCategory(k, oldName, newName); err != nil {
			return err
		}
	}
	return nil
}

// SetContext sets the value of one category for key.
func (r *Registry) SetContext(key, category, value string) error {
	e, ok := r.entries[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if r.categoryIndex(category) < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[category] = value
	return nil
}

// Context renders the translator note for key: every non-empty category
// value through its template, in category order, joined by spaces.
func (r *Registry) Context(key string) string {
	e, ok := r.entries[key]
	if !ok {
		return ""
	}
	var parts []string
	for _, c := range r.categories {
		if v := strings.TrimSpace(e.Context[c.Name]); v != "" {
			parts = append(parts, c.Render(v))
		}
	}
	return strings.Join(parts, " ")
}
