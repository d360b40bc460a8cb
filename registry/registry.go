// Package registry is the key registry and translation store.
//
// Every translatable unit is identified by its default-language text (the
// key). For each key the registry keeps up to source.MaxRefs source
// references, a text state assigned by reconciliation, and a per-category
// context map that becomes the note shown to translators.
//
// Translations are kept per language as plain lists aligned with the key
// order: position i of every language list belongs to key i. All insertions
// and removals go through insertKey/removeAt so the lists never drift.
//
// A Registry is not safe for concurrent mutation.
package registry

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minios-linux/lokey/source"
)

var (
	// ErrUnknownKey is returned for operations on keys not in the registry.
	ErrUnknownKey = errors.New("unknown key")
	// ErrUnknownLanguage is returned for languages not in the registry.
	ErrUnknownLanguage = errors.New("unknown language")
	// ErrUnknownCategory is returned for categories not in the registry.
	ErrUnknownCategory = errors.New("unknown category")
)

// TextState is the lifecycle flag set when two extraction passes are reconciled.
type TextState string

const (
	StateNone    TextState = ""
	StateNew     TextState = "new"
	StateRecent  TextState = "recent"
	StateMissing TextState = "missing"
)

func (s TextState) String() string {
	if s == StateNone {
		return "none"
	}
	return string(s)
}

// Entry is the metadata kept for one key.
type Entry struct {
	Key     string            `yaml:"key"`
	Sources []source.Ref      `yaml:"sources,omitempty"`
	State   TextState         `yaml:"state,omitempty"`
	Context map[string]string `yaml:"context,omitempty"`
}

func (e *Entry) clone() Entry {
	c := Entry{
		Key:     e.Key,
		Sources: append([]source.Ref(nil), e.Sources...),
		State:   e.State,
		Context: make(map[string]string, len(e.Context)),
	}
	for k, v := range e.Context {
		c.Context[k] = v
	}
	return c
}

// Pass records the last extraction pass.
type Pass struct {
	ID    string    `yaml:"id" json:"id"`
	Time  time.Time `yaml:"time" json:"time"`
	Files int       `yaml:"files" json:"files"`
	Keys  int       `yaml:"keys" json:"keys"`
}

// Registry holds keys, their metadata and the per-language text lists.
type Registry struct {
	// DefaultLanguage names the language the keys are written in.
	DefaultLanguage string
	// LastPass is the most recent extraction pass, nil before the first one.
	LastPass *Pass

	keys       []string
	index      map[string]int
	entries    map[string]*Entry
	categories []Category
	languages  []*Language
	groups     map[string]*GroupMeta
	dismissed  map[string]bool

	dir string
}

// New returns an empty registry stored in dir.
func New(dir, defaultLang string) *Registry {
	return &Registry{
		DefaultLanguage: defaultLang,
		index:           make(map[string]int),
		entries:         make(map[string]*Entry),
		groups:          make(map[string]*GroupMeta),
		dismissed:       make(map[string]bool),
		dir:             dir,
	}
}

// Dir returns the store directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Len returns the number of keys.
func (r *Registry) Len() int {
	return len(r.keys)
}

// Keys returns the keys in registry order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Has reports whether key is registered.
func (r *Registry) Has(key string) bool {
	_, ok := r.entries[key]
	return ok
}

// Lookup returns a copy of the entry for key.
func (r *Registry) Lookup(key string) (Entry, bool) {
	e, ok := r.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// insertKey appends a key and a blank slot in every language list.
func (r *Registry) insertKey(key string) *Entry {
	e := &Entry{Key: key, Context: make(map[string]string, len(r.categories))}
	for _, c := range r.categories {
		e.Context[c.Name] = ""
	}
	r.index[key] = len(r.keys)
	r.keys = append(r.keys, key)
	r.entries[key] = e
	for _, l := range r.languages {
		l.Texts = append(l.Texts, "")
	}
	return e
}

// removeKeys drops the given keys from the key order and from every
// language list in one pass.
func (r *Registry) removeKeys(drop map[string]bool) {
	if len(drop) == 0 {
		return
	}
	keep := r.keys[:0]
	for _, l := range r.languages {
		texts := l.Texts[:0]
		for i, k := range r.keys {
			if !drop[k] {
				texts = append(texts, l.Texts[i])
			}
		}
		l.Texts = texts
	}
	for _, k := range r.keys {
		if drop[k] {
			delete(r.entries, k)
			continue
		}
		keep = append(keep, k)
	}
	r.keys = keep
	r.reindex()
}

func (r *Registry) reindex() {
	r.index = make(map[string]int, len(r.keys))
	for i, k := range r.keys {
		r.index[k] = i
	}
}

// AddSource registers text (if new) and records ref as one of its sources.
// Blank text is ignored. Returns true when the key was newly inserted.
func (r *Registry) AddSource(text string, ref source.Ref) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	e, ok := r.entries[text]
	if !ok {
		e = r.insertKey(text)
	}
	e.Sources, _ = source.Append(e.Sources, ref)
	return !ok
}

// Sources returns the references recorded for key in first-seen order.
func (r *Registry) Sources(key string) []source.Ref {
	e, ok := r.entries[key]
	if !ok {
		return nil
	}
	return append([]source.Ref(nil), e.Sources...)
}

// SetTextState sets the lifecycle state of a key.
func (r *Registry) SetTextState(key string, state TextState) error {
	e, ok := r.entries[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	e.State = state
	return nil
}

// TextState returns the state of key, StateNone for unknown keys.
func (r *Registry) TextState(key string) TextState {
	if e, ok := r.entries[key]; ok {
		return e.State
	}
	return StateNone
}

// CountStates returns how many keys are in each state.
func (r *Registry) CountStates() map[TextState]int {
	counts := make(map[TextState]int)
	for _, k := range r.keys {
		counts[r.entries[k].State]++
	}
	return counts
}

// RecordPass stores a new extraction pass record and returns it.
func (r *Registry) RecordPass(files int, now time.Time) Pass {
	p := Pass{ID: uuid.NewString(), Time: now.UTC(), Files: files, Keys: len(r.keys)}
	r.LastPass = &p
	return p
}
