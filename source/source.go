// Package source defines where a translatable string was found.
//
// A key may be referenced from several places (a scene, a prefab, a script).
// Only the first MaxRefs distinct references are kept, in first-seen order;
// an exact duplicate (same type and path) is never recorded twice.
package source

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxRefs is the maximum number of references kept per key.
const MaxRefs = 4

// Type is the kind of asset a string was extracted from.
type Type string

const (
	Scene            Type = "scene"
	Prefab           Type = "prefab"
	Script           Type = "script"
	ScriptableObject Type = "scriptable_object"
	ExternalFile     Type = "external_file"
)

// Types lists all valid source types in display order.
var Types = []Type{Scene, Prefab, Script, ScriptableObject, ExternalFile}

// ParseType converts a config or file value into a Type.
// Accepts the canonical names plus a few common spellings.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "scene":
		return Scene, nil
	case "prefab":
		return Prefab, nil
	case "script", "code":
		return Script, nil
	case "scriptable_object", "scriptableobject", "asset":
		return ScriptableObject, nil
	case "external_file", "externalfile", "external", "file":
		return ExternalFile, nil
	}
	return "", fmt.Errorf("unknown source type %q", s)
}

// Ref is a single source reference.
type Ref struct {
	Type Type   `yaml:"type" json:"type"`
	Path string `yaml:"path" json:"path"`
}

// NewRef builds a reference with a slash-separated path.
func NewRef(t Type, path string) Ref {
	return Ref{Type: t, Path: filepath.ToSlash(path)}
}

// String renders the reference as "type:path".
func (r Ref) String() string {
	return string(r.Type) + ":" + r.Path
}

// Append adds ref to refs unless it is already present or the list is full.
// The second return value reports whether refs changed.
func Append(refs []Ref, ref Ref) ([]Ref, bool) {
	if len(refs) >= MaxRefs {
		return refs, false
	}
	for _, r := range refs {
		if r == ref {
			return refs, false
		}
	}
	return append(refs, ref), true
}

// Merge appends every ref of add to refs with the Append rules.
func Merge(refs, add []Ref) []Ref {
	for _, r := range add {
		refs, _ = Append(refs, r)
	}
	return refs
}

// Occurrence is one extracted text with the references it was found at.
type Occurrence struct {
	Text string `json:"text"`
	Refs []Ref  `json:"refs"`
}
