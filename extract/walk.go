package extract

import (
	"strings"
)

// maxDepth bounds nested object traversal; YAML aliases can form cycles.
const maxDepth = 32

// value is a read-only view of one node of a parsed source: a YAML node,
// a decoded JSON value or a Go expression. Accessors return zero values
// for nodes of the wrong kind so walkers never fail on unexpected data.
type value interface {
	// Field returns the value of a named field of an object.
	Field(name string) (value, bool)
	// Keys returns field names of an object in source order.
	Keys() []string
	// Text returns the scalar string of the node.
	Text() (string, bool)
	// Items returns the elements of a list.
	Items() []value
	// Values returns the values of a string-keyed map in source order.
	Values() []value
}

// visitRoot walks the root of a parsed document. Lists are walked item by
// item. A mapping with exactly one key whose value is a mapping (Unity's
// "MonoBehaviour:" wrapper) is unwrapped and the key used as its kind.
func (s *Schemas) visitRoot(v value, emit func(string)) {
	if v == nil {
		return
	}
	if items := v.Items(); len(items) > 0 {
		for _, it := range items {
			s.visitRoot(it, emit)
		}
		return
	}
	keys := v.Keys()
	if len(keys) == 1 {
		if inner, ok := v.Field(keys[0]); ok && len(inner.Keys()) > 0 {
			s.visitObject(inner, keys[0], emit)
			return
		}
	}
	s.visitObject(v, "", emit)
}

// visitObject picks the first registered kind among the object's own type
// markers and the wrapper key, then walks it.
func (s *Schemas) visitObject(obj value, wrapper string, emit func(string)) {
	for _, kind := range kindCandidates(obj, wrapper) {
		if sc, ok := s.Lookup(kind); ok {
			s.walk(sc, obj, emit, 0)
			return
		}
	}
}

func kindCandidates(obj value, wrapper string) []string {
	var kinds []string
	if t, ok := textField(obj, "$type"); ok {
		kinds = append(kinds, t)
	}
	if id, ok := textField(obj, "m_EditorClassIdentifier"); ok {
		if i := strings.LastIndex(id, "::"); i >= 0 {
			id = id[i+2:]
		}
		if i := strings.LastIndex(id, "."); i >= 0 {
			id = id[i+1:]
		}
		kinds = append(kinds, id)
	}
	if wrapper != "" {
		kinds = append(kinds, wrapper)
	}
	return kinds
}

func textField(obj value, name string) (string, bool) {
	v, ok := obj.Field(name)
	if !ok {
		return "", false
	}
	t, ok := v.Text()
	if !ok || t == "" {
		return "", false
	}
	return t, true
}

// walk extracts the translatable strings of obj according to sc.
func (s *Schemas) walk(sc Schema, obj value, emit func(string), depth int) {
	if obj == nil || depth > maxDepth {
		return
	}
	for _, f := range sc.Fields {
		if f.Exclude {
			continue
		}
		fv, ok := obj.Field(f.Name)
		if !ok || fv == nil {
			continue
		}
		translate := f.Translate || sc.Translate

		switch f.shape() {
		case ShapeString:
			if translate {
				emitText(fv, emit)
			}
		case ShapeList, ShapeArray:
			if !translate {
				continue
			}
			items := fv.Items()
			if f.shape() == ShapeArray && f.Len > 0 && len(items) > f.Len {
				items = items[:f.Len]
			}
			for _, it := range items {
				emitText(it, emit)
			}
		case ShapeMap:
			if !translate {
				continue
			}
			for _, it := range fv.Values() {
				emitText(it, emit)
			}
		case ShapeObject:
			if nested, ok := s.nested(f); ok {
				s.walk(nested, fv, emit, depth+1)
			}
		case ShapeObjectList:
			if nested, ok := s.nested(f); ok {
				for _, it := range fv.Items() {
					s.walk(nested, it, emit, depth+1)
				}
			}
		}
	}
}

// nested returns the schema of an object field if traversal is allowed.
func (s *Schemas) nested(f Field) (Schema, bool) {
	sc, ok := s.Lookup(f.Schema)
	if !ok {
		return Schema{}, false
	}
	return sc, f.Translate || sc.Translate
}

func emitText(v value, emit func(string)) {
	if v == nil {
		return
	}
	if t, ok := v.Text(); ok && strings.TrimSpace(t) != "" {
		emit(t)
	}
}
