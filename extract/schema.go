package extract

import (
	"fmt"
	"sort"
)

// Shape is the layout of a schema field.
type Shape string

const (
	ShapeString     Shape = "string"
	ShapeList       Shape = "list"
	ShapeArray      Shape = "array"
	ShapeMap        Shape = "map"
	ShapeObject     Shape = "object"
	ShapeObjectList Shape = "object_list"
)

// Field declares one field of a data shape.
//
// String-like fields (string, list, array, map) are extracted when the
// field or its schema is marked Translate. Object fields are entered only
// when the field or the nested schema is marked Translate. Exclude always
// wins.
type Field struct {
	Name      string `yaml:"name"`
	Shape     Shape  `yaml:"shape,omitempty"`
	Len       int    `yaml:"len,omitempty"`
	Schema    string `yaml:"schema,omitempty"`
	Translate bool   `yaml:"translate,omitempty"`
	Exclude   bool   `yaml:"exclude,omitempty"`
}

func (f Field) shape() Shape {
	if f.Shape == "" {
		return ShapeString
	}
	return f.Shape
}

// Schema declares which fields of a data kind hold translatable text.
// Kind is matched against a document's type name (Unity class, "$type"
// value or Go struct name).
type Schema struct {
	Kind      string  `yaml:"kind"`
	Translate bool    `yaml:"translate,omitempty"`
	Fields    []Field `yaml:"fields"`
}

// Validate checks field shapes and nested schema references.
func (s Schema) Validate() error {
	if s.Kind == "" {
		return fmt.Errorf("schema has no kind")
	}
	seen := make(map[string]bool)
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema %s: field without name", s.Kind)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %s: duplicate field %q", s.Kind, f.Name)
		}
		seen[f.Name] = true

		switch f.shape() {
		case ShapeString, ShapeList, ShapeMap:
		case ShapeArray:
			if f.Len < 0 {
				return fmt.Errorf("schema %s: field %s has negative len", s.Kind, f.Name)
			}
		case ShapeObject, ShapeObjectList:
			if f.Schema == "" {
				return fmt.Errorf("schema %s: object field %s needs a schema", s.Kind, f.Name)
			}
		default:
			return fmt.Errorf("schema %s: field %s has unknown shape %q", s.Kind, f.Name, f.Shape)
		}
	}
	return nil
}

// Schemas is the declaration table consulted by every walker.
type Schemas struct {
	byKind map[string]Schema
}

// NewSchemas builds a table from the given schemas.
func NewSchemas(list ...Schema) (*Schemas, error) {
	s := &Schemas{byKind: make(map[string]Schema)}
	for _, sc := range list {
		if err := s.Register(sc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register adds or replaces the schema for sc.Kind.
func (s *Schemas) Register(sc Schema) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if s.byKind == nil {
		s.byKind = make(map[string]Schema)
	}
	s.byKind[sc.Kind] = sc
	return nil
}

// Lookup returns the schema registered for kind.
func (s *Schemas) Lookup(kind string) (Schema, bool) {
	if s == nil || kind == "" {
		return Schema{}, false
	}
	sc, ok := s.byKind[kind]
	return sc, ok
}

// Kinds returns the registered kinds sorted.
func (s *Schemas) Kinds() []string {
	if s == nil {
		return nil
	}
	kinds := make([]string, 0, len(s.byKind))
	for k := range s.byKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// UnitySchemas covers the text fields of Unity's built-in UI components
// (uGUI Text and TextMeshPro) serialized as MonoBehaviour.
func UnitySchemas() []Schema {
	return []Schema{{
		Kind: "MonoBehaviour",
		Fields: []Field{
			{Name: "m_Text", Translate: true},
			{Name: "m_text", Translate: true},
		},
	}}
}
