package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML assets (Unity scenes, prefabs, ScriptableObjects, plain data files)
// ---------------------------------------------------------------------------

// splitDocuments splits a multi-document YAML stream. Directives (%YAML,
// %TAG) are dropped and the remainder of a "---" line (Unity's
// "!u!114 &11400000 stripped") is discarded, so each body is plain YAML.
func splitDocuments(data []byte) [][]byte {
	var docs [][]byte
	var cur bytes.Buffer
	started := false

	flush := func() {
		if len(bytes.TrimSpace(cur.Bytes())) > 0 {
			docs = append(docs, append([]byte(nil), cur.Bytes()...))
		}
		cur.Reset()
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		switch {
		case !started && bytes.HasPrefix(line, []byte("%")):
			continue
		case bytes.HasPrefix(line, []byte("---")):
			started = true
			flush()
			continue
		case bytes.Equal(bytes.TrimRight(line, " \t"), []byte("...")):
			flush()
			continue
		}
		started = true
		cur.Write(line)
		cur.WriteByte('\n')
	}
	flush()
	return docs
}

// ParseYAMLAsset extracts translatable strings from a YAML asset.
// Documents that fail to parse are skipped; the first such error is
// returned together with whatever the other documents produced.
func (s *Schemas) ParseYAMLAsset(data []byte) ([]string, error) {
	var texts []string
	var firstErr error
	emit := func(t string) { texts = append(texts, t) }

	for i, doc := range splitDocuments(data) {
		var node yaml.Node
		if err := yaml.Unmarshal(doc, &node); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("document %d: %w", i+1, err)
			}
			continue
		}
		root := &node
		if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
			root = root.Content[0]
		}
		s.visitRoot(yamlValue{root}, emit)
	}
	return texts, firstErr
}

type yamlValue struct {
	n *yaml.Node
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for i := 0; n != nil && n.Kind == yaml.AliasNode && i < maxDepth; i++ {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func (v yamlValue) Field(name string) (value, bool) {
	n := resolveAlias(v.n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == name {
			val := resolveAlias(n.Content[i+1])
			if isNull(val) {
				return nil, false
			}
			return yamlValue{val}, true
		}
	}
	return nil, false
}

func (v yamlValue) Keys() []string {
	n := resolveAlias(v.n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		keys = append(keys, n.Content[i].Value)
	}
	return keys
}

func (v yamlValue) Text() (string, bool) {
	n := resolveAlias(v.n)
	if n == nil || n.Kind != yaml.ScalarNode || isNull(n) {
		return "", false
	}
	return n.Value, true
}

func (v yamlValue) Items() []value {
	n := resolveAlias(v.n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	items := make([]value, 0, len(n.Content))
	for _, c := range n.Content {
		items = append(items, yamlValue{c})
	}
	return items
}

func (v yamlValue) Values() []value {
	n := resolveAlias(v.n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	vals := make([]value, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		vals = append(vals, yamlValue{n.Content[i+1]})
	}
	return vals
}

// ---------------------------------------------------------------------------
// JSON assets
// ---------------------------------------------------------------------------

// ParseJSONAsset extracts translatable strings from a JSON asset whose
// root is an object or a list of objects.
func (s *Schemas) ParseJSONAsset(data []byte) ([]string, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	var texts []string
	s.visitRoot(jsonValue{root}, func(t string) { texts = append(texts, t) })
	return texts, nil
}

// jsonValue wraps a value decoded into any. Object keys have no source
// order after decoding, so Keys and Values are sorted by key.
type jsonValue struct {
	v any
}

func (v jsonValue) Field(name string) (value, bool) {
	m, ok := v.v.(map[string]any)
	if !ok {
		return nil, false
	}
	f, ok := m[name]
	if !ok || f == nil {
		return nil, false
	}
	return jsonValue{f}, true
}

func (v jsonValue) Keys() []string {
	m, ok := v.v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (v jsonValue) Text() (string, bool) {
	s, ok := v.v.(string)
	return s, ok
}

func (v jsonValue) Items() []value {
	list, ok := v.v.([]any)
	if !ok {
		return nil
	}
	items := make([]value, 0, len(list))
	for _, it := range list {
		items = append(items, jsonValue{it})
	}
	return items
}

func (v jsonValue) Values() []value {
	m, ok := v.v.(map[string]any)
	if !ok {
		return nil
	}
	vals := make([]value, 0, len(m))
	for _, k := range v.Keys() {
		vals = append(vals, jsonValue{m[k]})
	}
	return vals
}
