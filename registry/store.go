package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minios-linux/lokey/fsutil"
	"gopkg.in/yaml.v3"
)

// FileName is the registry file inside the store directory.
const FileName = "lokey.registry.yaml"

// LanguagesDir holds one YAML file per language list.
const LanguagesDir = "languages"

// FormatVersion is the registry file format version.
const FormatVersion = 1

// registryFile is the on-disk shape of lokey.registry.yaml.
type registryFile struct {
	Version         int                   `yaml:"version"`
	DefaultLanguage string                `yaml:"default_language"`
	Languages       []string              `yaml:"languages,omitempty"`
	Categories      []Category            `yaml:"categories,omitempty"`
	Keys            []Entry               `yaml:"keys"`
	Groups          map[string]*GroupMeta `yaml:"groups,omitempty"`
	Dismissed       []string              `yaml:"dismissed,omitempty"`
	LastPass        *Pass                 `yaml:"last_pass,omitempty"`
}

// Load reads the registry stored in dir. A missing registry file yields
// an empty registry. defaultLang, when non-empty, overrides the stored
// default language. Language lists that are too short or too long for
// the key list are padded or truncated.
func Load(dir, defaultLang string) (*Registry, error) {
	r := New(dir, defaultLang)

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var rf registryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if r.DefaultLanguage == "" {
		r.DefaultLanguage = rf.DefaultLanguage
	}
	r.categories = rf.Categories
	r.LastPass = rf.LastPass
	for k, g := range rf.Groups {
		if g != nil {
			r.groups[k] = g
		}
	}
	for _, k := range rf.Dismissed {
		r.dismissed[k] = true
	}

	for _, e := range rf.Keys {
		if strings.TrimSpace(e.Key) == "" || r.entries[e.Key] != nil {
			continue
		}
		entry := e
		if entry.Context == nil {
			entry.Context = make(map[string]string)
		}
		for _, c := range r.categories {
			if _, ok := entry.Context[c.Name]; !ok {
				entry.Context[c.Name] = ""
			}
		}
		r.index[entry.Key] = len(r.keys)
		r.keys = append(r.keys, entry.Key)
		r.entries[entry.Key] = &entry
	}

	for _, name := range rf.Languages {
		if name == r.DefaultLanguage || r.language(name) != nil {
			continue
		}
		if !ValidLanguageName(name) {
			return nil, fmt.Errorf("%s: invalid language name %q", path, name)
		}
		l, err := loadLanguage(languagePath(dir, name))
		if err != nil {
			return nil, err
		}
		l.Name = name
		l.Texts = align(l.Texts, len(r.keys))
		r.languages = append(r.languages, l)
	}

	return r, nil
}

func languagePath(dir, name string) string {
	return filepath.Join(dir, LanguagesDir, name+".yaml")
}

func loadLanguage(path string) (*Language, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Language{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var l Language
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &l, nil
}

func align(texts []string, n int) []string {
	if len(texts) > n {
		return texts[:n]
	}
	for len(texts) < n {
		texts = append(texts, "")
	}
	return texts
}

// Save writes the registry file and every language list.
func (r *Registry) Save() error {
	if r.dir == "" {
		return fmt.Errorf("registry directory not set")
	}

	rf := registryFile{
		Version:         FormatVersion,
		DefaultLanguage: r.DefaultLanguage,
		Languages:       r.Languages(),
		Categories:      r.categories,
		Keys:            make([]Entry, 0, len(r.keys)),
		Groups:          r.groups,
		LastPass:        r.LastPass,
	}
	for _, k := range r.keys {
		rf.Keys = append(rf.Keys, *r.entries[k])
	}
	for k := range r.dismissed {
		rf.Dismissed = append(rf.Dismissed, k)
	}
	sort.Strings(rf.Dismissed)

	for _, l := range r.languages {
		data, err := yaml.Marshal(l)
		if err != nil {
			return fmt.Errorf("marshaling language %s: %w", l.Name, err)
		}
		if err := fsutil.WriteFile(languagePath(r.dir, l.Name), data, 0644); err != nil {
			return err
		}
	}

	data, err := yaml.Marshal(&rf)
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}
	return fsutil.WriteFile(filepath.Join(r.dir, FileName), data, 0644)
}
