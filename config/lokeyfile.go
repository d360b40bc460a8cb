// Package config: .lokey.yaml configuration file support.
//
// The file is optional. Without it every setting takes its default and the
// whole project is scanned.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/lokey/extract"
	"github.com/minios-linux/lokey/fsutil"
	"github.com/minios-linux/lokey/registry"
	"github.com/minios-linux/lokey/similarity"
	"github.com/minios-linux/lokey/source"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// LokeyFile is the top-level .lokey.yaml structure.
type LokeyFile struct {
	// DefaultLanguage is the language of the keys (default "en").
	DefaultLanguage string `yaml:"default_language,omitempty"`
	// Languages are the translation languages created in the store.
	Languages []string `yaml:"languages,omitempty"`

	// StoreDir holds the registry, language files and lock file
	// (default ".lokey").
	StoreDir string `yaml:"store_dir,omitempty"`
	// CSV is the translation table used by export and import.
	CSV string `yaml:"csv,omitempty"`
	// Changelog is the Markdown changelog (default "CHANGELOG.md").
	Changelog string `yaml:"changelog,omitempty"`

	// Sources are folders or assets to scan; empty means the whole project.
	Sources []string `yaml:"sources,omitempty"`
	// Include and Exclude are glob filters on project-relative paths.
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
	// Keywords are xgettext-style call specs scanned in Go scripts.
	Keywords []string `yaml:"keywords,omitempty"`
	// Extensions maps file extensions to source types, replacing the
	// built-in table.
	Extensions map[string]string `yaml:"extensions,omitempty"`
	// Schemas declare translatable fields of data kinds.
	Schemas []extract.Schema `yaml:"schemas,omitempty"`
	// UnityUIText enables the built-in uGUI/TextMeshPro schema (default true).
	UnityUIText *bool `yaml:"unity_ui_text,omitempty"`
	// Workers bounds concurrent file parsing.
	Workers int `yaml:"workers,omitempty"`

	// Categories are the context categories created in the store.
	Categories []registry.Category `yaml:"categories,omitempty"`

	Similarity Similarity `yaml:"similarity,omitempty"`

	// Reconcile is the policy for keys found again: keep, recent or clear.
	Reconcile string `yaml:"reconcile,omitempty"`
}

// Similarity configures near-duplicate detection.
type Similarity struct {
	Threshold float64 `yaml:"threshold,omitempty"`
	Metric    string  `yaml:"metric,omitempty"`
}

// Defaults.
const (
	DefaultLanguage  = "en"
	DefaultStoreDir  = ".lokey"
	DefaultCSV       = "Localization/texts.csv"
	DefaultChangelog = "CHANGELOG.md"
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LokeyFileName is the config file name.
const LokeyFileName = ".lokey.yaml"

// Default returns the configuration used when no file exists.
func Default() *LokeyFile {
	lf := &LokeyFile{}
	lf.applyDefaults()
	return lf
}

// LoadLokeyFile loads and validates .lokey.yaml from rootDir. A missing
// file yields Default().
func LoadLokeyFile(rootDir string) (*LokeyFile, error) {
	path := filepath.Join(rootDir, LokeyFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var lf LokeyFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	lf.applyDefaults()
	if err := lf.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &lf, nil
}

func (lf *LokeyFile) applyDefaults() {
	if lf.DefaultLanguage == "" {
		lf.DefaultLanguage = DefaultLanguage
	}
	if lf.StoreDir == "" {
		lf.StoreDir = DefaultStoreDir
	}
	if lf.CSV == "" {
		lf.CSV = DefaultCSV
	}
	if lf.Changelog == "" {
		lf.Changelog = DefaultChangelog
	}
	if lf.Similarity.Threshold == 0 {
		lf.Similarity.Threshold = similarity.DefaultThreshold
	}
	if lf.Similarity.Metric == "" {
		lf.Similarity.Metric = similarity.MetricLevenshtein
	}
	if lf.Reconcile == "" {
		lf.Reconcile = string(registry.PolicyKeep)
	}
	if lf.UnityUIText == nil {
		on := true
		lf.UnityUIText = &on
	}
}

// Validate checks language codes, the similarity policy, the reconcile
// policy, extensions and schemas.
func (lf *LokeyFile) Validate() error {
	if _, err := language.Parse(lf.DefaultLanguage); err != nil {
		return fmt.Errorf("default_language %q: %w", lf.DefaultLanguage, err)
	}
	seen := map[string]bool{lf.DefaultLanguage: true}
	for _, l := range lf.Languages {
		if _, err := language.Parse(l); err != nil {
			return fmt.Errorf("language %q: %w", l, err)
		}
		if seen[l] {
			return fmt.Errorf("language %q listed twice or equal to default_language", l)
		}
		seen[l] = true
	}

	if t := lf.Similarity.Threshold; t <= 0 || t > 1 {
		return fmt.Errorf("similarity.threshold %v out of range (0,1]", t)
	}
	if !slices.Contains(similarity.MetricNames, lf.Similarity.Metric) {
		return fmt.Errorf("similarity.metric %q unknown (valid: %s)",
			lf.Similarity.Metric, strings.Join(similarity.MetricNames, ", "))
	}
	if _, err := registry.ParsePolicy(lf.Reconcile); err != nil {
		return err
	}
	if _, err := lf.ExtensionMap(); err != nil {
		return err
	}
	if _, err := lf.SchemaTable(); err != nil {
		return err
	}
	for _, c := range lf.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return errors.New("category without name")
		}
	}
	return nil
}

// ExtensionMap resolves the configured extension table, or nil for the
// built-in one.
func (lf *LokeyFile) ExtensionMap() (map[string]source.Type, error) {
	if len(lf.Extensions) == 0 {
		return nil, nil
	}
	m := make(map[string]source.Type, len(lf.Extensions))
	for ext, name := range lf.Extensions {
		t, err := source.ParseType(name)
		if err != nil {
			return nil, fmt.Errorf("extensions[%s]: %w", ext, err)
		}
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		m[ext] = t
	}
	return m, nil
}

// SchemaTable builds the schema table: the Unity UI schema when enabled,
// then the configured schemas (a configured kind replaces a built-in one).
func (lf *LokeyFile) SchemaTable() (*extract.Schemas, error) {
	var list []extract.Schema
	if lf.UnityUIText == nil || *lf.UnityUIText {
		list = append(list, extract.UnitySchemas()...)
	}
	list = append(list, lf.Schemas...)
	s, err := extract.NewSchemas(list...)
	if err != nil {
		return nil, fmt.Errorf("schemas: %w", err)
	}
	return s, nil
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

// StorePath returns the absolute store directory.
func (lf *LokeyFile) StorePath(root string) string {
	return resolve(root, lf.StoreDir)
}

// CSVPath returns the absolute CSV path.
func (lf *LokeyFile) CSVPath(root string) string {
	return resolve(root, lf.CSV)
}

// ChangelogPath returns the absolute changelog path.
func (lf *LokeyFile) ChangelogPath(root string) string {
	return resolve(root, lf.Changelog)
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// ---------------------------------------------------------------------------
// Saving
// ---------------------------------------------------------------------------

// Save writes the configuration to rootDir/.lokey.yaml.
func (lf *LokeyFile) Save(rootDir string) error {
	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	path := filepath.Join(rootDir, LokeyFileName)
	if err := fsutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
