// Package config implements auto-detection of project settings from a
// Unity project layout, and the .lokey.yaml configuration file.
package config

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Project holds auto-detected project information.
type Project struct {
	// Root is the absolute project directory.
	Root string
	// Name is the product name from ProjectSettings or the directory name.
	Name string
	// Version is the bundle version from ProjectSettings (default "0.0.0").
	Version string
	// Unity reports whether the directory looks like a Unity project
	// (Assets/ and ProjectSettings/ present).
	Unity bool
	// SourceDirs are directories scanned when no sources are configured,
	// relative to Root.
	SourceDirs []string
}

// Detect auto-detects project settings from rootDir.
func Detect(rootDir string) *Project {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		absRoot = rootDir
	}

	p := &Project{Root: absRoot}

	settings := filepath.Join(absRoot, "ProjectSettings", "ProjectSettings.asset")
	if name, version, err := parseProjectSettings(settings); err == nil {
		p.Name = name
		p.Version = version
	}
	if p.Name == "" {
		p.Name = filepath.Base(absRoot)
	}
	if p.Version == "" {
		p.Version = "0.0.0"
	}

	p.Unity = isDir(filepath.Join(absRoot, "Assets")) && isDir(filepath.Join(absRoot, "ProjectSettings"))
	if p.Unity {
		p.SourceDirs = []string{"Assets"}
	}
	return p
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// parseProjectSettings reads productName and bundleVersion from Unity's
// ProjectSettings.asset without a full YAML parse (the file carries Unity
// tags that plain YAML decoders reject).
func parseProjectSettings(path string) (name, version string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "productName:"); ok && name == "" {
			name = strings.Trim(strings.TrimSpace(v), `"'`)
		}
		if v, ok := strings.CutPrefix(line, "bundleVersion:"); ok && version == "" {
			version = strings.Trim(strings.TrimSpace(v), `"'`)
		}
	}
	return name, version, scanner.Err()
}

// StoreLanguages lists language codes that have a translation file under
// the store's languages directory.
func StoreLanguages(languagesDir string) []string {
	entries, err := os.ReadDir(languagesDir)
	if err != nil {
		return nil
	}
	var langs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		if lang := strings.TrimSuffix(name, ".yaml"); isLangCode(lang) {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	return langs
}

// isLangCode checks if a string looks like a language code
// (e.g. "ru", "pt-BR", "zh_Hans").
func isLangCode(s string) bool {
	if len(s) < 2 || len(s) > 16 {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case (c == '-' || c == '_') && i >= 2:
		default:
			return false
		}
	}
	return true
}
