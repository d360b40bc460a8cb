// Package lockfile implements lokey.lock: checksums of the source side of
// every translation at the moment it was recorded. A translation whose key
// or translator context changed since then is stale and needs review.
//
// The lock file lives in the store directory next to lokey.registry.yaml.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/minios-linux/lokey/fsutil"
	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "lokey.lock"

// Version is the lock file format version.
const Version = 1

// LockFile represents the lokey.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // language -> key -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// New returns an empty lock file that will be saved into dir.
func New(dir string) *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      filepath.Join(dir, LockFileName),
	}
}

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	lf := New(dir)

	data, err := os.ReadFile(lf.path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", lf.path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", lf.path, err)
	}
	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}
	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}
	return fsutil.WriteFile(lf.path, data, 0644)
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// Content builds the hashed source side of a translation: the key plus
// the context string shown to the translator.
func Content(key, context string) string {
	return key + "\x00" + context
}

// Record stores the checksum of content for a translated key.
func (lf *LockFile) Record(lang, key, content string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[lang] == nil {
		lf.Checksums[lang] = make(map[string]string)
	}
	lf.Checksums[lang][key] = Hash(content)
}

// Forget drops the checksum of a key, e.g. when its translation is cleared.
func (lf *LockFile) Forget(lang, key string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if m := lf.Checksums[lang]; m != nil {
		delete(m, key)
	}
}

// Stale reports whether a checksum was recorded for key and no longer
// matches content. Keys never recorded are not stale.
func (lf *LockFile) Stale(lang, key, content string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	old, ok := lf.Checksums[lang][key]
	return ok && old != Hash(content)
}

// Clean removes checksums for keys that are no longer present.
func (lf *LockFile) Clean(currentKeys []string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}
	for _, m := range lf.Checksums {
		for k := range m {
			if !valid[k] {
				delete(m, k)
			}
		}
	}
}

// Stats returns the number of languages and total keys in the lock file.
func (lf *LockFile) Stats() (langs, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	langs = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Languages returns the sorted languages with recorded checksums.
func (lf *LockFile) Languages() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	langs := make([]string, 0, len(lf.Checksums))
	for l := range lf.Checksums {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	langs, keys := lf.Stats()
	if langs == 0 {
		return "empty"
	}

	var parts []string
	for _, l := range lf.Languages() {
		parts = append(parts, fmt.Sprintf("%s: %d keys", l, len(lf.Checksums[l])))
	}
	return fmt.Sprintf("%d languages, %d keys (%s)", langs, keys, strings.Join(parts, ", "))
}
