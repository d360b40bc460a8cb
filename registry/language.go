package registry

import (
	"fmt"
	"strings"

	"github.com/minios-linux/lokey/lockfile"
)

// Language is the translation list of one language, aligned with the
// registry key order.
type Language struct {
	Name  string   `yaml:"language"`
	Texts []string `yaml:"texts"`
}

// Languages returns the names of all non-default languages.
func (r *Registry) Languages() []string {
	names := make([]string, 0, len(r.languages))
	for _, l := range r.languages {
		names = append(names, l.Name)
	}
	return names
}

func (r *Registry) language(name string) *Language {
	for _, l := range r.languages {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// ValidLanguageName reports whether name can name a language file in the
// store: non-empty, no path separators, not a dot name.
func ValidLanguageName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, "/\\\x00") && !strings.HasPrefix(name, ".")
}

// AddLanguage adds a blank, aligned translation list. The default language,
// existing languages and invalid names are ignored. Returns true if added.
func (r *Registry) AddLanguage(name string) bool {
	name = strings.TrimSpace(name)
	if !ValidLanguageName(name) || name == r.DefaultLanguage || r.language(name) != nil {
		return false
	}
	r.languages = append(r.languages, &Language{Name: name, Texts: make([]string, len(r.keys))})
	return true
}

// Translation returns the text of key in lang. For the default language
// it is the key itself.
func (r *Registry) Translation(lang, key string) (string, error) {
	i, ok := r.index[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if lang == r.DefaultLanguage {
		return key, nil
	}
	l := r.language(lang)
	if l == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	return l.Texts[i], nil
}

// SetTranslation stores the text of key in lang.
func (r *Registry) SetTranslation(lang, key, text string) error {
	i, ok := r.index[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if lang == r.DefaultLanguage {
		return fmt.Errorf("cannot translate into the default language %q", lang)
	}
	l := r.language(lang)
	if l == nil {
		return fmt.Errorf("%w: %q", ErrUnknownLanguage, lang)
	}
	l.Texts[i] = text
	return nil
}

// TranslationStatus is the lifecycle of one key in one language.
type TranslationStatus int

const (
	Untranslated TranslationStatus = iota
	Translated
	Stale
)

func (s TranslationStatus) String() string {
	switch s {
	case Translated:
		return "translated"
	case Stale:
		return "stale"
	default:
		return "untranslated"
	}
}

// LockContent is the source side of key recorded in the lock file.
func (r *Registry) LockContent(key string) string {
	return lockfile.Content(key, r.Context(key))
}

// TranslationStatus reports whether key is translated in lang. A
// translation is stale when lf holds a checksum for it that no longer
// matches the key and its context. lf may be nil.
func (r *Registry) TranslationStatus(lang, key string, lf *lockfile.LockFile) TranslationStatus {
	text, err := r.Translation(lang, key)
	if err != nil || text == "" {
		return Untranslated
	}
	if lf != nil && lang != r.DefaultLanguage && lf.Stale(lang, key, r.LockContent(key)) {
		return Stale
	}
	return Translated
}

// LanguageStats counts translation states of every key in lang.
type LanguageStats struct {
	Language     string `json:"language"`
	Translated   int    `json:"translated"`
	Stale        int    `json:"stale"`
	Untranslated int    `json:"untranslated"`
}

// Stats returns LanguageStats for every non-default language.
func (r *Registry) Stats(lf *lockfile.LockFile) []LanguageStats {
	var out []LanguageStats
	for _, l := range r.languages {
		s := LanguageStats{Language: l.Name}
		for _, k := range r.keys {
			switch r.TranslationStatus(l.Name, k, lf) {
			case Translated:
				s.Translated++
			case Stale:
				s.Stale++
			default:
				s.Untranslated++
			}
		}
		out = append(out, s)
	}
	return out
}
