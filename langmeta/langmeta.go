// Package langmeta provides language metadata (canonical codes, native and
// English names, emoji flags) used in CLI output and file headers.
package langmeta

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Meta describes language display metadata.
type Meta struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	English string `json:"english,omitempty"`
	Flag    string `json:"flag,omitempty"`
}

// Canonical returns the BCP 47 form of a language code, accepting
// underscores ("pt_br" becomes "pt-BR").
func Canonical(lang string) (string, error) {
	tag, err := parse(lang)
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}

func parse(lang string) (language.Tag, error) {
	return language.Parse(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
}

// Resolve returns best-effort metadata for a language code. Unknown codes
// pass through as their own name.
func Resolve(lang string) Meta {
	tag, err := parse(lang)
	if err != nil {
		return Meta{Code: lang, Name: lang}
	}

	m := Meta{Code: tag.String(), Name: lang}
	if name := display.Self.Name(tag); name != "" {
		m.Name = cases.Title(tag).String(name)
	}
	m.English = display.English.Tags().Name(tag)
	if region, conf := tag.Region(); conf != language.No && region.IsCountry() {
		m.Flag = flag(region.String())
	}
	return m
}

// flag turns a two-letter region code into its regional indicator pair.
func flag(region string) string {
	if len(region) != 2 {
		return ""
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(region) {
		if c < 'A' || c > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + c - 'A')
	}
	return b.String()
}

// Label formats a language for listings, e.g. "🇷🇺 Русский (ru)".
func Label(lang string) string {
	m := Resolve(lang)
	label := m.Name
	if m.Name != lang {
		label += " (" + lang + ")"
	}
	if m.Flag != "" {
		label = m.Flag + " " + label
	}
	return label
}
