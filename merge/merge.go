// Package merge combines translation tables with a prior CSV and applies
// imported tables to a translation store.
package merge

import (
	"errors"
	"fmt"

	"github.com/minios-linux/lokey/csvfile"
	"github.com/minios-linux/lokey/langmeta"
	"github.com/minios-linux/lokey/source"
)

// Stats summarizes a table merge.
type Stats struct {
	// Kept counts keys whose row came from the prior table.
	Kept int
	// Blank counts keys absent from the prior table.
	Blank int
	// Dropped lists prior keys that are no longer current.
	Dropped []string
}

// Merge updates a prior table with the current one, the way an export
// over an existing CSV does:
//   - Rows follow the current table's keys in order.
//   - Keys found in prior keep prior's non-empty translations; languages
//     prior lacks, or leaves blank, fall back to current.
//   - Keys absent from prior get blank translations.
//   - Prior keys that are no longer current are dropped.
//   - Languages only prior knows are appended to the header.
func Merge(current, prior *csvfile.Table) (*csvfile.Table, Stats) {
	var stats Stats

	header := append([]string(nil), current.Header...)
	for _, lang := range prior.Languages() {
		if current.Column(lang) < 0 {
			header = append(header, lang)
		}
	}
	result := csvfile.New(header)

	for _, row := range current.Rows {
		key := row[0]
		merged := make([]string, len(header))
		merged[0] = key

		if !prior.Has(key) {
			stats.Blank++
			result.Add(merged)
			continue
		}
		stats.Kept++
		for i, lang := range header[1:] {
			if text, ok := prior.Get(key, lang); ok && text != "" {
				merged[i+1] = text
			} else if text, ok := current.Get(key, lang); ok {
				merged[i+1] = text
			}
		}
		result.Add(merged)
	}

	for _, row := range prior.Rows {
		if !current.Has(row[0]) {
			stats.Dropped = append(stats.Dropped, row[0])
		}
	}
	return result, stats
}

// Target is the write side of a translation store.
type Target interface {
	Has(key string) bool
	Languages() []string
	AddLanguage(name string) bool
	Translation(lang, key string) (string, error)
	SetTranslation(lang, key, text string) error
	AddSource(text string, ref source.Ref) bool
}

// ImportOptions controls Import.
type ImportOptions struct {
	// DefaultLanguage is the store's key language. Columns named after it
	// are ignored.
	DefaultLanguage string
	// AddKeys registers unknown keys instead of skipping them.
	AddKeys bool
	// SourcePath is the reference recorded for added keys.
	SourcePath string
}

// Change is one translation modified by an import.
type Change struct {
	Lang string
	Key  string
	Text string
}

// ImportResult summarizes an import.
type ImportResult struct {
	Languages []string // languages added to the store
	Added     []string // keys added (AddKeys)
	Skipped   []string // unknown keys skipped
	Changes   []Change
}

// Import applies a table to dst. Every cell of a known key replaces the
// stored translation, so importing an exported table reproduces it.
func Import(t *csvfile.Table, dst Target, opts ImportOptions) (ImportResult, error) {
	var res ImportResult
	if len(t.Header) == 0 {
		return res, errors.New("table has no header")
	}

	type column struct{ name, lang string }
	var cols []column
	for _, name := range t.Languages() {
		if name == "" || name == opts.DefaultLanguage {
			continue
		}
		lang, err := storeLanguage(dst, name)
		if err != nil {
			return res, err
		}
		if lang == opts.DefaultLanguage {
			continue
		}
		cols = append(cols, column{name: name, lang: lang})
	}
	for _, c := range cols {
		if dst.AddLanguage(c.lang) {
			res.Languages = append(res.Languages, c.lang)
		}
	}

	ref := source.NewRef(source.ExternalFile, opts.SourcePath)
	for _, row := range t.Rows {
		key := row[0]
		if !dst.Has(key) {
			if !opts.AddKeys || !dst.AddSource(key, ref) {
				res.Skipped = append(res.Skipped, key)
				continue
			}
			res.Added = append(res.Added, key)
		}
		for _, c := range cols {
			lang := c.lang
			text, _ := t.Get(key, c.name)
			old, err := dst.Translation(lang, key)
			if err != nil {
				return res, err
			}
			if old == text {
				continue
			}
			if err := dst.SetTranslation(lang, key, text); err != nil {
				return res, fmt.Errorf("importing %q (%s): %w", key, lang, err)
			}
			res.Changes = append(res.Changes, Change{Lang: lang, Key: key, Text: text})
		}
	}
	return res, nil
}

// storeLanguage maps a header name to a store language. Names the store
// already knows are used as is; anything else must be a valid language
// tag and is canonicalized ("pt_br" becomes "pt-BR").
func storeLanguage(dst Target, name string) (string, error) {
	for _, l := range dst.Languages() {
		if l == name {
			return name, nil
		}
	}
	lang, err := langmeta.Canonical(name)
	if err != nil {
		return "", fmt.Errorf("invalid language %q in header: %w", name, err)
	}
	return lang, nil
}
