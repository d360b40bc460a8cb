// Package changelog reads and writes Markdown changelogs of the form
//
//	## [1.2.0] - 2026-03-01
//	### Added
//	- New dialogue export
//
// "Unreleased" is the reserved version of changes not yet tagged.
package changelog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/minios-linux/lokey/fsutil"
)

// Unreleased is the version token of changes not yet tagged.
const Unreleased = "Unreleased"

// DateLayout is the release date format written to headers.
const DateLayout = "2006-01-02"

// ErrNotFound is returned by ParseFile when the changelog does not exist.
var ErrNotFound = errors.New("changelog not found")

// Section is the list of changes of one category.
type Section struct {
	Category string   `json:"category"`
	Changes  []string `json:"changes"`
	// Notes are other lines of the section, written after the changes.
	Notes []string `json:"notes,omitempty"`
}

// Release is one version of the changelog.
type Release struct {
	Version  string    `json:"version"`
	Date     time.Time `json:"date"`
	Sections []Section `json:"sections,omitempty"`
	// Notes are lines between the header and the first section.
	Notes []string `json:"notes,omitempty"`
}

// IsUnreleased reports whether r holds untagged changes.
func (r *Release) IsUnreleased() bool {
	return strings.EqualFold(r.Version, Unreleased)
}

func (r *Release) section(category string) *Section {
	for i := range r.Sections {
		if strings.EqualFold(r.Sections[i].Category, category) {
			return &r.Sections[i]
		}
	}
	r.Sections = append(r.Sections, Section{Category: category})
	return &r.Sections[len(r.Sections)-1]
}

// Changelog is a parsed changelog. Releases are kept in file order, newest
// first by convention.
type Changelog struct {
	// Preamble is the text before the first release header.
	Preamble string
	Releases []*Release
}

var headerRe = regexp.MustCompile(`^##\s+\[?([^\]\s]+)\]?\s*(?:-\s*(.+?))?\s*$`)

// Parse reads a changelog. A release header whose date cannot be parsed is
// kept with a zero date. Indented lines after a bullet continue it; other
// lines inside a release are kept as notes.
func Parse(r io.Reader) (*Changelog, error) {
	c := &Changelog{}
	var pre strings.Builder
	var cur *Release
	var sec *Section
	inBullet := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		trimmed := strings.TrimSpace(line)

		if cur == nil && !strings.HasPrefix(trimmed, "## ") {
			pre.WriteString(line + "\n")
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "### "):
			sec = cur.section(strings.TrimSpace(trimmed[4:]))
			inBullet = false
		case strings.HasPrefix(trimmed, "## ") && headerRe.MatchString(trimmed):
			m := headerRe.FindStringSubmatch(trimmed)
			cur = &Release{Version: m[1]}
			if m[2] != "" {
				if d, err := dateparse.ParseAny(m[2]); err == nil {
					cur.Date = d
				}
			}
			c.Releases = append(c.Releases, cur)
			sec = nil
			inBullet = false
		case cur == nil:
			pre.WriteString(line + "\n")
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			if sec == nil {
				sec = cur.section("Changed")
			}
			sec.Changes = append(sec.Changes, strings.TrimSpace(trimmed[2:]))
			inBullet = true
		case trimmed == "":
			inBullet = false
		case inBullet && line != trimmed:
			sec.Changes[len(sec.Changes)-1] += "\n" + line
		case sec != nil:
			sec.Notes = append(sec.Notes, line)
		default:
			cur.Notes = append(cur.Notes, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading changelog: %w", err)
	}
	c.Preamble = strings.TrimSpace(pre.String())
	return c, nil
}

// ParseFile reads a changelog from path. A missing file yields an empty
// changelog and ErrNotFound.
func ParseFile(path string) (*Changelog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Changelog{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	return Parse(bytes.NewReader(data))
}

// Unreleased returns the untagged release, or nil.
func (c *Changelog) Unreleased() *Release {
	for _, r := range c.Releases {
		if r.IsUnreleased() {
			return r
		}
	}
	return nil
}

// Latest returns the newest tagged release by date, or nil. Releases
// without a date only win when no release has one.
func (c *Changelog) Latest() *Release {
	var best *Release
	for _, r := range c.Releases {
		if r.IsUnreleased() {
			continue
		}
		if best == nil || r.Date.After(best.Date) {
			best = r
		}
	}
	return best
}

// Add records a change under category in the Unreleased release, creating
// it at the top when missing.
func (c *Changelog) Add(category, change string) error {
	category = strings.TrimSpace(category)
	change = strings.TrimSpace(change)
	if category == "" || change == "" {
		return errors.New("category and change must not be empty")
	}
	u := c.Unreleased()
	if u == nil {
		u = &Release{Version: Unreleased}
		c.Releases = append([]*Release{u}, c.Releases...)
	}
	sec := u.section(category)
	sec.Changes = append(sec.Changes, change)
	return nil
}

// Release tags the Unreleased changes as version on date.
func (c *Changelog) Release(version string, date time.Time) (*Release, error) {
	version = strings.TrimSpace(version)
	if version == "" || strings.EqualFold(version, Unreleased) {
		return nil, fmt.Errorf("invalid release version %q", version)
	}
	for _, r := range c.Releases {
		if r.Version == version {
			return nil, fmt.Errorf("version %s already released", version)
		}
	}
	u := c.Unreleased()
	if u == nil || len(u.Sections) == 0 {
		return nil, errors.New("no unreleased changes")
	}
	u.Version = version
	u.Date = date
	return u, nil
}

// Write encodes the changelog.
func (c *Changelog) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if c.Preamble != "" {
		fmt.Fprintf(bw, "%s\n\n", c.Preamble)
	}
	for i, r := range c.Releases {
		if i > 0 {
			bw.WriteString("\n")
		}
		if r.IsUnreleased() || r.Date.IsZero() {
			fmt.Fprintf(bw, "## [%s]\n", r.Version)
		} else {
			fmt.Fprintf(bw, "## [%s] - %s\n", r.Version, r.Date.Format(DateLayout))
		}
		if len(r.Notes) > 0 {
			fmt.Fprintf(bw, "\n%s\n", strings.Join(r.Notes, "\n"))
		}
		for _, s := range r.Sections {
			fmt.Fprintf(bw, "\n### %s\n\n", s.Category)
			for _, ch := range s.Changes {
				fmt.Fprintf(bw, "- %s\n", ch)
			}
			if len(s.Notes) > 0 {
				fmt.Fprintf(bw, "\n%s\n", strings.Join(s.Notes, "\n"))
			}
		}
	}
	return bw.Flush()
}

// WriteFile atomically writes the changelog to path.
func (c *Changelog) WriteFile(path string) error {
	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return err
	}
	return fsutil.WriteFile(path, buf.Bytes(), 0644)
}
