// Package pofile reads and writes one language of the translation store as
// a GNU gettext PO catalog, for translators who work in PO editors.
package pofile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/minios-linux/lokey/csvfile"
	"github.com/minios-linux/lokey/fsutil"
	"github.com/minios-linux/lokey/source"
)

// Entry is one key of the catalog.
type Entry struct {
	// TranslatorComments are lines starting with "# ".
	TranslatorComments []string
	// ExtractedComments are lines starting with "#."; export writes the
	// translator context here.
	ExtractedComments []string
	// References are lines starting with "#:".
	References []string
	// Flags are lines starting with "#,".
	Flags []string

	MsgID  string
	MsgStr string

	// Obsolete marks entries prefixed with "#~".
	Obsolete bool
}

// IsFuzzy returns true if the entry is marked fuzzy.
func (e *Entry) IsFuzzy() bool {
	return e.HasFlag("fuzzy")
}

// HasFlag checks if a specific flag is present.
func (e *Entry) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// File is a parsed catalog.
type File struct {
	// Header is the metadata entry (msgid "").
	Header  *Entry
	Entries []*Entry
}

// NewFile creates a new empty catalog.
func NewFile() *File {
	return &File{Header: &Entry{}}
}

// HeaderField returns a header field value by name.
func (f *File) HeaderField(name string) string {
	if f.Header == nil {
		return ""
	}
	for _, line := range strings.Split(f.Header.MsgStr, "\n") {
		if idx := strings.Index(line, ":"); idx > 0 {
			if strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
				return strings.TrimSpace(line[idx+1:])
			}
		}
	}
	return ""
}

// SetHeaderField sets a header field value.
func (f *File) SetHeaderField(name, value string) {
	if f.Header == nil {
		f.Header = &Entry{}
	}
	lines := strings.Split(strings.TrimSuffix(f.Header.MsgStr, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}
	found := false
	for i, line := range lines {
		if idx := strings.Index(line, ":"); idx > 0 && strings.EqualFold(strings.TrimSpace(line[:idx]), name) {
			lines[i] = name + ": " + value
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, name+": "+value)
	}
	f.Header.MsgStr = strings.Join(lines, "\n") + "\n"
}

// Language returns the catalog's Language header.
func (f *File) Language() string {
	return f.HeaderField("Language")
}

// ---------------------------------------------------------------------------
// Conversion
// ---------------------------------------------------------------------------

// Store is the read side of the translation store used for export.
type Store interface {
	Keys() []string
	Translation(lang, key string) (string, error)
	Sources(key string) []source.Ref
	Context(key string) string
}

// ExportOptions controls Export.
type ExportOptions struct {
	// Project is written to Project-Id-Version.
	Project string
	// Now stamps PO-Revision-Date (default: time.Now).
	Now time.Time
	// Fuzzy marks a key "#, fuzzy", e.g. when its translation is stale.
	Fuzzy func(key string) bool
}

// Export builds the catalog of lang. Keys become msgids in store order,
// sources become references and the translator context an extracted
// comment.
func Export(s Store, lang string, opts ExportOptions) *File {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	f := NewFile()
	f.SetHeaderField("Project-Id-Version", opts.Project)
	f.SetHeaderField("PO-Revision-Date", now.UTC().Format("2006-01-02 15:04+0000"))
	f.SetHeaderField("Language", lang)
	f.SetHeaderField("MIME-Version", "1.0")
	f.SetHeaderField("Content-Type", "text/plain; charset=UTF-8")
	f.SetHeaderField("Content-Transfer-Encoding", "8bit")

	for _, key := range s.Keys() {
		text, _ := s.Translation(lang, key)
		e := &Entry{MsgID: key, MsgStr: text}
		if ctx := s.Context(key); ctx != "" {
			e.ExtractedComments = strings.Split(ctx, "\n")
		}
		for _, ref := range s.Sources(key) {
			e.References = append(e.References, ref.Path)
		}
		if text != "" && opts.Fuzzy != nil && opts.Fuzzy(key) {
			e.Flags = append(e.Flags, "fuzzy")
		}
		f.Entries = append(f.Entries, e)
	}
	return f
}

// Table converts the catalog into a two-column translation table for
// import. Obsolete and fuzzy entries are left out.
func (f *File) Table(defaultLang string) (*csvfile.Table, error) {
	lang := f.Language()
	if lang == "" {
		return nil, fmt.Errorf("catalog has no Language header")
	}
	t := csvfile.New([]string{defaultLang, lang})
	for _, e := range f.Entries {
		if e.Obsolete || e.IsFuzzy() || e.MsgID == "" {
			continue
		}
		t.Add([]string{e.MsgID, e.MsgStr})
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

// Parse reads a catalog. Plural forms are accepted; only msgstr[0] is kept.
func Parse(r io.Reader) (*File, error) {
	f := NewFile()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var current *Entry
	var lastField string // msgid/msgstr field continued by quoted lines
	lineNum := 0

	flush := func() {
		if current == nil {
			return
		}
		if current.MsgID == "" && !current.Obsolete {
			f.Header = current
		} else {
			f.Entries = append(f.Entries, current)
		}
		current = nil
		lastField = ""
	}

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current == nil {
			current = &Entry{}
		}

		if strings.HasPrefix(line, "#~ ") {
			current.Obsolete = true
			line = line[3:]
		}

		if strings.HasPrefix(line, "#") && !strings.HasPrefix(line, "#~") {
			switch {
			case strings.HasPrefix(line, "#:"):
				current.References = append(current.References, strings.Fields(line[2:])...)
			case strings.HasPrefix(line, "#,"):
				for _, flag := range strings.Split(line[2:], ",") {
					if flag = strings.TrimSpace(flag); flag != "" {
						current.Flags = append(current.Flags, flag)
					}
				}
			case strings.HasPrefix(line, "#."):
				current.ExtractedComments = append(current.ExtractedComments, strings.TrimSpace(line[2:]))
			case strings.HasPrefix(line, "#|"):
			default:
				current.TranslatorComments = append(current.TranslatorComments, strings.TrimPrefix(line[1:], " "))
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "msgctxt "):
			lastField = "msgctxt"
		case strings.HasPrefix(line, "msgid_plural "):
			lastField = "msgid_plural"
		case strings.HasPrefix(line, "msgid "):
			current.MsgID = unquote(strings.TrimPrefix(line, "msgid "))
			lastField = "msgid"
		case strings.HasPrefix(line, "msgstr[0] "):
			current.MsgStr = unquote(strings.TrimPrefix(line, "msgstr[0] "))
			lastField = "msgstr"
		case strings.HasPrefix(line, "msgstr["):
			if !strings.Contains(line, "] ") {
				return nil, fmt.Errorf("line %d: invalid msgstr format: %s", lineNum, line)
			}
			lastField = "msgstr[n]"
		case strings.HasPrefix(line, "msgstr "):
			current.MsgStr = unquote(strings.TrimPrefix(line, "msgstr "))
			lastField = "msgstr"
		case strings.HasPrefix(line, "\""):
			switch lastField {
			case "msgid":
				current.MsgID += unquote(line)
			case "msgstr":
				current.MsgStr += unquote(line)
			}
		default:
			return nil, fmt.Errorf("line %d: unexpected %q", lineNum, line)
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading PO file: %w", err)
	}
	return f, nil
}

// ParseFile reads a catalog from disk.
func ParseFile(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	f, err := Parse(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Write writes the catalog.
func (f *File) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if f.Header != nil {
		writeEntry(bw, f.Header)
	}
	for _, e := range f.Entries {
		fmt.Fprintln(bw)
		writeEntry(bw, e)
	}
	return bw.Flush()
}

// WriteFile atomically writes the catalog to path.
func (f *File) WriteFile(path string) error {
	var sb strings.Builder
	if err := f.Write(&sb); err != nil {
		return err
	}
	return fsutil.WriteFile(path, []byte(sb.String()), 0644)
}

func writeEntry(w *bufio.Writer, e *Entry) {
	prefix := ""
	if e.Obsolete {
		prefix = "#~ "
	}
	for _, c := range e.TranslatorComments {
		fmt.Fprintf(w, "# %s\n", c)
	}
	for _, c := range e.ExtractedComments {
		fmt.Fprintf(w, "#. %s\n", c)
	}
	if len(e.References) > 0 {
		fmt.Fprintf(w, "#: %s\n", strings.Join(e.References, " "))
	}
	if len(e.Flags) > 0 {
		fmt.Fprintf(w, "#, %s\n", strings.Join(e.Flags, ", "))
	}
	writeQuotedField(w, prefix+"msgid", e.MsgID)
	writeQuotedField(w, prefix+"msgstr", e.MsgStr)
}

// writeQuotedField writes a PO field with proper multiline quoting.
func writeQuotedField(w *bufio.Writer, field, value string) {
	if !strings.Contains(value, "\n") {
		fmt.Fprintf(w, "%s %s\n", field, quote(value))
		return
	}

	// Multiline: use empty string on first line
	fmt.Fprintf(w, "%s \"\"\n", field)
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if i < len(parts)-1 {
			fmt.Fprintf(w, "%s\n", quote(part+"\n"))
		} else if part != "" {
			fmt.Fprintf(w, "%s\n", quote(part))
		}
	}
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\t", `\t`, "\r", `\r`)

// quote produces a PO-style quoted string.
func quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}

// unquote removes PO-style quoting from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return s
	}
	s = s[1 : len(s)-1]

	var result strings.Builder
	result.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			result.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			result.WriteByte('\n')
		case 't':
			result.WriteByte('\t')
		case 'r':
			result.WriteByte('\r')
		case '\\', '"':
			result.WriteByte(s[i])
		default:
			result.WriteByte('\\')
			result.WriteByte(s[i])
		}
	}
	return result.String()
}
