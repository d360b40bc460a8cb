// Package csvfile reads and writes translation tables as CSV.
//
// The first row holds language names with the default language first.
// Every following row is one key: the default-language text followed by
// its translations, in header order.
package csvfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minios-linux/lokey/fsutil"
)

// Table is a parsed translation table.
type Table struct {
	// Header lists the languages; Header[0] is the default language.
	Header []string
	// Rows hold one key each, always len(Header) wide.
	Rows [][]string

	index map[string]int
}

// New returns an empty table with the given header.
func New(header []string) *Table {
	return &Table{Header: append([]string(nil), header...), index: make(map[string]int)}
}

// DefaultLanguage returns the name of the key column.
func (t *Table) DefaultLanguage() string {
	if len(t.Header) == 0 {
		return ""
	}
	return t.Header[0]
}

// Languages returns the translation languages (header minus the key column).
func (t *Table) Languages() []string {
	if len(t.Header) < 2 {
		return nil
	}
	return append([]string(nil), t.Header[1:]...)
}

// Column returns the index of lang in the header, or -1.
func (t *Table) Column(lang string) int {
	for i, h := range t.Header {
		if h == lang {
			return i
		}
	}
	return -1
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether a row exists for key.
func (t *Table) Has(key string) bool {
	_, ok := t.index[key]
	return ok
}

// Get returns the text of key in lang.
func (t *Table) Get(key, lang string) (string, bool) {
	i, ok := t.index[key]
	if !ok {
		return "", false
	}
	c := t.Column(lang)
	if c < 0 {
		return "", false
	}
	return t.Rows[i][c], true
}

// Add appends a row, padding or truncating it to the header width. The
// first column is the key. A row for an existing key replaces it.
func (t *Table) Add(row []string) {
	row = fit(row, len(t.Header))
	if len(row) == 0 {
		return
	}
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[row[0]]; ok {
		t.Rows[i] = row
		return
	}
	t.index[row[0]] = len(t.Rows)
	t.Rows = append(t.Rows, row)
}

func fit(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

// Parse reads a table. Short rows are padded with blanks, long rows are
// truncated, empty lines and rows without a key are skipped. Later
// duplicates of a key replace earlier ones. Rows may end in "\n" or
// "\r\n"; carriage returns inside quoted fields are kept.
func Parse(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte("\xef\xbb\xbf")) {
		br.Discard(3)
	}

	var header []string
	for {
		rec, err := readRecord(br)
		if err == io.EOF {
			return New(nil), nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV header: %w", err)
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		header = rec
		break
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := New(header)
	for {
		rec, err := readRecord(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		if rec[0] == "" {
			continue
		}
		t.Add(rec)
	}
	return t, nil
}

// readRecord reads one record. encoding/csv turns "\r\n" inside quoted
// fields into "\n", which would change keys written by Quote, so records
// are split here. Quotes are lazy: a quote inside an unquoted field, or
// after a closing quote, is literal.
func readRecord(br *bufio.Reader) ([]string, error) {
	var (
		rec     []string
		field   strings.Builder
		quoted  bool
		atStart = true
		started bool
	)
	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			if !started {
				return nil, io.EOF
			}
			return append(rec, field.String()), nil
		}
		if err != nil {
			return nil, err
		}
		started = true

		if quoted {
			if c != '"' {
				field.WriteByte(c)
				continue
			}
			if next, err := br.Peek(1); err == nil && next[0] == '"' {
				br.ReadByte()
				field.WriteByte('"')
				continue
			}
			quoted = false
			continue
		}

		switch c {
		case '"':
			if atStart {
				quoted = true
				atStart = false
				continue
			}
			field.WriteByte(c)
		case ',':
			rec = append(rec, field.String())
			field.Reset()
			atStart = true
			continue
		case '\n':
			return append(rec, field.String()), nil
		case '\r':
			if next, err := br.Peek(1); err == nil && next[0] == '\n' {
				br.ReadByte()
				return append(rec, field.String()), nil
			}
			field.WriteByte(c)
		default:
			field.WriteByte(c)
		}
		atStart = false
	}
}

// ParseFile reads a table from path. A missing file returns an empty table
// and an error wrapping fs.ErrNotExist.
func ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return New(nil), fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Quote encodes one field. A field is quoted, with internal quotes doubled,
// iff it contains a comma, a quote or a line break.
func Quote(field string) string {
	if !strings.ContainsAny(field, ",\"\n\r") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// Write encodes the table. Lines end with "\n".
func (t *Table) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	writeRow := func(row []string) {
		for i, f := range row {
			if i > 0 {
				bw.WriteByte(',')
			}
			bw.WriteString(Quote(f))
		}
		bw.WriteByte('\n')
	}
	writeRow(t.Header)
	for _, row := range t.Rows {
		writeRow(row)
	}
	return bw.Flush()
}

// Bytes returns the encoded table.
func (t *Table) Bytes() []byte {
	var buf bytes.Buffer
	_ = t.Write(&buf)
	return buf.Bytes()
}

// WriteFile atomically writes the table to path.
func (t *Table) WriteFile(path string) error {
	if len(t.Header) == 0 {
		return errors.New("table has no header")
	}
	if err := fsutil.WriteFile(path, t.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Building from a store
// ---------------------------------------------------------------------------

// Store is the read side of a translation store.
type Store interface {
	Keys() []string
	Languages() []string
	Translation(lang, key string) (string, error)
}

// FromStore builds a table of the store's current keys and in-memory
// translations, in key order.
func FromStore(defaultLang string, s Store) *Table {
	langs := s.Languages()
	t := New(append([]string{defaultLang}, langs...))
	for _, key := range s.Keys() {
		row := make([]string, 0, len(t.Header))
		row = append(row, key)
		for _, lang := range langs {
			text, _ := s.Translation(lang, key)
			row = append(row, text)
		}
		t.Add(row)
	}
	return t
}
