package pofile

import (
	"bytes"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/minios-linux/lokey/source"
)

func TestParseAndHeaderFields(t *testing.T) {
	input := `# Translator note
msgid ""
msgstr ""
"Project-Id-Version: game 1.0\n"
"Language: ru\n"

#. Menu button
#: Assets/Menu.unity Assets/Menu.prefab
msgid "Start"
msgstr "Старт"

#, fuzzy
#| msgid "Old"
msgid "Quit"
msgstr "Выйти"

msgid "coin"
msgid_plural "coins"
msgstr[0] "монета"
msgstr[1] "монеты"

msgid ""
"Two\n"
"lines"
msgstr ""
"Две\n"
"строки"

#~ msgid "Gone"
#~ msgstr "Нет"
`

	f, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := f.HeaderField("language"); got != "ru" {
		t.Fatalf("HeaderField(language) = %q, want ru", got)
	}
	f.SetHeaderField("Language", "de")
	f.SetHeaderField("X-Generator", "lokey")
	if got := f.Language(); got != "de" {
		t.Fatalf("Language() = %q, want de", got)
	}
	if got := f.HeaderField("X-Generator"); got != "lokey" {
		t.Fatalf("X-Generator = %q", got)
	}

	if len(f.Entries) != 5 {
		t.Fatalf("entries len = %d, want 5", len(f.Entries))
	}
	start := f.Entries[0]
	if !reflect.DeepEqual(start.References, []string{"Assets/Menu.unity", "Assets/Menu.prefab"}) {
		t.Fatalf("References = %v", start.References)
	}
	if !reflect.DeepEqual(start.ExtractedComments, []string{"Menu button"}) {
		t.Fatalf("ExtractedComments = %v", start.ExtractedComments)
	}
	if !f.Entries[1].IsFuzzy() {
		t.Fatal("Quit should be fuzzy")
	}
	if got := f.Entries[2].MsgStr; got != "монета" {
		t.Fatalf("plural MsgStr = %q, want msgstr[0]", got)
	}
	if e := f.Entries[3]; e.MsgID != "Two\nlines" || e.MsgStr != "Две\nстроки" {
		t.Fatalf("multiline entry = %q / %q", e.MsgID, e.MsgStr)
	}
	if !f.Entries[4].Obsolete {
		t.Fatal("Gone should be obsolete")
	}

	tbl, err := f.Table("en")
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if got, want := tbl.Header, []string{"en", "de"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Header = %v, want %v", got, want)
	}
	want := [][]string{{"Start", "Старт"}, {"coin", "монета"}, {"Two\nlines", "Две\nстроки"}}
	if !reflect.DeepEqual(tbl.Rows, want) {
		t.Fatalf("Rows = %q, want %q", tbl.Rows, want)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse(strings.NewReader("msgid \"a\"\nbogus line\n")); err == nil {
		t.Fatal("expected error for unexpected line")
	}
}

func TestTableWithoutLanguage(t *testing.T) {
	if _, err := NewFile().Table("en"); err == nil {
		t.Fatal("expected error for catalog without Language")
	}
}

type fakeStore struct{}

func (fakeStore) Keys() []string { return []string{"Start", "He said \"hi\"\n", "Quit"} }

func (fakeStore) Translation(lang, key string) (string, error) {
	switch key {
	case "Start":
		return "Старт", nil
	case "Quit":
		return "Выход", nil
	}
	return "", nil
}

func (fakeStore) Sources(key string) []source.Ref {
	if key == "Start" {
		return []source.Ref{source.NewRef(source.Scene, "Assets/Menu.unity"), source.NewRef(source.Script, "menu.go")}
	}
	return nil
}

func (fakeStore) Context(key string) string {
	if key == "Start" {
		return "Menu: main"
	}
	return ""
}

func TestExportWriteParse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	f := Export(fakeStore{}, "ru", ExportOptions{
		Project: "game 1.2",
		Now:     now,
		Fuzzy:   func(key string) bool { return key == "Quit" },
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"\"Project-Id-Version: game 1.2\\n\"",
		"\"PO-Revision-Date: 2026-03-01 12:30+0000\\n\"",
		"\"Language: ru\\n\"",
		"#. Menu: main\n#: Assets/Menu.unity menu.go\nmsgid \"Start\"\nmsgstr \"Старт\"\n",
		"msgid \"\"\n\"He said \\\"hi\\\"\\n\"\nmsgstr \"\"\n",
		"#, fuzzy\nmsgid \"Quit\"\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	path := filepath.Join(t.TempDir(), "ru.po")
	if err := f.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	parsed, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(parsed.Entries) != 3 || parsed.Entries[1].MsgID != "He said \"hi\"\n" {
		t.Fatalf("parsed entries = %+v", parsed.Entries)
	}
	if parsed.Language() != "ru" {
		t.Fatalf("Language() = %q", parsed.Language())
	}
}

func TestQuoteUnquote(t *testing.T) {
	for _, s := range []string{"plain", `back\slash`, "tab\there", `"q"`, "cr\r"} {
		if got := unquote(quote(s)); got != s {
			t.Fatalf("unquote(quote(%q)) = %q", s, got)
		}
	}
}
