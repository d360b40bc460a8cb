package registry

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/minios-linux/lokey/lockfile"
	"github.com/minios-linux/lokey/source"
)

func TestAddSourceDedupAndCap(t *testing.T) {
	r := New(t.TempDir(), "en")

	refs := []source.Ref{
		source.NewRef(source.Scene, "Assets/Main.unity"),
		source.NewRef(source.Prefab, "Assets/Button.prefab"),
		source.NewRef(source.Scene, "Assets/Main.unity"), // duplicate
		source.NewRef(source.Script, "game/menu.go"),
		source.NewRef(source.ExternalFile, "texts.txt"),
		source.NewRef(source.ScriptableObject, "Assets/Items.asset"), // fifth distinct
	}

	if !r.AddSource("Start", refs[0]) {
		t.Fatal("first AddSource should insert the key")
	}
	for _, ref := range refs[1:] {
		if r.AddSource("Start", ref) {
			t.Fatal("AddSource on an existing key reported insertion")
		}
	}

	want := []source.Ref{refs[0], refs[1], refs[3], refs[4]}
	if got := r.Sources("Start"); !reflect.DeepEqual(got, want) {
		t.Fatalf("Sources() = %v, want %v", got, want)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if r.AddSource("   ", refs[0]) {
		t.Fatal("blank text must be ignored")
	}
}

func TestTextStateDefaults(t *testing.T) {
	r := New(t.TempDir(), "en")
	if got := r.TextState("nope"); got != StateNone {
		t.Fatalf("TextState(unknown) = %q, want none", got)
	}
	if err := r.SetTextState("nope", StateNew); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("SetTextState(unknown) error = %v, want ErrUnknownKey", err)
	}

	r.AddSource("Hello", source.NewRef(source.Scene, "a.unity"))
	if err := r.SetTextState("Hello", StateRecent); err != nil {
		t.Fatal(err)
	}
	if got := r.TextState("Hello"); got != StateRecent {
		t.Fatalf("TextState = %q, want recent", got)
	}
}

func TestAddCategoryBackfills(t *testing.T) {
	r := New(t.TempDir(), "en")
	r.AddSource("Hello", source.NewRef(source.Scene, "a.unity"))

	if !r.AddCategory("speaker", "Spoken by {value}.") {
		t.Fatal("AddCategory should report a new category")
	}
	if r.AddCategory("speaker", "") {
		t.Fatal("AddCategory must be idempotent")
	}
	if got := r.Categories()[0].Template; got != "Spoken by {value}." {
		t.Fatalf("empty template replaced existing one: %q", got)
	}

	e, _ := r.Lookup("Hello")
	if v, ok := e.Context["speaker"]; !ok || v != "" {
		t.Fatalf("context not back-filled: %v", e.Context)
	}

	// Keys added later get the category too.
	r.AddSource("Bye", source.NewRef(source.Scene, "a.unity"))
	e, _ = r.Lookup("Bye")
	if _, ok := e.Context["speaker"]; !ok {
		t.Fatalf("new key missing category: %v", e.Context)
	}
}

func TestContextRendering(t *testing.T) {
	r := New(t.TempDir(), "en")
	r.AddSource("Hello", source.NewRef(source.Scene, "a.unity"))
	r.AddCategory("speaker", "Spoken by {value}.")
	r.AddCategory("screen", "Shown on the {value} screen.")
	r.AddCategory("note", "")

	if got := r.Context("Hello"); got != "" {
		t.Fatalf("empty context = %q", got)
	}

	must(t, r.SetContext("Hello", "screen", "title"))
	must(t, r.SetContext("Hello", "speaker", "the king"))
	must(t, r.SetContext("Hello", "note", "Keep it short."))

	want := "Spoken by the king. Shown on the title screen. Keep it short."
	if got := r.Context("Hello"); got != want {
		t.Fatalf("Context() = %q, want %q", got, want)
	}

	if err := r.SetContext("Hello", "mood", "x"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("SetContext(unknown category) = %v", err)
	}
}

func TestUpdateTextCategory(t *testing.T) {
	r := New(t.TempDir(), "en")
	r.AddSource("Hello", source.NewRef(source.Scene, "a.unity"))
	r.AddCategory("speaker", "")
	r.AddCategory("tag", "")
	must(t, r.SetContext("Hello", "speaker", "king"))
	must(t, r.SetContext("Hello", "tag", "speaker"))

	must(t, r.UpdateTextCategory("Hello", "speaker", "character"))

	e, _ := r.Lookup("Hello")
	if _, ok := e.Context["speaker"]; ok {
		t.Fatalf("old category still present: %v", e.Context)
	}
	if e.Context["character"] != "king" {
		t.Fatalf("value not migrated: %v", e.Context)
	}
	if e.Context["tag"] != "character" {
		t.Fatalf("value equal to old category name not rewritten: %v", e.Context)
	}

	if err := r.UpdateTextCategory("nope", "a", "b"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("unknown key error = %v", err)
	}
}

func TestRenameCategory(t *testing.T) {
	r := New(t.TempDir(), "en")
	r.AddCategory("speaker", "Spoken by {value}.")
	r.AddSource("Hello", source.NewRef(source.Scene, "a.unity"))
	r.AddSource("Bye", source.NewRef(source.Scene, "a.unity"))
	must(t, r.SetContext("Hello", "speaker", "king"))

	must(t, r.RenameCategory("speaker", "character"))

	if got := r.Categories(); len(got) != 1 || got[0].Name != "character" || got[0].Template != "Spoken by {value}." {
		t.Fatalf("Categories() = %v", got)
	}
	for _, k := range r.Keys() {
		e, _ := r.Lookup(k)
		if _, ok := e.Context["speaker"]; ok {
			t.Fatalf("%s still has old category: %v", k, e.Context)
		}
	}
	if got := r.Context("Hello"); got != "Spoken by king." {
		t.Fatalf("Context() after rename = %q", got)
	}

	if err := r.RenameCategory("missing", "x"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("rename unknown = %v", err)
	}
	r.AddCategory("screen", "")
	if err := r.RenameCategory("screen", "character"); err == nil {
		t.Fatal("rename onto an existing category should fail")
	}
}

func TestReconcile(t *testing.T) {
	r := New(t.TempDir(), "en")
	ref := source.NewRef(source.Scene, "old.unity")
	r.AddSource("Hello", ref)
	r.AddSource("Bye", ref)

	newRef := source.NewRef(source.Scene, "new.unity")
	diff := r.Reconcile([]source.Occurrence{
		{Text: "Bye", Refs: []source.Ref{newRef}},
		{Text: "Welcome", Refs: []source.Ref{newRef}},
	}, PolicyKeep)

	if got := r.TextState("Hello"); got != StateMissing {
		t.Fatalf("Hello = %q, want missing", got)
	}
	if got := r.TextState("Welcome"); got != StateNew {
		t.Fatalf("Welcome = %q, want new", got)
	}
	if got := r.TextState("Bye"); got != StateNone {
		t.Fatalf("Bye = %q, want unaffected", got)
	}
	if !reflect.DeepEqual(diff.New, []string{"Welcome"}) || !reflect.DeepEqual(diff.Missing, []string{"Hello"}) || !reflect.DeepEqual(diff.Kept, []string{"Bye"}) {
		t.Fatalf("diff = %+v", diff)
	}
	if got := r.Sources("Bye"); !reflect.DeepEqual(got, []source.Ref{newRef}) {
		t.Fatalf("Bye sources not refreshed: %v", got)
	}
	if got := r.Sources("Hello"); !reflect.DeepEqual(got, []source.Ref{ref}) {
		t.Fatalf("missing key lost its sources: %v", got)
	}
}

func TestReconcilePolicies(t *testing.T) {
	tests := []struct {
		policy Policy
		before TextState
		want   TextState
	}{
		{PolicyKeep, StateNew, StateNone},
		{PolicyKeep, StateMissing, StateNone},
		{PolicyKeep, StateRecent, StateRecent},
		{PolicyRecent, StateNew, StateRecent},
		{PolicyClear, StateRecent, StateNone},
	}
	for _, tc := range tests {
		r := New(t.TempDir(), "en")
		r.AddSource("Bye", source.NewRef(source.Scene, "a.unity"))
		must(t, r.SetTextState("Bye", tc.before))

		r.Reconcile([]source.Occurrence{{Text: "Bye"}}, tc.policy)
		if got := r.TextState("Bye"); got != tc.want {
			t.Fatalf("%s from %s: got %s, want %s", tc.policy, tc.before, got, tc.want)
		}
	}

	if _, err := ParsePolicy("sometimes"); err == nil {
		t.Fatal("ParsePolicy should reject unknown names")
	}
	if p, err := ParsePolicy(""); err != nil || p != PolicyKeep {
		t.Fatalf("ParsePolicy(\"\") = %q, %v", p, err)
	}
}

func TestLanguageListsStayAligned(t *testing.T) {
	r := New(t.TempDir(), "en")
	r.AddLanguage("ja")
	r.AddSource("Hello", source.NewRef(source.Scene, "a.unity"))
	r.AddSource("Bye", source.NewRef(source.Scene, "a.unity"))
	r.AddLanguage("fr")
	r.AddSource("Welcome", source.NewRef(source.Scene, "a.unity"))

	must(t, r.SetTranslation("ja", "Hello", "こんにちは"))
	must(t, r.SetTranslation("ja", "Welcome", "ようこそ"))
	must(t, r.SetTranslation("fr", "Welcome", "Bienvenue"))

	r.Reconcile([]source.Occurrence{{Text: "Welcome"}, {Text: "Hello"}}, PolicyKeep)
	removed := r.Prune()
	if !reflect.DeepEqual(removed, []string{"Bye"}) {
		t.Fatalf("Prune() = %v, want [Bye]", removed)
	}

	for _, lang := range r.Languages() {
		if got := len(r.language(lang).Texts); got != r.Len() {
			t.Fatalf("%s list length = %d, want %d", lang, got, r.Len())
		}
	}
	if got, _ := r.Translation("ja", "Welcome"); got != "ようこそ" {
		t.Fatalf("ja Welcome = %q after prune", got)
	}
	if got, _ := r.Translation("ja", "Hello"); got != "こんにちは" {
		t.Fatalf("ja Hello = %q after prune", got)
	}
	if got, _ := r.Translation("fr", "Welcome"); got != "Bienvenue" {
		t.Fatalf("fr Welcome = %q after prune", got)
	}
	if got, _ := r.Translation("en", "Hello"); got != "Hello" {
		t.Fatalf("default language translation = %q", got)
	}

	if r.AddLanguage("en") || r.AddLanguage("ja") {
		t.Fatal("default or existing language must not be added")
	}
	if err := r.SetTranslation("de", "Hello", "Hallo"); !errors.Is(err, ErrUnknownLanguage) {
		t.Fatalf("unknown language error = %v", err)
	}
	if err := r.SetTranslation("en", "Hello", "Hi"); err == nil {
		t.Fatal("setting the default language must fail")
	}
}

func TestGroupLifecycle(t *testing.T) {
	r := New(t.TempDir(), "en")
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	t1 := t0.Add(time.Hour)

	key, created := r.UpsertGroup([]string{"C", "A", "B"}, "levenshtein", 0.85, "scene", t0)
	if !created || key != "A|B|C" {
		t.Fatalf("UpsertGroup = %q, %v", key, created)
	}
	key2, created := r.UpsertGroup([]string{"B", "C", "A"}, "levenshtein", 0.9, "scene", t1)
	if created || key2 != key {
		t.Fatalf("second UpsertGroup = %q, %v", key2, created)
	}

	g, ok := r.Group(key)
	if !ok {
		t.Fatal("group not found")
	}
	if !g.Created.Equal(t0) || !g.Modified.Equal(t1) || g.Score != 0.9 {
		t.Fatalf("group meta = %+v", g)
	}

	if !r.DismissGroup(key) {
		t.Fatal("DismissGroup should succeed")
	}
	if _, ok := r.Group(key); ok {
		t.Fatal("group still present after dismissal")
	}
	if !r.Dismissed(key) {
		t.Fatal("dismissal not remembered")
	}
	if r.DismissGroup(key) {
		t.Fatal("dismissing twice should report false")
	}
}

func TestPruneDropsGroups(t *testing.T) {
	r := New(t.TempDir(), "en")
	r.AddSource("Quit", source.NewRef(source.Scene, "a.unity"))
	r.AddSource("Quit!", source.NewRef(source.Scene, "a.unity"))
	key, _ := r.UpsertGroup([]string{"Quit", "Quit!"}, "levenshtein", 0.8, "", time.Now())

	r.Reconcile([]source.Occurrence{{Text: "Quit"}}, PolicyKeep)
	r.Prune()

	if _, ok := r.Group(key); ok {
		t.Fatal("group referencing a pruned key should be dropped")
	}
}

func TestPruneGroupsWithSeparatorInKey(t *testing.T) {
	r := New(t.TempDir(), "en")
	ref := source.NewRef(source.Scene, "a.unity")
	r.AddSource("Yes|No", ref)
	r.AddSource("Yes|No!", ref)
	key, _ := r.UpsertGroup([]string{"Yes|No!", "Yes|No"}, "levenshtein", 0.9, "", time.Now())

	g, _ := r.Group(key)
	if !reflect.DeepEqual(g.Members, []string{"Yes|No", "Yes|No!"}) {
		t.Fatalf("Members = %q", g.Members)
	}

	r.Reconcile([]source.Occurrence{{Text: "Yes|No!"}}, PolicyKeep)
	if removed := r.Prune(); !reflect.DeepEqual(removed, []string{"Yes|No"}) {
		t.Fatalf("Prune() = %q", removed)
	}
	if _, ok := r.Group(key); ok {
		t.Fatal("group of a pruned key containing the separator should be dropped")
	}
}

func TestNewClearedOnNextPass(t *testing.T) {
	r := New(t.TempDir(), "en")
	r.Reconcile([]source.Occurrence{{Text: "Hello"}}, PolicyKeep)
	if got := r.TextState("Hello"); got != StateNew {
		t.Fatalf("first pass: %s, want new", got)
	}
	r.Reconcile([]source.Occurrence{{Text: "Hello"}, {Text: "Bye"}}, PolicyKeep)
	if got := r.TextState("Hello"); got != StateNone {
		t.Fatalf("second pass: Hello = %s, want none", got)
	}
	if got := r.TextState("Bye"); got != StateNew {
		t.Fatalf("second pass: Bye = %s, want new", got)
	}
}

func TestTranslationStatus(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, "en")
	lf := lockfile.New(dir)
	r.AddLanguage("ja")
	r.AddCategory("speaker", "Spoken by {value}.")
	r.AddSource("Hello", source.NewRef(source.Scene, "a.unity"))

	if got := r.TranslationStatus("ja", "Hello", lf); got != Untranslated {
		t.Fatalf("status = %s, want untranslated", got)
	}

	must(t, r.SetTranslation("ja", "Hello", "こんにちは"))
	lf.Record("ja", "Hello", r.LockContent("Hello"))
	if got := r.TranslationStatus("ja", "Hello", lf); got != Translated {
		t.Fatalf("status = %s, want translated", got)
	}

	must(t, r.SetContext("Hello", "speaker", "the king"))
	if got := r.TranslationStatus("ja", "Hello", lf); got != Stale {
		t.Fatalf("status = %s, want stale", got)
	}

	stats := r.Stats(lf)
	if len(stats) != 1 || stats[0].Stale != 1 {
		t.Fatalf("Stats() = %+v", stats)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := New(dir, "en")
	r.AddCategory("speaker", "Spoken by {value}.")
	r.AddLanguage("ja")
	r.AddSource("Hello", source.NewRef(source.Scene, "Assets/Main.unity"))
	r.AddSource("Hello", source.NewRef(source.Script, "game/menu.go"))
	r.AddSource("Bye", source.NewRef(source.Prefab, "Assets/Exit.prefab"))
	must(t, r.SetTextState("Bye", StateNew))
	must(t, r.SetContext("Hello", "speaker", "king"))
	must(t, r.SetTranslation("ja", "Bye", "さようなら"))
	r.UpsertGroup([]string{"Hello", "Bye"}, "test", 0.5, "", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	r.UpsertGroup([]string{"x", "y"}, "test", 0.5, "", time.Now())
	r.DismissGroup("x|y")
	r.RecordPass(3, time.Now())

	if err := r.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(dir, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.DefaultLanguage != "en" {
		t.Fatalf("DefaultLanguage = %q", got.DefaultLanguage)
	}
	if !reflect.DeepEqual(got.Keys(), []string{"Hello", "Bye"}) {
		t.Fatalf("Keys() = %v", got.Keys())
	}
	if !reflect.DeepEqual(got.Sources("Hello"), r.Sources("Hello")) {
		t.Fatalf("sources differ: %v", got.Sources("Hello"))
	}
	if got.TextState("Bye") != StateNew {
		t.Fatalf("state lost")
	}
	if got.Context("Hello") != "Spoken by king." {
		t.Fatalf("context lost: %q", got.Context("Hello"))
	}
	if tr, _ := got.Translation("ja", "Bye"); tr != "さようなら" {
		t.Fatalf("translation lost: %q", tr)
	}
	if _, ok := got.Group("Bye|Hello"); !ok {
		t.Fatal("group lost")
	}
	if !got.Dismissed("x|y") {
		t.Fatal("dismissed set lost")
	}
	if got.LastPass == nil || got.LastPass.Files != 3 || got.LastPass.ID == "" {
		t.Fatalf("last pass = %+v", got.LastPass)
	}
}

func TestLoadMissingAndMisaligned(t *testing.T) {
	dir := t.TempDir()
	r, err := Load(dir, "en")
	if err != nil {
		t.Fatalf("Load(empty dir): %v", err)
	}
	if r.Len() != 0 || r.DefaultLanguage != "en" {
		t.Fatalf("unexpected registry: %d keys, %q", r.Len(), r.DefaultLanguage)
	}

	r.AddLanguage("ja")
	r.AddSource("a", source.NewRef(source.Scene, "s.unity"))
	r.AddSource("b", source.NewRef(source.Scene, "s.unity"))
	must(t, r.Save())

	// Truncate the language list on disk.
	l := &Language{Name: "ja", Texts: []string{"A"}}
	r.languages = []*Language{l}
	must(t, r.Save())

	got, err := Load(dir, "en")
	if err != nil {
		t.Fatal(err)
	}
	if n := len(got.language("ja").Texts); n != 2 {
		t.Fatalf("language list not padded: %d", n)
	}
	keys := got.Keys()
	sort.Strings(keys)
	if !reflect.DeepEqual(keys, []string{"a", "b"}) {
		t.Fatalf("keys = %v", keys)
	}
}

func TestLanguageNamesStayInStore(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "proj", ".lokey")
	r := New(dir, "en")
	r.AddSource("Hello", source.NewRef(source.Scene, "a.unity"))

	for _, name := range []string{"../../../escaped", "ru/x", `ru\x`, "..", ".hidden", ""} {
		if r.AddLanguage(name) {
			t.Fatalf("AddLanguage(%q) accepted", name)
		}
	}
	if !r.AddLanguage("pt-BR") {
		t.Fatal("AddLanguage(pt-BR) rejected")
	}
	must(t, r.Save())

	if _, err := os.Stat(filepath.Join(base, "escaped.yaml")); !os.IsNotExist(err) {
		t.Fatalf("language file written outside the store: %v", err)
	}
	if _, err := os.Stat(languagePath(dir, "pt-BR")); err != nil {
		t.Fatalf("pt-BR language file: %v", err)
	}

	bad := "version: 1\ndefault_language: en\nlanguages: [\"../escaped\"]\nkeys: []\n"
	must(t, os.WriteFile(filepath.Join(dir, FileName), []byte(bad), 0644))
	if _, err := Load(dir, "en"); err == nil {
		t.Fatal("Load accepted a language name with a path separator")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
