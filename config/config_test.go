package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/minios-linux/lokey/registry"
	"github.com/minios-linux/lokey/source"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestDetect(t *testing.T) {
	t.Run("unity project", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "ProjectSettings", "ProjectSettings.asset"),
			"%YAML 1.1\n--- !u!129 &1\nPlayerSettings:\n  productName: Space Quest\n  bundleVersion: 1.4.2\n")
		if err := os.MkdirAll(filepath.Join(dir, "Assets"), 0755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}

		p := Detect(dir)
		if p.Name != "Space Quest" || p.Version != "1.4.2" {
			t.Fatalf("Detect = %+v", p)
		}
		if !p.Unity || !reflect.DeepEqual(p.SourceDirs, []string{"Assets"}) {
			t.Fatalf("Unity = %v, SourceDirs = %v", p.Unity, p.SourceDirs)
		}
	})

	t.Run("plain directory", func(t *testing.T) {
		dir := t.TempDir()
		p := Detect(dir)
		if p.Name != filepath.Base(dir) || p.Version != "0.0.0" || p.Unity || p.SourceDirs != nil {
			t.Fatalf("Detect = %+v", p)
		}
	})
}

func TestStoreLanguages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ru.yaml", "pt-BR.yaml", "zh_Hans.yaml", "notes.txt", "1x.yaml"} {
		writeFile(t, filepath.Join(dir, name), "")
	}
	if err := os.Mkdir(filepath.Join(dir, "de.yaml"), 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	got := StoreLanguages(dir)
	want := []string{"pt-BR", "ru", "zh_Hans"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("StoreLanguages = %v, want %v", got, want)
	}
	if StoreLanguages(filepath.Join(dir, "missing")) != nil {
		t.Fatal("missing directory should yield nil")
	}
}

func TestLoadLokeyFileMissingUsesDefaults(t *testing.T) {
	lf, err := LoadLokeyFile(t.TempDir())
	if err != nil {
		t.Fatalf("LoadLokeyFile: %v", err)
	}
	if lf.DefaultLanguage != "en" || lf.StoreDir != ".lokey" || lf.CSV != DefaultCSV || lf.Reconcile != "keep" {
		t.Fatalf("defaults = %+v", lf)
	}
	if lf.Similarity.Threshold != 0.8 || lf.Similarity.Metric != "levenshtein" {
		t.Fatalf("similarity defaults = %+v", lf.Similarity)
	}
	s, err := lf.SchemaTable()
	if err != nil {
		t.Fatalf("SchemaTable: %v", err)
	}
	if !reflect.DeepEqual(s.Kinds(), []string{"MonoBehaviour"}) {
		t.Fatalf("default schema kinds = %v", s.Kinds())
	}
}

func TestLoadLokeyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, LokeyFileName), `
default_language: ja
languages: [en, ru]
sources: [Assets/Dialogue]
exclude: ["**/Editor/**"]
keywords: ["Loc.Get:2"]
extensions:
  txt: external_file
  bytes: scriptable_object
unity_ui_text: false
schemas:
  - kind: Dialogue
    fields:
      - {name: Title, translate: true}
      - {name: Lines, shape: object_list, schema: Line, translate: true}
  - kind: Line
    translate: true
    fields:
      - {name: Text}
categories:
  - {name: speaker, template: "Spoken by {value}."}
similarity:
  threshold: 0.9
  metric: japanese
reconcile: recent
`)

	lf, err := LoadLokeyFile(dir)
	if err != nil {
		t.Fatalf("LoadLokeyFile: %v", err)
	}
	if lf.DefaultLanguage != "ja" || !reflect.DeepEqual(lf.Languages, []string{"en", "ru"}) {
		t.Fatalf("languages = %q %v", lf.DefaultLanguage, lf.Languages)
	}
	if lf.Similarity.Threshold != 0.9 || lf.Similarity.Metric != "japanese" || lf.Reconcile != "recent" {
		t.Fatalf("policy = %+v %q", lf.Similarity, lf.Reconcile)
	}
	want := []registry.Category{{Name: "speaker", Template: "Spoken by {value}."}}
	if !reflect.DeepEqual(lf.Categories, want) {
		t.Fatalf("Categories = %+v", lf.Categories)
	}

	exts, err := lf.ExtensionMap()
	if err != nil {
		t.Fatalf("ExtensionMap: %v", err)
	}
	wantExts := map[string]source.Type{".txt": source.ExternalFile, ".bytes": source.ScriptableObject}
	if !reflect.DeepEqual(exts, wantExts) {
		t.Fatalf("ExtensionMap = %v", exts)
	}

	s, err := lf.SchemaTable()
	if err != nil {
		t.Fatalf("SchemaTable: %v", err)
	}
	if !reflect.DeepEqual(s.Kinds(), []string{"Dialogue", "Line"}) {
		t.Fatalf("Kinds = %v", s.Kinds())
	}

	if got := lf.StorePath(dir); got != filepath.Join(dir, ".lokey") {
		t.Fatalf("StorePath = %q", got)
	}
	if got := lf.CSVPath("/abs"); got != filepath.Join("/abs", DefaultCSV) {
		t.Fatalf("CSVPath = %q", got)
	}
}

func TestLoadLokeyFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad yaml", content: "languages: [", wantErr: "parsing"},
		{name: "bad language", content: "languages: [\"not a lang\"]", wantErr: "language"},
		{name: "duplicate language", content: "languages: [en]", wantErr: "twice"},
		{name: "threshold", content: "similarity: {threshold: 1.5}", wantErr: "threshold"},
		{name: "metric", content: "similarity: {metric: cosine}", wantErr: "metric"},
		{name: "policy", content: "reconcile: sometimes", wantErr: "policy"},
		{name: "extension", content: "extensions: {md: readme}", wantErr: "extensions"},
		{name: "schema", content: "schemas: [{kind: A, fields: [{name: x, shape: object}]}]", wantErr: "schema"},
		{name: "category", content: "categories: [{template: x}]", wantErr: "category"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, LokeyFileName), tc.content)
			_, err := LoadLokeyFile(dir)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("LoadLokeyFile error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lf := Default()
	lf.Languages = []string{"ru", "de"}
	lf.Sources = []string{"Assets"}
	lf.Categories = []registry.Category{{Name: "screen", Template: "Shown on {value}."}}

	if err := lf.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := LoadLokeyFile(dir)
	if err != nil {
		t.Fatalf("LoadLokeyFile: %v", err)
	}
	if !reflect.DeepEqual(back, lf) {
		t.Fatalf("round trip = %+v, want %+v", back, lf)
	}
}
