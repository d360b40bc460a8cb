package source

import (
	"reflect"
	"testing"
)

func TestAppendCapAndDuplicates(t *testing.T) {
	var refs []Ref
	var changed bool

	refs, changed = Append(refs, NewRef(Scene, "Assets/Main.unity"))
	if !changed {
		t.Fatal("first append should change the list")
	}
	refs, changed = Append(refs, NewRef(Scene, "Assets/Main.unity"))
	if changed || len(refs) != 1 {
		t.Fatalf("exact duplicate must be rejected, got %v", refs)
	}

	// Same path, different type is a distinct reference.
	refs, _ = Append(refs, NewRef(Prefab, "Assets/Main.unity"))
	refs, _ = Append(refs, NewRef(Script, "game/ui.go"))
	refs, _ = Append(refs, NewRef(ExternalFile, "texts.txt"))
	if len(refs) != MaxRefs {
		t.Fatalf("len = %d, want %d", len(refs), MaxRefs)
	}

	before := append([]Ref(nil), refs...)
	refs, changed = Append(refs, NewRef(ScriptableObject, "Assets/Items.asset"))
	if changed {
		t.Fatal("fifth distinct ref should be rejected")
	}
	if !reflect.DeepEqual(refs, before) {
		t.Fatalf("refs changed after cap: %v", refs)
	}
}

func TestMergeKeepsFirstSeenOrder(t *testing.T) {
	a := []Ref{NewRef(Scene, "a.unity"), NewRef(Prefab, "b.prefab")}
	b := []Ref{NewRef(Prefab, "b.prefab"), NewRef(Script, "c.go")}

	got := Merge(a, b)
	want := []Ref{NewRef(Scene, "a.unity"), NewRef(Prefab, "b.prefab"), NewRef(Script, "c.go")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge() = %v, want %v", got, want)
	}
}

func TestParseType(t *testing.T) {
	tests := map[string]Type{
		"scene":            Scene,
		" Prefab ":         Prefab,
		"code":             Script,
		"ScriptableObject": ScriptableObject,
		"external":         ExternalFile,
	}
	for in, want := range tests {
		got, err := ParseType(in)
		if err != nil {
			t.Fatalf("ParseType(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseType(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseType("texture"); err == nil {
		t.Fatal("ParseType(texture) should fail")
	}
}

func TestRefString(t *testing.T) {
	if got := NewRef(Script, "game/ui.go").String(); got != "script:game/ui.go" {
		t.Fatalf("String() = %q", got)
	}
}
