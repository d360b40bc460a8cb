package langmeta

import "testing"

func TestCanonical(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "pt_br", want: "pt-BR"},
		{in: " EN-us ", want: "en-US"},
		{in: "ru", want: "ru"},
	}

	for _, tc := range cases {
		got, err := Canonical(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("Canonical(%q) = %q, %v, want %q", tc.in, got, err, tc.want)
		}
	}
	if _, err := Canonical("not a language"); err == nil {
		t.Fatal("Canonical accepted garbage")
	}
}

func TestResolve(t *testing.T) {
	t.Run("native name and flag", func(t *testing.T) {
		got := Resolve("ru")
		if got.Name != "Русский" || got.English != "Russian" || got.Flag != "🇷🇺" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("script without case", func(t *testing.T) {
		got := Resolve("ja")
		if got.Name != "日本語" || got.Flag != "🇯🇵" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("explicit region", func(t *testing.T) {
		got := Resolve("pt_BR")
		if got.Code != "pt-BR" || got.Flag != "🇧🇷" {
			t.Fatalf("unexpected result: %#v", got)
		}
	})

	t.Run("unknown passthrough", func(t *testing.T) {
		got := Resolve("not a language")
		if got.Name != "not a language" || got.Flag != "" {
			t.Fatalf("unexpected unknown result: %#v", got)
		}
	})
}

func TestFlag(t *testing.T) {
	if got := flag("de"); got != "🇩🇪" {
		t.Fatalf("flag(de) = %q", got)
	}
	if got := flag("419"); got != "" {
		t.Fatalf("flag(419) = %q, want empty", got)
	}
}

func TestLabel(t *testing.T) {
	if got := Label("ru"); got != "🇷🇺 Русский (ru)" {
		t.Fatalf("Label(ru) = %q", got)
	}
}
