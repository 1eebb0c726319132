package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	p := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if p.Theme != defaultTheme {
		t.Fatalf("theme = %q, want %q", p.Theme, defaultTheme)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.toml")

	if err := Save(path, Prefs{Theme: "Dracula"}); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	p := Load(path)
	if p.Theme != "Dracula" {
		t.Fatalf("theme = %q, want Dracula", p.Theme)
	}
}

func TestLoad_BadTomlFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte("theme = [broken"), 0o644); err != nil {
		t.Fatalf("write prefs: %v", err)
	}
	p := Load(path)
	if p.Theme != defaultTheme {
		t.Fatalf("theme = %q, want default on parse failure", p.Theme)
	}
}

func TestLoad_EmptyThemeUsesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	if err := os.WriteFile(path, []byte(`theme = ""`), 0o644); err != nil {
		t.Fatalf("write prefs: %v", err)
	}
	p := Load(path)
	if p.Theme != defaultTheme {
		t.Fatalf("theme = %q, want default", p.Theme)
	}
}
