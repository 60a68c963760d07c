package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func writePresetDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadPresetDir(t *testing.T) {
	dir := writePresetDir(t, map[string]string{
		"model.yaml":      "modules:\n  input: [x]\n  output: [x]\n",
		"sub/layers.yaml": "modules: {}\n",
		"README":          "A tiny model\n\nLonger text below.\n",
	})

	p, err := loadPresetDir(dir, "", "")
	if err != nil {
		t.Fatalf("loadPresetDir: %v", err)
	}

	if p.Name != filepath.Base(dir) {
		t.Errorf("Name = %q, want folder name %q", p.Name, filepath.Base(dir))
	}
	if p.Description != "A tiny model" {
		t.Errorf("Description = %q, want README first line", p.Description)
	}
	if p.MainFile != "model.yaml" {
		t.Errorf("MainFile = %q", p.MainFile)
	}
	if len(p.Files) != 3 {
		t.Errorf("Files = %d entries, want 3", len(p.Files))
	}
	if _, ok := p.Files["sub/layers.yaml"]; !ok {
		t.Error("nested file missing; keys must stay slash-relative")
	}
}

func TestLoadPresetDirOverrides(t *testing.T) {
	dir := writePresetDir(t, map[string]string{
		"model.yaml": "modules: {}\n",
		"README":     "From the readme\n",
	})

	p, err := loadPresetDir(dir, "custom", "explicit description")
	if err != nil {
		t.Fatalf("loadPresetDir: %v", err)
	}
	if p.Name != "custom" {
		t.Errorf("Name = %q, want flag value", p.Name)
	}
	if p.Description != "explicit description" {
		t.Errorf("Description = %q, flag should beat README", p.Description)
	}
}

func TestLoadPresetDirMissingMainFile(t *testing.T) {
	dir := writePresetDir(t, map[string]string{
		"other.yaml": "modules: {}\n",
	})

	if _, err := loadPresetDir(dir, "", ""); err == nil {
		t.Error("expected error for folder without model.yaml")
	}
}
