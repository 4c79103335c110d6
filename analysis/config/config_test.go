package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sympath/sympath/analysis/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sympath.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
budget: 1000
function: Serve
checks:
  - dispose-twice
no-colorize: true
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Budget != 1000 || cfg.Function != "Serve" || !cfg.NoColorize {
		t.Errorf("unexpected configuration: %+v", cfg)
	}
	if cfg.SourceFile() != path {
		t.Errorf("expected source file %s, got %s", path, cfg.SourceFile())
	}
	if !cfg.EnabledCheck("dispose-twice") {
		t.Error("listed check must be enabled")
	}
	if cfg.EnabledCheck("other-check") {
		t.Error("unlisted check must be disabled when a list is given")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "budget: 50\n"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Function != "" || cfg.NoColorize || cfg.IncludeTests {
		t.Errorf("omitted fields must stay zero: %+v", cfg)
	}
	if !cfg.EnabledCheck("anything") {
		t.Error("an empty check list enables every check")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
	if _, err := config.Load(writeConfig(t, "budget: [nonsense")); err == nil {
		t.Error("expected an error for malformed yaml")
	}
}
