package appstorage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Window.Width != 1280 || cfg.Window.Height != 800 {
		t.Errorf("Window = %+v, want 1280x800", cfg.Window)
	}
	if cfg.Sort.Key != "description" || !cfg.Sort.Ascending {
		t.Errorf("Sort = %+v, want description/ascending", cfg.Sort)
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	SetAppName("romcat-test-missing")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("expected default config on missing file, got %+v", cfg)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	SetAppName("romcat-test-roundtrip")

	cfg := DefaultConfig()
	cfg.RomDirectories = []string{"/roms/mame"}
	cfg.HiddenCategories = []string{"Mature", "Casino"}
	cfg.TaxonomyPath = "/config/catver.ini"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.RomDirectories) != 1 || loaded.RomDirectories[0] != "/roms/mame" {
		t.Errorf("RomDirectories = %v, want [/roms/mame]", loaded.RomDirectories)
	}
	if len(loaded.HiddenCategories) != 2 {
		t.Errorf("HiddenCategories = %v, want 2 entries", loaded.HiddenCategories)
	}
}

func TestAtomicWriteJSONLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.json")

	if err := AtomicWriteJSON(path, map[string]int{"a": 1}); err != nil {
		t.Fatalf("AtomicWriteJSON: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("expected temp file to be gone after rename")
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected final file to exist: %v", err)
	}
}
