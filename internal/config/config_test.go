package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0x6d61/pshelper/internal/engine"
	"github.com/0x6d61/pshelper/internal/session"
	"github.com/0x6d61/pshelper/internal/status"
)

func TestParse_Full(t *testing.T) {
	data := []byte(`
collection: /data/photogrammetry
workers: 8
max_ops_per_second: 50
auto_approve: true
resync: false
catalog: /var/lib/pshelper/catalog.db
meta_file: session.ini
sort_by: status
log:
  level: debug
  file: /tmp/pshelper.log
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.Collection != "/data/photogrammetry" {
		t.Errorf("Collection = %q", cfg.Collection)
	}
	if cfg.Workers != 8 || cfg.MaxOpsPerSecond != 50 {
		t.Errorf("Workers/MaxOpsPerSecond = %d/%v, want 8/50", cfg.Workers, cfg.MaxOpsPerSecond)
	}
	if !cfg.AutoApprove || cfg.Resync {
		t.Errorf("AutoApprove/Resync = %v/%v, want true/false", cfg.AutoApprove, cfg.Resync)
	}
	if cfg.Catalog != "/var/lib/pshelper/catalog.db" {
		t.Errorf("Catalog = %q", cfg.Catalog)
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/pshelper.log" {
		t.Errorf("Log = %+v", cfg.Log)
	}

	sc := cfg.ScanConfig()
	if sc.Workers != 8 || !sc.AutoApprove || sc.Resync || sc.RecordName != "session.ini" {
		t.Errorf("ScanConfig() = %+v", sc)
	}
	if sc.SortBy != status.FieldStatus {
		t.Errorf("ScanConfig().SortBy = %v, want %v", sc.SortBy, status.FieldStatus)
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")

	cfg, err := Parse([]byte("collection: /data\n"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if !cfg.Resync {
		t.Error("Resync = false, want true")
	}
	if cfg.MetaFile != "psh_meta.ini" {
		t.Errorf("MetaFile = %q, want %q", cfg.MetaFile, "psh_meta.ini")
	}
	if cfg.SortField() != status.FieldID {
		t.Errorf("SortField() = %v, want %v", cfg.SortField(), status.FieldID)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
	if !strings.HasSuffix(cfg.Catalog, filepath.Join(".pshelper", "catalog.db")) {
		t.Errorf("Catalog = %q, want it under ~/.pshelper", cfg.Catalog)
	}
}

func TestDefaultSortFieldAgrees(t *testing.T) {
	got := Default().ScanConfig().SortBy
	if got != status.FieldID {
		t.Errorf("config default SortBy = %v, want %v", got, status.FieldID)
	}
	if e := engine.DefaultScanConfig().SortBy; e != got {
		t.Errorf("engine default SortBy = %v, config default = %v", e, got)
	}
	if r := session.NewRegistry().SortField(); r != got {
		t.Errorf("registry default SortField = %v, config default = %v", r, got)
	}
}

func TestParse_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Parse([]byte("collection: ~/scans\ncatalog: ~/cat.db\n"))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if want := filepath.Join(home, "scans"); cfg.Collection != want {
		t.Errorf("Collection = %q, want %q", cfg.Collection, want)
	}
	if want := filepath.Join(home, "cat.db"); cfg.Catalog != want {
		t.Errorf("Catalog = %q, want %q", cfg.Catalog, want)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"bad yaml", "workers: [", "config: parse"},
		{"negative workers", "workers: -1", "workers must not be negative"},
		{"negative rate", "max_ops_per_second: -2", "max_ops_per_second must not be negative"},
		{"meta file path", "meta_file: sub/meta.ini", "meta_file must be a file name"},
		{"unknown sort", "sort_by: colour", `sort_by: unknown field "colour"`},
		{"unknown level", "log:\n  level: loud", `log.level: unknown level "loud"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatal("Parse returned nil error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("workers: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
}

func TestLoadOrDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")

	// No default file: defaults.
	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault(\"\") returned error: %v", err)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}

	// A missing explicit file is an error.
	if _, err := LoadOrDefault(filepath.Join(home, "nope.yaml")); err == nil {
		t.Error("LoadOrDefault of a missing explicit path returned nil error")
	}

	// The default file is picked up once it exists.
	dir := filepath.Join(home, ".pshelper")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("workers: 6\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault(\"\") returned error: %v", err)
	}
	if cfg.Workers != 6 {
		t.Errorf("Workers = %d, want 6", cfg.Workers)
	}
}

func TestConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "xdg"))
	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "xdg", "pshelper"); dir != want {
		t.Errorf("ConfigDir() with XDG = %q, want %q", dir, want)
	}

	// An existing ~/.pshelper wins over XDG.
	if err := os.Mkdir(filepath.Join(home, ".pshelper"), 0o755); err != nil {
		t.Fatal(err)
	}
	dir, err = ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".pshelper"); dir != want {
		t.Errorf("ConfigDir() with legacy dir = %q, want %q", dir, want)
	}
}
