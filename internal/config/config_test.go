package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	cfg, err := New(projectDir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if cfg.AppName() != "gbemu" {
		t.Fatalf("expected default app name gbemu, got %q", cfg.AppName())
	}
	if cfg.NightlyPrefix() != "nightly-" {
		t.Fatalf("expected default nightly prefix, got %q", cfg.NightlyPrefix())
	}
	if cfg.Project.App.Binaries.GUI != "gbemu-desktop" {
		t.Fatalf("expected default gui binary, got %q", cfg.Project.App.Binaries.GUI)
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	projectDir := t.TempDir()
	forgeDir := filepath.Join(projectDir, ForgeDir)
	if err := os.MkdirAll(forgeDir, 0o755); err != nil {
		t.Fatal(err)
	}
	configYAML := strings.TrimSpace(`
version: 1
app:
  name: gbemu
  binaries:
    gui: gbemu-gtk
    terminal: gbemu-cli
release:
  nightly_prefix: dev-
  display_name: "gbemu build {version}"
doctor:
  roms_dir: corpora/roms
tools:
  cargo: /usr/local/bin/cargo
`)
	if err := os.WriteFile(filepath.Join(forgeDir, "config.yaml"), []byte(configYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := New(projectDir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if cfg.Project.App.Binaries.GUI != "gbemu-gtk" {
		t.Fatalf("gui binary = %q", cfg.Project.App.Binaries.GUI)
	}
	if cfg.NightlyPrefix() != "dev-" {
		t.Fatalf("nightly prefix = %q", cfg.NightlyPrefix())
	}
	if got := cfg.DisplayName("dev-20240115"); got != "gbemu build dev-20240115" {
		t.Fatalf("display name = %q", got)
	}
	if cfg.Project.Doctor.RomsDir != "corpora/roms" {
		t.Fatalf("roms dir = %q", cfg.Project.Doctor.RomsDir)
	}
	// Unset fields fall back on defaults.
	if cfg.Project.Doctor.Comparator != "gameboy-doctor" {
		t.Fatalf("comparator = %q", cfg.Project.Doctor.Comparator)
	}
	if cfg.Project.Tools.Git != "git" {
		t.Fatalf("git tool = %q", cfg.Project.Tools.Git)
	}
}

func TestInitDirSeedsConfigAndLayout(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("InitDir: %v", err)
	}
	for _, sub := range []string{"logs", "state", "dist", "plugins"} {
		info, err := os.Stat(filepath.Join(projectDir, ForgeDir, sub))
		if err != nil || !info.IsDir() {
			t.Fatalf("missing directory %s: %v", sub, err)
		}
	}
	data, err := os.ReadFile(filepath.Join(projectDir, ForgeDir, "config.yaml"))
	if err != nil {
		t.Fatalf("seeded config: %v", err)
	}
	if !strings.Contains(string(data), "nightly_prefix: nightly-") {
		t.Fatalf("seed content unexpected:\n%s", data)
	}
	// A second init must not clobber an existing config.
	if err := os.WriteFile(filepath.Join(projectDir, ForgeDir, "config.yaml"), []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := InitDir(projectDir); err != nil {
		t.Fatalf("re-init: %v", err)
	}
	data, _ = os.ReadFile(filepath.Join(projectDir, ForgeDir, "config.yaml"))
	if string(data) != "version: 1\n" {
		t.Fatalf("re-init overwrote config: %q", data)
	}
}

func TestDoctorDirsResolveAgainstProjectDir(t *testing.T) {
	projectDir := t.TempDir()
	cfg, err := New(projectDir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if got, want := cfg.RomsDir(), filepath.Join(projectDir, "roms", "blargg", "cpu_instrs", "individual"); got != want {
		t.Fatalf("RomsDir = %q, want %q", got, want)
	}
	if got, want := cfg.VectorsDir(), filepath.Join(projectDir, "sm83", "v1"); got != want {
		t.Fatalf("VectorsDir = %q, want %q", got, want)
	}

	abs := filepath.Join(t.TempDir(), "vectors")
	cfg.Project.Doctor.VectorsDir = abs
	if cfg.VectorsDir() != abs {
		t.Fatalf("absolute VectorsDir was rewritten to %q", cfg.VectorsDir())
	}
}

func TestValidateRejectsBadAppName(t *testing.T) {
	pc := defaultProjectConfig()
	pc.App.Name = "bad name"
	if err := pc.validate(); err == nil {
		t.Fatal("expected validation error for app name with spaces")
	}
}
