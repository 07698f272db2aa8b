package plugins

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleHookGo = `package main

func HookDefinitions() ([]map[string]any, error) {
	return []map[string]any{
		{
			"id":      "smoke-test",
			"version": "1.0.0",
			"command": map[string]any{
				"program": "gbemu-term",
				"args":    []any{"--headless", "--frames", "60"},
			},
			"after": []any{"matrix"},
		},
	}, nil
}
`

func TestLoadGoDefinitionDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "smoke.go"), []byte(sampleHookGo), 0o644); err != nil {
		t.Fatalf("seed plugin: %v", err)
	}

	defs, err := LoadGoDefinitionDir(dir)
	if err != nil {
		t.Fatalf("LoadGoDefinitionDir: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("loaded %d definitions, want 1", len(defs))
	}
	def := defs[0].Definition
	if def.ID != "smoke-test" {
		t.Fatalf("id = %q", def.ID)
	}
	if def.Command.Program != "gbemu-term" {
		t.Fatalf("program = %q", def.Command.Program)
	}
	if len(def.Command.Args) != 3 {
		t.Fatalf("args = %v", def.Command.Args)
	}
	if want := filepath.Join(dir, "smoke.go") + "#smoke-test"; defs[0].Path != want {
		t.Fatalf("path = %q, want %q", defs[0].Path, want)
	}
}

func TestLoadGoDefinitionDirRejectsMissingFunc(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.go"), []byte("package plugin\n"), 0o644); err != nil {
		t.Fatalf("seed plugin: %v", err)
	}
	if _, err := LoadGoDefinitionDir(dir); err == nil {
		t.Fatal("expected error for plugin without HookDefinitions")
	}
}

func TestLoadGoDefinitionDirMissingIsEmpty(t *testing.T) {
	defs, err := LoadGoDefinitionDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("LoadGoDefinitionDir: %v", err)
	}
	if defs != nil {
		t.Fatalf("defs = %v, want nil", defs)
	}
}
