package plugins

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gbredz1/gbforge/internal/config"
	"github.com/gbredz1/gbforge/internal/pipeline"
	"github.com/gbredz1/gbforge/internal/stage"
)

func pluginConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	forge := filepath.Join(root, ".gbforge")
	if err := os.MkdirAll(filepath.Join(forge, "plugins"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return &config.Config{ProjectDir: root, ForgeProjectDir: forge}
}

func TestRegisterHookPlugins(t *testing.T) {
	cfg := pluginConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.PluginsDir(), "checksums.yaml"), []byte(sampleHookYAML), 0o644); err != nil {
		t.Fatalf("seed plugin: %v", err)
	}

	registry := stage.NewRegistry()
	hooks, err := RegisterHookPlugins(registry, cfg)
	if err != nil {
		t.Fatalf("RegisterHookPlugins: %v", err)
	}
	if len(hooks) != 1 {
		t.Fatalf("registered %d hooks, want 1", len(hooks))
	}
	st, err := registry.Resolve("checksums", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if st.Info().ID != "checksums" {
		t.Fatalf("stage id = %q", st.Info().ID)
	}
}

func TestRegisterHookPluginsRejectsDuplicates(t *testing.T) {
	cfg := pluginConfig(t)
	for _, name := range []string{"a.yaml", "b.yaml"} {
		if err := os.WriteFile(filepath.Join(cfg.PluginsDir(), name), []byte(sampleHookYAML), 0o644); err != nil {
			t.Fatalf("seed plugin: %v", err)
		}
	}
	if _, err := RegisterHookPlugins(stage.NewRegistry(), cfg); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestExtendDefinitionSplicesHooks(t *testing.T) {
	def := pipeline.ReleaseDefinition()
	hooks := []HookDefinition{
		{ID: "checksums", Version: "1.0.0", After: []string{"matrix"},
			Command: CommandDefinition{Program: "sha256sum"}},
		{ID: "notify", Version: "1.0.0",
			Command: CommandDefinition{Program: "curl"}},
		{ID: "nightly-only", Version: "1.0.0", Pipelines: []string{"nightly"},
			Command: CommandDefinition{Program: "true"}},
	}

	extended := ExtendDefinition(def, hooks)
	if len(extended.Stages) != len(def.Stages)+2 {
		t.Fatalf("extended to %d stages, want %d", len(extended.Stages), len(def.Stages)+2)
	}
	normalized, err := extended.Normalized()
	if err != nil {
		t.Fatalf("Normalized: %v", err)
	}
	deps := normalized.Dependencies("checksums")
	if len(deps) != 1 || deps[0] != "matrix" {
		t.Fatalf("checksums deps = %v, want [matrix]", deps)
	}
	// A hook without After runs after the previously last stage.
	notifyDeps := strings.Join(normalized.Dependencies("notify"), ",")
	if !strings.Contains(notifyDeps, "checksums") {
		t.Fatalf("notify deps = %q, want the prior hook", notifyDeps)
	}
}

func TestHookStageRunsCommand(t *testing.T) {
	cfg := pluginConfig(t)
	cfg.Project.App.Name = "gbemu"

	hook := newHookStage(HookDefinition{
		ID:      "checksums",
		Version: "1.0.0",
		Command: CommandDefinition{
			Program: "sha256sum",
			Args:    []string{"{dist}/{app}-{version}.tar.gz"},
			Env:     map[string]string{"RELEASE_VERSION": "{version}"},
		},
	})

	var gotArgs []string
	var gotEnv []string
	hook.run = func(_ context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
		gotArgs = args
		gotEnv = env
		return []byte("ok"), nil
	}

	result, err := hook.Run(&stage.Context{
		Ctx:     context.Background(),
		Config:  cfg,
		Outputs: stage.Outputs{Version: "0.3.1"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Status != stage.StatusCompleted {
		t.Fatalf("status = %s", result.Status)
	}
	want := cfg.DistDir() + "/gbemu-0.3.1.tar.gz"
	if len(gotArgs) != 1 || gotArgs[0] != want {
		t.Fatalf("args = %v, want [%s]", gotArgs, want)
	}
	found := false
	for _, kv := range gotEnv {
		if kv == "RELEASE_VERSION=0.3.1" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected RELEASE_VERSION in hook environment")
	}
}
