// cmd/stage-runner runs a single pipeline stage in isolation. An external
// job scheduler can dispatch one stage per job and thread outputs between
// jobs through flags, instead of running the whole graph in one process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gbredz1/gbforge/internal/config"
	"github.com/gbredz1/gbforge/internal/forge"
	"github.com/gbredz1/gbforge/internal/gitrepo"
	"github.com/gbredz1/gbforge/internal/logbook"
	"github.com/gbredz1/gbforge/internal/stage"
	"github.com/gbredz1/gbforge/internal/stages"
	"github.com/gbredz1/gbforge/internal/toolchain"
	"github.com/gbredz1/gbforge/plugins"
)

func main() {
	stageID := flag.String("stage", "", "stage identifier to execute (e.g. version, matrix)")
	projectDir := flag.String("project", "", "path to the project directory (defaults to cwd)")
	kind := flag.String("kind", string(stage.KindNightly), "run kind: release or nightly")
	tag := flag.String("tag", "", "triggering tag (release runs)")
	runID := flag.String("run-id", "", "upstream build run id (publish stage)")
	version := flag.String("version", "", "resolved version from an earlier stage")
	configFile := flag.String("config-file", "", "path to YAML/JSON file with stage config overrides")
	sets := keyValueFlag{}
	flag.Var(&sets, "set", "stage config override (key=value, repeatable)")
	flag.Parse()

	if strings.TrimSpace(*stageID) == "" {
		die("--stage is required")
	}
	runKind := stage.RunKind(*kind)
	if runKind != stage.KindRelease && runKind != stage.KindNightly {
		die("--kind must be release or nightly, got %q", *kind)
	}

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
	}
	absoluteProject, err := filepath.Abs(project)
	if err != nil {
		die("resolve project dir: %v", err)
	}
	if err := config.InitDir(absoluteProject); err != nil {
		die("init %s: %v", config.ForgeDir, err)
	}
	cfg, err := config.New(absoluteProject)
	if err != nil {
		die("load config: %v", err)
	}
	book, err := logbook.New(cfg.LogbookPath())
	if err != nil {
		die("open logbook: %v", err)
	}

	registry := stages.NewRegistry()
	if _, err := plugins.RegisterHookPlugins(registry, cfg); err != nil {
		die("load plugins: %v", err)
	}
	overrides, err := buildStageConfig(*configFile, sets)
	if err != nil {
		die("load config overrides: %v", err)
	}
	st, err := registry.Resolve(*stageID, overrides)
	if err != nil {
		die("resolve stage: %v", err)
	}

	ctx := &stage.Context{
		Ctx:     context.Background(),
		Config:  cfg,
		Logbook: book,
		Repo:    gitrepo.NewCLI(cfg.ProjectDir, cfg.Project.Tools.Git),
		Forge:   forge.NewGH(cfg.ProjectDir, cfg.Project.Tools.GH),
		Builder: toolchain.NewCargo(cfg.ProjectDir, cfg.Project.Tools.Cargo),
		Kind:    runKind,
		Tag:     *tag,
		RunID:   *runID,
		Outputs: stage.Outputs{Version: *version},
	}

	result, err := st.Run(ctx)
	if err != nil {
		die("run stage: %v", err)
	}
	fmt.Printf("Run status: %s\n", result.Status)
	if result.Message != "" {
		fmt.Println(result.Message)
	}
	if result.Outputs.Version != "" {
		fmt.Printf("version=%s\n", result.Outputs.Version)
	}
	if result.Outputs.HasChanges != nil {
		fmt.Printf("has_changes=%t\n", *result.Outputs.HasChanges)
	}
	for _, artifact := range result.Outputs.Artifacts {
		fmt.Printf("artifact=%s\n", artifact.Path)
	}
	if result.Status == stage.StatusFailed {
		os.Exit(1)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

type keyValueFlag map[string]string

func (kv *keyValueFlag) String() string {
	if kv == nil || len(*kv) == 0 {
		return ""
	}
	var pairs []string
	for key, value := range *kv {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, value))
	}
	return strings.Join(pairs, ", ")
}

func (kv *keyValueFlag) Set(value string) error {
	parts := strings.SplitN(value, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return fmt.Errorf("override key is empty in %q", value)
	}
	if *kv == nil {
		*kv = keyValueFlag{}
	}
	(*kv)[key] = parts[1]
	return nil
}

func buildStageConfig(configFile string, overrides keyValueFlag) (stage.Config, error) {
	var cfg stage.Config
	if path := strings.TrimSpace(configFile); path != "" {
		fileCfg, err := readStageConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if len(overrides) > 0 {
		if cfg == nil {
			cfg = stage.Config{}
		}
		for key, value := range overrides {
			cfg[key] = value
		}
	}
	if len(cfg) == 0 {
		return nil, nil
	}
	return cfg, nil
}

func readStageConfigFile(path string) (stage.Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open config file %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, expected a file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("config file %s is empty", path)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	cfg := make(stage.Config, len(raw))
	for key, value := range raw {
		cfg[key] = value
	}
	return cfg, nil
}
