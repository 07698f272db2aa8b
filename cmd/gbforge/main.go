// cmd/gbforge/main.go
//
// gbforge drives the emulator's release automation from a working copy:
//
//	gbforge release --tag 0.3.1   tag-triggered stable release
//	gbforge nightly               scheduled prerelease build
//	gbforge doctor --mode rom     validation harness (rom | sm83)
//	gbforge status                last persisted pipeline state
//	gbforge watch                 live pipeline view
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gbredz1/gbforge/internal/config"
	"github.com/gbredz1/gbforge/internal/doctor"
	"github.com/gbredz1/gbforge/internal/forge"
	"github.com/gbredz1/gbforge/internal/gitrepo"
	"github.com/gbredz1/gbforge/internal/logbook"
	"github.com/gbredz1/gbforge/internal/pipeline"
	"github.com/gbredz1/gbforge/internal/pipeline/engine"
	"github.com/gbredz1/gbforge/internal/stage"
	"github.com/gbredz1/gbforge/internal/stages"
	"github.com/gbredz1/gbforge/internal/toolchain"
	"github.com/gbredz1/gbforge/internal/tui"
	"github.com/gbredz1/gbforge/plugins"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "release":
		err = runPipeline(stage.KindRelease, args)
	case "nightly":
		err = runPipeline(stage.KindNightly, args)
	case "doctor":
		err = runDoctor(args)
	case "status":
		err = runStatus(args)
	case "watch":
		err = runWatch(args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: gbforge <command> [flags]

commands:
  release   run the tag-triggered release pipeline (--tag required)
  nightly   run the scheduled nightly pipeline
  doctor    run the validation harness (--mode rom|sm83)
  status    print the last persisted pipeline state
  watch     live terminal view of the pipeline state
`)
}

// setup resolves the project directory, seeds .gbforge, and opens the
// shared config and logbook.
func setup(projectFlag string) (*config.Config, *logbook.Logbook, error) {
	project := strings.TrimSpace(projectFlag)
	if project == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, nil, fmt.Errorf("determine working directory: %w", err)
		}
		project = cwd
	}
	absolute, err := filepath.Abs(project)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve project dir: %w", err)
	}
	if err := config.InitDir(absolute); err != nil {
		return nil, nil, fmt.Errorf("init %s: %w", config.ForgeDir, err)
	}
	cfg, err := config.New(absolute)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	book, err := logbook.New(cfg.LogbookPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open logbook: %w", err)
	}
	return cfg, book, nil
}

func runPipeline(kind stage.RunKind, args []string) error {
	name := string(kind)
	flags := flag.NewFlagSet(name, flag.ExitOnError)
	projectDir := flags.String("project", "", "path to the project directory (defaults to cwd)")
	tag := flags.String("tag", "", "triggering tag (release only)")
	runID := flags.String("run-id", "", "upstream build run to download artifacts from (publish only)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if kind == stage.KindRelease && strings.TrimSpace(*tag) == "" {
		return errors.New("release: --tag is required")
	}

	cfg, book, err := setup(*projectDir)
	if err != nil {
		return err
	}

	registry := stages.NewRegistry()
	hooks, err := plugins.RegisterHookPlugins(registry, cfg)
	if err != nil {
		return fmt.Errorf("load plugins: %w", err)
	}

	def := pipeline.ReleaseDefinition()
	if kind == stage.KindNightly {
		def = pipeline.NightlyDefinition()
	}
	def = plugins.ExtendDefinition(def, hooks)

	eng, err := engine.New(registry, engine.WithStore(engine.NewFileStore(cfg.StatePath())))
	if err != nil {
		return err
	}
	ctx := &stage.Context{
		Ctx:     context.Background(),
		Config:  cfg,
		Logbook: book,
		Repo:    gitrepo.NewCLI(cfg.ProjectDir, cfg.Project.Tools.Git),
		Forge:   forge.NewGH(cfg.ProjectDir, cfg.Project.Tools.GH),
		Builder: toolchain.NewCargo(cfg.ProjectDir, cfg.Project.Tools.Cargo),
		Kind:    kind,
		Tag:     *tag,
		RunID:   *runID,
	}
	state, err := eng.Run(ctx, def)
	if err != nil {
		return err
	}

	fmt.Printf("%s pipeline %s\n", name, state.Status)
	if state.StatusReason != "" {
		fmt.Println(state.StatusReason)
	}
	for _, artifact := range state.Outputs.Artifacts {
		fmt.Printf("  %s\n", artifact.Name)
	}
	if state.Status == engine.StatusFailed || state.Status == engine.StatusBlocked {
		os.Exit(1)
	}
	return nil
}

func runDoctor(args []string) error {
	flags := flag.NewFlagSet("doctor", flag.ExitOnError)
	projectDir := flags.String("project", "", "path to the project directory (defaults to cwd)")
	mode := flags.String("mode", "rom", "validation mode: rom (cpu_instrs trace diff) or sm83 (single step vectors)")
	failFast := flags.Bool("fail-fast", false, "stop at the first failing test case")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, book, err := setup(*projectDir)
	if err != nil {
		return err
	}
	harness, err := doctor.New(cfg, nil, book)
	if err != nil {
		return err
	}
	harness.FailFast = *failFast

	var summary doctor.Summary
	switch *mode {
	case "rom":
		summary, err = harness.RunROMSuite(context.Background())
	case "sm83":
		summary, err = harness.RunSM83Suite(context.Background())
	default:
		return fmt.Errorf("doctor: unknown mode %q (want rom or sm83)", *mode)
	}
	if err != nil {
		return err
	}

	fmt.Printf("passed: %d  failed: %d  skipped: %d\n",
		len(summary.Passed), len(summary.Failed), len(summary.Skipped))
	if !summary.Success() {
		fmt.Printf("failing: %s\n", strings.Join(summary.Failed, " "))
		os.Exit(1)
	}
	return nil
}

func runStatus(args []string) error {
	flags := flag.NewFlagSet("status", flag.ExitOnError)
	projectDir := flags.String("project", "", "path to the project directory (defaults to cwd)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	cfg, _, err := setup(*projectDir)
	if err != nil {
		return err
	}

	state, err := engine.NewFileStore(cfg.StatePath()).Load()
	if errors.Is(err, engine.ErrStateNotFound) {
		fmt.Println("no pipeline has run yet")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s  run %s  [%s]\n", state.PipelineID, state.RunID, state.Status)
	if state.StatusReason != "" {
		fmt.Println(state.StatusReason)
	}
	for _, node := range state.Nodes {
		line := fmt.Sprintf("  %-10s %s", node.ID, node.State)
		if run, ok := state.Runs[node.ID]; ok && run.Message != "" {
			line += "  " + run.Message
		}
		fmt.Println(line)
	}
	if state.Outputs.Version != "" {
		fmt.Printf("version: %s\n", state.Outputs.Version)
	}
	for _, artifact := range state.Outputs.Artifacts {
		fmt.Printf("artifact: %s\n", artifact.Name)
	}
	return nil
}

func runWatch(args []string) error {
	flags := flag.NewFlagSet("watch", flag.ExitOnError)
	projectDir := flags.String("project", "", "path to the project directory (defaults to cwd)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	cfg, book, err := setup(*projectDir)
	if err != nil {
		return err
	}
	return tui.Run(cfg, engine.NewFileStore(cfg.StatePath()), book)
}
