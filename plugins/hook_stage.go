package plugins

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/gbredz1/gbforge/internal/stage"
)

// hookStage adapts a plugin command into a pipeline stage. The command runs
// once per pipeline run, after the stages it declares in After.
type hookStage struct {
	def HookDefinition
	run func(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
}

func newHookStage(def HookDefinition) *hookStage {
	return &hookStage{def: def, run: runHookCommand}
}

func runHookCommand(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = env
	return cmd.CombinedOutput()
}

func (h *hookStage) Info() stage.Info {
	name := h.def.Name
	if name == "" {
		name = h.def.ID
	}
	return stage.Info{
		ID:          h.def.ID,
		Name:        name,
		Description: h.def.Description,
		Version:     h.def.Version,
	}
}

func (h *hookStage) IsComplete(*stage.Context) (bool, error) { return false, nil }

func (h *hookStage) Run(ctx *stage.Context) (stage.Result, error) {
	if err := stage.ValidateContext(h.def.ID, ctx); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}

	expand := h.expander(ctx)
	command := h.def.Command
	args := make([]string, len(command.Args))
	for i, arg := range command.Args {
		args[i] = expand(arg)
	}
	dir := command.Dir
	if dir == "" {
		dir = ctx.Config.ProjectDir
	}
	env := os.Environ()
	for key, value := range command.Env {
		env = append(env, key+"="+expand(value))
	}

	out, err := h.run(ctx.Deadline(), dir, env, command.Program, args...)
	if err != nil {
		return stage.Result{Status: stage.StatusFailed},
			fmt.Errorf("%s: run %s: %w: %s", h.def.ID, command.Program, err, strings.TrimSpace(string(out)))
	}
	return stage.Result{
		Status:  stage.StatusCompleted,
		Message: fmt.Sprintf("ran %s", command.Program),
	}, nil
}

// expander substitutes run placeholders in command arguments and env values.
func (h *hookStage) expander(ctx *stage.Context) func(string) string {
	replacer := strings.NewReplacer(
		"{version}", ctx.Outputs.Version,
		"{dist}", ctx.Config.DistDir(),
		"{app}", ctx.Config.AppName(),
	)
	return replacer.Replace
}
