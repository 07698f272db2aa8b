package plugins

import (
	"fmt"
	"strings"
)

// HookDefinition describes a command-backed pipeline stage loaded from a
// plugin file.
//
// The struct mirrors the on-disk schema under .gbforge/plugins/*.yaml and is
// intentionally narrow so hook metadata can be validated before the stage is
// wired into a pipeline.
type HookDefinition struct {
	ID          string            `json:"id" yaml:"id"`
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string            `json:"version" yaml:"version"`
	Command     CommandDefinition `json:"command" yaml:"command"`
	// Pipelines restricts the hook to the named pipeline ids. Empty means
	// every pipeline.
	Pipelines []string `json:"pipelines,omitempty" yaml:"pipelines,omitempty"`
	// After lists the stage instance ids the hook depends on. Empty hooks
	// run at the end of the pipeline.
	After []string `json:"after,omitempty" yaml:"after,omitempty"`
}

// Normalized returns a trimmed copy of the definition.
func (def HookDefinition) Normalized() HookDefinition {
	clone := HookDefinition{
		ID:          strings.TrimSpace(def.ID),
		Name:        strings.TrimSpace(def.Name),
		Description: strings.TrimSpace(def.Description),
		Version:     strings.TrimSpace(def.Version),
		Command:     def.Command.normalized(),
	}
	clone.Pipelines = normalizedList(def.Pipelines)
	clone.After = normalizedList(def.After)
	return clone
}

// Validate ensures the hook definition names a runnable command.
func (def HookDefinition) Validate() error {
	normalized := def.Normalized()
	if normalized.ID == "" {
		return fmt.Errorf("plugin: id is required")
	}
	if normalized.Version == "" {
		return fmt.Errorf("plugin %s: version is required", normalized.ID)
	}
	if err := normalized.Command.Validate(); err != nil {
		return fmt.Errorf("plugin %s: command: %w", normalized.ID, err)
	}
	for _, pipeline := range normalized.Pipelines {
		if pipeline == "" {
			return fmt.Errorf("plugin %s: empty pipeline id", normalized.ID)
		}
	}
	for _, dep := range normalized.After {
		if dep == "" {
			return fmt.Errorf("plugin %s: empty dependency id", normalized.ID)
		}
	}
	return nil
}

// AppliesTo reports whether the hook participates in the named pipeline.
func (def HookDefinition) AppliesTo(pipelineID string) bool {
	if len(def.Pipelines) == 0 {
		return true
	}
	for _, id := range def.Pipelines {
		if id == pipelineID {
			return true
		}
	}
	return false
}

// CommandDefinition declares the external program a hook stage runs. The
// placeholder {version} in arguments and environment values is replaced by
// the run's resolved version.
type CommandDefinition struct {
	Program string            `json:"program" yaml:"program"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Dir     string            `json:"dir,omitempty" yaml:"dir,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

func (def CommandDefinition) normalized() CommandDefinition {
	clone := CommandDefinition{
		Program: strings.TrimSpace(def.Program),
		Dir:     strings.TrimSpace(def.Dir),
	}
	if len(def.Args) > 0 {
		clone.Args = make([]string, len(def.Args))
		copy(clone.Args, def.Args)
	}
	if len(def.Env) > 0 {
		clone.Env = make(map[string]string, len(def.Env))
		for key, value := range def.Env {
			trimmed := strings.TrimSpace(key)
			if trimmed == "" {
				continue
			}
			clone.Env[trimmed] = value
		}
	}
	return clone
}

// Validate ensures the command is executable by the hook runner.
func (def CommandDefinition) Validate() error {
	if def.normalized().Program == "" {
		return fmt.Errorf("program is required")
	}
	return nil
}

func normalizedList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, strings.TrimSpace(value))
	}
	return out
}
