package plugins

import (
	"fmt"

	"github.com/gbredz1/gbforge/internal/config"
	"github.com/gbredz1/gbforge/internal/pipeline"
	"github.com/gbredz1/gbforge/internal/stage"
)

// RegisterHookPlugins discovers YAML and Go hook definitions under
// .gbforge/plugins and registers a stage per hook. The returned definitions
// are used to splice the hooks into pipeline graphs.
func RegisterHookPlugins(reg *stage.Registry, cfg *config.Config) ([]HookDefinition, error) {
	if reg == nil || cfg == nil {
		return nil, nil
	}
	files, err := loadAllDefinitionFiles(cfg.PluginsDir())
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}
	seen := make(map[string]string)
	hooks := make([]HookDefinition, 0, len(files))
	for _, file := range files {
		def := file.Definition
		if existing, ok := seen[def.ID]; ok {
			return nil, fmt.Errorf("plugin: duplicate hook id %s (%s and %s)", def.ID, existing, file.Path)
		}
		seen[def.ID] = file.Path
		defCopy := def
		if err := reg.Register(defCopy.ID, func(stage.Config) (stage.Stage, error) {
			return newHookStage(defCopy), nil
		}); err != nil {
			return nil, fmt.Errorf("plugin: register %s from %s: %w", def.ID, file.Path, err)
		}
		hooks = append(hooks, def)
	}
	return hooks, nil
}

// ExtendDefinition splices the applicable hooks into a pipeline definition.
// A hook without an After list runs after the pipeline's last declared stage.
func ExtendDefinition(def pipeline.Definition, hooks []HookDefinition) pipeline.Definition {
	if len(hooks) == 0 {
		return def
	}
	extended := def.Clone()
	for _, hook := range hooks {
		if !hook.AppliesTo(extended.ID) {
			continue
		}
		after := hook.After
		if len(after) == 0 && len(extended.Stages) > 0 {
			last := extended.Stages[len(extended.Stages)-1]
			after = []string{last.InstanceID()}
		}
		extended.Stages = append(extended.Stages, pipeline.StageRef{
			StageID:   hook.ID,
			Name:      hook.Name,
			DependsOn: after,
		})
	}
	return extended
}

func loadAllDefinitionFiles(dir string) ([]DefinitionFile, error) {
	yamlDefs, err := LoadDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	goDefs, err := LoadGoDefinitionDir(dir)
	if err != nil {
		return nil, err
	}
	return append(yamlDefs, goDefs...), nil
}
