package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

// Go plugin files declare hooks through a single entry point:
//
//	func HookDefinitions() ([]map[string]any, error)
//
// Each returned map follows the YAML hook schema (id, name, command,
// pipelines, after). Files run under the yaegi interpreter, so a plugin
// needs no build step.
const goDefinitionFuncName = "HookDefinitions"

// LoadGoDefinitionDir interprets every .go file in dir and collects the
// hooks each one declares. A missing directory means no Go plugins.
func LoadGoDefinitionDir(dir string) ([]DefinitionFile, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var defs []DefinitionFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".go" {
			continue
		}
		path := filepath.Join(trimmed, entry.Name())
		hooks, err := evalHookFile(path)
		if err != nil {
			return nil, fmt.Errorf("plugin: %s: %w", path, err)
		}
		defs = append(defs, hooks...)
	}
	if len(defs) == 0 {
		return nil, nil
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Path < defs[j].Path })
	return defs, nil
}

// evalHookFile runs one plugin file under the interpreter and converts the
// returned hook maps through the YAML codec, so both plugin dialects are
// validated by the same schema.
func evalHookFile(path string) ([]DefinitionFile, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(code)) == "" {
		return nil, fmt.Errorf("file is empty")
	}
	vm := interp.New(interp.Options{})
	vm.Use(stdlib.Symbols)
	if _, err := vm.EvalPath(path); err != nil {
		return nil, fmt.Errorf("interpret: %w", err)
	}
	entry, err := vm.Eval(goDefinitionFuncName)
	if err != nil {
		return nil, fmt.Errorf("no %s() entry point: %w", goDefinitionFuncName, err)
	}
	raws, err := callHookEntry(entry)
	if err != nil {
		return nil, err
	}
	hooks := make([]DefinitionFile, 0, len(raws))
	for idx, raw := range raws {
		payload, err := yaml.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("hook %d of %d: %w", idx+1, len(raws), err)
		}
		hook, err := ParseDefinitionYAML(payload)
		if err != nil {
			return nil, fmt.Errorf("hook %d of %d: %w", idx+1, len(raws), err)
		}
		// Tag the source with the hook id so duplicate reports can name
		// both the file and the offending hook.
		hooks = append(hooks, DefinitionFile{
			Definition: hook,
			Path:       fmt.Sprintf("%s#%s", path, hook.ID),
		})
	}
	return hooks, nil
}

// callHookEntry invokes the entry point and normalizes its return shape.
// The interpreter may hand the slice back untyped, so both the direct
// assertion and an element-wise conversion are accepted.
func callHookEntry(entry reflect.Value) ([]map[string]any, error) {
	if !entry.IsValid() || entry.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goDefinitionFuncName)
	}
	out := entry.Call(nil)
	switch len(out) {
	case 1:
	case 2:
		if !out[1].IsNil() {
			declErr, ok := out[1].Interface().(error)
			if !ok {
				return nil, fmt.Errorf("%s: second return value must be an error", goDefinitionFuncName)
			}
			return nil, fmt.Errorf("%s: %w", goDefinitionFuncName, declErr)
		}
	default:
		return nil, fmt.Errorf("%s must return ([]map[string]any, error)", goDefinitionFuncName)
	}
	if hooks, ok := out[0].Interface().([]map[string]any); ok {
		return hooks, nil
	}
	if out[0].Kind() != reflect.Slice {
		return nil, fmt.Errorf("%s must return []map[string]any, got %s", goDefinitionFuncName, out[0].Kind())
	}
	hooks := make([]map[string]any, out[0].Len())
	for i := range hooks {
		m, ok := out[0].Index(i).Interface().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: hook %d is not a map[string]any", goDefinitionFuncName, i+1)
		}
		hooks[i] = m
	}
	return hooks, nil
}
