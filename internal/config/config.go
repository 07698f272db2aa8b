// internal/config/config.go
//
// This package handles configuration and the .gbforge directory structure.
// Every checkout that uses gbforge gets a .gbforge/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// ForgeDir is the name of the directory we create in each checkout.
	ForgeDir = ".gbforge"

	defaultAppName       = "gbemu"
	defaultNightlyPrefix = "nightly-"
)

const defaultProjectConfigYAML = `# gbforge project configuration
version: 1

app:
  name: gbemu
  # Frontend binaries produced by every platform build.
  binaries:
    gui: gbemu-desktop
    terminal: gbemu-term
  # Workspace manifest holding the canonical package version.
  manifest: Cargo.toml

release:
  nightly_prefix: nightly-
  display_name: "gbemu {version}"

doctor:
  # Blargg cpu_instrs individual ROMs, matched by "{index}-*.gb".
  roms_dir: roms/blargg/cpu_instrs/individual
  # Reference comparison tool invoked per trace log.
  comparator: gameboy-doctor
  trace_binary: target/release/gameboy-doctor-trace
  # SM83 single-step corpus, one "{hex}.json" per opcode.
  vectors_dir: sm83/v1
  step_binary: target/release/sm83-doctor

tools:
  git: git
  gh: gh
  cargo: cargo
`

// BinaryConfig names the two frontend binaries shipped in every artifact.
type BinaryConfig struct {
	GUI      string `yaml:"gui"`
	Terminal string `yaml:"terminal"`
}

// AppConfig describes the application being shipped.
type AppConfig struct {
	Name     string       `yaml:"name"`
	Binaries BinaryConfig `yaml:"binaries"`
	Manifest string       `yaml:"manifest"`
}

// ReleaseConfig captures release naming preferences.
type ReleaseConfig struct {
	NightlyPrefix string `yaml:"nightly_prefix"`
	DisplayName   string `yaml:"display_name"`
}

// DoctorConfig points at the reference corpora and helper binaries.
type DoctorConfig struct {
	RomsDir     string `yaml:"roms_dir"`
	Comparator  string `yaml:"comparator"`
	TraceBinary string `yaml:"trace_binary"`
	VectorsDir  string `yaml:"vectors_dir"`
	StepBinary  string `yaml:"step_binary"`
}

// ToolConfig names the external executables the pipeline shells out to.
type ToolConfig struct {
	Git   string `yaml:"git"`
	GH    string `yaml:"gh"`
	Cargo string `yaml:"cargo"`
}

// ProjectConfig models .gbforge/config.yaml.
type ProjectConfig struct {
	Version int           `yaml:"version"`
	App     AppConfig     `yaml:"app"`
	Release ReleaseConfig `yaml:"release"`
	Doctor  DoctorConfig  `yaml:"doctor"`
	Tools   ToolConfig    `yaml:"tools"`
}

// Config holds the runtime configuration for gbforge.
type Config struct {
	// ProjectDir is the directory where the user ran `gbforge` from.
	ProjectDir string

	// ForgeProjectDir is ProjectDir/.gbforge.
	ForgeProjectDir string

	Project ProjectConfig
}

// InitDir creates the .gbforge directory structure in the given checkout.
//
// Structure created:
// .gbforge/
// ├── logs/     <- pipeline run logbook
// ├── state/    <- persisted engine state between invocations
// ├── dist/     <- packaged artifacts before publication
// └── plugins/  <- optional target/hook definitions
func InitDir(projectDir string) error {
	forgeDir := filepath.Join(projectDir, ForgeDir)

	dirs := []string{
		filepath.Join(forgeDir, "logs"),
		filepath.Join(forgeDir, "state"),
		filepath.Join(forgeDir, "dist"),
		filepath.Join(forgeDir, "plugins"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return ensureProjectConfig(filepath.Join(forgeDir, "config.yaml"))
}

// New creates a Config populated from .gbforge/config.yaml, falling back on
// defaults when the file is missing.
func New(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:      projectDir,
		ForgeProjectDir: filepath.Join(projectDir, ForgeDir),
		Project:         defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectConfigPath returns the path to config.yaml.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ForgeProjectDir, "config.yaml")
}

// LogsDir returns the path to the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.ForgeProjectDir, "logs")
}

// LogbookPath returns the run logbook file.
func (c *Config) LogbookPath() string {
	return filepath.Join(c.LogsDir(), "pipeline.log")
}

// StateDir returns the path to the state directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.ForgeProjectDir, "state")
}

// StatePath returns the persisted engine state file.
func (c *Config) StatePath() string {
	return filepath.Join(c.StateDir(), "run.json")
}

// DistDir returns the staging area for packaged artifacts.
func (c *Config) DistDir() string {
	return filepath.Join(c.ForgeProjectDir, "dist")
}

// PluginsDir returns the plugin definition directory.
func (c *Config) PluginsDir() string {
	return filepath.Join(c.ForgeProjectDir, "plugins")
}

// ManifestPath resolves the application's version manifest.
func (c *Config) ManifestPath() string {
	return c.resolve(c.Project.App.Manifest)
}

// RomsDir resolves the cpu_instrs test ROM directory.
func (c *Config) RomsDir() string {
	return c.resolve(c.Project.Doctor.RomsDir)
}

// VectorsDir resolves the SM83 single step vector directory.
func (c *Config) VectorsDir() string {
	return c.resolve(c.Project.Doctor.VectorsDir)
}

// resolve anchors a configured relative path at the project directory so
// lookups do not depend on the process working directory.
func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.ProjectDir, path)
}

// AppName returns the configured application name.
func (c *Config) AppName() string {
	return c.Project.App.Name
}

// NightlyPrefix returns the tag prefix shared by all nightly releases.
func (c *Config) NightlyPrefix() string {
	return c.Project.Release.NightlyPrefix
}

// DisplayName renders the release display name for a version.
func (c *Config) DisplayName(version string) string {
	template := c.Project.Release.DisplayName
	if template == "" {
		return version
	}
	return strings.ReplaceAll(template, "{version}", version)
}

func ensureProjectConfig(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: seed %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		App: AppConfig{
			Name: defaultAppName,
			Binaries: BinaryConfig{
				GUI:      "gbemu-desktop",
				Terminal: "gbemu-term",
			},
			Manifest: "Cargo.toml",
		},
		Release: ReleaseConfig{
			NightlyPrefix: defaultNightlyPrefix,
			DisplayName:   "gbemu {version}",
		},
		Doctor: DoctorConfig{
			RomsDir:     "roms/blargg/cpu_instrs/individual",
			Comparator:  "gameboy-doctor",
			TraceBinary: "target/release/gameboy-doctor-trace",
			VectorsDir:  "sm83/v1",
			StepBinary:  "target/release/sm83-doctor",
		},
		Tools: ToolConfig{
			Git:   "git",
			GH:    "gh",
			Cargo: "cargo",
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	defaults := defaultProjectConfig()
	if pc.Version == 0 {
		pc.Version = defaults.Version
	}
	if pc.App.Name == "" {
		pc.App.Name = defaults.App.Name
	}
	if pc.App.Binaries.GUI == "" {
		pc.App.Binaries.GUI = defaults.App.Binaries.GUI
	}
	if pc.App.Binaries.Terminal == "" {
		pc.App.Binaries.Terminal = defaults.App.Binaries.Terminal
	}
	if pc.App.Manifest == "" {
		pc.App.Manifest = defaults.App.Manifest
	}
	if pc.Release.NightlyPrefix == "" {
		pc.Release.NightlyPrefix = defaults.Release.NightlyPrefix
	}
	if pc.Release.DisplayName == "" {
		pc.Release.DisplayName = defaults.Release.DisplayName
	}
	if pc.Doctor.RomsDir == "" {
		pc.Doctor.RomsDir = defaults.Doctor.RomsDir
	}
	if pc.Doctor.Comparator == "" {
		pc.Doctor.Comparator = defaults.Doctor.Comparator
	}
	if pc.Doctor.TraceBinary == "" {
		pc.Doctor.TraceBinary = defaults.Doctor.TraceBinary
	}
	if pc.Doctor.VectorsDir == "" {
		pc.Doctor.VectorsDir = defaults.Doctor.VectorsDir
	}
	if pc.Doctor.StepBinary == "" {
		pc.Doctor.StepBinary = defaults.Doctor.StepBinary
	}
	if pc.Tools.Git == "" {
		pc.Tools.Git = defaults.Tools.Git
	}
	if pc.Tools.GH == "" {
		pc.Tools.GH = defaults.Tools.GH
	}
	if pc.Tools.Cargo == "" {
		pc.Tools.Cargo = defaults.Tools.Cargo
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if strings.TrimSpace(pc.App.Name) == "" {
		return fmt.Errorf("app.name is required")
	}
	if strings.ContainsAny(pc.App.Name, " /\\") {
		return fmt.Errorf("app.name %q must be a bare name", pc.App.Name)
	}
	if strings.TrimSpace(pc.Release.NightlyPrefix) == "" {
		return fmt.Errorf("release.nightly_prefix is required")
	}
	return nil
}
