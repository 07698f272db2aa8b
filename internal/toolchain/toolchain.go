package toolchain

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gbredz1/gbforge/internal/platform"
)

// BuildOutput maps binary names to the compiled file paths for one target.
type BuildOutput struct {
	Target   platform.Target
	Binaries map[string]string
}

// Builder compiles the application's frontend binaries and answers package
// metadata questions.
type Builder interface {
	// MetadataVersion reads the canonical package version from the workspace
	// build configuration.
	MetadataVersion(ctx context.Context) (string, error)
	// Build compiles the named binaries for a target and returns their paths.
	Build(ctx context.Context, target platform.Target, binaries []string) (BuildOutput, error)
}

// Cargo shells out to the Rust toolchain.
type Cargo struct {
	dir   string
	cargo string
	run   func(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// NewCargo builds a cargo-backed Builder rooted at the workspace dir.
func NewCargo(dir, cargoBinary string) *Cargo {
	if cargoBinary == "" {
		cargoBinary = "cargo"
	}
	return &Cargo{dir: dir, cargo: cargoBinary, run: runCommand}
}

func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s %s: %s", name, strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// MetadataVersion implements Builder via `cargo metadata`.
func (c *Cargo) MetadataVersion(ctx context.Context) (string, error) {
	out, err := c.run(ctx, c.dir, c.cargo, "metadata", "--no-deps", "--format-version", "1")
	if err != nil {
		return "", fmt.Errorf("toolchain: cargo metadata: %w", err)
	}
	var payload struct {
		Packages []struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"packages"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return "", fmt.Errorf("toolchain: parse cargo metadata: %w", err)
	}
	if len(payload.Packages) == 0 {
		return "", fmt.Errorf("toolchain: cargo metadata reported no packages")
	}
	version := strings.TrimSpace(payload.Packages[0].Version)
	if version == "" {
		return "", fmt.Errorf("toolchain: package %s has no version", payload.Packages[0].Name)
	}
	return version, nil
}

// Build implements Builder via `cargo build --release --target`.
func (c *Cargo) Build(ctx context.Context, target platform.Target, binaries []string) (BuildOutput, error) {
	if len(binaries) == 0 {
		return BuildOutput{}, fmt.Errorf("toolchain: no binaries requested for %s", target.Name)
	}
	args := []string{"build", "--release", "--target", target.Triple}
	for _, bin := range binaries {
		args = append(args, "--bin", bin)
	}
	if _, err := c.run(ctx, c.dir, c.cargo, args...); err != nil {
		return BuildOutput{}, fmt.Errorf("toolchain: build %s: %w", target.Name, err)
	}
	output := BuildOutput{Target: target, Binaries: make(map[string]string, len(binaries))}
	for _, bin := range binaries {
		path := filepath.Join(c.dir, "target", target.Triple, "release", bin+target.ExeSuffix)
		if _, err := os.Stat(path); err != nil {
			return BuildOutput{}, fmt.Errorf("toolchain: %s did not produce %s: %w", target.Name, path, err)
		}
		output.Binaries[bin] = path
	}
	return output, nil
}
