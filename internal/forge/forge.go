package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Release is one published release on the hosting forge.
type Release struct {
	Tag        string `json:"tagName"`
	Name       string `json:"name"`
	Prerelease bool   `json:"isPrerelease"`
}

// Client is the slice of the release host the pipeline depends on. The gh CLI
// implementation below is the production one; tests substitute stubs.
type Client interface {
	// Releases lists releases whose tag starts with prefix. An empty prefix
	// lists everything.
	Releases(ctx context.Context, prefix string) ([]Release, error)
	// DeleteRelease removes a release by tag, leaving the tag itself alone.
	DeleteRelease(ctx context.Context, tag string) error
	// DeleteTag removes the git ref backing a release tag.
	DeleteTag(ctx context.Context, tag string) error
	// CreateRelease publishes rel with the given asset files attached.
	CreateRelease(ctx context.Context, rel Release, assets []string) error
	// UploadAssets attaches files to an existing release, replacing duplicates.
	UploadAssets(ctx context.Context, tag string, assets []string) error
	// DownloadArtifacts fetches build-run artifacts matching pattern into dir
	// and returns the downloaded file paths.
	DownloadArtifacts(ctx context.Context, runID, pattern, dir string) ([]string, error)
}

// GH drives the GitHub CLI.
type GH struct {
	dir string
	gh  string
	run func(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// NewGH builds a gh-backed client operating in dir.
func NewGH(dir, ghBinary string) *GH {
	if ghBinary == "" {
		ghBinary = "gh"
	}
	return &GH{dir: dir, gh: ghBinary, run: runCommand}
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

// Releases implements Client via `gh release list --json`.
func (g *GH) Releases(ctx context.Context, prefix string) ([]Release, error) {
	out, err := g.run(ctx, g.dir, g.gh, "release", "list", "--json", "tagName,name,isPrerelease", "--limit", "200")
	if err != nil {
		return nil, fmt.Errorf("forge: list releases: %w", err)
	}
	var all []Release
	if err := json.Unmarshal(out, &all); err != nil {
		return nil, fmt.Errorf("forge: parse release list: %w", err)
	}
	if prefix == "" {
		return all, nil
	}
	var matched []Release
	for _, rel := range all {
		if strings.HasPrefix(rel.Tag, prefix) {
			matched = append(matched, rel)
		}
	}
	return matched, nil
}

// DeleteRelease implements Client via `gh release delete`.
func (g *GH) DeleteRelease(ctx context.Context, tag string) error {
	if _, err := g.run(ctx, g.dir, g.gh, "release", "delete", tag, "--yes"); err != nil {
		return fmt.Errorf("forge: delete release %s: %w", tag, err)
	}
	return nil
}

// DeleteTag implements Client via the refs API.
func (g *GH) DeleteTag(ctx context.Context, tag string) error {
	ref := "repos/{owner}/{repo}/git/refs/tags/" + tag
	if _, err := g.run(ctx, g.dir, g.gh, "api", "-X", "DELETE", ref); err != nil {
		return fmt.Errorf("forge: delete tag %s: %w", tag, err)
	}
	return nil
}

// CreateRelease implements Client via `gh release create`.
func (g *GH) CreateRelease(ctx context.Context, rel Release, assets []string) error {
	args := []string{"release", "create", rel.Tag, "--title", rel.Name}
	if rel.Prerelease {
		args = append(args, "--prerelease")
	}
	args = append(args, assets...)
	if _, err := g.run(ctx, g.dir, g.gh, args...); err != nil {
		return fmt.Errorf("forge: create release %s: %w", rel.Tag, err)
	}
	return nil
}

// UploadAssets implements Client via `gh release upload --clobber`.
func (g *GH) UploadAssets(ctx context.Context, tag string, assets []string) error {
	if len(assets) == 0 {
		return nil
	}
	args := append([]string{"release", "upload", tag, "--clobber"}, assets...)
	if _, err := g.run(ctx, g.dir, g.gh, args...); err != nil {
		return fmt.Errorf("forge: upload assets to %s: %w", tag, err)
	}
	return nil
}

// DownloadArtifacts implements Client via `gh run download`.
func (g *GH) DownloadArtifacts(ctx context.Context, runID, pattern, dir string) ([]string, error) {
	args := []string{"run", "download", runID, "--pattern", pattern, "--dir", dir}
	if _, err := g.run(ctx, g.dir, g.gh, args...); err != nil {
		return nil, fmt.Errorf("forge: download artifacts for run %s: %w", runID, err)
	}
	return listFiles(dir)
}
