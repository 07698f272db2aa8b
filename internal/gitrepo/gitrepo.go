package gitrepo

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strconv"
	"strings"
)

// Repo answers the version-control questions the pipeline asks: which tags
// exist under a prefix, and how much history accumulated since a ref.
type Repo interface {
	// TagsWithPrefix returns every tag starting with prefix, sorted descending.
	TagsWithPrefix(ctx context.Context, prefix string) ([]string, error)
	// CommitsSince counts commits strictly after ref on the current branch.
	CommitsSince(ctx context.Context, ref string) (int, error)
}

// CLI shells out to the git binary.
type CLI struct {
	dir string
	git string
	run func(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// NewCLI builds a git-backed Repo rooted at dir.
func NewCLI(dir, gitBinary string) *CLI {
	if gitBinary == "" {
		gitBinary = "git"
	}
	return &CLI{dir: dir, git: gitBinary, run: runCommand}
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

// TagsWithPrefix implements Repo using `git tag --list`.
//
// Sorting is lexicographic descending. For nightly tags this matches
// chronological order only because the date suffix is zero-padded YYYYMMDD;
// callers relying on "first element is most recent" inherit that coupling.
func (c *CLI) TagsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	out, err := c.run(ctx, c.dir, c.git, "tag", "--list", prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("gitrepo: list tags: %w", err)
	}
	var tags []string
	for _, line := range strings.Split(string(out), "\n") {
		tag := strings.TrimSpace(line)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(tags)))
	return tags, nil
}

// CommitsSince implements Repo using `git rev-list --count`.
func (c *CLI) CommitsSince(ctx context.Context, ref string) (int, error) {
	out, err := c.run(ctx, c.dir, c.git, "rev-list", "--count", ref+"..HEAD")
	if err != nil {
		return 0, fmt.Errorf("gitrepo: count commits since %s: %w", ref, err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("gitrepo: parse commit count %q: %w", strings.TrimSpace(string(out)), err)
	}
	return count, nil
}
