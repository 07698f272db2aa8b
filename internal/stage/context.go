package stage

import (
	"context"
	"time"

	"github.com/gbredz1/gbforge/internal/config"
	"github.com/gbredz1/gbforge/internal/forge"
	"github.com/gbredz1/gbforge/internal/gitrepo"
	"github.com/gbredz1/gbforge/internal/logbook"
	"github.com/gbredz1/gbforge/internal/toolchain"
)

// RunKind selects the pipeline's trigger semantics.
type RunKind string

const (
	// KindRelease is a tag-triggered stable release.
	KindRelease RunKind = "release"
	// KindNightly is a scheduled prerelease build.
	KindNightly RunKind = "nightly"
)

// Context carries shared runtime dependencies into every stage.
type Context struct {
	Ctx     context.Context
	Config  *config.Config
	Logbook *logbook.Logbook
	Repo    gitrepo.Repo
	Forge   forge.Client
	Builder toolchain.Builder

	// Kind distinguishes tag-triggered from scheduled runs.
	Kind RunKind
	// Tag is the triggering tag name on release runs, empty otherwise.
	Tag string
	// RunID scopes artifact retrieval to one upstream build run.
	RunID string

	// Outputs accumulates the typed values produced by completed stages. The
	// engine passes a fresh copy before each stage run.
	Outputs Outputs

	Now func() time.Time
}

// Deadline returns the context used for external command execution.
func (c *Context) Deadline() context.Context {
	if c == nil || c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// Clock returns the injected clock, defaulting to the wall clock.
func (c *Context) Clock() time.Time {
	if c == nil || c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Log returns a logbook scope for a stage, safe on nil logbooks.
func (c *Context) Log(component string) *logbook.Scope {
	if c == nil || c.Logbook == nil {
		return nil
	}
	return c.Logbook.Scoped(component)
}

// WithOutputs returns a copy of the context carrying the given outputs.
func (c *Context) WithOutputs(outputs Outputs) *Context {
	clone := *c
	clone.Outputs = outputs
	return &clone
}
