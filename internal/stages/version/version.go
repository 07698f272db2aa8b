// Package version resolves the canonical version identifier for a run.
// Tag-triggered runs must match the package manifest exactly; scheduled runs
// synthesize a date-stamped nightly identifier.
package version

import (
	"fmt"
	"strings"
	"time"

	"github.com/gbredz1/gbforge/internal/stage"
)

const stageID = "version"

// Stage implements the version resolution gate.
type Stage struct{}

// New is the registry factory.
func New(stage.Config) (stage.Stage, error) {
	return &Stage{}, nil
}

func (s *Stage) Info() stage.Info {
	return stage.Info{
		ID:          stageID,
		Name:        "Version Resolver",
		Description: "Resolves the release version and validates tag-triggered runs against the package manifest",
		Version:     "1.0.0",
	}
}

func (s *Stage) IsComplete(ctx *stage.Context) (bool, error) {
	return ctx != nil && ctx.Outputs.Version != "", nil
}

func (s *Stage) Run(ctx *stage.Context) (stage.Result, error) {
	if err := stage.ValidateContext(stageID, ctx); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}

	switch ctx.Kind {
	case stage.KindNightly:
		version := NightlyWithPrefix(ctx.Config.NightlyPrefix(), ctx.Clock())
		return stage.Result{
			Status:  stage.StatusCompleted,
			Message: fmt.Sprintf("resolved nightly version %s", version),
			Outputs: stage.Outputs{Version: version},
		}, nil
	case stage.KindRelease:
		return s.resolveRelease(ctx)
	default:
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: unknown run kind %q", stageID, ctx.Kind)
	}
}

// resolveRelease compares the triggering tag against the package manifest.
// A mismatch halts the pipeline before any platform build starts.
func (s *Stage) resolveRelease(ctx *stage.Context) (stage.Result, error) {
	if ctx.Builder == nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: builder is required", stageID)
	}
	tag := strings.TrimPrefix(strings.TrimSpace(ctx.Tag), "refs/tags/")
	if tag == "" {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: release run requires a tag", stageID)
	}
	meta, err := ctx.Builder.MetadataVersion(ctx.Deadline())
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: read package version: %w", stageID, err)
	}
	if tag != meta {
		return stage.Result{Status: stage.StatusFailed},
			fmt.Errorf("%s: tag %q does not match package version %q", stageID, tag, meta)
	}
	return stage.Result{
		Status:  stage.StatusCompleted,
		Message: fmt.Sprintf("tag %s matches package version", tag),
		Outputs: stage.Outputs{Version: meta},
	}, nil
}

// Nightly formats a nightly version identifier for the given instant. The
// zero-padded UTC date keeps lexicographic tag order aligned with
// chronological order, which change detection relies on.
func Nightly(t time.Time) string {
	return NightlyWithPrefix("", t)
}

// NightlyWithPrefix formats a nightly identifier under a custom tag prefix.
func NightlyWithPrefix(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = "nightly-"
	}
	return prefix + t.UTC().Format("20060102")
}
