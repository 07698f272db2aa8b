// Package changes decides whether a nightly run has new work since the most
// recent nightly tag. An unchanged tree skips the rest of the pipeline.
package changes

import (
	"fmt"

	"github.com/gbredz1/gbforge/internal/stage"
)

const stageID = "changes"

// Stage implements nightly change detection.
type Stage struct{}

// New is the registry factory.
func New(stage.Config) (stage.Stage, error) {
	return &Stage{}, nil
}

func (s *Stage) Info() stage.Info {
	return stage.Info{
		ID:          stageID,
		Name:        "Change Detector",
		Description: "Skips the nightly build when no commits landed since the last nightly tag",
		Version:     "1.0.0",
	}
}

func (s *Stage) IsComplete(ctx *stage.Context) (bool, error) {
	return ctx != nil && ctx.Outputs.HasChanges != nil, nil
}

func (s *Stage) Run(ctx *stage.Context) (stage.Result, error) {
	if err := stage.ValidateContext(stageID, ctx); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}
	if ctx.Repo == nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: repository is required", stageID)
	}

	prefix := nightlyPrefix(ctx)
	tags, err := ctx.Repo.TagsWithPrefix(ctx.Deadline(), prefix)
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: list nightly tags: %w", stageID, err)
	}
	if len(tags) == 0 {
		// Bootstrap case: no prior nightly means everything is new.
		return stage.Result{
			Status:  stage.StatusCompleted,
			Message: "no prior nightly tag, building",
			Outputs: stage.Outputs{HasChanges: boolPtr(true)},
		}, nil
	}

	// Tags arrive sorted descending; the first entry is the most recent
	// nightly because the zero-padded date suffix sorts chronologically.
	latest := tags[0]
	count, err := ctx.Repo.CommitsSince(ctx.Deadline(), latest)
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: count commits since %s: %w", stageID, latest, err)
	}
	if count == 0 {
		return stage.Result{
			Status:  stage.StatusSkipped,
			Message: fmt.Sprintf("no commits since %s", latest),
			Outputs: stage.Outputs{HasChanges: boolPtr(false)},
		}, nil
	}
	return stage.Result{
		Status:  stage.StatusCompleted,
		Message: fmt.Sprintf("%d commits since %s", count, latest),
		Outputs: stage.Outputs{HasChanges: boolPtr(true)},
	}, nil
}

func nightlyPrefix(ctx *stage.Context) string {
	if prefix := ctx.Config.NightlyPrefix(); prefix != "" {
		return prefix
	}
	return "nightly-"
}

func boolPtr(v bool) *bool { return &v }
