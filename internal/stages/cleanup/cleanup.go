// Package cleanup removes prior nightly releases and their tags so that at
// most one current nightly exists once the new one is published. Deletion is
// best effort: partial prior state never blocks the pipeline.
package cleanup

import (
	"fmt"
	"strings"

	"github.com/gbredz1/gbforge/internal/stage"
)

const stageID = "cleanup"

// Stage implements nightly release cleanup.
type Stage struct{}

// New is the registry factory.
func New(stage.Config) (stage.Stage, error) {
	return &Stage{}, nil
}

func (s *Stage) Info() stage.Info {
	return stage.Info{
		ID:          stageID,
		Name:        "Release Cleaner",
		Description: "Deletes prior nightly releases and tags before a new nightly is published",
		Version:     "1.0.0",
	}
}

func (s *Stage) IsComplete(*stage.Context) (bool, error) { return false, nil }

func (s *Stage) Run(ctx *stage.Context) (stage.Result, error) {
	if err := stage.ValidateContext(stageID, ctx); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}
	if ctx.Forge == nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: forge client is required", stageID)
	}

	prefix := ctx.Config.NightlyPrefix()
	if prefix == "" {
		prefix = "nightly-"
	}
	releases, err := ctx.Forge.Releases(ctx.Deadline(), prefix)
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: list releases: %w", stageID, err)
	}

	log := ctx.Log(stageID)
	deleted := 0
	for _, rel := range releases {
		if !strings.HasPrefix(rel.Tag, prefix) {
			continue
		}
		if err := ctx.Forge.DeleteRelease(ctx.Deadline(), rel.Tag); err != nil {
			log.Warn("delete release %s: %v", rel.Tag, err)
			continue
		}
		deleted++
		// Stale tags accumulate harmlessly; a failed tag deletion is logged
		// and swallowed so the remaining releases still get cleaned.
		if err := ctx.Forge.DeleteTag(ctx.Deadline(), rel.Tag); err != nil {
			log.Warn("delete tag %s: %v", rel.Tag, err)
		}
	}

	if deleted == 0 {
		return stage.Result{
			Status:  stage.StatusNoOp,
			Message: "no prior nightly releases",
		}, nil
	}
	return stage.Result{
		Status:  stage.StatusCompleted,
		Message: fmt.Sprintf("removed %d nightly release(s)", deleted),
	}, nil
}
