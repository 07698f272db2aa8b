// Package publish creates or updates the release that collects every
// artifact produced for the run's version. Partial artifact sets publish as
// partial releases rather than failing the run.
package publish

import (
	"fmt"

	"github.com/gbredz1/gbforge/internal/forge"
	"github.com/gbredz1/gbforge/internal/stage"
)

const stageID = "publish"

// Stage implements release publication.
type Stage struct{}

// New is the registry factory.
func New(stage.Config) (stage.Stage, error) {
	return &Stage{}, nil
}

func (s *Stage) Info() stage.Info {
	return stage.Info{
		ID:          stageID,
		Name:        "Release Publisher",
		Description: "Publishes the run's artifacts as a single tagged release",
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
	version := ctx.Outputs.Version
	if version == "" {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: no resolved version", stageID)
	}

	log := ctx.Log(stageID)
	assets := make([]string, 0, len(ctx.Outputs.Artifacts))
	for _, artifact := range ctx.Outputs.Artifacts {
		assets = append(assets, artifact.Path)
	}

	// When the build ran elsewhere the artifacts are fetched from that run
	// by naming pattern instead of taken from local stage outputs.
	if ctx.RunID != "" {
		pattern := fmt.Sprintf("%s-%s-*", ctx.Config.AppName(), version)
		downloaded, err := ctx.Forge.DownloadArtifacts(ctx.Deadline(), ctx.RunID, pattern, ctx.Config.DistDir())
		if err != nil {
			return stage.Result{Status: stage.StatusFailed},
				fmt.Errorf("%s: download artifacts from run %s: %w", stageID, ctx.RunID, err)
		}
		log.Info("downloaded %d artifact(s) from run %s", len(downloaded), ctx.RunID)
		assets = downloaded
	}
	if len(assets) == 0 {
		log.Warn("publishing %s with no artifacts", version)
	}

	existing, err := ctx.Forge.Releases(ctx.Deadline(), version)
	if err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: list releases: %w", stageID, err)
	}
	for _, rel := range existing {
		if rel.Tag != version {
			continue
		}
		if err := ctx.Forge.UploadAssets(ctx.Deadline(), version, assets); err != nil {
			return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: upload assets to %s: %w", stageID, version, err)
		}
		return stage.Result{
			Status:  stage.StatusCompleted,
			Message: fmt.Sprintf("updated release %s with %d artifact(s)", version, len(assets)),
		}, nil
	}

	rel := forge.Release{
		Tag:        version,
		Name:       ctx.Config.DisplayName(version),
		Prerelease: ctx.Kind == stage.KindNightly,
	}
	if err := ctx.Forge.CreateRelease(ctx.Deadline(), rel, assets); err != nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: create release %s: %w", stageID, version, err)
	}
	return stage.Result{
		Status:  stage.StatusCompleted,
		Message: fmt.Sprintf("published release %s with %d artifact(s)", version, len(assets)),
	}, nil
}
