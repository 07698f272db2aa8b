// Package matrix fans out one build-and-package unit per platform target.
// Units run in parallel and a failing unit never cancels its siblings; the
// eventual release simply carries fewer artifacts.
package matrix

import (
	"fmt"
	"sync"

	"github.com/gbredz1/gbforge/internal/archive"
	"github.com/gbredz1/gbforge/internal/platform"
	"github.com/gbredz1/gbforge/internal/stage"
)

const stageID = "matrix"

// Stage implements the build matrix coordinator.
type Stage struct{}

// New is the registry factory.
func New(stage.Config) (stage.Stage, error) {
	return &Stage{}, nil
}

func (s *Stage) Info() stage.Info {
	return stage.Info{
		ID:          stageID,
		Name:        "Build Matrix Coordinator",
		Description: "Builds and packages both frontend binaries for every platform target in parallel",
		Version:     "1.0.0",
	}
}

func (s *Stage) IsComplete(ctx *stage.Context) (bool, error) {
	return ctx != nil && len(ctx.Outputs.Artifacts) > 0, nil
}

func (s *Stage) Run(ctx *stage.Context) (stage.Result, error) {
	if err := stage.ValidateContext(stageID, ctx); err != nil {
		return stage.Result{Status: stage.StatusFailed}, err
	}
	if ctx.Builder == nil {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: builder is required", stageID)
	}
	version := ctx.Outputs.Version
	if version == "" {
		return stage.Result{Status: stage.StatusFailed}, fmt.Errorf("%s: no resolved version", stageID)
	}

	app := ctx.Config.AppName()
	binaries := []string{
		ctx.Config.Project.App.Binaries.GUI,
		ctx.Config.Project.App.Binaries.Terminal,
	}
	packager := archive.New(ctx.Config.DistDir())
	targets := platform.Targets()
	log := ctx.Log(stageID)

	// Indexed slots keep artifact order stable regardless of which unit
	// finishes first.
	artifacts := make([]*platform.Artifact, len(targets))
	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target platform.Target) {
			defer wg.Done()
			output, err := ctx.Builder.Build(ctx.Deadline(), target, binaries)
			if err != nil {
				errs[i] = fmt.Errorf("build %s: %w", target.Name, err)
				return
			}
			artifact, err := packager.Package(output, app, version)
			if err != nil {
				errs[i] = fmt.Errorf("package %s: %w", target.Name, err)
				return
			}
			artifacts[i] = &artifact
		}(i, target)
	}
	wg.Wait()

	var built []platform.Artifact
	failed := 0
	for i, target := range targets {
		if errs[i] != nil {
			failed++
			log.Error("%s unit failed: %v", target.Name, errs[i])
			continue
		}
		built = append(built, *artifacts[i])
		log.Info("packaged %s", artifacts[i].Name)
	}

	if len(built) == 0 {
		return stage.Result{Status: stage.StatusFailed},
			fmt.Errorf("%s: all %d platform units failed", stageID, len(targets))
	}
	return stage.Result{
		Status:  stage.StatusCompleted,
		Message: fmt.Sprintf("packaged %d of %d platform targets", len(built), len(targets)),
		Outputs: stage.Outputs{Artifacts: built},
	}, nil
}
