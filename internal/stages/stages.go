// Package stages assembles the built-in stage registry.
package stages

import (
	"github.com/gbredz1/gbforge/internal/pipeline"
	"github.com/gbredz1/gbforge/internal/stage"
	"github.com/gbredz1/gbforge/internal/stages/changes"
	"github.com/gbredz1/gbforge/internal/stages/cleanup"
	"github.com/gbredz1/gbforge/internal/stages/matrix"
	"github.com/gbredz1/gbforge/internal/stages/publish"
	"github.com/gbredz1/gbforge/internal/stages/version"
)

// NewRegistry returns a registry holding every built-in pipeline stage.
func NewRegistry() *stage.Registry {
	registry := stage.NewRegistry()
	registry.MustRegister(pipeline.StageVersion, version.New)
	registry.MustRegister(pipeline.StageChanges, changes.New)
	registry.MustRegister(pipeline.StageCleanup, cleanup.New)
	registry.MustRegister(pipeline.StageMatrix, matrix.New)
	registry.MustRegister(pipeline.StagePublish, publish.New)
	return registry
}
