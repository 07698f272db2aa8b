package stage

import (
	"fmt"

	"github.com/gbredz1/gbforge/internal/platform"
)

// Info describes a stage's identity and intent.
type Info struct {
	ID          string
	Name        string
	Description string
	Version     string
}

// Validate ensures the info block is well-formed.
func (i Info) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("stage: id is required")
	}
	if i.Name == "" {
		return fmt.Errorf("stage: name is required for %s", i.ID)
	}
	if i.Version == "" {
		return fmt.Errorf("stage: version is required for %s", i.ID)
	}
	return nil
}

// Status enumerates stage run outcomes.
type Status string

const (
	// StatusCompleted marks a stage that ran and produced its outputs.
	StatusCompleted Status = "completed"
	// StatusSkipped marks a stage that decided the rest of its dependents
	// have no work, e.g. a nightly with no new commits.
	StatusSkipped Status = "skipped"
	// StatusNoOp marks a stage whose outputs already existed.
	StatusNoOp Status = "no-op"
	// StatusFailed marks a stage that could not produce its outputs.
	StatusFailed Status = "failed"
)

// Outputs carries the typed values stages hand to their dependents. Each run
// accumulates outputs by value; there is no environment-variable threading
// between stages.
type Outputs struct {
	// Version is the canonical release identifier resolved for this run.
	Version string `json:"version,omitempty"`
	// HasChanges is set by change detection on nightly runs.
	HasChanges *bool `json:"has_changes,omitempty"`
	// Artifacts lists every archive produced by the build matrix.
	Artifacts []platform.Artifact `json:"artifacts,omitempty"`
}

// Merge folds non-empty fields of other into a copy of o.
func (o Outputs) Merge(other Outputs) Outputs {
	if other.Version != "" {
		o.Version = other.Version
	}
	if other.HasChanges != nil {
		value := *other.HasChanges
		o.HasChanges = &value
	}
	if len(other.Artifacts) > 0 {
		o.Artifacts = append([]platform.Artifact(nil), other.Artifacts...)
	}
	return o
}

// Result captures the outcome of a stage execution.
type Result struct {
	Status  Status
	Message string
	Outputs Outputs
}

// Stage is implemented by every pipeline unit.
type Stage interface {
	Info() Info
	IsComplete(ctx *Context) (bool, error)
	Run(ctx *Context) (Result, error)
}

// ValidateContext guards against stages being invoked without runtime wiring.
func ValidateContext(stageID string, ctx *Context) error {
	if ctx == nil {
		return fmt.Errorf("%s: stage context is required", stageID)
	}
	if ctx.Config == nil {
		return fmt.Errorf("%s: config is required", stageID)
	}
	return nil
}
