package engine

import (
	"time"

	"github.com/gbredz1/gbforge/internal/pipeline"
	"github.com/gbredz1/gbforge/internal/pipeline/resolver"
	"github.com/gbredz1/gbforge/internal/stage"
)

// Status enumerates coarse pipeline engine phases.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusRunning  Status = "running"
	StatusBlocked  Status = "blocked"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// State captures the persisted snapshot of a pipeline run.
type State struct {
	RunID      string              `json:"run_id"`
	PipelineID string              `json:"pipeline_id"`
	Kind       stage.RunKind       `json:"kind,omitempty"`
	Definition pipeline.Definition `json:"definition"`
	Status     Status              `json:"status"`
	// StatusReason provides a human readable explanation for terminal states.
	StatusReason string              `json:"status_reason,omitempty"`
	Nodes        []StageStatus       `json:"nodes"`
	Runs         map[string]StageRun `json:"runs,omitempty"`
	Outputs      stage.Outputs       `json:"outputs"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// StageStatus exposes resolver metadata for a pipeline node.
type StageStatus struct {
	ID           string             `json:"id"`
	StageID      string             `json:"stage_id"`
	Name         string             `json:"name"`
	State        resolver.NodeState `json:"state"`
	Dependencies []string           `json:"dependencies,omitempty"`
	BlockedBy    []string           `json:"blocked_by,omitempty"`
	Error        string             `json:"error,omitempty"`
	LastRun      *StageRun          `json:"last_run,omitempty"`
}

// StageRun persists the last known runtime result for a stage execution.
type StageRun struct {
	Status     stage.Status `json:"status"`
	Message    string       `json:"message,omitempty"`
	Error      string       `json:"error,omitempty"`
	FinishedAt time.Time    `json:"finished_at"`
}
