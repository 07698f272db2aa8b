package scheduler

import (
	"fmt"

	"github.com/gbredz1/gbforge/internal/pipeline/resolver"
)

// Selector exposes the minimal contract the pipeline engine needs to request
// runnable stage batches.
type Selector interface {
	Runnable(RunnableRequest) (RunnableBatch, error)
}

// Scheduler implements Selector on top of a dependency resolver. It examines
// the ready set, filters stages that are truly dispatchable, and enforces any
// configured constraints.
type Scheduler struct {
	resolver *resolver.Resolver
}

// New wires a Scheduler to a resolver snapshot.
func New(res *resolver.Resolver) (*Scheduler, error) {
	if res == nil {
		return nil, fmt.Errorf("pipeline: scheduler requires a resolver")
	}
	return &Scheduler{resolver: res}, nil
}

// RunnableRequest captures the current runtime state plus any scheduling
// constraints.
type RunnableRequest struct {
	// BatchSize limits how many runnable nodes are returned at once. Values
	// <= 0 are treated as "no limit" (subject to MaxParallel enforcement).
	BatchSize int
	// MaxParallel caps how many stages may be active at once, including the
	// stages listed in Running. Values <= 0 disable the limit.
	MaxParallel int
	// Running lists stage instance IDs currently executing so the scheduler
	// won't dispatch them twice.
	Running []string
}

// RunnableBatch describes the scheduler's decision.
type RunnableBatch struct {
	Nodes   []*resolver.Node
	Skipped map[string]SkipReason
}

// SkipReason explains why a node was excluded from the runnable set.
type SkipReason struct {
	Reason SkipReasonCode
	Detail string
}

// SkipReasonCode enumerates scheduler skip reasons.
type SkipReasonCode string

const (
	SkipReasonNotReady    SkipReasonCode = "not-ready"
	SkipReasonConcurrency SkipReasonCode = "concurrency"
	SkipReasonActive      SkipReasonCode = "already-running"
)

// Runnable returns a batch of runnable nodes constrained by the request.
func (s *Scheduler) Runnable(req RunnableRequest) (RunnableBatch, error) {
	ready := s.resolver.Ready()
	running := req.runningSet()
	limit := req.batchLimit(len(ready), len(running))
	result := RunnableBatch{}
	if limit == 0 {
		if req.MaxParallel > 0 && len(running) >= req.MaxParallel && len(ready) > 0 {
			result.addSkip(ready[0].ID, SkipReason{
				Reason: SkipReasonConcurrency,
				Detail: fmt.Sprintf("max parallel %d reached", req.MaxParallel),
			})
		}
		return result, nil
	}
	for _, node := range ready {
		if _, active := running[node.ID]; active {
			result.addSkip(node.ID, SkipReason{Reason: SkipReasonActive, Detail: "stage already running"})
			continue
		}
		if node.State != resolver.NodeStateReady {
			result.addSkip(node.ID, SkipReason{Reason: SkipReasonNotReady, Detail: string(node.State)})
			continue
		}
		result.Nodes = append(result.Nodes, node)
		if len(result.Nodes) >= limit {
			break
		}
	}
	return result, nil
}

func (req RunnableRequest) runningSet() map[string]struct{} {
	set := make(map[string]struct{}, len(req.Running))
	for _, id := range req.Running {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}

func (req RunnableRequest) batchLimit(readyCount, runningCount int) int {
	limit := req.BatchSize
	if limit <= 0 || limit > readyCount {
		limit = readyCount
	}
	if req.MaxParallel > 0 {
		remaining := req.MaxParallel - runningCount
		if remaining <= 0 {
			return 0
		}
		if limit > remaining {
			limit = remaining
		}
	}
	return limit
}

func (b *RunnableBatch) addSkip(id string, reason SkipReason) {
	if id == "" {
		return
	}
	if b.Skipped == nil {
		b.Skipped = make(map[string]SkipReason)
	}
	b.Skipped[id] = reason
}
