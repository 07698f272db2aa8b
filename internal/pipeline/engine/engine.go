package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gbredz1/gbforge/internal/logbook"
	"github.com/gbredz1/gbforge/internal/pipeline"
	"github.com/gbredz1/gbforge/internal/pipeline/resolver"
	"github.com/gbredz1/gbforge/internal/pipeline/scheduler"
	"github.com/gbredz1/gbforge/internal/stage"
)

// Option customizes engine construction.
type Option func(*Engine)

// WithStore persists run snapshots through the given store.
func WithStore(store StateStore) Option {
	return func(e *Engine) {
		if store != nil {
			e.store = store
		}
	}
}

// WithClock overrides the engine clock.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// Engine drives a pipeline definition to a settled state. Each iteration
// refreshes the dependency graph, schedules every runnable stage, executes
// the batch, folds the results back in, and persists a snapshot.
type Engine struct {
	registry *stage.Registry
	store    StateStore
	clock    func() time.Time
}

// New builds an engine over the given stage registry.
func New(registry *stage.Registry, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, errors.New("engine: registry is required")
	}
	e := &Engine{
		registry: registry,
		store:    NopStore{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// runResult pairs the persisted run record with the outputs produced by a
// stage so they can be merged in declaration order after a parallel batch.
type runResult struct {
	run     StageRun
	outputs stage.Outputs
}

// Run executes the definition until every node is settled. Stage failures
// are reported through the returned State rather than the error value; the
// error covers engine mechanics such as an invalid definition or a broken
// state store.
func (e *Engine) Run(ctx *stage.Context, def pipeline.Definition) (State, error) {
	if ctx == nil {
		return State{}, errors.New("engine: context is required")
	}
	normalized, err := def.Normalized()
	if err != nil {
		return State{}, fmt.Errorf("engine: invalid definition: %w", err)
	}

	res, err := resolver.New(normalized, e.registry)
	if err != nil {
		return State{}, fmt.Errorf("engine: build resolver: %w", err)
	}
	sched, err := scheduler.New(res)
	if err != nil {
		return State{}, fmt.Errorf("engine: build scheduler: %w", err)
	}

	scope := ctx.Log("engine")
	runs := map[string]StageRun{}
	outputs := ctx.Outputs
	state := State{
		RunID:      fmt.Sprintf("%s-%d", normalized.ID, e.clock().UnixNano()),
		PipelineID: normalized.ID,
		Kind:       ctx.Kind,
		Definition: normalized,
		Status:     StatusRunning,
	}
	scope.Info("run %s started with %d stages", state.RunID, len(normalized.Stages))

	for {
		if err := res.Refresh(ctx.WithOutputs(outputs), outcomes(runs)); err != nil {
			return state, fmt.Errorf("engine: refresh graph: %w", err)
		}
		e.snapshot(&state, res, runs, outputs)
		if err := e.store.Save(state); err != nil {
			return state, fmt.Errorf("engine: persist state: %w", err)
		}

		if res.Settled() {
			e.finalize(&state, res, runs)
			e.snapshot(&state, res, runs, outputs)
			if err := e.store.Save(state); err != nil {
				return state, fmt.Errorf("engine: persist state: %w", err)
			}
			scope.Info("run %s finished: %s", state.RunID, state.Status)
			return state, nil
		}

		batch, err := sched.Runnable(scheduler.RunnableRequest{
			MaxParallel: normalized.Runtime.MaxParallel,
		})
		if err != nil {
			return state, fmt.Errorf("engine: schedule batch: %w", err)
		}
		if len(batch.Nodes) == 0 {
			state.Status = StatusBlocked
			state.StatusReason = blockedReason(res)
			e.snapshot(&state, res, runs, outputs)
			if err := e.store.Save(state); err != nil {
				return state, fmt.Errorf("engine: persist state: %w", err)
			}
			scope.Warn("run %s blocked: %s", state.RunID, state.StatusReason)
			return state, nil
		}

		results := e.execute(ctx.WithOutputs(outputs), scope, batch.Nodes)
		for _, node := range batch.Nodes {
			r := results[node.ID]
			runs[node.ID] = r.run
			if r.run.Status == stage.StatusCompleted || r.run.Status == stage.StatusNoOp {
				outputs = outputs.Merge(r.outputs)
			}
		}
	}
}

// execute runs a batch of nodes concurrently and collects their results.
// A panic or error inside one stage never disturbs its siblings.
func (e *Engine) execute(ctx *stage.Context, scope *logbook.Scope, nodes []*resolver.Node) map[string]runResult {
	results := make(map[string]runResult, len(nodes))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, node := range nodes {
		wg.Add(1)
		go func(node *resolver.Node) {
			defer wg.Done()
			r := e.runStage(ctx, node)
			if r.run.Status == stage.StatusFailed {
				scope.Error("stage %s failed: %s", node.ID, r.run.Error)
			}
			mu.Lock()
			results[node.ID] = r
			mu.Unlock()
		}(node)
	}
	wg.Wait()
	return results
}

func (e *Engine) runStage(ctx *stage.Context, node *resolver.Node) (out runResult) {
	defer func() {
		if rec := recover(); rec != nil {
			out = runResult{run: StageRun{
				Status:     stage.StatusFailed,
				Error:      fmt.Sprintf("stage panicked: %v", rec),
				FinishedAt: e.clock(),
			}}
		}
	}()

	result, err := node.Stage.Run(ctx)
	run := StageRun{
		Status:     result.Status,
		Message:    result.Message,
		FinishedAt: e.clock(),
	}
	if err != nil {
		run.Status = stage.StatusFailed
		run.Error = err.Error()
		return runResult{run: run}
	}
	if run.Status == "" {
		run.Status = stage.StatusCompleted
	}
	return runResult{run: run, outputs: result.Outputs}
}

// snapshot refreshes the persisted view of the graph.
func (e *Engine) snapshot(state *State, res *resolver.Resolver, runs map[string]StageRun, outputs stage.Outputs) {
	nodes := res.Nodes()
	statuses := make([]StageStatus, 0, len(nodes))
	for _, node := range nodes {
		status := StageStatus{
			ID:           node.ID,
			StageID:      node.Ref.StageID,
			Name:         node.Ref.Name,
			State:        node.State,
			Dependencies: node.Dependencies,
			BlockedBy:    node.BlockedBy,
		}
		if node.Err != nil {
			status.Error = node.Err.Error()
		}
		if run, ok := runs[node.ID]; ok {
			last := run
			status.LastRun = &last
		}
		statuses = append(statuses, status)
	}
	state.Nodes = statuses
	state.Runs = cloneRuns(runs)
	state.Outputs = outputs
	state.UpdatedAt = e.clock()
}

// finalize derives the terminal status once the graph has settled.
func (e *Engine) finalize(state *State, res *resolver.Resolver, runs map[string]StageRun) {
	var failed, skipped []string
	for _, node := range res.Nodes() {
		switch node.State {
		case resolver.NodeStateError:
			failed = append(failed, node.ID)
		case resolver.NodeStateSkipped:
			skipped = append(skipped, node.ID)
		}
	}
	if len(failed) > 0 {
		state.Status = StatusFailed
		first := failed[0]
		if run, ok := runs[first]; ok && run.Error != "" {
			state.StatusReason = fmt.Sprintf("%s: %s", first, run.Error)
		} else {
			state.StatusReason = fmt.Sprintf("%s failed", first)
		}
		return
	}
	state.Status = StatusComplete
	if len(skipped) > 0 {
		reason := skipReason(runs, skipped)
		if reason != "" {
			state.StatusReason = reason
		} else {
			state.StatusReason = fmt.Sprintf("skipped %s", strings.Join(skipped, ", "))
		}
	}
}

// skipReason surfaces the message of the stage that started a skip cascade.
func skipReason(runs map[string]StageRun, skipped []string) string {
	for _, id := range skipped {
		if run, ok := runs[id]; ok && run.Message != "" {
			return fmt.Sprintf("%s: %s", id, run.Message)
		}
	}
	return ""
}

func blockedReason(res *resolver.Resolver) string {
	var blocked []string
	for _, node := range res.Nodes() {
		if node.State == resolver.NodeStateBlocked {
			blocked = append(blocked, fmt.Sprintf("%s (waiting on %s)", node.ID, strings.Join(node.BlockedBy, ", ")))
		}
	}
	sort.Strings(blocked)
	if len(blocked) == 0 {
		return "no runnable stages"
	}
	return "blocked stages: " + strings.Join(blocked, "; ")
}

func cloneRuns(runs map[string]StageRun) map[string]StageRun {
	if len(runs) == 0 {
		return nil
	}
	out := make(map[string]StageRun, len(runs))
	for id, run := range runs {
		out[id] = run
	}
	return out
}

// outcomes converts persisted run records into resolver outcomes.
func outcomes(runs map[string]StageRun) map[string]resolver.Outcome {
	if len(runs) == 0 {
		return nil
	}
	out := make(map[string]resolver.Outcome, len(runs))
	for id, run := range runs {
		outcome := resolver.Outcome{Status: run.Status}
		if run.Error != "" {
			outcome.Err = errors.New(run.Error)
		}
		out[id] = outcome
	}
	return out
}
