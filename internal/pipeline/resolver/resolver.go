package resolver

import (
	"fmt"
	"sort"

	"github.com/gbredz1/gbforge/internal/pipeline"
	"github.com/gbredz1/gbforge/internal/stage"
)

// NodeState represents the resolver's understanding of a stage's readiness.
type NodeState string

const (
	NodeStateUnknown  NodeState = "unknown"
	NodeStatePending  NodeState = "pending"
	NodeStateReady    NodeState = "ready"
	NodeStateBlocked  NodeState = "blocked"
	NodeStateComplete NodeState = "complete"
	NodeStateSkipped  NodeState = "skipped"
	NodeStateError    NodeState = "error"
)

// Node captures a pipeline stage instance plus its dependency metadata.
type Node struct {
	ID           string
	Ref          pipeline.StageRef
	Stage        stage.Stage
	Dependencies []string
	Dependents   []string

	State     NodeState
	BlockedBy []string
	Err       error
}

// Outcome feeds a prior run result back into state derivation.
type Outcome struct {
	Status stage.Status
	Err    error
}

// Resolver builds and evaluates the pipeline dependency graph.
type Resolver struct {
	definition pipeline.Definition
	nodes      map[string]*Node
	orderedIDs []string
}

// New constructs a resolver for the provided pipeline definition. Stages are
// instantiated via the registry immediately so downstream code can run them.
func New(def pipeline.Definition, registry *stage.Registry) (*Resolver, error) {
	if registry == nil {
		return nil, fmt.Errorf("pipeline: stage registry is required")
	}
	normalized, err := def.Normalized()
	if err != nil {
		return nil, err
	}
	nodes := make(map[string]*Node, len(normalized.Stages))
	ordered := make([]string, 0, len(normalized.Stages))
	for _, ref := range normalized.Stages {
		id := ref.InstanceID()
		built, err := registry.Resolve(ref.StageID, stage.Config(ref.Config))
		if err != nil {
			return nil, fmt.Errorf("pipeline %s stage %s: %w", normalized.ID, id, err)
		}
		node := &Node{
			ID:           id,
			Ref:          ref,
			Stage:        built,
			Dependencies: normalized.Dependencies(id),
		}
		nodes[id] = node
		ordered = append(ordered, id)
	}
	for _, node := range nodes {
		for _, depID := range node.Dependencies {
			dep, ok := nodes[depID]
			if !ok {
				return nil, fmt.Errorf("pipeline %s: dependency %s referenced by %s not declared", normalized.ID, depID, node.ID)
			}
			dep.Dependents = append(dep.Dependents, node.ID)
		}
	}
	for _, node := range nodes {
		if len(node.Dependents) > 1 {
			sort.Strings(node.Dependents)
		}
	}
	return &Resolver{
		definition: normalized,
		nodes:      nodes,
		orderedIDs: ordered,
	}, nil
}

// Definition returns a clone of the resolver's pipeline definition.
func (r *Resolver) Definition() pipeline.Definition {
	return r.definition.Clone()
}

// Nodes returns the nodes in pipeline declaration order.
func (r *Resolver) Nodes() []*Node {
	out := make([]*Node, 0, len(r.orderedIDs))
	for _, id := range r.orderedIDs {
		if node, ok := r.nodes[id]; ok {
			out = append(out, node)
		}
	}
	return out
}

// Node retrieves a specific stage node by pipeline instance ID.
func (r *Resolver) Node(id string) (*Node, bool) {
	node, ok := r.nodes[id]
	return node, ok
}

// Refresh re-evaluates stage completion and dependency readiness. Prior run
// outcomes take precedence over IsComplete probing; a skipped outcome cascades
// to every transitive dependent.
func (r *Resolver) Refresh(ctx *stage.Context, runs map[string]Outcome) error {
	if ctx == nil {
		return fmt.Errorf("pipeline: stage context is required")
	}
	for _, node := range r.nodes {
		node.Err = nil
		node.BlockedBy = nil
		node.State = NodeStateUnknown
		if outcome, ok := runs[node.ID]; ok {
			switch outcome.Status {
			case stage.StatusCompleted, stage.StatusNoOp:
				node.State = NodeStateComplete
			case stage.StatusSkipped:
				node.State = NodeStateSkipped
			case stage.StatusFailed:
				node.State = NodeStateError
				node.Err = outcome.Err
			}
			if node.State != NodeStateUnknown {
				continue
			}
		}
		complete, err := node.Stage.IsComplete(ctx)
		if err != nil {
			node.State = NodeStateError
			node.Err = err
			continue
		}
		if complete {
			node.State = NodeStateComplete
		} else {
			node.State = NodeStatePending
		}
	}

	// Skips cascade in declaration order, which is a topological order for
	// normalized definitions.
	for _, id := range r.orderedIDs {
		node := r.nodes[id]
		if node.State == NodeStateComplete || node.State == NodeStateError || node.State == NodeStateSkipped {
			continue
		}
		for _, depID := range node.Dependencies {
			if r.nodes[depID].State == NodeStateSkipped {
				node.State = NodeStateSkipped
				break
			}
		}
	}

	for _, node := range r.nodes {
		if node.State != NodeStatePending && node.State != NodeStateUnknown {
			continue
		}
		blockers := r.blockers(node)
		if len(blockers) == 0 {
			node.State = NodeStateReady
		} else {
			node.State = NodeStateBlocked
			node.BlockedBy = blockers
		}
	}
	return nil
}

// Ready returns nodes that are runnable because all dependencies completed.
func (r *Resolver) Ready() []*Node {
	var ready []*Node
	for _, id := range r.orderedIDs {
		node := r.nodes[id]
		if node.State == NodeStateReady {
			ready = append(ready, node)
		}
	}
	return ready
}

// Settled reports whether no node can make further progress.
func (r *Resolver) Settled() bool {
	for _, node := range r.nodes {
		if node.State == NodeStateReady {
			return false
		}
	}
	return true
}

func (r *Resolver) blockers(node *Node) []string {
	var blockers []string
	for _, depID := range node.Dependencies {
		dep := r.nodes[depID]
		if dep.State != NodeStateComplete {
			blockers = append(blockers, depID)
		}
	}
	sort.Strings(blockers)
	return blockers
}
