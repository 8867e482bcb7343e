package reconcile

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/gws/pkg/apply"
	"github.com/chazu/gws/pkg/graph"
)

// Actions recorded on node outcomes
const (
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionPatch   = "patch"
	ActionRetract = "retract"
	ActionDelete  = "delete"
	ActionRestart = "restart"
	ActionNone    = "none"
)

func unchanged() graph.Outcome {
	return graph.Outcome{Action: ActionNone}
}

// visitCreate applies enabled members with strict creation
func (e *Engine) visitCreate(ctx context.Context, node *graph.Node, state *graph.ExecutionState) (graph.Outcome, error) {
	if !node.IsEnabled() {
		return unchanged(), nil
	}

	switch node.EffectiveKind() {
	case graph.NodeKindObject:
		if err := e.applier.Create(ctx, &node.Object, node.ApplyPolicy); err != nil {
			return graph.Outcome{}, err
		}
		return graph.Outcome{Action: ActionCreate, Changed: true}, nil
	case graph.NodeKindPatch:
		return e.applyPatch(ctx, node)
	case graph.NodeKindRestart:
		return e.restart(ctx, node, state)
	default:
		return graph.Outcome{}, fmt.Errorf("unknown node kind %s", node.Kind)
	}
}

// visitUpdate converges one member on its desired state
func (e *Engine) visitUpdate(ctx context.Context, node *graph.Node, state *graph.ExecutionState) (graph.Outcome, error) {
	switch node.EffectiveKind() {
	case graph.NodeKindObject:
		if !node.IsEnabled() {
			return e.deleteIfPresent(ctx, node)
		}
		return e.updateObject(ctx, node)
	case graph.NodeKindPatch:
		if !node.IsEnabled() {
			return e.retract(ctx, node)
		}
		return e.applyPatch(ctx, node)
	case graph.NodeKindRestart:
		return e.restart(ctx, node, state)
	default:
		return graph.Outcome{}, fmt.Errorf("unknown node kind %s", node.Kind)
	}
}

// visitDelete removes one member. Probed objects tolerate absence.
func (e *Engine) visitDelete(ctx context.Context, node *graph.Node, state *graph.ExecutionState) (graph.Outcome, error) {
	switch node.EffectiveKind() {
	case graph.NodeKindObject:
		deleted, err := e.applier.Delete(ctx, &node.Object, node.IsProbed())
		if err != nil {
			return graph.Outcome{}, err
		}
		return graph.Outcome{Action: ActionDelete, Changed: deleted}, nil
	case graph.NodeKindPatch:
		return e.retract(ctx, node)
	case graph.NodeKindRestart:
		return e.restart(ctx, node, state)
	default:
		return graph.Outcome{}, fmt.Errorf("unknown node kind %s", node.Kind)
	}
}

// executeDelete tears the graph down in reverse wave order. Restart nodes
// run afterwards so they can observe what the teardown changed.
func (e *Engine) executeDelete(ctx context.Context, dag *graph.DAG) (*graph.ExecutionState, error) {
	isRestart := func(n *graph.Node) bool {
		return n.EffectiveKind() == graph.NodeKindRestart
	}

	teardown := filterWaves(dag, dag.ReverseWaves(), func(n *graph.Node) bool { return !isRestart(n) })
	state, err := e.executor.Execute(ctx, dag, teardown, e.visitDelete)
	if err != nil {
		return state, err
	}

	restarts := filterWaves(dag, dag.Waves(), isRestart)
	return state, e.executor.Resume(ctx, dag, state, restarts, e.visitDelete)
}

func filterWaves(dag *graph.DAG, waves [][]string, keep func(*graph.Node) bool) [][]string {
	var filtered [][]string
	for _, wave := range waves {
		var ids []string
		for _, id := range wave {
			if node, ok := dag.GetNode(id); ok && keep(node) {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			filtered = append(filtered, ids)
		}
	}
	return filtered
}

func (e *Engine) updateObject(ctx context.Context, node *graph.Node) (graph.Outcome, error) {
	policy := node.ApplyPolicy

	if policy.Mode == graph.ApplyModeCreate {
		created, err := e.applier.CreateIfAbsent(ctx, &node.Object, policy)
		if err != nil {
			return graph.Outcome{}, err
		}
		return graph.Outcome{Action: ActionCreate, Changed: created}, nil
	}

	if node.IsProbed() {
		_, found, err := e.applier.Probe(ctx, &node.Object)
		if err != nil {
			return graph.Outcome{}, err
		}
		if !found {
			if err := e.applier.Create(ctx, &node.Object, policy); err != nil {
				return graph.Outcome{}, err
			}
			return graph.Outcome{Action: ActionCreate, Changed: true}, nil
		}
	}

	if err := e.applier.Apply(ctx, &node.Object, policy); err != nil {
		return graph.Outcome{}, err
	}
	return graph.Outcome{Action: ActionUpdate, Changed: true}, nil
}

func (e *Engine) deleteIfPresent(ctx context.Context, node *graph.Node) (graph.Outcome, error) {
	_, found, err := e.applier.Probe(ctx, &node.Object)
	if err != nil {
		return graph.Outcome{}, err
	}
	if !found {
		return unchanged(), nil
	}
	deleted, err := e.applier.Delete(ctx, &node.Object, true)
	if err != nil {
		return graph.Outcome{}, err
	}
	return graph.Outcome{Action: ActionDelete, Changed: deleted}, nil
}

// applyPatch writes the content of a Patch node. A merge patch whose
// target is missing creates the target when the policy allows it.
func (e *Engine) applyPatch(ctx context.Context, node *graph.Node) (graph.Outcome, error) {
	policy := node.ApplyPolicy
	changed := graph.Outcome{Action: ActionPatch, Changed: true}

	if policy.Mode != graph.ApplyModeMerge {
		if err := e.applier.ServerSideApply(ctx, &node.Object, policy); err != nil {
			return graph.Outcome{}, err
		}
		return changed, nil
	}

	err := e.applier.MergePatch(ctx, &node.Object, policy)
	if err == nil {
		return changed, nil
	}
	if !policy.CreateTarget || !apply.IsNotFound(err) {
		return graph.Outcome{}, err
	}

	log.FromContext(ctx).V(1).Info("Patch target missing, creating it", "id", node.ID)
	created, err := e.applier.CreateIfAbsent(ctx, &node.Object, policy)
	if err != nil {
		return graph.Outcome{}, err
	}
	if !created {
		// Lost a race with another writer; the target exists now
		if err := e.applier.MergePatch(ctx, &node.Object, policy); err != nil {
			return graph.Outcome{}, err
		}
	}
	return changed, nil
}

func (e *Engine) retract(ctx context.Context, node *graph.Node) (graph.Outcome, error) {
	changed, err := e.pruner.Retract(ctx, node)
	if err != nil {
		return graph.Outcome{}, err
	}
	return graph.Outcome{Action: ActionRetract, Changed: changed}, nil
}

// restart fires only when a dependency changed the cluster. A Deployment
// that is already gone has nothing to restart.
func (e *Engine) restart(ctx context.Context, node *graph.Node, state *graph.ExecutionState) (graph.Outcome, error) {
	if !state.AnyChanged(node.DependsOn) {
		return unchanged(), nil
	}
	if err := e.applier.Restart(ctx, &node.Object); err != nil {
		if apply.IsNotFound(err) {
			return unchanged(), nil
		}
		return graph.Outcome{}, err
	}
	return graph.Outcome{Action: ActionRestart, Changed: true}, nil
}
