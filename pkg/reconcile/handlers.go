package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/authzed/controller-idioms/handler"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/gws/pkg/apply"
	"github.com/chazu/gws/pkg/graph"
	"github.com/chazu/gws/pkg/metrics"
)

// Handler IDs for the reconcile pipeline
const (
	LockGraphID    handler.Key = "lock-graph"
	BuildDAGID     handler.Key = "build-dag"
	PruneRemovedID handler.Key = "prune-removed"
	ExecuteGraphID handler.Key = "execute-graph"
	pipelineID                 = "gws-reconcile"
)

// LockGraphHandler serializes reconcile calls sharing a lock key
type LockGraphHandler struct {
	locks *keyedMutex
	next  handler.Handler
}

func (h *LockGraphHandler) Handle(ctx context.Context) {
	g := CtxGraph.MustValue(ctx)
	result := CtxResult.MustValue(ctx)

	key := g.Metadata.LockKey
	if key == "" {
		key = g.Metadata.Name
	}

	start := time.Now()
	unlock, err := h.locks.Lock(ctx, key)
	metrics.RecordLockWait(time.Since(start).Seconds())
	if err != nil {
		result.fail(fmt.Errorf("waiting for lock %s: %w", key, err))
		return
	}
	defer unlock()

	h.next.Handle(ctx)
}

// BuildDAGHandler validates the desired graph and computes its order
type BuildDAGHandler struct {
	next handler.Handler
}

func (h *BuildDAGHandler) Handle(ctx context.Context) {
	g := CtxGraph.MustValue(ctx)
	result := CtxResult.MustValue(ctx)

	dag, err := graph.BuildDAG(g)
	if err != nil {
		result.fail(fmt.Errorf("failed to build DAG: %w", err))
		return
	}

	log.FromContext(ctx).V(1).Info("DAG built",
		"nodes", dag.Size(),
		"waves", len(dag.Waves()))

	ctx = CtxDAG.WithValue(ctx, dag)
	h.next.Handle(ctx)
}

// PruneRemovedHandler retracts members of the previous graph that are no
// longer part of the desired one. Only updates carry a previous graph.
type PruneRemovedHandler struct {
	pruner *apply.Pruner
	next   handler.Handler
}

func (h *PruneRemovedHandler) Handle(ctx context.Context) {
	prev, ok := CtxPreviousGraph.Value(ctx)
	if !ok || prev.Graph == nil || CtxOperation.MustValue(ctx) != OperationUpdate {
		h.next.Handle(ctx)
		return
	}
	previous := prev.Graph

	g := CtxGraph.MustValue(ctx)
	result := CtxResult.MustValue(ctx)

	orphans, err := teardownOrder(previous, g.Removed(previous))
	if err != nil {
		result.fail(err)
		return
	}
	if len(orphans) == 0 {
		h.next.Handle(ctx)
		return
	}

	pruned, err := h.pruner.Prune(ctx, orphans)
	if pruned != nil {
		result.Pruned = append(result.Pruned, pruned.Pruned...)
	}
	if err != nil {
		result.fail(err)
		return
	}

	h.next.Handle(ctx)
}

// teardownOrder sorts orphans of previous so dependents come first
func teardownOrder(previous *graph.Graph, orphans []graph.Node) ([]graph.Node, error) {
	if len(orphans) < 2 {
		return orphans, nil
	}
	dag, err := graph.BuildDAG(previous)
	if err != nil {
		return nil, fmt.Errorf("failed to build previous DAG: %w", err)
	}

	byID := make(map[string]graph.Node, len(orphans))
	for _, n := range orphans {
		byID[n.ID] = n
	}
	sorted := make([]graph.Node, 0, len(orphans))
	for _, id := range dag.GetReverseOrder() {
		if n, ok := byID[id]; ok {
			sorted = append(sorted, n)
		}
	}
	return sorted, nil
}

// ExecuteGraphHandler walks the DAG with the visitor of the operation
type ExecuteGraphHandler struct {
	engine *Engine
	next   handler.Handler
}

func (h *ExecuteGraphHandler) Handle(ctx context.Context) {
	dag := CtxDAG.MustValue(ctx)
	result := CtxResult.MustValue(ctx)

	var (
		state *graph.ExecutionState
		err   error
	)
	switch CtxOperation.MustValue(ctx) {
	case OperationCreate:
		state, err = h.engine.executor.Execute(ctx, dag, dag.Waves(), h.engine.visitCreate)
	case OperationUpdate:
		state, err = h.engine.executor.Execute(ctx, dag, dag.Waves(), h.engine.visitUpdate)
	case OperationDelete:
		state, err = h.engine.executeDelete(ctx, dag)
	default:
		err = fmt.Errorf("unknown operation %q", CtxOperation.MustValue(ctx))
	}

	result.collect(state)
	if err != nil {
		result.fail(err)
		return
	}

	h.next.Handle(ctx)
}

// Builders

func (e *Engine) lockGraph() handler.Builder {
	return func(next ...handler.Handler) handler.Handler {
		return handler.NewHandler(&LockGraphHandler{
			locks: e.locks,
			next:  handler.Handlers(next).MustOne(),
		}, LockGraphID)
	}
}

func (e *Engine) buildDAG() handler.Builder {
	return func(next ...handler.Handler) handler.Handler {
		return handler.NewHandler(&BuildDAGHandler{
			next: handler.Handlers(next).MustOne(),
		}, BuildDAGID)
	}
}

func (e *Engine) pruneRemoved() handler.Builder {
	return func(next ...handler.Handler) handler.Handler {
		return handler.NewHandler(&PruneRemovedHandler{
			pruner: e.pruner,
			next:   handler.Handlers(next).MustOne(),
		}, PruneRemovedID)
	}
}

func (e *Engine) executeGraph() handler.Builder {
	return func(next ...handler.Handler) handler.Handler {
		return handler.NewHandler(&ExecuteGraphHandler{
			engine: e,
			next:   handler.Handlers(next).MustOne(),
		}, ExecuteGraphID)
	}
}
