package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/authzed/controller-idioms/handler"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/gws/pkg/apply"
	"github.com/chazu/gws/pkg/graph"
	"github.com/chazu/gws/pkg/metrics"
)

// Engine keeps the cluster in line with the graph of a catalog entity
// across its create, update and delete
type Engine struct {
	applier  *apply.Applier
	pruner   *apply.Pruner
	executor *graph.Executor
	locks    *keyedMutex
	pipeline handler.Handler

	dryRun         bool
	maxConcurrency int
}

// Option configures an Engine
type Option func(*Engine)

// WithDryRun makes every cluster write a server-side dry run
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) {
		e.dryRun = dryRun
	}
}

// WithMaxConcurrency bounds the number of nodes of a wave applied at once
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		e.maxConcurrency = n
	}
}

// NewEngine creates an engine writing through c
func NewEngine(c client.Client, opts ...Option) *Engine {
	e := &Engine{
		locks:          newKeyedMutex(),
		maxConcurrency: graph.DefaultExecutorConfig().MaxConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.applier = apply.NewApplier(c).WithDryRun(e.dryRun)
	e.pruner = apply.NewPruner(e.applier)
	e.executor = graph.NewExecutor(graph.ExecutorConfig{MaxConcurrency: e.maxConcurrency})

	e.pipeline = handler.Chain(
		e.lockGraph(),    // Serialize calls for the same tenant
		e.buildDAG(),     // Validate and order the desired graph
		e.pruneRemoved(), // Retract members that left the graph
		e.executeGraph(), // Walk the DAG
	).Handler(pipelineID)

	return e
}

// Create brings every enabled member of g into the cluster. Creation is
// strict: a second call fails on the first object that already exists.
func (e *Engine) Create(ctx context.Context, g *graph.Graph) (*Result, error) {
	return e.Reconcile(ctx, OperationCreate, g, nil)
}

// Update converges the cluster on g. previous is the graph of the entity
// before the catalog write and may be nil.
func (e *Engine) Update(ctx context.Context, g, previous *graph.Graph) (*Result, error) {
	return e.Reconcile(ctx, OperationUpdate, g, previous)
}

// Delete removes what g put into the cluster, dependents first
func (e *Engine) Delete(ctx context.Context, g *graph.Graph) (*Result, error) {
	return e.Reconcile(ctx, OperationDelete, g, nil)
}

// Reconcile runs the pipeline for op. On failure the returned Result lists
// the nodes applied before the failing one; nothing is rolled back.
func (e *Engine) Reconcile(ctx context.Context, op Operation, current, previous *graph.Graph) (*Result, error) {
	if current == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}

	logger := log.FromContext(ctx).WithValues(
		"graph", current.Metadata.Name,
		"operation", op,
	)
	ctx = log.IntoContext(ctx, logger)

	result := &Result{
		Operation: op,
		Graph:     current.Metadata.Name,
	}

	ctx = CtxOperation.WithValue(ctx, op)
	ctx = CtxGraph.WithValue(ctx, current)
	if previous != nil {
		ctx = CtxPreviousGraph.WithValue(ctx, PreviousGraph{Graph: previous})
	}
	ctx = CtxResult.WithValue(ctx, result)

	start := time.Now()
	e.pipeline.Handle(ctx)
	duration := time.Since(start).Seconds()

	outcome := "success"
	if result.Err != nil {
		outcome = "failure"
	}
	metrics.RecordReconcile(current.Metadata.Entity, string(op), outcome, duration, len(current.Nodes))

	if result.Err != nil {
		logger.Error(result.Err, "Reconcile failed",
			"partial", result.Partial(),
			"applied", result.Applied,
			"pruned", result.Pruned,
			"failed", result.Failed,
			"pending", result.Summary.Pending)
		return result, result.Err
	}

	logger.Info("Reconcile complete",
		"actions", result.Actions,
		"applied", len(result.Applied),
		"skipped", len(result.Skipped),
		"pruned", len(result.Pruned),
		"duration_ms", duration*1000)
	return result, nil
}
