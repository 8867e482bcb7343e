package reconcile

import (
	"github.com/authzed/controller-idioms/typedctx"

	"github.com/chazu/gws/pkg/graph"
)

// Context keys for the reconcile pipeline
//
// These typed context keys provide type-safe access to values passed between
// handlers in the pipeline. Using typedctx eliminates runtime errors from
// context.Value() type assertions.
var (
	// CtxOperation is the operation being reconciled
	CtxOperation = typedctx.NewKey[Operation]()

	// CtxGraph is the desired graph built from the current entity
	CtxGraph = typedctx.NewKey[*graph.Graph]()

	// CtxPreviousGraph is the graph built from the entity before an update
	CtxPreviousGraph = typedctx.NewKey[PreviousGraph]()

	// CtxDAG is the executable view of CtxGraph
	CtxDAG = typedctx.NewKey[*graph.DAG]()

	// CtxResult collects the outcome of the pipeline
	CtxResult = typedctx.NewKey[*Result]()
)

// PreviousGraph carries the graph of an entity before an update. Keys are
// told apart by their value type, so it must not share *graph.Graph with
// CtxGraph.
type PreviousGraph struct {
	Graph *graph.Graph
}
