package reconcile

import (
	"errors"

	"github.com/chazu/gws/pkg/graph"
)

// Operation is the lifecycle event being reconciled
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Result exposes what a reconcile call did, including the partially
// applied set when it failed
type Result struct {
	// Operation is the reconciled operation
	Operation Operation

	// Graph is the name of the reconciled graph
	Graph string

	// Applied lists nodes that changed the cluster, in completion order of
	// their waves
	Applied []string

	// Skipped lists nodes that needed no cluster change
	Skipped []string

	// Pruned lists nodes of the previous graph retracted by an update
	Pruned []string

	// Actions maps every applied node to the cluster operation it ran
	Actions map[string]string

	// Failed is the node whose cluster call failed, if any
	Failed string

	// Summary counts the nodes of the executed graph per state
	Summary graph.ExecutionSummary

	// Err is the error that stopped the reconcile call
	Err error
}

// Partial reports whether the call failed after changing the cluster
func (r *Result) Partial() bool {
	return r.Err != nil && (len(r.Applied) > 0 || len(r.Pruned) > 0)
}

func (r *Result) fail(err error) {
	r.Err = err
	var nodeErr *graph.NodeError
	if errors.As(err, &nodeErr) && r.Failed == "" {
		r.Failed = nodeErr.NodeID
	}
}

// collect copies node outcomes from state into the result
func (r *Result) collect(state *graph.ExecutionState) {
	if state == nil {
		return
	}
	applied := state.GetNodesInState(graph.NodeStateApplied)
	r.Applied = append(r.Applied, applied...)
	r.Skipped = append(r.Skipped, state.GetNodesInState(graph.NodeStateSkipped)...)
	r.Summary = state.GetSummary()

	if r.Actions == nil {
		r.Actions = make(map[string]string, len(applied))
	}
	for _, id := range applied {
		if status, err := state.GetStatus(id); err == nil {
			r.Actions[id] = status.Action
		}
	}

	if state.HasErrors() && r.Failed == "" {
		r.Failed = state.GetNodesInState(graph.NodeStateError)[0]
	}
}
