package graph

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"
)

// Outcome is what a Visitor did for one node
type Outcome struct {
	// Action names the cluster operation, e.g. "create" or "retract"
	Action string

	// Changed is true when the cluster was modified
	Changed bool
}

// Visitor performs the cluster work for a single node. state can be used
// to inspect the outcome of the node's dependencies, which are always
// complete when the visitor runs.
type Visitor func(ctx context.Context, node *Node, state *ExecutionState) (Outcome, error)

// ExecutorConfig contains configuration for the DAG executor
type ExecutorConfig struct {
	// MaxConcurrency is the maximum number of nodes to visit concurrently
	// Default: 4
	MaxConcurrency int
}

// DefaultExecutorConfig returns the default executor configuration
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxConcurrency: 4,
	}
}

// Executor walks a DAG wave by wave, visiting the nodes of a wave
// concurrently. The first error cancels the wave in flight and stops the
// walk; nodes already visited are left as they are.
type Executor struct {
	config ExecutorConfig
}

// NewExecutor creates a new DAG executor
func NewExecutor(config ExecutorConfig) *Executor {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultExecutorConfig().MaxConcurrency
	}
	return &Executor{config: config}
}

// Execute visits the nodes of waves in order. Use dag.Waves() for apply
// order and dag.ReverseWaves() for teardown.
func (e *Executor) Execute(ctx context.Context, dag *DAG, waves [][]string, visit Visitor) (*ExecutionState, error) {
	if dag == nil {
		return nil, fmt.Errorf("DAG cannot be nil")
	}

	state := NewExecutionState(dag.GetOrder())
	err := e.Resume(ctx, dag, state, waves, visit)
	return state, err
}

// Resume continues an execution with further waves. Nodes that already
// reached a terminal state must not appear in waves again.
func (e *Executor) Resume(ctx context.Context, dag *DAG, state *ExecutionState, waves [][]string, visit Visitor) error {
	defer state.MarkComplete()

	for _, wave := range waves {
		if len(wave) == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := e.executeWave(ctx, dag, state, wave, visit); err != nil {
			return err
		}
	}

	return nil
}

// executeWave visits a batch of independent nodes in parallel using conc
func (e *Executor) executeWave(ctx context.Context, dag *DAG, state *ExecutionState, nodeIDs []string, visit Visitor) error {
	p := pool.New().
		WithMaxGoroutines(e.config.MaxConcurrency).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for _, nodeID := range nodeIDs {
		p.Go(func(ctx context.Context) error {
			return e.executeNode(ctx, dag, state, nodeID, visit)
		})
	}

	return p.Wait()
}

func (e *Executor) executeNode(ctx context.Context, dag *DAG, state *ExecutionState, nodeID string, visit Visitor) error {
	node, found := dag.GetNode(nodeID)
	if !found {
		return fmt.Errorf("node %s not found", nodeID)
	}

	if err := state.Start(nodeID); err != nil {
		return err
	}

	outcome, err := visit(ctx, node, state)
	if err != nil {
		_ = state.SetError(nodeID, err)
		return &NodeError{NodeID: nodeID, Err: err}
	}

	return state.Complete(nodeID, outcome.Action, outcome.Changed)
}

// NodeError identifies the node whose visit failed
type NodeError struct {
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
