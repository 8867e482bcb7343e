package graph

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// NodeState represents the execution state of a node in the DAG
type NodeState string

const (
	// NodeStatePending indicates the node has not been visited yet
	NodeStatePending NodeState = "Pending"

	// NodeStateApplying indicates the node's cluster call is in flight
	NodeStateApplying NodeState = "Applying"

	// NodeStateApplied indicates the node's cluster call succeeded
	NodeStateApplied NodeState = "Applied"

	// NodeStateSkipped indicates there was nothing to do for the node
	NodeStateSkipped NodeState = "Skipped"

	// NodeStateError indicates the node's cluster call failed
	NodeStateError NodeState = "Error"
)

// NodeStatus contains the execution status of a single node
type NodeStatus struct {
	// State is the current state of the node
	State NodeState

	// Action is the cluster operation the engine chose, e.g. "create"
	Action string

	// Changed is true when the node modified the cluster
	Changed bool

	// Error contains the error message if State is NodeStateError
	Error string

	// StartTime is when the node started applying
	StartTime *time.Time

	// EndTime is when the node reached a terminal state
	EndTime *time.Time
}

// ExecutionState tracks the execution state of all nodes in a DAG. It is
// shared by the goroutines of one wave.
type ExecutionState struct {
	mu sync.RWMutex

	// nodeStates maps node ID to its current status
	nodeStates map[string]*NodeStatus

	// startTime is when execution started
	startTime time.Time

	// endTime is when execution completed (or failed)
	endTime *time.Time
}

// NewExecutionState creates a new execution state tracker
func NewExecutionState(nodeIDs []string) *ExecutionState {
	states := make(map[string]*NodeStatus, len(nodeIDs))
	for _, id := range nodeIDs {
		states[id] = &NodeStatus{
			State: NodeStatePending,
		}
	}

	return &ExecutionState{
		nodeStates: states,
		startTime:  time.Now(),
	}
}

// GetStatus returns a copy of the full status of a node
func (es *ExecutionState) GetStatus(nodeID string) (*NodeStatus, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	status, found := es.nodeStates[nodeID]
	if !found {
		return nil, fmt.Errorf("node %s not found", nodeID)
	}

	statusCopy := *status
	return &statusCopy, nil
}

// Start moves a node to Applying
func (es *ExecutionState) Start(nodeID string) error {
	return es.transition(nodeID, NodeStateApplying, func(s *NodeStatus) {
		now := time.Now()
		s.StartTime = &now
	})
}

// Complete moves a node to Applied or Skipped depending on changed
func (es *ExecutionState) Complete(nodeID, action string, changed bool) error {
	target := NodeStateApplied
	if !changed {
		target = NodeStateSkipped
	}
	return es.transition(nodeID, target, func(s *NodeStatus) {
		now := time.Now()
		s.EndTime = &now
		s.Action = action
		s.Changed = changed
	})
}

// SetError sets a node to error state with an error message
func (es *ExecutionState) SetError(nodeID string, err error) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	status, found := es.nodeStates[nodeID]
	if !found {
		return fmt.Errorf("node %s not found", nodeID)
	}

	now := time.Now()
	status.State = NodeStateError
	status.Error = err.Error()
	status.EndTime = &now
	return nil
}

func (es *ExecutionState) transition(nodeID string, to NodeState, mutate func(*NodeStatus)) error {
	es.mu.Lock()
	defer es.mu.Unlock()

	status, found := es.nodeStates[nodeID]
	if !found {
		return fmt.Errorf("node %s not found", nodeID)
	}

	if err := validateStateTransition(status.State, to); err != nil {
		return fmt.Errorf("invalid state transition for node %s: %w", nodeID, err)
	}

	status.State = to
	mutate(status)
	return nil
}

// AnyChanged reports whether any of the given nodes changed the cluster
func (es *ExecutionState) AnyChanged(nodeIDs []string) bool {
	es.mu.RLock()
	defer es.mu.RUnlock()

	for _, id := range nodeIDs {
		if status, ok := es.nodeStates[id]; ok && status.Changed {
			return true
		}
	}
	return false
}

// GetNodesInState returns all node IDs in a given state, sorted
func (es *ExecutionState) GetNodesInState(state NodeState) []string {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var nodes []string
	for id, status := range es.nodeStates {
		if status.State == state {
			nodes = append(nodes, id)
		}
	}
	sort.Strings(nodes)
	return nodes
}

// HasErrors returns true if any node is in error state
func (es *ExecutionState) HasErrors() bool {
	es.mu.RLock()
	defer es.mu.RUnlock()

	for _, status := range es.nodeStates {
		if status.State == NodeStateError {
			return true
		}
	}
	return false
}

// GetSummary returns a summary of execution state
func (es *ExecutionState) GetSummary() ExecutionSummary {
	es.mu.RLock()
	defer es.mu.RUnlock()

	summary := ExecutionSummary{
		Total:     len(es.nodeStates),
		StartTime: es.startTime,
		EndTime:   es.endTime,
	}

	for _, status := range es.nodeStates {
		switch status.State {
		case NodeStatePending:
			summary.Pending++
		case NodeStateApplying:
			summary.Applying++
		case NodeStateApplied:
			summary.Applied++
		case NodeStateSkipped:
			summary.Skipped++
		case NodeStateError:
			summary.Error++
		}
	}

	return summary
}

// MarkComplete marks the execution as complete
func (es *ExecutionState) MarkComplete() {
	es.mu.Lock()
	defer es.mu.Unlock()

	now := time.Now()
	es.endTime = &now
}

// ExecutionSummary provides a summary of execution state
type ExecutionSummary struct {
	Total     int
	Pending   int
	Applying  int
	Applied   int
	Skipped   int
	Error     int
	StartTime time.Time
	EndTime   *time.Time
}

// validateStateTransition checks if a state transition is valid
func validateStateTransition(from, to NodeState) error {
	validTransitions := map[NodeState][]NodeState{
		NodeStatePending: {
			NodeStateApplying,
			NodeStateSkipped,
			NodeStateError,
		},
		NodeStateApplying: {
			NodeStateApplied,
			NodeStateSkipped,
			NodeStateError,
		},
		NodeStateApplied: {
			// Terminal state - no transitions
		},
		NodeStateSkipped: {
			// Terminal state - no transitions
		},
		NodeStateError: {
			// Terminal state: the engine never retries
		},
	}

	allowed, found := validTransitions[from]
	if !found {
		return fmt.Errorf("unknown state: %s", from)
	}

	for _, allowedState := range allowed {
		if allowedState == to {
			return nil
		}
	}

	return fmt.Errorf("cannot transition from %s to %s", from, to)
}
