package graph

import (
	"fmt"

	"github.com/dominikbraun/graph"
)

// DAG is an executable view of a Graph: nodes indexed by ID, a topological
// order and the waves of mutually independent nodes derived from it
type DAG struct {
	// nodeMap provides quick lookup of nodes by ID
	nodeMap map[string]*Node

	// order contains the topologically sorted node IDs
	order []string

	// waves groups node IDs by dependency depth
	waves [][]string
}

// BuildDAG validates g, rejects cycles and computes the apply order
func BuildDAG(g *Graph) (*DAG, error) {
	if g == nil {
		return nil, fmt.Errorf("graph cannot be nil")
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph validation failed: %w", err)
	}

	dg := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	nodeMap := make(map[string]*Node, len(g.Nodes))
	for i := range g.Nodes {
		node := &g.Nodes[i]
		nodeMap[node.ID] = node
	}

	// Vertices are added in declaration order. The stable sort below is
	// Kahn's algorithm: nodes released together are ordered by declaration,
	// and each batch queues behind the nodes already waiting.
	for i := range g.Nodes {
		if err := dg.AddVertex(g.Nodes[i].ID); err != nil {
			return nil, fmt.Errorf("failed to add vertex %s: %w", g.Nodes[i].ID, err)
		}
	}

	// In dominikbraun/graph, AddEdge(source, target) means source -> target.
	// If B depends on A we add A -> B so A completes first.
	for i := range g.Nodes {
		node := &g.Nodes[i]
		for _, depID := range node.DependsOn {
			if err := dg.AddEdge(depID, node.ID); err != nil {
				return nil, fmt.Errorf("failed to add edge %s -> %s: %w", depID, node.ID, err)
			}
		}
	}

	position := make(map[string]int, len(g.Nodes))
	for i := range g.Nodes {
		position[g.Nodes[i].ID] = i
	}
	order, err := graph.StableTopologicalSort(dg, func(a, b string) bool {
		return position[a] < position[b]
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute topological sort (possible cycle): %w", err)
	}

	return &DAG{
		nodeMap: nodeMap,
		order:   order,
		waves:   computeWaves(order, nodeMap),
	}, nil
}

// computeWaves assigns every node the length of its longest dependency
// chain and groups nodes of equal depth
func computeWaves(order []string, nodeMap map[string]*Node) [][]string {
	depth := make(map[string]int, len(order))
	maxDepth := 0
	for _, id := range order {
		d := 0
		for _, dep := range nodeMap[id].DependsOn {
			if depth[dep]+1 > d {
				d = depth[dep] + 1
			}
		}
		depth[id] = d
		if d > maxDepth {
			maxDepth = d
		}
	}

	if len(order) == 0 {
		return nil
	}
	waves := make([][]string, maxDepth+1)
	for _, id := range order {
		waves[depth[id]] = append(waves[depth[id]], id)
	}
	return waves
}

// GetNode retrieves a node by ID
func (d *DAG) GetNode(id string) (*Node, bool) {
	node, found := d.nodeMap[id]
	return node, found
}

// GetOrder returns the topologically sorted node IDs
// Nodes earlier in the list have no dependencies on nodes later in the list
func (d *DAG) GetOrder() []string {
	return d.order
}

// GetReverseOrder returns the order used for teardown: dependents first
func (d *DAG) GetReverseOrder() []string {
	reversed := make([]string, len(d.order))
	for i, id := range d.order {
		reversed[len(d.order)-1-i] = id
	}
	return reversed
}

// Waves returns groups of nodes that can be applied concurrently. Every
// node's dependencies live in an earlier wave.
func (d *DAG) Waves() [][]string {
	return d.waves
}

// ReverseWaves returns the waves in teardown order
func (d *DAG) ReverseWaves() [][]string {
	reversed := make([][]string, len(d.waves))
	for i, w := range d.waves {
		reversed[len(d.waves)-1-i] = w
	}
	return reversed
}

// Size returns the number of nodes in the DAG
func (d *DAG) Size() int {
	return len(d.nodeMap)
}
