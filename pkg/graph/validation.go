package graph

import (
	"fmt"
)

// Validate checks the integrity of the Graph
func (g *Graph) Validate() error {
	if g.Metadata.Name == "" {
		return fmt.Errorf("graph metadata.name is required")
	}

	if g.Metadata.Version == "" {
		return fmt.Errorf("graph metadata.version is required")
	}

	// Check for duplicate node IDs
	nodeIDs := make(map[string]bool)
	for _, node := range g.Nodes {
		if node.ID == "" {
			return fmt.Errorf("node ID is required")
		}
		if nodeIDs[node.ID] {
			return fmt.Errorf("duplicate node ID: %s", node.ID)
		}
		nodeIDs[node.ID] = true
	}

	for i := range g.Nodes {
		if err := g.Nodes[i].Validate(nodeIDs); err != nil {
			return fmt.Errorf("node %s: %w", g.Nodes[i].ID, err)
		}
	}

	return nil
}

// Validate checks the integrity of a Node and fills in policy defaults
func (n *Node) Validate(allNodeIDs map[string]bool) error {
	if n.ID == "" {
		return fmt.Errorf("node ID is required")
	}

	if n.Object.GetKind() == "" {
		return fmt.Errorf("object kind is required")
	}

	if n.Object.GetAPIVersion() == "" {
		return fmt.Errorf("object apiVersion is required")
	}

	if n.Object.GetName() == "" {
		return fmt.Errorf("object name is required")
	}

	if err := n.ApplyPolicy.Validate(); err != nil {
		return fmt.Errorf("applyPolicy: %w", err)
	}

	switch n.EffectiveKind() {
	case NodeKindObject:
		if n.ApplyPolicy.Mode == ApplyModeMerge {
			return fmt.Errorf("merge mode is only valid for patch nodes")
		}
	case NodeKindPatch:
		if n.ApplyPolicy.Mode != ApplyModeMerge && n.ApplyPolicy.Mode != ApplyModeApply {
			return fmt.Errorf("patch nodes support Merge or Apply mode, got %s", n.ApplyPolicy.Mode)
		}
		if n.Retract == nil {
			return fmt.Errorf("patch nodes require a retract patch")
		}
		if n.Retract.GetName() != n.Object.GetName() || n.Retract.GetNamespace() != n.Object.GetNamespace() {
			return fmt.Errorf("retract patch must target the same object")
		}
	case NodeKindRestart:
		if n.Object.GetKind() != "Deployment" {
			return fmt.Errorf("restart nodes must target a Deployment, got %s", n.Object.GetKind())
		}
	default:
		return fmt.Errorf("invalid node kind: %s", n.Kind)
	}

	for _, depID := range n.DependsOn {
		if !allNodeIDs[depID] {
			return fmt.Errorf("dependency %s does not exist", depID)
		}
	}

	return nil
}

// Validate checks the integrity of an ApplyPolicy
func (ap *ApplyPolicy) Validate() error {
	// Set defaults
	if ap.Mode == "" {
		ap.Mode = ApplyModeApply
	}

	if ap.ConflictPolicy == "" {
		ap.ConflictPolicy = ConflictPolicyError
	}

	if ap.FieldManager == "" {
		ap.FieldManager = DefaultFieldManager
	}

	switch ap.Mode {
	case ApplyModeApply, ApplyModeReplace, ApplyModeCreate, ApplyModeMerge:
		// Valid
	default:
		return fmt.Errorf("invalid apply mode: %s", ap.Mode)
	}

	switch ap.ConflictPolicy {
	case ConflictPolicyError, ConflictPolicyForce:
		// Valid
	default:
		return fmt.Errorf("invalid conflict policy: %s", ap.ConflictPolicy)
	}

	if ap.CreateTarget && ap.Mode != ApplyModeMerge {
		return fmt.Errorf("createTarget requires merge mode")
	}

	return nil
}
