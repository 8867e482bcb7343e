package graph

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Version is the current graph format version
const Version = "v1"

// Graph is the desired set of cluster objects for one catalog entity.
// Graphs are recomputed from the entity on every call and never cached.
type Graph struct {
	// Metadata contains information about the graph
	Metadata GraphMetadata `json:"metadata"`

	// Nodes contains all the members of the graph
	Nodes []Node `json:"nodes"`
}

// GraphMetadata contains metadata about the graph
type GraphMetadata struct {
	// Name identifies the entity the graph was built for, e.g. "star/<id>"
	Name string `json:"name"`

	// Version is the version of the graph format
	Version string `json:"version"`

	// Entity is the entity type: galaxy, star, planet or variable
	Entity string `json:"entity"`

	// LockKey serializes reconcile calls touching the same tenant
	LockKey string `json:"lockKey,omitempty"`

	// RenderHash is a hash of the rendered graph for change detection
	RenderHash string `json:"renderHash,omitempty"`
}

// NodeKind selects how the engine drives a node
type NodeKind string

const (
	// NodeKindObject owns a whole cluster object: it is created, updated
	// and deleted with the entity
	NodeKindObject NodeKind = "Object"

	// NodeKindPatch contributes fields to an object owned by someone else.
	// It is applied while enabled and retracted otherwise.
	NodeKindPatch NodeKind = "Patch"

	// NodeKindRestart triggers a rolling restart of a Deployment whenever
	// one of its dependencies changed something
	NodeKindRestart NodeKind = "Restart"
)

// Node represents a single member of the graph
type Node struct {
	// ID is a unique identifier for this node within the graph
	ID string `json:"id"`

	// Kind selects the node protocol. Defaults to Object.
	Kind NodeKind `json:"kind,omitempty"`

	// Object is the desired object for Object nodes, the patch content for
	// Patch nodes and the target Deployment for Restart nodes
	Object unstructured.Unstructured `json:"object"`

	// Retract is the patch that undoes a Patch node
	Retract *unstructured.Unstructured `json:"retract,omitempty"`

	// ApplyPolicy defines how this node should be written
	ApplyPolicy ApplyPolicy `json:"applyPolicy"`

	// Presence defines whether this node currently belongs in the cluster
	Presence Presence `json:"presence,omitempty"`

	// DependsOn lists the IDs of nodes that must be applied before this node
	DependsOn []string `json:"dependsOn,omitempty"`
}

// Presence describes conditional membership
type Presence struct {
	// Optional marks a conditional member, present only while Enabled
	Optional bool `json:"optional,omitempty"`

	// Enabled is the value of the enabling field of the entity
	Enabled bool `json:"enabled,omitempty"`

	// Probe checks existence before writing or deleting, which makes
	// delete safe to repeat
	Probe bool `json:"probe,omitempty"`
}

// IsEnabled reports whether the node is currently a member of the graph
func (n *Node) IsEnabled() bool {
	return !n.Presence.Optional || n.Presence.Enabled
}

// IsProbed reports whether the node's existence is checked before writes.
// Conditional members are always probed.
func (n *Node) IsProbed() bool {
	return n.Presence.Probe || n.Presence.Optional
}

// EffectiveKind returns the node kind, defaulting to Object
func (n *Node) EffectiveKind() NodeKind {
	if n.Kind == "" {
		return NodeKindObject
	}
	return n.Kind
}

// ApplyPolicy defines how a node is written to the cluster
type ApplyPolicy struct {
	// Mode determines the write used when the object already exists
	// - "Apply": Server-Side Apply (default)
	// - "Replace": read the live object and replace it wholesale
	// - "Create": only create if it doesn't exist, never overwrite
	// - "Merge": JSON merge patch (Patch nodes only)
	Mode ApplyMode `json:"mode,omitempty"`

	// ConflictPolicy determines how to handle field manager conflicts
	// - "Error": Fail on conflicts (default)
	// - "Force": Force ownership of conflicting fields
	ConflictPolicy ConflictPolicy `json:"conflictPolicy,omitempty"`

	// FieldManager is the name to use for field management
	// Defaults to "gws-api"
	FieldManager string `json:"fieldManager,omitempty"`

	// CreateTarget creates the object a Merge patch targets when it does not
	// exist yet. The Object of the node is then used as the initial content.
	CreateTarget bool `json:"createTarget,omitempty"`
}

// DefaultFieldManager is the field manager used when none is set
const DefaultFieldManager = "gws-api"

// ApplyMode defines the apply behavior
type ApplyMode string

const (
	// ApplyModeApply uses Server-Side Apply
	ApplyModeApply ApplyMode = "Apply"

	// ApplyModeReplace replaces the live object
	ApplyModeReplace ApplyMode = "Replace"

	// ApplyModeCreate only creates if the resource doesn't exist
	ApplyModeCreate ApplyMode = "Create"

	// ApplyModeMerge uses a JSON merge patch
	ApplyModeMerge ApplyMode = "Merge"
)

// ConflictPolicy defines how to handle field manager conflicts
type ConflictPolicy string

const (
	// ConflictPolicyError fails on conflicts
	ConflictPolicyError ConflictPolicy = "Error"

	// ConflictPolicyForce forces ownership of conflicting fields
	ConflictPolicyForce ConflictPolicy = "Force"
)

// Node returns the node with the given id
func (g *Graph) Node(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// Removed returns the nodes of previous that are not part of g. Used by
// update to retract members whose identity changed, e.g. a volume moved to
// another workload or a renamed variable.
func (g *Graph) Removed(previous *Graph) []Node {
	if previous == nil {
		return nil
	}
	current := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		current[n.ID] = true
	}
	var removed []Node
	for _, n := range previous.Nodes {
		if !current[n.ID] {
			removed = append(removed, n)
		}
	}
	return removed
}

// ComputeHash computes a hash of the graph for drift detection
// This hashes the nodes (excluding metadata) to detect changes
func (g *Graph) ComputeHash() string {
	data, err := json.Marshal(g.Nodes)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", xxhash.Sum64(data))
}

// SetHash computes and sets the RenderHash field
func (g *Graph) SetHash() {
	g.Metadata.RenderHash = g.ComputeHash()
}
