package resources

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/chazu/gws/pkg/graph"
)

// serverFields are set by the API server and must not be sent
var serverFields = [][]string{
	{"metadata", "creationTimestamp"},
	{"spec", "template", "metadata", "creationTimestamp"},
	{"status"},
}

// toUnstructured converts a typed object into the form graph nodes carry.
// obj must have its TypeMeta set.
func toUnstructured(obj runtime.Object) (unstructured.Unstructured, error) {
	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return unstructured.Unstructured{}, fmt.Errorf("convert %T: %w", obj, err)
	}
	u := unstructured.Unstructured{Object: content}
	for _, path := range serverFields {
		unstructured.RemoveNestedField(u.Object, path...)
	}
	return u, nil
}

// target returns an object carrying only type and key, used for patches
// and restarts
func target(apiVersion, kind, namespace, name string, content map[string]any) *unstructured.Unstructured {
	u := &unstructured.Unstructured{Object: content}
	if u.Object == nil {
		u.Object = map[string]any{}
	}
	u.SetAPIVersion(apiVersion)
	u.SetKind(kind)
	u.SetNamespace(namespace)
	u.SetName(name)
	return u
}

func newGraph(entity, id, lockKey string, nodes ...graph.Node) *graph.Graph {
	g := &graph.Graph{
		Metadata: graph.GraphMetadata{
			Name:    fmt.Sprintf("%s/%s", entity, id),
			Version: graph.Version,
			Entity:  entity,
			LockKey: lockKey,
		},
		Nodes: nodes,
	}
	g.SetHash()
	return g
}

// forceApply is the policy of objects the API owns outright
func (b *Builder) forceApply() graph.ApplyPolicy {
	return graph.ApplyPolicy{
		Mode:           graph.ApplyModeApply,
		ConflictPolicy: graph.ConflictPolicyForce,
		FieldManager:   b.opts.FieldManager,
	}
}

func (b *Builder) policy(mode graph.ApplyMode) graph.ApplyPolicy {
	return graph.ApplyPolicy{
		Mode:         mode,
		FieldManager: b.opts.FieldManager,
	}
}
