package apply

import (
	"context"
	"fmt"
	"reflect"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/gws/pkg/graph"
)

// ProtectionAnnotation prevents an object from being pruned when it
// leaves the graph
const ProtectionAnnotation = "gws.io/prune-protection"

// PruneResult contains the result of a prune operation
type PruneResult struct {
	// Pruned contains nodes whose objects were deleted or whose patches
	// were retracted
	Pruned []string

	// Protected contains nodes whose objects carry the protection annotation
	Protected []string

	// Absent contains nodes with nothing left to remove
	Absent []string
}

// Pruner removes what a node put into the cluster once the node is no
// longer part of the desired graph
type Pruner struct {
	applier *Applier
}

// NewPruner creates a new pruner
func NewPruner(a *Applier) *Pruner {
	return &Pruner{
		applier: a,
	}
}

// Prune retracts each orphaned node in order. Restart nodes have nothing
// to retract. The first failure stops the prune.
func (p *Pruner) Prune(ctx context.Context, orphans []graph.Node) (*PruneResult, error) {
	logger := log.FromContext(ctx)
	result := &PruneResult{}

	if len(orphans) == 0 {
		logger.V(1).Info("No orphaned nodes to prune")
		return result, nil
	}

	logger.Info("Pruning orphaned nodes", "count", len(orphans))

	for i := range orphans {
		node := &orphans[i]
		if node.EffectiveKind() == graph.NodeKindRestart {
			continue
		}

		if node.EffectiveKind() == graph.NodeKindObject {
			live, found, err := p.applier.Probe(ctx, &node.Object)
			if err != nil {
				return result, fmt.Errorf("prune %s: %w", node.ID, err)
			}
			if found && isProtected(live) {
				logger.Info("Object is protected from pruning", "id", node.ID)
				result.Protected = append(result.Protected, node.ID)
				continue
			}
		}

		changed, err := p.Retract(ctx, node)
		if err != nil {
			return result, fmt.Errorf("prune %s: %w", node.ID, err)
		}
		if changed {
			result.Pruned = append(result.Pruned, node.ID)
		} else {
			result.Absent = append(result.Absent, node.ID)
		}
	}

	return result, nil
}

// Retract undoes a single node and reports whether the cluster changed.
// Object nodes are deleted with absence tolerated. Patch nodes get their
// retract patch, skipped when the target is gone or would not change.
func (p *Pruner) Retract(ctx context.Context, node *graph.Node) (bool, error) {
	switch node.EffectiveKind() {
	case graph.NodeKindObject:
		return p.applier.Delete(ctx, &node.Object, true)

	case graph.NodeKindPatch:
		if node.Retract == nil {
			return false, fmt.Errorf("node %s has no retract patch", node.ID)
		}
		live, found, err := p.applier.Probe(ctx, node.Retract)
		if err != nil {
			return false, err
		}
		if !found {
			log.FromContext(ctx).V(1).Info("Patch target is gone, nothing to retract", "id", node.ID)
			return false, nil
		}

		policy := node.ApplyPolicy
		if policy.Mode == graph.ApplyModeMerge {
			if MergePatchIsNoop(live.Object, mergeContent(node.Retract)) {
				log.FromContext(ctx).V(1).Info("Retract patch would not change the target", "id", node.ID)
				return false, nil
			}
			return true, p.applier.MergePatch(ctx, node.Retract, policy)
		}
		policy.ConflictPolicy = graph.ConflictPolicyForce
		return true, p.applier.ServerSideApply(ctx, node.Retract, policy)

	default:
		return false, nil
	}
}

// isProtected checks if an object has the protection annotation
func isProtected(obj *unstructured.Unstructured) bool {
	annotations := obj.GetAnnotations()
	if annotations == nil {
		return false
	}

	if val, ok := annotations[ProtectionAnnotation]; ok {
		return val == "true" || val == "yes" || val == "1"
	}

	return false
}

func mergeContent(patch *unstructured.Unstructured) map[string]any {
	content := make(map[string]any, len(patch.Object))
	for k, v := range patch.Object {
		switch k {
		case "apiVersion", "kind", "metadata":
			continue
		}
		content[k] = v
	}
	return content
}

// MergePatchIsNoop reports whether applying the JSON merge patch to target
// would leave target unchanged
func MergePatchIsNoop(target, patch map[string]any) bool {
	for key, pv := range patch {
		tv, present := target[key]
		switch p := pv.(type) {
		case nil:
			if present {
				return false
			}
		case map[string]any:
			tm, ok := tv.(map[string]any)
			if !ok {
				tm = map[string]any{}
				if present {
					return false
				}
			}
			if !MergePatchIsNoop(tm, p) {
				return false
			}
		default:
			if !present || !reflect.DeepEqual(tv, pv) {
				return false
			}
		}
	}
	return true
}
