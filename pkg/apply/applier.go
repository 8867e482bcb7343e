package apply

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/gws/pkg/graph"
	"github.com/chazu/gws/pkg/metrics"
)

// RestartAnnotation is the pod template annotation bumped to trigger a
// rolling restart, the same one kubectl rollout restart uses
const RestartAnnotation = "kubectl.kubernetes.io/restartedAt"

// Applier issues the cluster API calls the reconcile engine needs
type Applier struct {
	client client.Client
	dryRun bool
	now    func() time.Time
}

// NewApplier creates a new resource applier
func NewApplier(c client.Client) *Applier {
	return &Applier{
		client: c,
		dryRun: false,
		now:    time.Now,
	}
}

// WithDryRun returns a new applier with dry-run mode enabled
func (a *Applier) WithDryRun(dryRun bool) *Applier {
	return &Applier{
		client: a.client,
		dryRun: dryRun,
		now:    a.now,
	}
}

// gvkString returns a string representation of an object's GVK
func gvkString(obj *unstructured.Unstructured) string {
	gvk := obj.GroupVersionKind()
	if gvk.Group == "" {
		return fmt.Sprintf("%s/%s", gvk.Version, gvk.Kind)
	}
	return fmt.Sprintf("%s/%s/%s", gvk.Group, gvk.Version, gvk.Kind)
}

// observe logs and records metrics for one cluster call and wraps its
// error into a ClusterError
func (a *Applier) observe(ctx context.Context, op string, obj *unstructured.Unstructured, fn func(logr.Logger) error) error {
	logger := log.FromContext(ctx).WithValues(
		"gvk", gvkString(obj),
		"namespace", obj.GetNamespace(),
		"name", obj.GetName(),
		"operation", op,
	)

	startTime := time.Now()
	err := fn(logger)
	duration := time.Since(startTime).Seconds()

	gvk := gvkString(obj)
	if err != nil {
		metrics.RecordClusterOperation("failure", op, gvk, duration)
		logger.Error(err, "Cluster operation failed")
		return &ClusterError{
			Op:        op,
			GVK:       gvk,
			Namespace: obj.GetNamespace(),
			Name:      obj.GetName(),
			Err:       err,
		}
	}

	metrics.RecordClusterOperation("success", op, gvk, duration)
	logger.V(1).Info("Cluster operation succeeded", "duration_ms", duration*1000)
	return nil
}

func (a *Applier) createOptions() []client.CreateOption {
	if a.dryRun {
		return []client.CreateOption{client.DryRunAll}
	}
	return nil
}

func (a *Applier) patchOptions(policy graph.ApplyPolicy) []client.PatchOption {
	opts := []client.PatchOption{client.FieldOwner(fieldManager(policy))}
	if a.dryRun {
		opts = append(opts, client.DryRunAll)
	}
	return opts
}

func fieldManager(policy graph.ApplyPolicy) string {
	if policy.FieldManager == "" {
		return graph.DefaultFieldManager
	}
	return policy.FieldManager
}

// Create creates obj and fails if it already exists
func (a *Applier) Create(ctx context.Context, obj *unstructured.Unstructured, policy graph.ApplyPolicy) error {
	if obj == nil {
		return fmt.Errorf("object cannot be nil")
	}
	return a.observe(ctx, "create", obj, func(logger logr.Logger) error {
		opts := append(a.createOptions(), client.FieldOwner(fieldManager(policy)))
		logger.V(2).Info("Creating resource")
		return a.client.Create(ctx, obj.DeepCopy(), opts...)
	})
}

// Apply writes an existing object according to its policy mode: SSA for
// Apply, read-and-replace for Replace and create-if-absent for Create
func (a *Applier) Apply(ctx context.Context, obj *unstructured.Unstructured, policy graph.ApplyPolicy) error {
	if obj == nil {
		return fmt.Errorf("object cannot be nil")
	}

	if err := policy.Validate(); err != nil {
		return fmt.Errorf("invalid apply policy: %w", err)
	}

	switch policy.Mode {
	case graph.ApplyModeApply:
		return a.ServerSideApply(ctx, obj, policy)
	case graph.ApplyModeReplace:
		return a.Replace(ctx, obj, policy)
	case graph.ApplyModeCreate:
		_, err := a.CreateIfAbsent(ctx, obj, policy)
		return err
	default:
		return fmt.Errorf("apply mode %s is not valid for objects", policy.Mode)
	}
}

// ServerSideApply applies obj using Server-Side Apply
func (a *Applier) ServerSideApply(ctx context.Context, obj *unstructured.Unstructured, policy graph.ApplyPolicy) error {
	return a.observe(ctx, "apply", obj, func(logger logr.Logger) error {
		patchOpts := a.patchOptions(policy)
		if policy.ConflictPolicy == graph.ConflictPolicyForce {
			patchOpts = append(patchOpts, client.ForceOwnership)
			logger.V(2).Info("Using force ownership for SSA")
		}

		logger.V(2).Info("Applying resource via SSA", "fieldManager", fieldManager(policy))

		if err := a.client.Patch(ctx, obj.DeepCopy(), client.Apply, patchOpts...); err != nil {
			if errors.IsConflict(err) {
				return &ConflictError{
					Resource:     fmt.Sprintf("%s/%s", obj.GetNamespace(), obj.GetName()),
					FieldManager: fieldManager(policy),
					Err:          err,
				}
			}
			return err
		}
		return nil
	})
}

// Replace reads the live object and replaces it with obj, carrying over
// the resourceVersion so the write is conditional on what was read
func (a *Applier) Replace(ctx context.Context, obj *unstructured.Unstructured, policy graph.ApplyPolicy) error {
	return a.observe(ctx, "replace", obj, func(logger logr.Logger) error {
		existing := &unstructured.Unstructured{}
		existing.SetGroupVersionKind(obj.GroupVersionKind())
		if err := a.client.Get(ctx, client.ObjectKeyFromObject(obj), existing); err != nil {
			return err
		}

		desired := obj.DeepCopy()
		desired.SetResourceVersion(existing.GetResourceVersion())

		opts := []client.UpdateOption{client.FieldOwner(fieldManager(policy))}
		if a.dryRun {
			opts = append(opts, client.DryRunAll)
		}
		logger.V(2).Info("Replacing resource", "resourceVersion", existing.GetResourceVersion())
		return a.client.Update(ctx, desired, opts...)
	})
}

// CreateIfAbsent creates obj unless it already exists. It reports whether
// the object was created.
func (a *Applier) CreateIfAbsent(ctx context.Context, obj *unstructured.Unstructured, policy graph.ApplyPolicy) (bool, error) {
	created := false
	err := a.observe(ctx, "create", obj, func(logger logr.Logger) error {
		opts := append(a.createOptions(), client.FieldOwner(fieldManager(policy)))
		if err := a.client.Create(ctx, obj.DeepCopy(), opts...); err != nil {
			if errors.IsAlreadyExists(err) {
				logger.V(1).Info("Resource already exists, skipping creation")
				return nil
			}
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// MergePatch applies a JSON merge patch built from the content of patch,
// i.e. everything except apiVersion, kind and metadata, to the object
// patch identifies
func (a *Applier) MergePatch(ctx context.Context, patch *unstructured.Unstructured, policy graph.ApplyPolicy) error {
	return a.observe(ctx, "merge", patch, func(logger logr.Logger) error {
		data, err := MergePatchBody(patch)
		if err != nil {
			return err
		}
		target := identity(patch)
		logger.V(2).Info("Merge-patching resource", "bytes", len(data))
		return a.client.Patch(ctx, target, client.RawPatch(types.MergePatchType, data), a.patchOptions(policy)...)
	})
}

// Delete deletes obj. With tolerateMissing a NotFound is not an error.
// It reports whether anything was deleted.
func (a *Applier) Delete(ctx context.Context, obj *unstructured.Unstructured, tolerateMissing bool) (bool, error) {
	deleted := false
	err := a.observe(ctx, "delete", obj, func(logger logr.Logger) error {
		opts := []client.DeleteOption{client.PropagationPolicy(metav1.DeletePropagationBackground)}
		if a.dryRun {
			opts = append(opts, client.DryRunAll)
		}
		if err := a.client.Delete(ctx, identity(obj), opts...); err != nil {
			if tolerateMissing && errors.IsNotFound(err) {
				logger.V(1).Info("Resource already absent")
				return nil
			}
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// Probe fetches the live version of obj. A missing object is reported
// through the boolean, not as an error.
func (a *Applier) Probe(ctx context.Context, obj *unstructured.Unstructured) (*unstructured.Unstructured, bool, error) {
	live := &unstructured.Unstructured{}
	live.SetGroupVersionKind(obj.GroupVersionKind())
	found := true
	err := a.observe(ctx, "probe", obj, func(logr.Logger) error {
		if err := a.client.Get(ctx, client.ObjectKeyFromObject(obj), live); err != nil {
			if errors.IsNotFound(err) {
				found = false
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil || !found {
		return nil, false, err
	}
	return live, true, nil
}

// Restart triggers a rolling restart of the Deployment identified by obj
// by stamping its pod template
func (a *Applier) Restart(ctx context.Context, obj *unstructured.Unstructured) error {
	return a.observe(ctx, "restart", obj, func(logger logr.Logger) error {
		stamp := a.now().UTC().Format(time.RFC3339)
		data, err := json.Marshal(map[string]any{
			"spec": map[string]any{
				"template": map[string]any{
					"metadata": map[string]any{
						"annotations": map[string]any{
							RestartAnnotation: stamp,
						},
					},
				},
			},
		})
		if err != nil {
			return err
		}
		logger.V(1).Info("Restarting deployment", "restartedAt", stamp)
		opts := a.patchOptions(graph.ApplyPolicy{})
		return a.client.Patch(ctx, identity(obj), client.RawPatch(types.MergePatchType, data), opts...)
	})
}

// identity returns an object carrying only the type and key of obj
func identity(obj *unstructured.Unstructured) *unstructured.Unstructured {
	id := &unstructured.Unstructured{}
	id.SetGroupVersionKind(obj.GroupVersionKind())
	id.SetNamespace(obj.GetNamespace())
	id.SetName(obj.GetName())
	return id
}

// MergePatchBody returns the JSON merge patch carried by patch
func MergePatchBody(patch *unstructured.Unstructured) ([]byte, error) {
	return json.Marshal(mergeContent(patch))
}
