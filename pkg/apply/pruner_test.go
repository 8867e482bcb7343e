package apply

import (
	"context"
	"slices"
	"testing"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/chazu/gws/pkg/graph"
)

func dnsPatchNode() graph.Node {
	retract := configMap("coredns-custom", map[string]interface{}{"star-1.override": nil})
	return graph.Node{
		ID:          "dns",
		Kind:        graph.NodeKindPatch,
		Object:      *configMap("coredns-custom", map[string]interface{}{"star-1.override": "rewrite"}),
		Retract:     retract,
		ApplyPolicy: graph.ApplyPolicy{Mode: graph.ApplyModeMerge},
	}
}

func TestPruner_RetractMergePatch(t *testing.T) {
	ctx := context.Background()
	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "coredns-custom", Namespace: "default"},
		Data:       map[string]string{"star-1.override": "rewrite", "star-2.override": "keep"},
	}
	rec := &patchRecorder{}
	c := fake.NewClientBuilder().WithObjects(cm).WithInterceptorFuncs(rec.funcs()).Build()
	pruner := NewPruner(NewApplier(c))
	node := dnsPatchNode()

	changed, err := pruner.Retract(ctx, &node)
	if err != nil || !changed {
		t.Fatalf("Retract() = %v, %v", changed, err)
	}

	got := &corev1.ConfigMap{}
	if err := c.Get(ctx, client.ObjectKeyFromObject(cm), got); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, ok := got.Data["star-1.override"]; ok || got.Data["star-2.override"] != "keep" {
		t.Errorf("unexpected data after retraction: %v", got.Data)
	}

	// The key is gone now, so a second retraction sends nothing
	changed, err = pruner.Retract(ctx, &node)
	if err != nil || changed {
		t.Errorf("second Retract() = %v, %v", changed, err)
	}
	if len(rec.types) != 1 {
		t.Errorf("Expected a single patch request, got %d", len(rec.types))
	}
}

func TestPruner_RetractMissingTarget(t *testing.T) {
	pruner := NewPruner(NewApplier(fake.NewClientBuilder().Build()))
	node := dnsPatchNode()

	changed, err := pruner.Retract(context.Background(), &node)
	if err != nil || changed {
		t.Errorf("Retract() = %v, %v", changed, err)
	}
}

func TestPruner_RetractApplyPatchForces(t *testing.T) {
	cm := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: "coredns-custom", Namespace: "default"}}
	rec := &patchRecorder{}
	c := fake.NewClientBuilder().WithObjects(cm).WithInterceptorFuncs(rec.funcs()).Build()
	pruner := NewPruner(NewApplier(c))

	node := dnsPatchNode()
	node.ApplyPolicy = graph.ApplyPolicy{Mode: graph.ApplyModeApply, FieldManager: "gws-api-planet-1"}

	if _, err := pruner.Retract(context.Background(), &node); err != nil {
		t.Fatalf("Retract() error = %v", err)
	}
	if len(rec.forced) != 1 || !rec.forced[0] || rec.owners[0] != "gws-api-planet-1" {
		t.Errorf("Expected a forced apply as gws-api-planet-1, got forced=%v owners=%v", rec.forced, rec.owners)
	}
}

func TestPruner_Prune(t *testing.T) {
	ctx := context.Background()
	protected := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{
		Name:        "protected",
		Namespace:   "default",
		Annotations: map[string]string{ProtectionAnnotation: "true"},
	}}
	plain := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: "plain", Namespace: "default"}}
	c := fake.NewClientBuilder().WithObjects(protected, plain).Build()
	pruner := NewPruner(NewApplier(c))

	orphans := []graph.Node{
		{ID: "plain", Object: *configMap("plain", nil)},
		{ID: "protected", Object: *configMap("protected", nil)},
		{ID: "gone", Object: *configMap("gone", nil)},
		{ID: "restart", Kind: graph.NodeKindRestart, Object: *configMap("ignored", nil)},
	}

	result, err := pruner.Prune(ctx, orphans)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if !slices.Equal(result.Pruned, []string{"plain"}) {
		t.Errorf("Pruned = %v", result.Pruned)
	}
	if !slices.Equal(result.Protected, []string{"protected"}) {
		t.Errorf("Protected = %v", result.Protected)
	}
	if !slices.Equal(result.Absent, []string{"gone"}) {
		t.Errorf("Absent = %v", result.Absent)
	}

	if err := c.Get(ctx, client.ObjectKeyFromObject(protected), &corev1.ConfigMap{}); err != nil {
		t.Errorf("Expected the protected object to survive: %v", err)
	}
}

func TestMergePatchIsNoop(t *testing.T) {
	target := map[string]any{
		"data": map[string]any{"a": "1"},
		"spec": map[string]any{"replicas": int64(1)},
	}

	tests := []struct {
		name  string
		patch map[string]any
		want  bool
	}{
		{name: "null on absent key", patch: map[string]any{"data": map[string]any{"b": nil}}, want: true},
		{name: "null on present key", patch: map[string]any{"data": map[string]any{"a": nil}}, want: false},
		{name: "same value", patch: map[string]any{"data": map[string]any{"a": "1"}}, want: true},
		{name: "different value", patch: map[string]any{"data": map[string]any{"a": "2"}}, want: false},
		{name: "nulls under a missing map", patch: map[string]any{"status": map[string]any{"x": nil}}, want: true},
		{name: "value under a missing map", patch: map[string]any{"status": map[string]any{"x": "y"}}, want: false},
		{name: "map over a scalar", patch: map[string]any{"spec": map[string]any{"replicas": map[string]any{}}}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergePatchIsNoop(target, tt.patch); got != tt.want {
				t.Errorf("MergePatchIsNoop() = %v, want %v", got, tt.want)
			}
		})
	}
}
