package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/chazu/gws/pkg/graph"
)

func TestTypedContextKeys(t *testing.T) {
	ctx := context.Background()

	t.Run("CtxOperation", func(t *testing.T) {
		ctx := CtxOperation.WithValue(ctx, OperationUpdate)
		if got := CtxOperation.MustValue(ctx); got != OperationUpdate {
			t.Errorf("Expected %s, got %s", OperationUpdate, got)
		}
	})

	t.Run("CtxGraph", func(t *testing.T) {
		g := &graph.Graph{Metadata: graph.GraphMetadata{Name: "star/1"}}

		ctx := CtxGraph.WithValue(ctx, g)
		if got := CtxGraph.MustValue(ctx); got.Metadata.Name != "star/1" {
			t.Errorf("Expected name 'star/1', got %s", got.Metadata.Name)
		}
	})

	t.Run("CtxPreviousGraph missing", func(t *testing.T) {
		if _, ok := CtxPreviousGraph.Value(ctx); ok {
			t.Error("Expected no previous graph in empty context")
		}
	})

	t.Run("CtxPreviousGraph keeps CtxGraph", func(t *testing.T) {
		current := &graph.Graph{Metadata: graph.GraphMetadata{Name: "star/2"}}
		previous := &graph.Graph{Metadata: graph.GraphMetadata{Name: "star/1"}}

		ctx := CtxGraph.WithValue(ctx, current)
		ctx = CtxPreviousGraph.WithValue(ctx, PreviousGraph{Graph: previous})

		if got := CtxGraph.MustValue(ctx); got != current {
			t.Errorf("Expected CtxGraph to hold the current graph, got %v", got)
		}
		if got := CtxPreviousGraph.MustValue(ctx); got.Graph != previous {
			t.Errorf("Expected CtxPreviousGraph to hold the previous graph, got %v", got.Graph)
		}
	})

	t.Run("CtxResult is shared", func(t *testing.T) {
		result := &Result{}
		ctx := CtxResult.WithValue(ctx, result)

		CtxResult.MustValue(ctx).Applied = append(CtxResult.MustValue(ctx).Applied, "ns")
		if len(result.Applied) != 1 {
			t.Errorf("Expected handlers to write through the stored result, got %v", result.Applied)
		}
	})
}

func TestResultFail(t *testing.T) {
	result := &Result{Applied: []string{"namespace"}}
	result.fail(&graph.NodeError{NodeID: "deployment", Err: errors.New("boom")})

	if result.Failed != "deployment" {
		t.Errorf("Expected failed node 'deployment', got %q", result.Failed)
	}
	if !result.Partial() {
		t.Error("Expected a failure after applied nodes to be partial")
	}

	clean := &Result{}
	clean.fail(errors.New("lock"))
	if clean.Partial() {
		t.Error("Expected a failure before any change not to be partial")
	}
}
