package readiness

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Watcher reports the status of the Deployments matching a selector
type Watcher struct {
	client client.WithWatch
}

// NewWatcher creates a watcher reading through c
func NewWatcher(c client.WithWatch) *Watcher {
	return &Watcher{client: c}
}

func listOptions(namespace string, selector map[string]string) []client.ListOption {
	return []client.ListOption{
		client.InNamespace(namespace),
		client.MatchingLabels(selector),
	}
}

// Current returns the status of every matching Deployment
func (w *Watcher) Current(ctx context.Context, namespace string, selector map[string]string) ([]Status, error) {
	var list appsv1.DeploymentList
	if err := w.client.List(ctx, &list, listOptions(namespace, selector)...); err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(list.Items))
	for i := range list.Items {
		statuses = append(statuses, Deployment(&list.Items[i]))
	}
	return statuses, nil
}

// Watch streams the status of matching Deployments whenever one is added
// or modified. The channel is closed once ctx is done or the server ends
// the watch.
func (w *Watcher) Watch(ctx context.Context, namespace string, selector map[string]string) (<-chan Status, error) {
	iface, err := w.client.Watch(ctx, &appsv1.DeploymentList{}, listOptions(namespace, selector)...)
	if err != nil {
		return nil, err
	}

	out := make(chan Status)
	go func() {
		defer close(out)
		defer iface.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-iface.ResultChan():
				if !ok {
					log.FromContext(ctx).V(1).Info("Deployment watch closed by the server")
					return
				}
				if event.Type != watch.Added && event.Type != watch.Modified {
					continue
				}
				d, ok := event.Object.(*appsv1.Deployment)
				if !ok {
					continue
				}
				select {
				case out <- Deployment(d):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
