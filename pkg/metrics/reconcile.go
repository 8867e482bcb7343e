/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	reconcileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gws_reconcile_total",
		Help: "Total number of reconcile calls",
	}, []string{"entity", "operation", "result"})

	reconcileDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gws_reconcile_duration_seconds",
		Help:    "Duration of reconcile calls",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	}, []string{"entity", "operation"})

	reconcileNodes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gws_reconcile_nodes",
		Help:    "Number of graph nodes touched per reconcile call",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	}, []string{"entity"})

	lockWaitDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gws_reconcile_lock_wait_seconds",
		Help:    "Time spent waiting for the per-tenant reconcile lock",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	})
)

func init() {
	metrics.Registry.MustRegister(
		reconcileTotal,
		reconcileDuration,
		reconcileNodes,
		lockWaitDuration,
	)
}

// RecordReconcile records a reconcile call
func RecordReconcile(entity, operation, result string, durationSeconds float64, nodes int) {
	reconcileTotal.WithLabelValues(entity, operation, result).Inc()
	reconcileDuration.WithLabelValues(entity, operation).Observe(durationSeconds)
	reconcileNodes.WithLabelValues(entity).Observe(float64(nodes))
}

// RecordLockWait records how long a reconcile call waited for its lock
func RecordLockWait(durationSeconds float64) {
	lockWaitDuration.Observe(durationSeconds)
}
