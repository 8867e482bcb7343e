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
	// Cluster operation metrics
	clusterOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gws_cluster_operations_total",
		Help: "Total number of cluster API operations issued by the reconcile engine",
	}, []string{"result", "operation", "gvk"})

	clusterOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gws_cluster_operation_duration_seconds",
		Help:    "Duration of cluster API operations",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"operation", "gvk"})

	// Transaction metrics
	transactionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gws_transactions_total",
		Help: "Request transactions by finalization action",
	}, []string{"action"})

	transactionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gws_transaction_duration_seconds",
		Help:    "Duration of requests running inside a unit of work",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"action"})
)

func init() {
	metrics.Registry.MustRegister(
		clusterOpsTotal,
		clusterOpDuration,
		transactionsTotal,
		transactionDuration,
	)
}

// RecordClusterOperation records a single cluster API call
// result: "success", "failure" or "skipped"
// operation: "create", "replace", "apply", "merge", "delete", "probe" or "restart"
// gvk: GroupVersionKind as string (e.g., "apps/v1/Deployment")
func RecordClusterOperation(result, operation, gvk string, durationSeconds float64) {
	clusterOpsTotal.WithLabelValues(result, operation, gvk).Inc()
	clusterOpDuration.WithLabelValues(operation, gvk).Observe(durationSeconds)
}

// RecordTransaction records how a request transaction was finalized
func RecordTransaction(action string, durationSeconds float64) {
	transactionsTotal.WithLabelValues(action).Inc()
	transactionDuration.WithLabelValues(action).Observe(durationSeconds)
}
