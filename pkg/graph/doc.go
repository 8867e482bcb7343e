// Package graph describes the cluster objects backing a catalog entity as
// data: a Graph of nodes, each carrying an object, a write policy, a
// presence condition and its dependencies. It builds the DAG that orders
// those nodes and walks it wave by wave for the reconcile engine.
package graph
