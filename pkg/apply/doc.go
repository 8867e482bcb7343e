// Package apply issues the cluster API calls used to reconcile catalog
// entities: create, replace, Server-Side Apply, JSON merge patch, delete,
// existence probes and rolling restarts. Every call is logged, measured
// and wrapped into a ClusterError on failure.
package apply
