// Package readiness derives the availability of star workloads from their
// Deployments, both as a snapshot and as a stream of changes.
package readiness
