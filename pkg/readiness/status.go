package readiness

import appsv1 "k8s.io/api/apps/v1"

// Status is the availability of a workload
type Status string

const (
	// StatusActive means at least one replica is available
	StatusActive Status = "Active"

	// StatusFailure means no replica is available
	StatusFailure Status = "Failure"
)

// Deployment returns the status of d. Stars run a single replica, so one
// available replica is enough.
func Deployment(d *appsv1.Deployment) Status {
	if d.Status.AvailableReplicas > 0 {
		return StatusActive
	}
	return StatusFailure
}
