package apply

import (
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// ClusterError wraps any failure of a cluster API call: request building,
// transport or a status returned by the API server
type ClusterError struct {
	Op        string
	GVK       string
	Namespace string
	Name      string
	Err       error
}

func (e *ClusterError) Error() string {
	if e.Namespace == "" {
		return fmt.Sprintf("cluster %s %s %s: %v", e.Op, e.GVK, e.Name, e.Err)
	}
	return fmt.Sprintf("cluster %s %s %s/%s: %v", e.Op, e.GVK, e.Namespace, e.Name, e.Err)
}

func (e *ClusterError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a cluster NotFound anywhere in its chain
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// ConflictError represents a field manager conflict
type ConflictError struct {
	Resource     string
	FieldManager string
	Err          error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("field manager conflict for %s (field manager: %s): %v", e.Resource, e.FieldManager, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
