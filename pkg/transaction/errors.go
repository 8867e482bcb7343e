package transaction

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingMiddleware is returned by Extract when no unit of work was
	// installed for the request
	ErrMissingMiddleware = errors.New("transaction: unit of work middleware is not installed")

	// ErrMultipleExtractors is returned when the transaction of a request is
	// acquired more than once
	ErrMultipleExtractors = errors.New("transaction: transaction extracted more than once")
)

// DatabaseError wraps a failure of the underlying catalog connection
type DatabaseError struct {
	// Op is the transaction operation that failed: begin, commit or rollback
	Op  string
	Err error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Op, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}
