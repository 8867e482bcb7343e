package transaction

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/gws/pkg/metrics"
)

// Outcome is the result class of a finished request
type Outcome int

const (
	// OutcomeSuccess commits the transaction
	OutcomeSuccess Outcome = iota

	// OutcomeFailure rolls the transaction back
	OutcomeFailure
)

// OutcomeForStatus maps client and server error statuses to OutcomeFailure
func OutcomeForStatus(status int) Outcome {
	if status >= http.StatusBadRequest {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// Action is what Finalize did with a transaction
type Action string

const (
	ActionNone     Action = "none"
	ActionCommit   Action = "commit"
	ActionRollback Action = "rollback"
)

var errSlotLocked = errors.New("transaction slot is held by another owner at finalization")

// Finalize commits or rolls back lazy according to outcome. A transaction
// that was never opened is left alone.
func Finalize(lazy *LazyTx, outcome Outcome) (Action, error) {
	if lazy == nil || !lazy.Started() {
		return ActionNone, nil
	}
	if outcome == OutcomeFailure {
		return ActionRollback, lazy.Rollback()
	}
	return ActionCommit, lazy.Commit()
}

// MiddlewareOption configures UnitOfWork
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	txOptions *sql.TxOptions
}

// WithTxOptions sets the options every request transaction is opened with
func WithTxOptions(opts *sql.TxOptions) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.txOptions = opts
	}
}

// UnitOfWork installs a fresh transaction slot for each request and, once
// the handler chain has built the full response, commits the transaction
// if the response status is below 400 and rolls it back otherwise. The
// response is buffered so that a failed commit is reported to the client
// as a 500 instead of the handler's success response.
func UnitOfWork(pool Pool, opts ...MiddlewareOption) gin.HandlerFunc {
	cfg := &middlewareConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		start := time.Now()

		ctx, slot := Install(c.Request.Context(), pool, cfg.txOptions)
		c.Request = c.Request.WithContext(ctx)
		logger := log.FromContext(ctx)

		original := c.Writer
		preset := original.Header().Clone()
		buffered := newBufferedWriter(original)
		c.Writer = buffered

		defer func() {
			if r := recover(); r != nil {
				c.Writer = original
				if lazy, state := slot.Steal(); state == StateFilled {
					if err := lazy.Rollback(); err != nil {
						logger.Error(err, "Failed to roll back transaction after panic")
					}
				}
				panic(r)
			}
		}()

		c.Next()
		c.Writer = original

		lazy, state := slot.Steal()
		switch state {
		case StateLocked:
			logger.Error(errSlotLocked, "Cannot finalize request transaction")
			metrics.RecordTransaction("locked", time.Since(start).Seconds())
			respondInternalError(c, preset)
			return
		case StateEmpty:
			// the handler finalized the transaction itself
			metrics.RecordTransaction(string(ActionNone), time.Since(start).Seconds())
			flushBuffered(buffered, logger)
			return
		}

		// Only the status decides. Errors a handler recorded on a successful
		// response are logged and the write still commits.
		outcome := OutcomeForStatus(buffered.Status())
		if len(c.Errors) > 0 && buffered.Status() < http.StatusBadRequest {
			logger.V(1).Info("Handler recorded errors on a successful response", "errors", c.Errors.String())
		}

		action, err := Finalize(lazy, outcome)
		if err != nil {
			logger.Error(err, "Failed to finalize request transaction", "action", string(action))
			metrics.RecordTransaction("failure", time.Since(start).Seconds())
			respondInternalError(c, preset)
			return
		}

		logger.V(1).Info("Finalized request transaction", "action", string(action), "status", buffered.Status())
		metrics.RecordTransaction(string(action), time.Since(start).Seconds())
		flushBuffered(buffered, logger)
	}
}

func flushBuffered(buffered *bufferedWriter, logger logr.Logger) {
	if err := buffered.flush(); err != nil {
		logger.Error(err, "Failed to write buffered response")
	}
}

// respondInternalError replaces the buffered response. Headers the handler
// set are dropped; those set before the handler ran, such as the request
// id, are kept.
func respondInternalError(c *gin.Context, preset http.Header) {
	header := c.Writer.Header()
	for k := range header {
		delete(header, k)
	}
	for k, v := range preset {
		header[k] = v
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "Internal Server Error",
	})
}
