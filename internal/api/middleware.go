package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/chazu/gws/pkg/metrics"
)

const (
	// RequestIDHeader echoes the id assigned to every request
	RequestIDHeader = "X-Request-ID"

	keyRequestID = "request_id"
	keyOwner     = "user_id"
)

// RequestLogger assigns a request id and stores a request-scoped logger in
// the request context, where log.FromContext finds it
func RequestLogger(base logr.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		start := time.Now()

		logger := base.WithValues(
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"remote_addr", c.ClientIP(),
		)

		c.Set(keyRequestID, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(log.IntoContext(c.Request.Context(), logger))

		logger.V(1).Info("Request started")

		c.Next()

		status := c.Writer.Status()
		keysAndValues := []any{
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"response_size", c.Writer.Size(),
		}

		switch {
		case status >= http.StatusInternalServerError:
			var err error
			if last := c.Errors.Last(); last != nil {
				err = last.Err
			}
			logger.Error(err, "Request completed with server error", keysAndValues...)
		case status >= http.StatusBadRequest:
			logger.Info("Request completed with client error", keysAndValues...)
		default:
			logger.Info("Request completed", keysAndValues...)
		}
	}
}

// HTTPMetrics records request counts and durations per route
func HTTPMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		done := metrics.TrackInFlight()
		defer done()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// RequireOwner rejects requests that do not name the acting user in header
func RequireOwner(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(header)
		if raw == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
			c.Abort()
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
			c.Abort()
			return
		}
		c.Set(keyOwner, id)
		c.Next()
	}
}

// owner returns the user RequireOwner admitted
func owner(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(keyOwner); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
