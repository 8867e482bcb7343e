package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const readinessTimeout = 2 * time.Second

// liveness answers as long as the process serves requests
func (s *Server) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// readiness reports whether the catalog is reachable
func (s *Server) readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		log.FromContext(ctx).Error(err, "Catalog is not reachable")
		respondError(c, http.StatusServiceUnavailable, "unavailable", "Database unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "database": "connected"})
}
