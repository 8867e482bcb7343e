package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chazu/gws/internal/resources"
	"github.com/chazu/gws/pkg/readiness"
)

// StatusEvent is the payload of a "status" server-sent event
type StatusEvent struct {
	Status readiness.Status `json:"status"`
}

// watchStar streams the status of the star's Deployment as server-sent
// events: first the current state, then every change until the client
// goes away
func (s *Server) watchStar(c *gin.Context) {
	ctx := c.Request.Context()

	_, star, err := s.star(c, s.db)
	if err != nil {
		fail(c, err)
		return
	}

	ns := resources.NamespaceName(star.GalaxyID)
	selector := resources.StarSelector(star.ID)

	current, err := s.status.Current(ctx, ns, selector)
	if err != nil {
		fail(c, err)
		return
	}
	updates, err := s.status.Watch(ctx, ns, selector)
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	for _, st := range current {
		c.SSEvent("status", StatusEvent{Status: st})
	}
	c.Writer.Flush()

	for st := range updates {
		c.SSEvent("status", StatusEvent{Status: st})
		c.Writer.Flush()
	}
}
