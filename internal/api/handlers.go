package api

import (
	"database/sql"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chazu/gws/internal/catalog"
	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/pkg/graph"
	"github.com/chazu/gws/pkg/reconcile"
	"github.com/chazu/gws/pkg/transaction"
)

// catalogTx takes ownership of the request transaction
func catalogTx(c *gin.Context) (*sql.Tx, error) {
	ctx := c.Request.Context()
	handle, err := transaction.Extract(ctx)
	if err != nil {
		return nil, err
	}
	return handle.Tx(ctx)
}

// galaxy loads the galaxy named in the path. Galaxies of other users are
// not found.
func (s *Server) galaxy(c *gin.Context, q catalog.Querier) (*models.Galaxy, error) {
	id, err := pathID(c, "galaxy_id")
	if err != nil {
		return nil, err
	}
	return s.store.GetGalaxy(c.Request.Context(), q, owner(c), id)
}

// star loads the star named in the path together with its galaxy
func (s *Server) star(c *gin.Context, q catalog.Querier) (*models.Galaxy, *models.Star, error) {
	galaxy, err := s.galaxy(c, q)
	if err != nil {
		return nil, nil, err
	}
	id, err := pathID(c, "star_id")
	if err != nil {
		return nil, nil, err
	}
	star, err := s.store.GetStar(c.Request.Context(), q, galaxy.ID, id)
	if err != nil {
		return nil, nil, err
	}
	return galaxy, star, nil
}

// reconcile runs op for the graph built from an entity. A failure leaves
// whatever was applied in the cluster; the response is an internal error
// and the catalog write is rolled back.
func (s *Server) reconcile(c *gin.Context, op reconcile.Operation, current, previous *graph.Graph) error {
	if _, err := s.engine.Reconcile(c.Request.Context(), op, current, previous); err != nil {
		return fmt.Errorf("%s %s: %w", op, current.Metadata.Name, err)
	}
	return nil
}

// graphs builds the graphs of current and previous with build
func graphs[T any](build func(T) (*graph.Graph, error), current, previous T) (*graph.Graph, *graph.Graph, error) {
	cur, err := build(current)
	if err != nil {
		return nil, nil, err
	}
	prev, err := build(previous)
	if err != nil {
		return nil, nil, err
	}
	return cur, prev, nil
}

// variableBuilder binds the galaxy a variable's star lives in
func (s *Server) variableBuilder(galaxyID uuid.UUID) func(*models.Variable) (*graph.Graph, error) {
	return func(v *models.Variable) (*graph.Graph, error) {
		return s.builder.Variable(v, galaxyID)
	}
}
