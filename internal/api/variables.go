package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chazu/gws/internal/catalog"
	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/pkg/reconcile"
)

func (s *Server) variable(c *gin.Context, star *models.Star, q catalog.Querier) (*models.Variable, error) {
	id, err := pathID(c, "variable_id")
	if err != nil {
		return nil, err
	}
	return s.store.GetVariable(c.Request.Context(), q, star.ID, id)
}

func (s *Server) listVariables(c *gin.Context) {
	tx, err := catalogTx(c)
	if err != nil {
		fail(c, err)
		return
	}
	_, star, err := s.star(c, tx)
	if err != nil {
		fail(c, err)
		return
	}
	vars, err := s.store.ListVariables(c.Request.Context(), tx, star.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.VariableListResponse{Variables: vars, Total: len(vars)})
}

func (s *Server) getVariable(c *gin.Context) {
	tx, err := catalogTx(c)
	if err != nil {
		fail(c, err)
		return
	}
	_, star, err := s.star(c, tx)
	if err != nil {
		fail(c, err)
		return
	}
	variable, err := s.variable(c, star, tx)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, variable)
}

// createVariable stores the value in the star's vars Secret and restarts
// the star so the new environment is picked up
func (s *Server) createVariable(c *gin.Context) {
	var req models.VariableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	tx, err := catalogTx(c)
	if err != nil {
		fail(c, err)
		return
	}
	galaxy, star, err := s.star(c, tx)
	if err != nil {
		fail(c, err)
		return
	}
	variable, err := s.store.CreateVariable(c.Request.Context(), tx, star.ID, req)
	if err != nil {
		fail(c, err)
		return
	}

	g, err := s.builder.Variable(variable, galaxy.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationCreate, g, nil); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, variable)
}

func (s *Server) updateVariable(c *gin.Context) {
	var req models.VariableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	tx, err := catalogTx(c)
	if err != nil {
		fail(c, err)
		return
	}
	galaxy, star, err := s.star(c, tx)
	if err != nil {
		fail(c, err)
		return
	}
	previous, err := s.variable(c, star, tx)
	if err != nil {
		fail(c, err)
		return
	}
	variable, err := s.store.UpdateVariable(c.Request.Context(), tx, star.ID, previous.ID, req)
	if err != nil {
		fail(c, err)
		return
	}

	cur, prev, err := graphs(s.variableBuilder(galaxy.ID), variable, previous)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationUpdate, cur, prev); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, variable)
}

func (s *Server) deleteVariable(c *gin.Context) {
	tx, err := catalogTx(c)
	if err != nil {
		fail(c, err)
		return
	}
	galaxy, star, err := s.star(c, tx)
	if err != nil {
		fail(c, err)
		return
	}
	variable, err := s.variable(c, star, tx)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.store.DeleteVariable(c.Request.Context(), tx, star.ID, variable.ID); err != nil {
		fail(c, err)
		return
	}

	g, err := s.builder.Variable(variable, galaxy.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationDelete, g, nil); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, variable)
}
