package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/pkg/reconcile"
)

func (s *Server) listGalaxies(c *gin.Context) {
	tx, err := catalogTx(c)
	if err != nil {
		fail(c, err)
		return
	}
	galaxies, err := s.store.ListGalaxies(c.Request.Context(), tx, owner(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.GalaxyListResponse{Galaxies: galaxies, Total: len(galaxies)})
}

func (s *Server) getGalaxy(c *gin.Context) {
	tx, err := catalogTx(c)
	if err != nil {
		fail(c, err)
		return
	}
	galaxy, err := s.galaxy(c, tx)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, galaxy)
}

func (s *Server) createGalaxy(c *gin.Context) {
	var req models.GalaxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	tx, err := catalogTx(c)
	if err != nil {
		fail(c, err)
		return
	}
	galaxy, err := s.store.CreateGalaxy(c.Request.Context(), tx, owner(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	g, err := s.builder.Galaxy(galaxy)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationCreate, g, nil); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, galaxy)
}

func (s *Server) updateGalaxy(c *gin.Context) {
	var req models.GalaxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	tx, err := catalogTx(c)
	if err != nil {
		fail(c, err)
		return
	}
	previous, err := s.galaxy(c, tx)
	if err != nil {
		fail(c, err)
		return
	}
	galaxy, err := s.store.UpdateGalaxy(c.Request.Context(), tx, owner(c), previous.ID, req)
	if err != nil {
		fail(c, err)
		return
	}

	cur, prev, err := graphs(s.builder.Galaxy, galaxy, previous)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationUpdate, cur, prev); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, galaxy)
}

// deleteGalaxy removes the galaxy and its catalog children. The DNS
// entries of its stars live outside the galaxy namespace, so every star
// graph is torn down before the namespace goes.
func (s *Server) deleteGalaxy(c *gin.Context) {
	ctx := c.Request.Context()
	tx, err := catalogTx(c)
	if err != nil {
		fail(c, err)
		return
	}
	galaxy, err := s.galaxy(c, tx)
	if err != nil {
		fail(c, err)
		return
	}
	stars, err := s.store.ListStars(ctx, tx, galaxy.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.store.DeleteGalaxy(ctx, tx, owner(c), galaxy.ID); err != nil {
		fail(c, err)
		return
	}

	for i := range stars {
		g, err := s.builder.Star(&stars[i])
		if err != nil {
			fail(c, err)
			return
		}
		if err := s.reconcile(c, reconcile.OperationDelete, g, nil); err != nil {
			fail(c, err)
			return
		}
	}

	g, err := s.builder.Galaxy(galaxy)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationDelete, g, nil); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, galaxy)
}
