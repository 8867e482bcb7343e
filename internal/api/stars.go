package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/internal/resources"
	"github.com/chazu/gws/pkg/reconcile"
)

func (s *Server) listStars(c *gin.Context) {
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
	stars, err := s.store.ListStars(c.Request.Context(), tx, galaxy.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.StarListResponse{Stars: stars, Total: len(stars)})
}

func (s *Server) getStar(c *gin.Context) {
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
	c.JSON(http.StatusOK, star)
}

func (s *Server) createStar(c *gin.Context) {
	var req models.StarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

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
	star, err := s.store.CreateStar(c.Request.Context(), tx, galaxy.ID, req)
	if err != nil {
		fail(c, err)
		return
	}

	g, err := s.builder.Star(star)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationCreate, g, nil); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, star)
}

func (s *Server) updateStar(c *gin.Context) {
	var req models.StarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	tx, err := catalogTx(c)
	if err != nil {
		fail(c, err)
		return
	}
	galaxy, previous, err := s.star(c, tx)
	if err != nil {
		fail(c, err)
		return
	}
	star, err := s.store.UpdateStar(c.Request.Context(), tx, galaxy.ID, previous.ID, req)
	if err != nil {
		fail(c, err)
		return
	}

	cur, prev, err := graphs(s.builder.Star, star, previous)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationUpdate, cur, prev); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, star)
}

func (s *Server) deleteStar(c *gin.Context) {
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
	if err := s.store.DeleteStar(c.Request.Context(), tx, galaxy.ID, star.ID); err != nil {
		fail(c, err)
		return
	}

	g, err := s.builder.Star(star)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationDelete, g, nil); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, star)
}

// starManifest renders the star's graph as YAML without touching the
// cluster
func (s *Server) starManifest(c *gin.Context) {
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

	g, err := s.builder.Star(star)
	if err != nil {
		fail(c, err)
		return
	}
	out, err := resources.Render(g)
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("X-Render-Hash", g.Metadata.RenderHash)
	c.Data(http.StatusOK, "application/yaml", out)
}
