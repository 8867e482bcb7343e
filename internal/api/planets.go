package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chazu/gws/internal/catalog"
	"github.com/chazu/gws/internal/models"
	"github.com/chazu/gws/pkg/reconcile"
)

func (s *Server) planet(c *gin.Context, galaxy *models.Galaxy, q catalog.Querier) (*models.Planet, error) {
	id, err := pathID(c, "planet_id")
	if err != nil {
		return nil, err
	}
	return s.store.GetPlanet(c.Request.Context(), q, galaxy.ID, id)
}

func (s *Server) listPlanets(c *gin.Context) {
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
	planets, err := s.store.ListPlanets(c.Request.Context(), tx, galaxy.ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.PlanetListResponse{Planets: planets, Total: len(planets)})
}

func (s *Server) getPlanet(c *gin.Context) {
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
	planet, err := s.planet(c, galaxy, tx)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, planet)
}

func (s *Server) createPlanet(c *gin.Context) {
	var req models.PlanetRequest
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
	planet, err := s.store.CreatePlanet(c.Request.Context(), tx, galaxy.ID, req)
	if err != nil {
		fail(c, err)
		return
	}

	g, err := s.builder.Planet(planet)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationCreate, g, nil); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, planet)
}

// updatePlanet may move the planet between stars. The mount on the
// previous star leaves the graph and is retracted.
func (s *Server) updatePlanet(c *gin.Context) {
	var req models.PlanetRequest
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
	previous, err := s.planet(c, galaxy, tx)
	if err != nil {
		fail(c, err)
		return
	}
	planet, err := s.store.UpdatePlanet(c.Request.Context(), tx, galaxy.ID, previous.ID, req)
	if err != nil {
		fail(c, err)
		return
	}

	cur, prev, err := graphs(s.builder.Planet, planet, previous)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationUpdate, cur, prev); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, planet)
}

func (s *Server) deletePlanet(c *gin.Context) {
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
	planet, err := s.planet(c, galaxy, tx)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.store.DeletePlanet(c.Request.Context(), tx, galaxy.ID, planet.ID); err != nil {
		fail(c, err)
		return
	}

	g, err := s.builder.Planet(planet)
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.reconcile(c, reconcile.OperationDelete, g, nil); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, planet)
}
