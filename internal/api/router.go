// Package api serves the catalog over HTTP. Every mutating handler writes
// the catalog through the request transaction and then reconciles the
// entity's resource graph against the cluster. The transaction commits
// once the handler answered with a non-error status.
package api

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/metrics"

	"github.com/chazu/gws/internal/catalog"
	"github.com/chazu/gws/internal/resources"
	"github.com/chazu/gws/pkg/readiness"
	"github.com/chazu/gws/pkg/reconcile"
	"github.com/chazu/gws/pkg/transaction"
)

// DefaultUserHeader carries the id of the user a request acts for
const DefaultUserHeader = "X-User-ID"

// RouterConfig holds the dependencies of the HTTP API
type RouterConfig struct {
	// DB is the catalog connection pool
	DB *sql.DB

	// Store runs the catalog queries
	Store *catalog.Store

	// Engine reconciles resource graphs against the cluster
	Engine *reconcile.Engine

	// Builder turns catalog entities into resource graphs
	Builder *resources.Builder

	// Cluster is used for the deployment status stream
	Cluster client.WithWatch

	// Logger is the base logger for request logging
	Logger logr.Logger

	// UserHeader names the header carrying the owner id.
	// Default: X-User-ID
	UserHeader string
}

// Server implements the API handlers
type Server struct {
	db      *sql.DB
	store   *catalog.Store
	engine  *reconcile.Engine
	builder *resources.Builder
	status  *readiness.Watcher
}

// NewRouter creates the gin engine with all routes and middleware
func NewRouter(cfg RouterConfig) *gin.Engine {
	registerValidators()

	if cfg.UserHeader == "" {
		cfg.UserHeader = DefaultUserHeader
	}

	s := &Server{
		db:      cfg.DB,
		store:   cfg.Store,
		engine:  cfg.Engine,
		builder: cfg.Builder,
		status:  readiness.NewWatcher(cfg.Cluster),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(HTTPMetrics())
	router.Use(RequestLogger(cfg.Logger))

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	router.GET("/healthz", s.liveness)
	router.GET("/readyz", s.readiness)

	// The status stream is long lived and must reach the client as it is
	// written, so it stays out of the buffered unit of work
	router.GET("/galaxies/:galaxy_id/stars/:star_id/watch", RequireOwner(cfg.UserHeader), s.watchStar)

	galaxies := router.Group("/galaxies", RequireOwner(cfg.UserHeader), transaction.UnitOfWork(cfg.DB))
	{
		galaxies.GET("", s.listGalaxies)
		galaxies.POST("", s.createGalaxy)
		galaxies.GET("/:galaxy_id", s.getGalaxy)
		galaxies.PUT("/:galaxy_id", s.updateGalaxy)
		galaxies.DELETE("/:galaxy_id", s.deleteGalaxy)

		galaxies.GET("/:galaxy_id/stars", s.listStars)
		galaxies.POST("/:galaxy_id/stars", s.createStar)
		galaxies.GET("/:galaxy_id/stars/:star_id", s.getStar)
		galaxies.PUT("/:galaxy_id/stars/:star_id", s.updateStar)
		galaxies.DELETE("/:galaxy_id/stars/:star_id", s.deleteStar)
		galaxies.GET("/:galaxy_id/stars/:star_id/manifest", s.starManifest)

		galaxies.GET("/:galaxy_id/stars/:star_id/vars", s.listVariables)
		galaxies.POST("/:galaxy_id/stars/:star_id/vars", s.createVariable)
		galaxies.GET("/:galaxy_id/stars/:star_id/vars/:variable_id", s.getVariable)
		galaxies.PUT("/:galaxy_id/stars/:star_id/vars/:variable_id", s.updateVariable)
		galaxies.DELETE("/:galaxy_id/stars/:star_id/vars/:variable_id", s.deleteVariable)

		galaxies.GET("/:galaxy_id/planets", s.listPlanets)
		galaxies.POST("/:galaxy_id/planets", s.createPlanet)
		galaxies.GET("/:galaxy_id/planets/:planet_id", s.getPlanet)
		galaxies.PUT("/:galaxy_id/planets/:planet_id", s.updatePlanet)
		galaxies.DELETE("/:galaxy_id/planets/:planet_id", s.deletePlanet)
	}

	return router
}
