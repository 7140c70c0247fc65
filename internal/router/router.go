// Package router registers the HTTP routes.  Every /v1 route requires a
// Bearer token whose subject resolves to a provisioned profile.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/handler"
	"github.com/iliyamo/visit-management/internal/middleware"
)

// Handlers groups the HTTP handlers.
type Handlers struct {
	Visits    *handler.VisitHandler
	Directory *handler.DirectoryHandler
	Catalog   *handler.CatalogHandler
}

// Options carries what the middleware chain needs.  RateLimit and Cache
// may be nil to disable them; Metrics may be nil to omit /metrics.
type Options struct {
	JWTSecret string
	Profiles  middleware.ProfileGetter
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
	Metrics   http.Handler
	Logger    *zap.Logger
}

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, opts Options) {
	e.GET("/healthz", handler.Health)
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}
}

// RegisterAPI registers the authenticated /v1 surface.
func RegisterAPI(e *echo.Echo, h Handlers, opts Options) *echo.Group {
	v1 := e.Group("/v1",
		middleware.JWTAuth(opts.JWTSecret),
		middleware.LoadActor(opts.Profiles, opts.Logger))
	if opts.RateLimit != nil {
		v1.Use(opts.RateLimit)
	}

	v1.GET("/me", h.Directory.Me)
	registerVisits(v1, h.Visits)
	registerDirectory(v1, h.Directory)
	registerCatalog(v1, h.Catalog, opts.Cache)
	return v1
}

func registerCatalog(g *echo.Group, c *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	g.GET("/objectives", c.Objectives, mw...)
	g.GET("/visit-types", c.VisitTypes, mw...)
	g.GET("/cancel-reasons", c.CancelReasons, mw...)
}
