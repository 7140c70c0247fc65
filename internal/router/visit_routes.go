package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-management/internal/handler"
	"github.com/iliyamo/visit-management/internal/middleware"
	"github.com/iliyamo/visit-management/internal/model"
)

// registerVisits mounts the visit lifecycle.  Scope and state checks live
// in the policy; only the manager-only and admin-only routes are gated
// here as well.
func registerVisits(g *echo.Group, h *handler.VisitHandler) {
	managers := middleware.RequireRole(model.RoleAdmin, model.RoleChief)

	g.GET("/visits", h.List)
	g.POST("/visits", h.Schedule, managers)
	g.GET("/visits/history", h.Changes)
	g.POST("/visits/expire", h.Expire, middleware.RequireRole(model.RoleAdmin))
	g.POST("/visits/:id/execute", h.Execute)
	g.POST("/visits/:id/cancel", h.Cancel)
	g.POST("/visits/:id/reassign", h.Reassign)
	g.GET("/visits/:id/audit", h.Audit)
}
