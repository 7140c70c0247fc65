package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-management/internal/handler"
	"github.com/iliyamo/visit-management/internal/middleware"
	"github.com/iliyamo/visit-management/internal/model"
)

func registerDirectory(g *echo.Group, h *handler.DirectoryHandler) {
	managers := middleware.RequireRole(model.RoleAdmin, model.RoleChief)
	admin := middleware.RequireRole(model.RoleAdmin)

	g.GET("/advisors", h.ListAdvisors, managers)
	g.GET("/users", h.ListUsers, managers)
	g.DELETE("/users/:id", h.DeleteUser, managers)
	g.PUT("/users/:id/role", h.AssignRole, admin)
	g.PUT("/users/:id/area", h.AssignArea, admin)

	areas := g.Group("/areas", admin)
	areas.GET("", h.ListAreas)
	areas.POST("", h.CreateArea)
	areas.PUT("/:id", h.UpdateArea)
	areas.DELETE("/:id", h.DeleteArea)
	areas.GET("/:id/users", h.ListAreaUsers)
}
