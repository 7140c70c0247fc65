package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/policy"
	"github.com/iliyamo/visit-management/internal/service"
)

// DirectoryHandler serves profile and area administration.
type DirectoryHandler struct {
	dir *service.Directory
	log *zap.Logger
}

func NewDirectoryHandler(dir *service.Directory, log *zap.Logger) *DirectoryHandler {
	if dir == nil {
		panic("nil directory passed to NewDirectoryHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DirectoryHandler{dir: dir, log: log}
}

// Me handles GET /v1/me and returns the caller's own profile.
func (h *DirectoryHandler) Me(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	p, err := h.dir.Profile(c.Request().Context(), actor.ID)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ListUsers handles GET /v1/users.
func (h *DirectoryHandler) ListUsers(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.dir.ListProfiles(c.Request().Context(), actor)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListAdvisors handles GET /v1/advisors.
func (h *DirectoryHandler) ListAdvisors(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.dir.ListAdvisors(c.Request().Context(), actor)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// DeleteUser handles DELETE /v1/users/:id.
func (h *DirectoryHandler) DeleteUser(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.dir.DeleteProfile(c.Request().Context(), actor, c.Param("id")); err != nil {
		return respond(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignRole handles PUT /v1/users/:id/role with {"role": "CHIEF"}.
func (h *DirectoryHandler) AssignRole(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	role, _ := model.ParseRole(body.Role)
	p, err := h.dir.AssignRole(c.Request().Context(), actor, c.Param("id"), role)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// AssignArea handles PUT /v1/users/:id/area.  A null or empty area_id
// removes the profile from its area.
func (h *DirectoryHandler) AssignArea(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var body struct {
		AreaID *string `json:"area_id"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.AreaID != nil && strings.TrimSpace(*body.AreaID) == "" {
		body.AreaID = nil
	}
	p, err := h.dir.AssignArea(c.Request().Context(), actor, c.Param("id"), body.AreaID)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, p)
}

// ListAreas handles GET /v1/areas.
func (h *DirectoryHandler) ListAreas(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.dir.ListAreas(c.Request().Context(), actor)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateArea handles POST /v1/areas.
func (h *DirectoryHandler) CreateArea(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var body policy.AreaPayload
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	a, err := h.dir.CreateArea(c.Request().Context(), actor, body)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// UpdateArea handles PUT /v1/areas/:id.
func (h *DirectoryHandler) UpdateArea(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	var body policy.AreaPayload
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	a, err := h.dir.UpdateArea(c.Request().Context(), actor, c.Param("id"), body)
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, a)
}

// DeleteArea handles DELETE /v1/areas/:id.
func (h *DirectoryHandler) DeleteArea(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.dir.DeleteArea(c.Request().Context(), actor, c.Param("id")); err != nil {
		return respond(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAreaUsers handles GET /v1/areas/:id/users.
func (h *DirectoryHandler) ListAreaUsers(c echo.Context) error {
	actor, ok := actorOf(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.dir.ListAreaUsers(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
