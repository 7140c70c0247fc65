package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/service"
)

// CatalogHandler serves read-only reference data.  Responses are the same
// for every caller, which lets the router put them behind the Redis cache.
type CatalogHandler struct {
	cat *service.Catalog
	log *zap.Logger
}

func NewCatalogHandler(cat *service.Catalog, log *zap.Logger) *CatalogHandler {
	if cat == nil {
		panic("nil catalog passed to NewCatalogHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CatalogHandler{cat: cat, log: log}
}

func (h *CatalogHandler) Objectives(c echo.Context) error {
	items, err := h.cat.Objectives(c.Request().Context())
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *CatalogHandler) VisitTypes(c echo.Context) error {
	items, err := h.cat.VisitTypes(c.Request().Context())
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *CatalogHandler) CancelReasons(c echo.Context) error {
	items, err := h.cat.CancelReasons(c.Request().Context())
	if err != nil {
		return respond(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
