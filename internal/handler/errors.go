// Package handler adapts the services to HTTP.  Handlers read the actor
// placed in the context by the auth middleware and translate domain
// errors into status codes.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/middleware"
	"github.com/iliyamo/visit-management/internal/model"
)

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_request", "message": msg})
}

// actorOf returns the authenticated actor.  Routes are always mounted
// behind LoadActor, so a miss means the router is miswired.
func actorOf(c echo.Context) (model.Actor, bool) {
	return middleware.ActorFrom(c)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "no actor"})
}

// respond writes the HTTP form of err.  Unknown errors are logged with
// their cause and reported as a generic failure.
func respond(c echo.Context, log *zap.Logger, err error) error {
	var (
		denied   *model.DeniedError
		invalid  *model.ValidationError
		notFound *model.NotFoundError
		conflict *model.ConflictError
		deps     *model.HasDependentsError
		visits   *model.HasVisitsError
	)
	switch {
	case errors.As(err, &denied):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "reason": string(denied.Reason), "message": denied.Reason.Message()})
	case errors.As(err, &invalid):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid", "message": invalid.Error(), "field": invalid.Field})
	case errors.Is(err, model.ErrSelfDeletion):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "self_deletion", "message": err.Error()})
	case errors.Is(err, model.ErrSelfModification):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "self_modification", "message": err.Error()})
	case errors.As(err, &notFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": notFound.Error()})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": conflict.Error(), "existing_chief_email": conflict.ExistingChiefEmail})
	case errors.As(err, &deps):
		return c.JSON(http.StatusConflict, echo.Map{"error": "has_dependents", "message": deps.Error(), "count": deps.Count})
	case errors.As(err, &visits):
		return c.JSON(http.StatusConflict, echo.Map{"error": "has_visits", "message": visits.Error(), "count": visits.Count})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "operation failed"})
}
