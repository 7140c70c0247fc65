package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-management/internal/model"
)

// Context keys set by the auth chain.
const (
	ctxSubject = "subject"
	ctxActor   = "actor"
)

// ActorFrom returns the actor loaded by LoadActor.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(ctxActor).(model.Actor)
	return a, ok
}

// SetActor stores a for downstream handlers.
func SetActor(c echo.Context, a model.Actor) { c.Set(ctxActor, a) }

// actorKey identifies the caller for rate limiting.  Anonymous requests
// share the "guest" bucket.
func actorKey(c echo.Context) string {
	if a, ok := ActorFrom(c); ok && a.ID != "" {
		return a.ID
	}
	if s, ok := c.Get(ctxSubject).(string); ok && s != "" {
		return s
	}
	return "guest"
}
