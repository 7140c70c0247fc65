package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/visit-management/internal/model"
	"github.com/iliyamo/visit-management/internal/repository"
)

// ProfileGetter loads the profile behind a token subject.
type ProfileGetter interface {
	GetProfile(ctx context.Context, id string) (model.Profile, error)
}

// LoadActor resolves the token subject to a profile and stores it as the
// request actor.  A subject without a provisioned profile is rejected.
func LoadActor(profiles ProfileGetter, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sub, _ := c.Get(ctxSubject).(string)
			if sub == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "missing subject"})
			}
			p, err := profiles.GetProfile(c.Request().Context(), sub)
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "profile not provisioned"})
			}
			if err != nil {
				log.Error("load actor failed", zap.String("subject", sub), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal", "message": "operation failed"})
			}
			SetActor(c, p.Actor())
			return next(c)
		}
	}
}
