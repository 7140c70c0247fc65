package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-management/internal/model"
)

// RequireRole rejects actors whose role is not listed.  It runs after
// LoadActor and only gates whole route groups; per-resource checks stay in
// the policy.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			a, ok := ActorFrom(c)
			if !ok || !allowed[a.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "reason": string(model.DenyWrongRole), "message": model.DenyWrongRole.Message()})
			}
			return next(c)
		}
	}
}
