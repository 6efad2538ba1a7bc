package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fleetcore/fleet-api/internal/api/response"
)

// RBAC enforces role-based access control on routes behind Auth.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextRole).(string)
			if role == "" {
				return unauthorized(c, "authentication required")
			}
			if _, ok := allowed[role]; !ok {
				return response.Error(c, http.StatusForbidden, "FORBIDDEN", "insufficient role for this operation")
			}
			return next(c)
		}
	}
}
