package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/fleetcore/fleet-api/internal/api/response"
	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// Context keys set by Auth.
const (
	ContextUserID      = "user_id"
	ContextRole        = "role"
	ContextPermissions = "permissions"
)

// Auth validates the bearer JWT and injects the caller's identity into context.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return unauthorized(c, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return unauthorized(c, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return unauthorized(c, "invalid token")
			}

			sub, _ := claims.GetSubject()
			role, _ := claims["role"].(string)
			if sub == "" || role == "" {
				return unauthorized(c, "token missing identity claims")
			}

			c.Set(ContextUserID, sub)
			c.Set(ContextRole, role)
			c.Set(ContextPermissions, permissions(claims["permissions"]))

			return next(c)
		}
	}
}

// PrincipalFrom returns the identity Auth attached to c.
func PrincipalFrom(c echo.Context) domain.Principal {
	id, _ := c.Get(ContextUserID).(string)
	role, _ := c.Get(ContextRole).(string)
	perms, _ := c.Get(ContextPermissions).([]string)
	return domain.Principal{ID: id, Role: role, Permissions: perms}
}

func permissions(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if s, ok := p.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func unauthorized(c echo.Context, msg string) error {
	return response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", msg)
}
