package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fleetcore/fleet-api/internal/api/response"
	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain error kinds to HTTP status codes and renders their code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the error envelope: {"success": false, "error": CODE, "message": ...}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, code, msg, fields := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = response.Error(c, status, code, msg, fields...)
	}
}

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMissingFields),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrDependenciesNotMet):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, string, []string) {
	// Echo's own errors (bind failures, 404/405 from router, limiter).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, httpErrorCode(he.Code), fmt.Sprintf("%v", he.Message), nil
	}

	if de, ok := domain.AsError(err); ok {
		status := statusFor(de)
		if status != http.StatusInternalServerError {
			return status, de.Code, de.Message, de.Fields
		}
		// Internal: keep the code, log the cause, never echo it.
		log.Error().
			Err(err).
			Str("code", de.Code).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("operation failed")
		return status, de.Code, de.Message, nil
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil
}

// httpErrorCode derives an envelope code from a bare HTTP status,
// e.g. 405 -> METHOD_NOT_ALLOWED.
func httpErrorCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "ROUTE_NOT_FOUND"
	case http.StatusTooManyRequests:
		return "RATE_LIMIT_EXCEEDED"
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	}
	text := http.StatusText(status)
	if text == "" {
		return "HTTP_ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(text, " ", "_"))
}
