// Package response renders the uniform JSON envelope returned by every endpoint.
package response

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// Envelope wraps a successful result.
type Envelope struct {
	Success    bool               `json:"success"`
	Data       any                `json:"data,omitempty"`
	Message    string             `json:"message,omitempty"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// ErrorEnvelope wraps a failure. Error is the machine-readable code.
type ErrorEnvelope struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Fields    []string  `json:"fields,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var now = func() time.Time { return time.Now().UTC() }

// OK renders data with the given status and optional message.
func OK(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: now(),
	})
}

// Page renders one page of list results with its pagination block.
func Page(c echo.Context, items any, p domain.Pagination) error {
	return c.JSON(http.StatusOK, Envelope{
		Success:    true,
		Data:       items,
		Pagination: &p,
		Timestamp:  now(),
	})
}

// Error renders a failure envelope.
func Error(c echo.Context, status int, code, message string, fields ...string) error {
	return c.JSON(status, ErrorEnvelope{
		Success:   false,
		Error:     code,
		Message:   message,
		Fields:    fields,
		Timestamp: now(),
	})
}
