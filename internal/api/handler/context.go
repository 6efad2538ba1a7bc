package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fleetcore/fleet-api/internal/api/middleware"
	"github.com/fleetcore/fleet-api/internal/core/ports"
)

// actor identifies the authenticated caller for audit fields and events.
func actor(c echo.Context) string {
	return middleware.PrincipalFrom(c).ID
}

// listInput collects the query string into service list parameters.
// Malformed page/limit values fall back to the defaults.
func listInput(c echo.Context) ports.ListInput {
	qp := c.QueryParams()
	params := make(map[string]string, len(qp))
	for k, v := range qp {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return ports.ListInput{
		Params: params,
		Page:   atoiOrZero(params["page"]),
		Limit:  atoiOrZero(params["limit"]),
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
