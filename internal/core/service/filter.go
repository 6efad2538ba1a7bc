package service

import (
	"strconv"
	"strings"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// Query parameters with a fixed meaning on every resource.
const (
	ParamSearch   = "search"
	ParamQuery    = "q"
	ParamCategory = "category"
)

// BuildFilter translates query parameters into a filter. A key is included
// only when its parameter was supplied with a non-blank value.
func BuildFilter(def domain.Definition, params map[string]string) (domain.Filter, error) {
	f := domain.Filter{Equals: map[string]any{}}

	for _, fp := range def.Filters {
		raw, ok := params[fp.Param]
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			continue
		}
		if !fp.Bool {
			f.Equals[fp.Field] = raw
			continue
		}
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.Filter{}, domain.Invalid("FILTER", fp.Param+" must be true or false", fp.Param)
		}
		f.Equals[fp.Field] = b
	}

	if def.CategoryField != "" {
		if c := strings.TrimSpace(params[ParamCategory]); c != "" {
			f.Equals[def.CategoryField] = c
		}
	}

	term := strings.TrimSpace(params[ParamSearch])
	if term == "" {
		term = strings.TrimSpace(params[ParamQuery])
	}
	if term != "" && len(def.SearchFields) > 0 {
		f.Search = &domain.Search{Term: term, Fields: def.SearchFields}
	}

	return f, nil
}
