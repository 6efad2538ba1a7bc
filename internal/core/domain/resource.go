package domain

import "slices"

// Roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// FilterParam maps a list query parameter to an exact-match document field.
type FilterParam struct {
	Param string
	Field string
	// Bool parses the parameter as "true"/"false" instead of a string.
	Bool bool
}

// Definition describes one resource collection exposed through the generic
// CRUD contract. Everything resource-specific lives here; handlers, services
// and repositories are shared.
type Definition struct {
	// Name is the URL segment, e.g. "services".
	Name string
	// Singular prefixes error codes, e.g. "SERVICE" → SERVICE_NOT_FOUND.
	Singular   string
	Collection string

	RequiredFields []string
	// FieldRules are go-playground/validator tags applied to present fields.
	FieldRules map[string]string

	Filters       []FilterParam
	SearchFields  []string
	CategoryField string
	DefaultSort   Sort

	// Defaults are stamped on create for keys the payload omits.
	Defaults map[string]any
	// Statuses enables PATCH /:id/status restricted to these values.
	Statuses []string
	// ToggleField enables PATCH /:id/toggle flipping this boolean.
	ToggleField string
	// DependencyField names an array of same-collection ids that must all be
	// active before this document may be activated.
	DependencyField string
	MoneyFields     []string
	Rateable        bool
	SoftDelete      bool

	// WriteRoles may mutate the collection. Reads require authentication only.
	WriteRoles []string
}

// CollectionName returns the store collection, defaulting to Name.
func (d Definition) CollectionName() string {
	if d.Collection != "" {
		return d.Collection
	}
	return d.Name
}

// Sorting returns DefaultSort, or createdAt descending when unset.
func (d Definition) Sorting() Sort {
	if d.DefaultSort.Field == "" {
		return Sort{Field: FieldCreatedAt, Desc: true}
	}
	return d.DefaultSort
}

// AllowsStatus reports whether status is a permitted value for PATCH /:id/status.
func (d Definition) AllowsStatus(status string) bool {
	return slices.Contains(d.Statuses, status)
}

// Writers returns the roles permitted to mutate the collection.
func (d Definition) Writers() []string {
	if len(d.WriteRoles) == 0 {
		return []string{RoleAdmin, RoleManager}
	}
	return d.WriteRoles
}
