// Package catalog registers the resource collections the platform exposes.
package catalog

import (
	"fmt"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

var byStatus = domain.FilterParam{Param: "status", Field: domain.FieldStatus}

var definitions = []domain.Definition{
	{
		Name:           "clients",
		Singular:       "CLIENT",
		RequiredFields: []string{"name", "email"},
		FieldRules:     map[string]string{"email": "email"},
		Filters:        []domain.FilterParam{byStatus, {Param: "type", Field: "type"}},
		SearchFields:   []string{"name", "email", "company"},
		Defaults:       map[string]any{"status": "active"},
		Statuses:       []string{"active", "inactive", "suspended"},
	},
	{
		Name:           "employees",
		Singular:       "EMPLOYEE",
		RequiredFields: []string{"firstName", "lastName", "email", "position"},
		FieldRules:     map[string]string{"email": "email"},
		Filters:        []domain.FilterParam{byStatus, {Param: "department", Field: "department"}, {Param: "position", Field: "position"}},
		SearchFields:   []string{"firstName", "lastName", "email"},
		Defaults:       map[string]any{"status": "active"},
		Statuses:       []string{"active", "inactive", "on_leave"},
	},
	{
		Name:           "mechanics",
		Singular:       "MECHANIC",
		RequiredFields: []string{"name", "email", "specialization"},
		FieldRules:     map[string]string{"email": "email", "hourlyRate": "gte=0"},
		Filters: []domain.FilterParam{
			byStatus,
			{Param: "specialization", Field: "specialization"},
			{Param: "available", Field: "available", Bool: true},
		},
		SearchFields: []string{"name", "email", "specialization"},
		Defaults:     map[string]any{"status": "active", "available": true, "rating": 0.0, "ratingCount": 0, "ratingTotal": 0.0},
		Statuses:     []string{"active", "inactive"},
		MoneyFields:  []string{"hourlyRate"},
		Rateable:     true,
	},
	{
		Name:           "services",
		Singular:       "SERVICE",
		RequiredFields: []string{"name", "description", "category", "price"},
		FieldRules:     map[string]string{"price": "gte=0", "duration": "gte=0"},
		Filters:        []domain.FilterParam{byStatus, {Param: "category", Field: "category"}},
		SearchFields:   []string{"name", "description", "category"},
		CategoryField:  "category",
		Defaults:       map[string]any{"status": "active"},
		Statuses:       []string{"active", "inactive"},
		MoneyFields:    []string{"price"},
	},
	{
		Name:           "payments",
		Singular:       "PAYMENT",
		RequiredFields: []string{"clientId", "amount", "method"},
		FieldRules:     map[string]string{"amount": "gt=0", "method": "oneof=card cash transfer wallet"},
		Filters:        []domain.FilterParam{byStatus, {Param: "clientId", Field: "clientId"}, {Param: "method", Field: "method"}},
		SearchFields:   []string{"reference", "description"},
		Defaults:       map[string]any{"status": "pending", "currency": "USD"},
		Statuses:       []string{"pending", "approved", "rejected", "refunded"},
		MoneyFields:    []string{"amount"},
		SoftDelete:     true,
		WriteRoles:     []string{domain.RoleAdmin},
	},
	{
		Name:           "notifications",
		Singular:       "NOTIFICATION",
		RequiredFields: []string{"recipientId", "title", "message"},
		FieldRules:     map[string]string{"channel": "oneof=email sms push in_app"},
		Filters: []domain.FilterParam{
			{Param: "recipientId", Field: "recipientId"},
			{Param: "channel", Field: "channel"},
			{Param: "read", Field: "read", Bool: true},
		},
		SearchFields: []string{"title", "message"},
		Defaults:     map[string]any{"read": false, "channel": "in_app"},
		ToggleField:  "read",
		WriteRoles:   []string{domain.RoleAdmin, domain.RoleManager, domain.RoleStaff},
	},
	{
		Name:           "communities",
		Singular:       "COMMUNITY",
		RequiredFields: []string{"name", "description"},
		Filters:        []domain.FilterParam{byStatus, {Param: "category", Field: "category"}},
		SearchFields:   []string{"name", "description"},
		CategoryField:  "category",
		Defaults:       map[string]any{"status": "active", "memberCount": 0},
		Statuses:       []string{"active", "inactive", "archived"},
	},
	{
		Name:           "verifications",
		Singular:       "VERIFICATION",
		RequiredFields: []string{"subjectId", "type"},
		FieldRules:     map[string]string{"type": "oneof=identity license insurance background"},
		Filters:        []domain.FilterParam{byStatus, {Param: "type", Field: "type"}, {Param: "subjectId", Field: "subjectId"}},
		SearchFields:   []string{"subjectId", "notes"},
		Defaults:       map[string]any{"status": "pending"},
		Statuses:       []string{"pending", "approved", "rejected"},
		SoftDelete:     true,
	},
	{
		Name:           "tracking-events",
		Singular:       "TRACKING_EVENT",
		Collection:     "tracking_events",
		RequiredFields: []string{"vehicleId", "eventType"},
		Filters:        []domain.FilterParam{{Param: "vehicleId", Field: "vehicleId"}, {Param: "eventType", Field: "eventType"}},
		SearchFields:   []string{"vehicleId", "eventType", "description"},
		DefaultSort:    domain.Sort{Field: "timestamp", Desc: true},
		WriteRoles:     []string{domain.RoleAdmin, domain.RoleManager, domain.RoleStaff},
	},
	{
		Name:           "settings",
		Singular:       "SETTING",
		RequiredFields: []string{"key", "value"},
		Filters:        []domain.FilterParam{{Param: "scope", Field: "scope"}, {Param: "isActive", Field: domain.FieldIsActive, Bool: true}},
		SearchFields:   []string{"key", "description"},
		DefaultSort:    domain.Sort{Field: "key"},
		Defaults:       map[string]any{domain.FieldIsActive: true, "scope": "global"},
		ToggleField:    domain.FieldIsActive,
		WriteRoles:     []string{domain.RoleAdmin},
	},
	{
		Name:            "advanced-features",
		Singular:        "ADVANCED_FEATURE",
		Collection:      "advanced_features",
		RequiredFields:  []string{"name", "category"},
		Filters:         []domain.FilterParam{byStatus, {Param: "category", Field: "category"}, {Param: "enabled", Field: "enabled", Bool: true}},
		SearchFields:    []string{"name", "description"},
		CategoryField:   "category",
		Defaults:        map[string]any{"status": "inactive", "enabled": false, "dependencies": []any{}},
		Statuses:        []string{"active", "inactive", "beta"},
		ToggleField:     "enabled",
		DependencyField: "dependencies",
		WriteRoles:      []string{domain.RoleAdmin},
	},
	{
		Name:           "vehicles",
		Singular:       "VEHICLE",
		RequiredFields: []string{"make", "model", "year", "plate"},
		FieldRules:     map[string]string{"year": "gte=1950,lte=2100", "type": "oneof=ICE EV HYBRID"},
		Filters:        []domain.FilterParam{byStatus, {Param: "type", Field: "type"}, {Param: "clientId", Field: "clientId"}},
		SearchFields:   []string{"make", "model", "plate", "vin"},
		Defaults:       map[string]any{"status": "active"},
		Statuses:       []string{"active", "inactive", "maintenance", "retired"},
	},
	{
		Name:           "compliance-records",
		Singular:       "COMPLIANCE_RECORD",
		Collection:     "compliance_records",
		RequiredFields: []string{"vehicleId", "regulation", "dueDate"},
		Filters:        []domain.FilterParam{byStatus, {Param: "vehicleId", Field: "vehicleId"}, {Param: "regulation", Field: "regulation"}},
		SearchFields:   []string{"regulation", "notes"},
		DefaultSort:    domain.Sort{Field: "dueDate"},
		Defaults:       map[string]any{"status": "pending"},
		Statuses:       []string{"pending", "approved", "rejected"},
		SoftDelete:     true,
	},
}

// All returns every registered definition.
func All() []domain.Definition {
	out := make([]domain.Definition, len(definitions))
	copy(out, definitions)
	return out
}

// Lookup returns the definition registered under name.
func Lookup(name string) (domain.Definition, bool) {
	for _, d := range definitions {
		if d.Name == name {
			return d, true
		}
	}
	return domain.Definition{}, false
}

// Validate reports duplicate names or collections and definitions missing
// the fields the generic handlers rely on.
func Validate(defs []domain.Definition) error {
	names := make(map[string]struct{}, len(defs))
	colls := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if d.Name == "" || d.Singular == "" {
			return fmt.Errorf("catalog: definition %q missing name or singular", d.Name)
		}
		if _, dup := names[d.Name]; dup {
			return fmt.Errorf("catalog: duplicate resource %q", d.Name)
		}
		if _, dup := colls[d.CollectionName()]; dup {
			return fmt.Errorf("catalog: duplicate collection %q", d.CollectionName())
		}
		if d.DependencyField != "" && len(d.Statuses) == 0 && d.ToggleField == "" {
			return fmt.Errorf("catalog: %q declares dependencies without an activation path", d.Name)
		}
		names[d.Name] = struct{}{}
		colls[d.CollectionName()] = struct{}{}
	}
	return nil
}
