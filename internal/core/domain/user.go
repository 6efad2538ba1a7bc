package domain

import (
	"slices"
	"time"
)

// User models an authenticated operator of the platform.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissions,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ValidRole reports whether role is one the platform issues tokens for.
func ValidRole(role string) bool {
	return slices.Contains([]string{RoleAdmin, RoleManager, RoleStaff}, role)
}

// Principal is the identity attached to a request by the auth middleware.
type Principal struct {
	ID          string
	Role        string
	Permissions []string
}
