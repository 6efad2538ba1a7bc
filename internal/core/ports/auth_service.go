package ports

import (
	"context"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// RegisterInput carries the fields of a new platform user.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Role        string
	Permissions []string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}
