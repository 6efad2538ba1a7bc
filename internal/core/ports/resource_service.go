package ports

import (
	"context"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// ListInput carries the raw list parameters of a request.
type ListInput struct {
	// Params are the query-string values, already reduced to the first value per key.
	Params map[string]string
	Page   int
	Limit  int
}

// ToggleInput either forces Value or, when nil, flips the current value.
type ToggleInput struct {
	Value *bool
}

// ResourceService is the generic CRUD contract for one catalog definition.
type ResourceService interface {
	Definition() domain.Definition
	List(ctx context.Context, in ListInput) (*domain.ListResult, error)
	Search(ctx context.Context, term string, in ListInput) (*domain.ListResult, error)
	ByCategory(ctx context.Context, category string, in ListInput) (*domain.ListResult, error)
	Get(ctx context.Context, id string) (domain.Document, error)
	Create(ctx context.Context, actor string, payload domain.Document) (domain.Document, error)
	Update(ctx context.Context, actor, id string, payload domain.Document) (domain.Document, error)
	SetStatus(ctx context.Context, actor, id, status string) (domain.Document, error)
	Toggle(ctx context.Context, actor, id string, in ToggleInput) (domain.Document, error)
	Rate(ctx context.Context, actor, id string, score float64) (domain.Document, error)
	Delete(ctx context.Context, actor, id string) error
	Stats(ctx context.Context) (*domain.Stats, error)
}
