package ports

import (
	"context"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// ResourceRepository persists schemaless documents for any catalog collection.
// Implementations translate domain.Filter into their native query language and
// map "not found" to domain.ErrNotFound.
type ResourceRepository interface {
	// Insert stores doc and returns it with its assigned identifier.
	Insert(ctx context.Context, collection string, doc domain.Document) (domain.Document, error)
	// FindByID returns the document or an error wrapping domain.ErrNotFound.
	// Soft-deleted documents are hidden when excludeDeleted is set.
	FindByID(ctx context.Context, collection, id string, excludeDeleted bool) (domain.Document, error)
	// FindByIDs returns the documents among ids that exist, in no particular order.
	FindByIDs(ctx context.Context, collection string, ids []string) ([]domain.Document, error)
	// List returns one page of matching documents and the total match count.
	List(ctx context.Context, collection string, q domain.ListQuery) ([]domain.Document, int64, error)
	// Update merges fields into the document and returns the result.
	Update(ctx context.Context, collection, id string, fields domain.Document, excludeDeleted bool) (domain.Document, error)
	// Toggle atomically negates a boolean field, stamping updatedAt.
	Toggle(ctx context.Context, collection, id, field string, excludeDeleted bool) (domain.Document, error)
	// Rate atomically folds score into ratingCount, ratingTotal and rating.
	Rate(ctx context.Context, collection, id string, score float64) (domain.Document, error)
	// Delete hard-deletes the document.
	Delete(ctx context.Context, collection, id string) error
	// CountByField groups matching documents by field value.
	CountByField(ctx context.Context, collection, field string, excludeDeleted bool) (map[string]int64, error)
	// Count returns the number of documents, honouring excludeDeleted.
	Count(ctx context.Context, collection string, excludeDeleted bool) (int64, error)
}
