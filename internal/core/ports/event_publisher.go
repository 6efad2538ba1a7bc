package ports

import (
	"context"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// ChangeNotifier receives change events from the services. Implementations
// must not block the request path.
type ChangeNotifier interface {
	Notify(event domain.ChangeEvent)
}

// EventPublisher delivers a change event to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
	Close() error
}
