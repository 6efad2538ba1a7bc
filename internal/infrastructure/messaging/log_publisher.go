package messaging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// LogPublisher writes change events to the structured log. It is used when no
// brokers are configured.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.ChangeEvent) error {
	p.log.Info().
		Str("resource", event.Resource).
		Str("document_id", event.DocumentID).
		Str("action", string(event.Action)).
		Str("actor", event.Actor).
		Time("occurred_at", event.OccurredAt).
		Msg("change event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }
