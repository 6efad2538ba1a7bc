// Package messaging delivers change events to downstream consumers.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

// KafkaPublisher writes change events to a single topic keyed by
// resource and document id, so one document's events stay on one partition.
type KafkaPublisher struct {
	log zerolog.Logger
	w   *kafka.Writer
}

func NewKafkaPublisher(log zerolog.Logger, brokers []string, topic string) *KafkaPublisher {
	log = log.With().Str("component", "kafka").Str("topic", topic).Logger()

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Logger:                 kafka.LoggerFunc(func(msg string, args ...interface{}) { log.Debug().Msgf(msg, args...) }),
		ErrorLogger:            kafka.LoggerFunc(func(msg string, args ...interface{}) { log.Error().Msgf(msg, args...) }),
		AllowAutoTopicCreation: true,
	}

	return &KafkaPublisher{log: log, w: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.ChangeEvent) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.w.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

func encode(event domain.ChangeEvent) (kafka.Message, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Resource + ":" + event.DocumentID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
		},
		Time: event.OccurredAt,
	}, nil
}
