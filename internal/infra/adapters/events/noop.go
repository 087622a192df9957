package events

import (
	"context"

	"github.com/rs/zerolog"

	"pizza-order-bot/internal/domain/ports/adapter"
)

var _ adapter.EventPublisher = (*NoopPublisher)(nil)

// NoopPublisher logs events instead of sending them. Used when no brokers
// are configured.
type NoopPublisher struct {
	logger *zerolog.Logger
}

func NewNoopPublisher(logger *zerolog.Logger) *NoopPublisher {
	l := logger.With().Str("component", "NoopPublisher").Logger()
	return &NoopPublisher{logger: &l}
}

func (n *NoopPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	n.logger.Debug().Str("topic", topic).Str("key", key).Interface("event", event).Msg("event dropped")
	return nil
}
