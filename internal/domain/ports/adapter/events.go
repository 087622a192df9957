package adapter

import "context"

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}
