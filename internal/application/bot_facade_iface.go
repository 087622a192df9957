package application

import (
	"context"
	"time"

	"pizza-order-bot/internal/domain/model"
)

// ---- small interfaces to decouple the facade from concrete infra structs ----
// These describe the minimal surface that the facade needs. Using interfaces
// enables tests to pass in light-weight mocks.

// ConversationUseCaseIface is the part of the conversation engine the
// transports reach through the facade.
type ConversationUseCaseIface interface {
	Handle(ctx context.Context, ev model.Event) (model.State, []model.Action, error)
}

// RateLimiter admits at most limit hits per key and window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Scheduler runs job once after delay.
type Scheduler interface {
	Schedule(key string, delay time.Duration, job func(ctx context.Context) error)
}
