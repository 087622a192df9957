// File: internal/domain/ports/adapter/sender.go
package adapter

import (
	"context"

	"pizza-order-bot/internal/domain/model"
)

// Sender delivers outbound actions through one chat platform.
// userID is the user whose event produced the actions.
type Sender interface {
	Platform() string
	Deliver(ctx context.Context, userID model.UserID, actions []model.Action) error
}
