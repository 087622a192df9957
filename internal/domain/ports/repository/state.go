package repository

import (
	"context"

	"pizza-order-bot/internal/domain/model"
)

// StateRepository is the port for the per-user conversation record.
// Get returns domain.ErrNotFound when the user has no record yet.
type StateRepository interface {
	Get(ctx context.Context, userID model.UserID) (*model.Record, error)
	Set(ctx context.Context, userID model.UserID, rec *model.Record) error
	Clear(ctx context.Context, userID model.UserID) error
}
