package repository

import (
	"context"

	"pizza-order-bot/internal/domain/model"
)

// OrderRepository archives paid orders.
type OrderRepository interface {
	Save(ctx context.Context, o *model.Order) error
	ListByUser(ctx context.Context, userID model.UserID, limit int) ([]*model.Order, error)
}
