package repository

import (
	"context"

	"pizza-order-bot/internal/domain/model"
)

// CatalogCache stores product lists keyed by category slug. Get returns
// domain.ErrNotFound on a miss.
type CatalogCache interface {
	Get(ctx context.Context, slug string) ([]model.Product, error)
	Store(ctx context.Context, slug string, products []model.Product) error
}
