package adapter

import (
	"context"

	"pizza-order-bot/internal/domain/model"
)

// Geocoder resolves a free-form address. Returns domain.ErrAddressNotFound
// when nothing matches.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.Point, error)
}
