// File: internal/domain/ports/adapter/commerce.go
package adapter

import (
	"context"

	"pizza-order-bot/internal/domain/model"
)

// CommerceGateway is the port for the remote catalog/cart/customer API.
// Implementations classify failures as domain.ErrTransient, domain.ErrNotFound
// or domain.ErrRemote.
type CommerceGateway interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	// GetProduct fills QuantityInCart when userID is not empty.
	GetProduct(ctx context.Context, productID string, userID model.UserID) (*model.Product, error)
	ListProductsByCategory(ctx context.Context, slug string) ([]model.Product, error)
	ListCategories(ctx context.Context) ([]model.Category, error)

	AddToCart(ctx context.Context, productID string, qty int, userID model.UserID) error
	RemoveFromCart(ctx context.Context, lineID string, userID model.UserID) error
	GetCart(ctx context.Context, userID model.UserID) (*model.Cart, error)
	EmptyCart(ctx context.Context, userID model.UserID) error

	SaveCustomer(ctx context.Context, email string, meta CustomerMeta) error
	AddFlowEntry(ctx context.Context, flow string, data map[string]any) error
	GetFlowEntry(ctx context.Context, flow string, filter map[string]string) (map[string]any, error)

	ListPizzerias(ctx context.Context) ([]model.Pizzeria, error)
	GetDeliverymanContact(ctx context.Context, pizzeriaID string) (string, error)
}

// CustomerMeta describes the chat user a customer record is created for.
type CustomerMeta struct {
	UserID   model.UserID
	Username string
}
