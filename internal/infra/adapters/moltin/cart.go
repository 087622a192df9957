package moltin

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"pizza-order-bot/internal/domain/model"
)

type cartItemDTO struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	Value       struct {
		Amount decimal.Decimal `json:"amount"`
	} `json:"value"`
	Meta struct {
		DisplayPrice struct {
			WithTax struct {
				Unit struct {
					Formatted string `json:"formatted"`
				} `json:"unit"`
				Value struct {
					Formatted string `json:"formatted"`
				} `json:"value"`
			} `json:"with_tax"`
		} `json:"display_price"`
	} `json:"meta"`
}

func (it cartItemDTO) toModel() model.CartLine {
	formatted := it.Meta.DisplayPrice.WithTax.Value.Formatted
	if formatted == "" {
		formatted = it.Value.Amount.String() + " ₽"
	}
	return model.CartLine{
		ID:             it.ID,
		ProductID:      it.ProductID,
		Name:           it.Name,
		Description:    it.Description,
		UnitPrice:      it.Meta.DisplayPrice.WithTax.Unit.Formatted,
		Quantity:       it.Quantity,
		Total:          it.Value.Amount,
		TotalFormatted: formatted,
	}
}

func cartPath(user model.UserID) string {
	return "/v2/carts/" + url.PathEscape(user.String())
}

func (c *Client) GetCart(ctx context.Context, user model.UserID) (*model.Cart, error) {
	var resp struct {
		Data []cartItemDTO `json:"data"`
		Meta struct {
			DisplayPrice struct {
				WithTax struct {
					Formatted string `json:"formatted"`
				} `json:"with_tax"`
			} `json:"display_price"`
		} `json:"meta"`
	}
	if err := c.call(ctx, "get_cart", http.MethodGet, cartPath(user)+"/items", nil, &resp); err != nil {
		return nil, err
	}
	cart := &model.Cart{Total: resp.Meta.DisplayPrice.WithTax.Formatted}
	for _, it := range resp.Data {
		cart.Lines = append(cart.Lines, it.toModel())
	}
	return cart, nil
}

func (c *Client) AddToCart(ctx context.Context, productID string, qty int, user model.UserID) error {
	body := map[string]any{
		"data": map[string]any{
			"id":       productID,
			"type":     "cart_item",
			"quantity": qty,
		},
	}
	return c.call(ctx, "add_to_cart", http.MethodPost, cartPath(user)+"/items", body, nil)
}

func (c *Client) RemoveFromCart(ctx context.Context, lineID string, user model.UserID) error {
	return c.call(ctx, "remove_from_cart", http.MethodDelete, cartPath(user)+"/items/"+url.PathEscape(lineID), nil, nil)
}

func (c *Client) EmptyCart(ctx context.Context, user model.UserID) error {
	return c.call(ctx, "empty_cart", http.MethodDelete, cartPath(user), nil, nil)
}
