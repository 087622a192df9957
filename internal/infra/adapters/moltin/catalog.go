package moltin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
)

type productDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Meta        struct {
		DisplayPrice struct {
			WithTax struct {
				Formatted string `json:"formatted"`
			} `json:"with_tax"`
		} `json:"display_price"`
		Stock struct {
			Level int `json:"level"`
		} `json:"stock"`
	} `json:"meta"`
	Relationships struct {
		MainImage struct {
			Data *struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"main_image"`
	} `json:"relationships"`
}

func (p productDTO) toModel() model.Product {
	return model.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Meta.DisplayPrice.WithTax.Formatted,
		Stock:       p.Meta.Stock.Level,
	}
}

func toProducts(in []productDTO) []model.Product {
	out := make([]model.Product, 0, len(in))
	for _, p := range in {
		out = append(out, p.toModel())
	}
	return out
}

func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var resp struct {
		Data []productDTO `json:"data"`
	}
	if err := c.call(ctx, "list_products", http.MethodGet, "/v2/products", nil, &resp); err != nil {
		return nil, err
	}
	return toProducts(resp.Data), nil
}

func (c *Client) GetProduct(ctx context.Context, productID string, user model.UserID) (*model.Product, error) {
	var resp struct {
		Data productDTO `json:"data"`
	}
	if err := c.call(ctx, "get_product", http.MethodGet, "/v2/products/"+url.PathEscape(productID), nil, &resp); err != nil {
		return nil, err
	}
	p := resp.Data.toModel()

	if img := resp.Data.Relationships.MainImage.Data; img != nil && img.ID != "" {
		href, err := c.fileURL(ctx, img.ID)
		if err != nil {
			c.logger.Warn().Err(err).Str("product", productID).Msg("main image lookup failed")
		}
		p.ImageURL = href
	}

	if user != "" {
		cart, err := c.GetCart(ctx, user)
		if err != nil {
			return nil, err
		}
		p.QuantityInCart = cart.QuantityOf(productID)
	}
	return &p, nil
}

func (c *Client) fileURL(ctx context.Context, fileID string) (string, error) {
	var resp struct {
		Data struct {
			Link struct {
				Href string `json:"href"`
			} `json:"link"`
		} `json:"data"`
	}
	if err := c.call(ctx, "get_file", http.MethodGet, "/v2/files/"+url.PathEscape(fileID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.Link.Href, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var resp struct {
		Data []model.Category `json:"data"`
	}
	if err := c.call(ctx, "list_categories", http.MethodGet, "/v2/categories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListProductsByCategory resolves the slug to a category id and filters
// products by it.
func (c *Client) ListProductsByCategory(ctx context.Context, slug string) ([]model.Product, error) {
	cats, err := c.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	var id string
	for _, cat := range cats {
		if cat.Slug == slug {
			id = cat.ID
			break
		}
	}
	if id == "" {
		return nil, fmt.Errorf("%w: category %q", domain.ErrNotFound, slug)
	}

	q := url.Values{"filter": {fmt.Sprintf("eq(category.id,%s)", id)}}
	var resp struct {
		Data []productDTO `json:"data"`
	}
	if err := c.call(ctx, "list_products_by_category", http.MethodGet, "/v2/products?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return toProducts(resp.Data), nil
}
