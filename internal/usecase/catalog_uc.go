package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/adapter"
	"pizza-order-bot/internal/domain/ports/repository"
	"pizza-order-bot/internal/infra/metrics"
)

// AllProductsSlug keys the full catalog in the cache.
const AllProductsSlug = "all"

var _ adapter.CommerceGateway = (*CachedCatalog)(nil)

// CachedCatalog serves product lists from the catalog cache and falls back
// to the gateway on a miss. Everything else goes straight to the gateway.
type CachedCatalog struct {
	adapter.CommerceGateway
	cache  repository.CatalogCache
	logger *zerolog.Logger
}

func NewCachedCatalog(gw adapter.CommerceGateway, cache repository.CatalogCache, logger *zerolog.Logger) *CachedCatalog {
	l := logger.With().Str("component", "CachedCatalog").Logger()
	return &CachedCatalog{CommerceGateway: gw, cache: cache, logger: &l}
}

func (c *CachedCatalog) ListProducts(ctx context.Context) ([]model.Product, error) {
	return c.cached(ctx, AllProductsSlug, c.CommerceGateway.ListProducts)
}

func (c *CachedCatalog) ListProductsByCategory(ctx context.Context, slug string) ([]model.Product, error) {
	return c.cached(ctx, slug, func(ctx context.Context) ([]model.Product, error) {
		return c.CommerceGateway.ListProductsByCategory(ctx, slug)
	})
}

func (c *CachedCatalog) cached(ctx context.Context, slug string, load func(context.Context) ([]model.Product, error)) ([]model.Product, error) {
	products, err := c.cache.Get(ctx, slug)
	if err == nil {
		metrics.IncCatalogCache(true)
		return products, nil
	}
	metrics.IncCatalogCache(false)
	if !errors.Is(err, domain.ErrNotFound) {
		c.logger.Warn().Err(err).Str("slug", slug).Msg("catalog cache read")
	}

	products, err = load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Store(ctx, slug, products); err != nil {
		c.logger.Warn().Err(err).Str("slug", slug).Msg("catalog cache write")
	}
	return products, nil
}

// Refresh reloads the full catalog and every category into the cache and
// returns the number of lists stored.
func (c *CachedCatalog) Refresh(ctx context.Context) (int, error) {
	all, err := c.CommerceGateway.ListProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list products: %w", err)
	}
	if err := c.cache.Store(ctx, AllProductsSlug, all); err != nil {
		return 0, fmt.Errorf("store %s: %w", AllProductsSlug, err)
	}
	stored := 1

	categories, err := c.CommerceGateway.ListCategories(ctx)
	if err != nil {
		return stored, fmt.Errorf("list categories: %w", err)
	}
	var errs []error
	for _, cat := range categories {
		products, err := c.CommerceGateway.ListProductsByCategory(ctx, cat.Slug)
		if err != nil {
			errs = append(errs, fmt.Errorf("category %s: %w", cat.Slug, err))
			continue
		}
		if err := c.cache.Store(ctx, cat.Slug, products); err != nil {
			errs = append(errs, fmt.Errorf("store %s: %w", cat.Slug, err))
			continue
		}
		stored++
		c.logger.Debug().Str("slug", cat.Slug).Int("products", len(products)).Msg("category cached")
	}
	return stored, errors.Join(errs...)
}
