package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/repository"
)

var _ repository.CatalogCache = (*CatalogCache)(nil)

// CatalogCache keeps product lists under elements_<slug>, the key layout
// the catalog refresher has always written.
type CatalogCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewCatalogCache(client RedisClient, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		ttl:    ttl,
	}
}

func catalogKey(slug string) string { return "elements_" + slug }

func (c *CatalogCache) Get(ctx context.Context, slug string) ([]model.Product, error) {
	data, err := c.client.Get(ctx, catalogKey(slug))
	if errors.Is(err, Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var products []model.Product
	if err := json.Unmarshal([]byte(data), &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *CatalogCache) Store(ctx context.Context, slug string, products []model.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, catalogKey(slug), data, c.ttl)
}

func (c *CatalogCache) Invalidate(ctx context.Context, slugs ...string) error {
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		keys = append(keys, catalogKey(s))
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...)
}
