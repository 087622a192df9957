package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"pizza-order-bot/internal/config"
	"pizza-order-bot/internal/infra/adapters/moltin"
	"pizza-order-bot/internal/infra/logging"
	red "pizza-order-bot/internal/infra/redis"
	"pizza-order-bot/internal/usecase"
)

// catalog-sync loads every product list from Moltin into the Redis cache.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall sync deadline")
	invalidate := flag.Bool("invalidate", false, "drop cached lists before reloading")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.Load(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	cache := red.NewCatalogCache(redisClient, cfg.Redis.CatalogTTL)

	// ---- Moltin ----
	gw, err := moltin.New(&cfg.Moltin, logger)
	if err != nil {
		log.Fatalf("moltin: %v", err)
	}

	if *invalidate {
		categories, err := gw.ListCategories(ctx)
		if err != nil {
			log.Fatalf("list categories: %v", err)
		}
		slugs := []string{usecase.AllProductsSlug}
		for _, c := range categories {
			slugs = append(slugs, c.Slug)
		}
		if err := cache.Invalidate(ctx, slugs...); err != nil {
			log.Fatalf("invalidate: %v", err)
		}
		fmt.Printf("invalidated %d cached lists\n", len(slugs))
	}

	stored, err := usecase.NewCachedCatalog(gw, cache, logger).Refresh(ctx)
	if err != nil {
		fmt.Printf("stored %d lists with errors: %v\n", stored, err)
		log.Fatalf("catalog sync incomplete")
	}
	fmt.Printf("stored %d product lists (ttl=%s)\n", stored, cfg.Redis.CatalogTTL)

	pizzerias, err := gw.ListPizzerias(ctx)
	if err != nil {
		log.Fatalf("list pizzerias: %v", err)
	}
	fmt.Printf("%d pizzerias available for delivery\n", len(pizzerias))
	for _, p := range pizzerias {
		fmt.Printf("  - %s (%s)\n", p.Address, p.ID)
	}
}
