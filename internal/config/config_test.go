//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNormalize_Defaults(t *testing.T) {
	cfg := &Config{
		Bot:    BotConfig{Token: "t"},
		Moltin: MoltinConfig{ClientID: "id", BaseURL: "https://example.com/"},
		Redis:  RedisConfig{URL: "localhost:6379"},
	}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Bot.ProductsPerPage != 5 {
		t.Errorf("products_per_page = %d, want 5", cfg.Bot.ProductsPerPage)
	}
	if cfg.Bot.ReminderDelay != time.Hour {
		t.Errorf("reminder_delay = %v, want 1h", cfg.Bot.ReminderDelay)
	}
	if cfg.Bot.InvoicePayload != "pizzabot_payment" || cfg.Bot.Currency != "RUB" {
		t.Errorf("unexpected invoice defaults: %q %q", cfg.Bot.InvoicePayload, cfg.Bot.Currency)
	}
	if cfg.Moltin.BaseURL != "https://example.com" {
		t.Errorf("base_url not trimmed: %q", cfg.Moltin.BaseURL)
	}
	if cfg.Messenger.Path != "/webhook/messenger" {
		t.Errorf("messenger path = %q", cfg.Messenger.Path)
	}
	if cfg.Redis.StateTTL != 30*24*time.Hour {
		t.Errorf("state_ttl = %v", cfg.Redis.StateTTL)
	}
}

func TestNormalize_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no transport", Config{Moltin: MoltinConfig{ClientID: "id"}, Redis: RedisConfig{URL: "r"}}},
		{"messenger without tokens", Config{Messenger: MessengerConfig{Enabled: true}, Moltin: MoltinConfig{ClientID: "id"}, Redis: RedisConfig{URL: "r"}}},
		{"no moltin", Config{Bot: BotConfig{Token: "t"}, Redis: RedisConfig{URL: "r"}}},
		{"no redis", Config{Bot: BotConfig{Token: "t"}, Moltin: MoltinConfig{ClientID: "id"}}},
		{"api key without secret", Config{Bot: BotConfig{Token: "t"}, Moltin: MoltinConfig{ClientID: "id"}, Redis: RedisConfig{URL: "r"}, Admin: AdminConfig{APIKey: "k"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if err := Normalize(&cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoad_EnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := []byte("bot:\n  token: from-file\n  products_per_page: 8\nmoltin:\n  client_id: id\nredis:\n  url: localhost:6379\n")
	if err := os.WriteFile(path, yml, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Bot.Token != "from-env" {
		t.Errorf("token = %q, want env value", cfg.Bot.Token)
	}
	if cfg.Bot.ProductsPerPage != 8 {
		t.Errorf("products_per_page = %d, want 8", cfg.Bot.ProductsPerPage)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if !cfg.Runtime.Dev {
		t.Error("dev flag not propagated")
	}
}
