// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type RateLimitConfig struct {
	Limit  int           `yaml:"limit" envconfig:"RATE_LIMIT"`
	Window time.Duration `yaml:"window" envconfig:"RATE_LIMIT_WINDOW"`
}

type BotConfig struct {
	Token                string          `yaml:"token" envconfig:"BOT_TOKEN"`
	Workers              int             `yaml:"workers"` // polling workers
	PollTimeout          int             `yaml:"poll_timeout"`
	Language             string          `yaml:"language"`
	ProductsPerPage      int             `yaml:"products_per_page"`
	ReminderDelay        time.Duration   `yaml:"reminder_delay"`
	InvoicePayload       string          `yaml:"invoice_payload"`
	Currency             string          `yaml:"currency"`
	PaymentProviderToken string          `yaml:"payment_provider_token" envconfig:"PAYMENT_PROVIDER_TOKEN"`
	HandleTimeout        time.Duration   `yaml:"handle_timeout"`
	RateLimit            RateLimitConfig `yaml:"rate_limit"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port" envconfig:"PORT"`
}

type AdminConfig struct {
	APIKey    string        `yaml:"api_key" envconfig:"ADMIN_API_KEY"`
	JWTSecret string        `yaml:"jwt_secret" envconfig:"ADMIN_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL           string `yaml:"url" envconfig:"DATABASE_URL"`
	Migrate       bool   `yaml:"migrate"`
	EncryptionKey string `yaml:"encryption_key" envconfig:"ORDER_ENCRYPTION_KEY"` // seals delivery coordinates when set
}

type RedisConfig struct {
	URL             string        `yaml:"url" envconfig:"REDIS_URL"`
	Password        string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB              int           `yaml:"db"`
	StateTTL        time.Duration `yaml:"state_ttl"`
	CatalogTTL      time.Duration `yaml:"catalog_ttl"`
	CatalogRefresh  time.Duration `yaml:"catalog_refresh"` // 0 disables the background refresh
	DistributedLock bool          `yaml:"distributed_lock"`
	LockTTL         time.Duration `yaml:"lock_ttl"`
}

type MoltinConfig struct {
	BaseURL      string        `yaml:"base_url"`
	ClientID     string        `yaml:"client_id" envconfig:"MOLTIN_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" envconfig:"MOLTIN_CLIENT_SECRET"`
	Timeout      time.Duration `yaml:"timeout"`
	PizzeriaFlow string        `yaml:"pizzeria_flow"`
	CustomerFlow string        `yaml:"customer_flow"`
}

type GeocoderConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key" envconfig:"YANDEX_GEOCODER_API_KEY"`
	Timeout time.Duration `yaml:"timeout"`
}

type MessengerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	GraphURL    string `yaml:"graph_url"`
	AccessToken string `yaml:"access_token" envconfig:"FACEBOOK_ACCESS_TOKEN"`
	VerifyToken string `yaml:"verify_token" envconfig:"FACEBOOK_VERIFY_TOKEN"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers" envconfig:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic"`
}

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	HTTP      HTTPConfig      `yaml:"http"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Moltin    MoltinConfig    `yaml:"moltin"`
	Geocoder  GeocoderConfig  `yaml:"geocoder"`
	Messenger MessengerConfig `yaml:"messenger"`
	Kafka     KafkaConfig     `yaml:"kafka"`

	Runtime RuntimeConfig `yaml:"-"`
}

// Load reads the YAML file at path, overlays environment variables and
// applies defaults.
func Load(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// Normalize fills defaults and validates required fields.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}

	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.PollTimeout <= 0 {
		cfg.Bot.PollTimeout = 60
	}
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "ru"
	}
	if cfg.Bot.ProductsPerPage <= 0 {
		cfg.Bot.ProductsPerPage = 5
	}
	if cfg.Bot.ReminderDelay <= 0 {
		cfg.Bot.ReminderDelay = time.Hour
	}
	if cfg.Bot.InvoicePayload == "" {
		cfg.Bot.InvoicePayload = "pizzabot_payment"
	}
	cfg.Bot.Currency = strings.ToUpper(strings.TrimSpace(cfg.Bot.Currency))
	if cfg.Bot.Currency == "" {
		cfg.Bot.Currency = "RUB"
	}
	if cfg.Bot.HandleTimeout <= 0 {
		cfg.Bot.HandleTimeout = 30 * time.Second
	}
	if cfg.Bot.RateLimit.Limit <= 0 {
		cfg.Bot.RateLimit.Limit = 30
	}
	if cfg.Bot.RateLimit.Window <= 0 {
		cfg.Bot.RateLimit.Window = time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 12 * time.Hour
	}
	if cfg.Redis.StateTTL <= 0 {
		cfg.Redis.StateTTL = 30 * 24 * time.Hour
	}
	if cfg.Redis.CatalogTTL <= 0 {
		cfg.Redis.CatalogTTL = 24 * time.Hour
	}
	if cfg.Redis.LockTTL <= 0 {
		cfg.Redis.LockTTL = 30 * time.Second
	}
	if cfg.Moltin.BaseURL == "" {
		cfg.Moltin.BaseURL = "https://api.moltin.com"
	}
	cfg.Moltin.BaseURL = strings.TrimRight(cfg.Moltin.BaseURL, "/")
	if cfg.Moltin.Timeout <= 0 {
		cfg.Moltin.Timeout = 10 * time.Second
	}
	if cfg.Moltin.PizzeriaFlow == "" {
		cfg.Moltin.PizzeriaFlow = "pizzeria"
	}
	if cfg.Moltin.CustomerFlow == "" {
		cfg.Moltin.CustomerFlow = "customer_address"
	}
	if cfg.Geocoder.BaseURL == "" {
		cfg.Geocoder.BaseURL = "https://geocode-maps.yandex.ru/1.x"
	}
	if cfg.Geocoder.Timeout <= 0 {
		cfg.Geocoder.Timeout = 5 * time.Second
	}
	if cfg.Messenger.Path == "" {
		cfg.Messenger.Path = "/webhook/messenger"
	}
	if !strings.HasPrefix(cfg.Messenger.Path, "/") {
		cfg.Messenger.Path = "/" + cfg.Messenger.Path
	}
	if cfg.Messenger.GraphURL == "" {
		cfg.Messenger.GraphURL = "https://graph.facebook.com/v2.6"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "order.paid"
	}

	// Minimal validation
	if cfg.Bot.Token == "" && !cfg.Messenger.Enabled {
		return errors.New("bot.token is required unless messenger is enabled")
	}
	if cfg.Messenger.Enabled && (cfg.Messenger.AccessToken == "" || cfg.Messenger.VerifyToken == "") {
		return errors.New("messenger.access_token and messenger.verify_token are required")
	}
	if cfg.Moltin.ClientID == "" {
		return errors.New("moltin.client_id is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if cfg.Admin.APIKey != "" && cfg.Admin.JWTSecret == "" {
		return errors.New("admin.jwt_secret is required when admin.api_key is set")
	}
	return nil
}
