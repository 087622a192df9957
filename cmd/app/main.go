// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pizza-order-bot/internal/application"
	"pizza-order-bot/internal/config"
	"pizza-order-bot/internal/domain/ports/adapter"
	"pizza-order-bot/internal/domain/ports/repository"
	"pizza-order-bot/internal/infra/adapters/events"
	"pizza-order-bot/internal/infra/adapters/geocoder"
	"pizza-order-bot/internal/infra/adapters/messenger"
	"pizza-order-bot/internal/infra/adapters/moltin"
	tele "pizza-order-bot/internal/infra/adapters/telegram"
	"pizza-order-bot/internal/infra/api"
	pg "pizza-order-bot/internal/infra/db/postgres"
	"pizza-order-bot/internal/infra/i18n"
	"pizza-order-bot/internal/infra/logging"
	"pizza-order-bot/internal/infra/metrics"
	red "pizza-order-bot/internal/infra/redis"
	"pizza-order-bot/internal/infra/sched"
	"pizza-order-bot/internal/infra/scheduler"
	"pizza-order-bot/internal/infra/security"
	"pizza-order-bot/internal/infra/worker"
	"pizza-order-bot/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

var _ usecase.Locker = (*red.RedisLocker)(nil)

func main() {
	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, no sampling)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("app stopped with error")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	states := red.NewStateRepo(redisClient, cfg.Redis.StateTTL)
	rateLimiter := red.NewRateLimiter(redisClient)
	catalogCache := red.NewCatalogCache(redisClient, cfg.Redis.CatalogTTL)

	var locker usecase.Locker = usecase.NewKeyLocker()
	if cfg.Redis.DistributedLock {
		locker = red.NewLocker(redisClient, cfg.Redis.LockTTL, logger)
		logger.Info().Dur("ttl", cfg.Redis.LockTTL).Msg("using redis conversation lock")
	}

	// ---- Postgres order archive (optional) ----
	var orders repository.OrderRepository
	if cfg.Database.URL != "" {
		if cfg.Database.Migrate {
			if err := pg.Migrate(cfg.Database.URL, logger); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		pool, err := pg.Connect(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		go pg.ReportPoolStats(ctx, pool, 30*time.Second, logger)

		var enc *security.EncryptionService
		if cfg.Database.EncryptionKey != "" {
			if enc, err = security.NewEncryptionService(cfg.Database.EncryptionKey); err != nil {
				return fmt.Errorf("order encryption: %w", err)
			}
		}
		orders = pg.NewOrderRepo(pool, enc)
	}

	// ---- Order events ----
	var publisher adapter.EventPublisher = events.NewNoopPublisher(logger)
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers)
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
		defer func() {
			if err := kp.Close(); err != nil {
				logger.Warn().Err(err).Msg("close kafka writers")
			}
		}()
		publisher = kp
	}

	// ---- Remote services ----
	moltinClient, err := moltin.New(&cfg.Moltin, logger)
	if err != nil {
		return fmt.Errorf("moltin: %w", err)
	}
	gateway := usecase.NewCachedCatalog(moltinClient, catalogCache, logger)
	if cfg.Redis.CatalogRefresh > 0 {
		refresher := scheduler.NewScheduler(cfg.Redis.CatalogRefresh, gateway, logger)
		refresher.Start(ctx, true)
		defer refresher.Stop()
	}

	geo, err := geocoder.NewYandex(&cfg.Geocoder)
	if err != nil {
		return fmt.Errorf("geocoder: %w", err)
	}

	// ---- Conversation engine ----
	texts, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Bot.Language)
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}
	logger.Info().Str("lang", texts.Lang()).Msg("texts loaded")
	render := usecase.NewRenderer(texts, cfg.Bot.ProductsPerPage)
	engine := usecase.NewConversationEngine(states, gateway, geo, locker, render, usecase.EngineOptions{
		Currency:       cfg.Bot.Currency,
		InvoicePayload: cfg.Bot.InvoicePayload,
		ReminderDelay:  cfg.Bot.ReminderDelay,
		CustomerFlow:   cfg.Moltin.CustomerFlow,
		Orders:         orders,
		Events:         publisher,
		EventsTopic:    cfg.Kafka.Topic,
	}, logger)

	// ---- Reminders ----
	pool := worker.NewPool(cfg.Bot.Workers, logger)
	pool.Start(ctx)
	defer pool.Stop()
	reminders := sched.NewReminderScheduler(pool, logger)
	defer reminders.Stop()

	// ---- Facade ----
	facade := application.NewBotFacade(engine, render, rateLimiter, reminders, application.FacadeOptions{
		RateLimit:     cfg.Bot.RateLimit.Limit,
		RateWindow:    cfg.Bot.RateLimit.Window,
		HandleTimeout: cfg.Bot.HandleTimeout,
		RateKey:       red.UserEventKey,
	}, logger)

	errc := make(chan error, 2)

	// ---- Telegram ----
	var telegramSender adapter.Sender
	if cfg.Bot.Token != "" {
		bot, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, facade, logger)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		telegramSender = bot.Sender()
		go func() {
			if err := bot.StartPolling(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errc <- fmt.Errorf("telegram polling: %w", err)
			}
		}()
	}

	// ---- Messenger ----
	var webhook http.Handler
	if cfg.Messenger.Enabled {
		fb := messenger.NewGraphSender(&cfg.Messenger, render, telegramSender, logger)
		webhook = messenger.NewWebhook(cfg.Messenger.VerifyToken, facade, fb, logger).Routes()
		logger.Info().Str("path", cfg.Messenger.Path).Msg("messenger webhook enabled")
	}

	// ---- HTTP ----
	srv := api.NewServer(engine, api.Options{
		APIKey:      cfg.Admin.APIKey,
		JWTSecret:   cfg.Admin.JWTSecret,
		TokenTTL:    cfg.Admin.TokenTTL,
		Orders:      orders,
		Webhook:     webhook,
		WebhookPath: cfg.Messenger.Path,
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()

	// ---- Graceful shutdown ----
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case runErr = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	return runErr
}
