package telegram

import (
	"context"
	"errors"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"pizza-order-bot/internal/config"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/adapter"
)

// Platform is the Sender platform label for Telegram.
const Platform = "telegram"

// EventHandler consumes normalized events. *application.BotFacade
// implements it.
type EventHandler interface {
	HandleEvent(ctx context.Context, sender adapter.Sender, ev model.Event) error
}

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// RealTelegramBotAdapter polls updates with tgbotapi and delegates every
// update to the facade.
type RealTelegramBotAdapter struct {
	bot     botAPI
	cfg     *config.BotConfig
	handler EventHandler
	log     *zerolog.Logger

	updateWorkers int
	cancelPolling context.CancelFunc
}

func NewRealTelegramBotAdapter(cfg *config.BotConfig, handler EventHandler, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if cfg == nil {
		return nil, errors.New("bot config is nil")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return newAdapter(bot, cfg, handler, logger)
}

func newAdapter(bot botAPI, cfg *config.BotConfig, handler EventHandler, logger *zerolog.Logger) (*RealTelegramBotAdapter, error) {
	if handler == nil {
		return nil, errors.New("event handler is nil")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}
	l := logger.With().Str("component", "TelegramBot").Logger()
	return &RealTelegramBotAdapter{
		bot:           bot,
		cfg:           cfg,
		handler:       handler,
		log:           &l,
		updateWorkers: workers,
	}, nil
}

// StartPolling blocks until ctx is cancelled or StopPolling is called.
// Updates are processed by a fixed set of workers.
func (r *RealTelegramBotAdapter) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = r.cfg.PollTimeout
	updates := r.bot.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	r.cancelPolling = cancel
	defer cancel()

	var wg sync.WaitGroup
	updateChan := make(chan tgbotapi.Update, 100)

	for i := 0; i < r.updateWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for up := range updateChan {
				if err := r.handleUpdate(ctx, up); err != nil {
					r.log.Error().Err(err).Int("worker", id).Int("update_id", up.UpdateID).Msg("update failed")
				}
			}
		}(i)
	}

	r.log.Info().Int("workers", r.updateWorkers).Msg("polling started")
	defer func() {
		r.bot.StopReceivingUpdates()
		close(updateChan)
		wg.Wait()
		r.log.Info().Msg("polling stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			select {
			case updateChan <- up:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (r *RealTelegramBotAdapter) StopPolling() {
	if r.cancelPolling != nil {
		r.cancelPolling()
	}
}

func (r *RealTelegramBotAdapter) handleUpdate(ctx context.Context, up tgbotapi.Update) error {
	ev, src, ok := normalizeUpdate(up)
	if !ok {
		r.log.Debug().Int("update_id", up.UpdateID).Msg("ignoring update")
		return nil
	}
	return r.handler.HandleEvent(ctx, r.senderFor(src), ev)
}

func (r *RealTelegramBotAdapter) senderFor(src source) *updateSender {
	return &updateSender{
		bot:           r.bot,
		src:           src,
		providerToken: r.cfg.PaymentProviderToken,
		log:           r.log,
	}
}

// Sender returns a sender with no originating update, for deliveries that
// are not replies.
func (r *RealTelegramBotAdapter) Sender() adapter.Sender {
	return r.senderFor(source{})
}
