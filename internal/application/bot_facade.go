package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/adapter"
	"pizza-order-bot/internal/infra/logging"
	"pizza-order-bot/internal/infra/metrics"
	"pizza-order-bot/internal/usecase"
)

// FacadeOptions tunes the per-event pipeline. Zero values get defaults.
type FacadeOptions struct {
	RateLimit     int
	RateWindow    time.Duration
	HandleTimeout time.Duration
	// RateKey builds the limiter key for a user on a platform.
	RateKey func(platform, userID string) string
}

func (o *FacadeOptions) normalize() {
	if o.RateLimit <= 0 {
		o.RateLimit = 30
	}
	if o.RateWindow <= 0 {
		o.RateWindow = time.Minute
	}
	if o.HandleTimeout <= 0 {
		o.HandleTimeout = 30 * time.Second
	}
	if o.RateKey == nil {
		o.RateKey = func(platform, userID string) string {
			return fmt.Sprintf("rate_limit:%s:%s", platform, userID)
		}
	}
}

// BotFacade is the single entry point for both chat transports: it rate
// limits, runs the conversation engine and delivers or schedules the
// resulting actions through the transport's Sender.
type BotFacade struct {
	engine  ConversationUseCaseIface
	render  *usecase.Renderer
	limiter RateLimiter
	sched   Scheduler
	opts    FacadeOptions
	log     *zerolog.Logger
}

// NewBotFacade wires the facade. limiter and sched may be nil; without a
// scheduler delayed actions are dropped.
func NewBotFacade(
	engine ConversationUseCaseIface,
	render *usecase.Renderer,
	limiter RateLimiter,
	sched Scheduler,
	opts FacadeOptions,
	logger *zerolog.Logger,
) *BotFacade {
	opts.normalize()
	l := logger.With().Str("component", "BotFacade").Logger()
	return &BotFacade{
		engine:  engine,
		render:  render,
		limiter: limiter,
		sched:   sched,
		opts:    opts,
		log:     &l,
	}
}

// HandleEvent processes one normalized inbound event end to end.
func (b *BotFacade) HandleEvent(ctx context.Context, sender adapter.Sender, ev model.Event) error {
	platform := sender.Platform()
	ctx = logging.WithPlatform(ctx, platform)
	ctx = logging.WithUserID(ctx, ev.UserID.String())
	if logging.TraceIDFrom(ctx) == "" {
		ctx = logging.WithTraceID(ctx, uuid.NewString())
	}
	log := logging.With(ctx, b.log)
	metrics.IncEvent(platform, string(ev.Kind))

	ctx, cancel := context.WithTimeout(ctx, b.opts.HandleTimeout)
	defer cancel()

	if !b.allow(ctx, platform, ev) {
		metrics.IncRateLimited(platform)
		log.Debug().Err(domain.ErrRateLimited).Str("kind", string(ev.Kind)).Msg("rate limited")
		return sender.Deliver(ctx, ev.UserID, []model.Action{b.render.RenderRateLimited()})
	}

	state, actions, err := b.engine.Handle(ctx, ev)
	if err != nil {
		if derr := sender.Deliver(ctx, ev.UserID, []model.Action{b.render.RenderTryAgain()}); derr != nil {
			log.Warn().Err(derr).Msg("deliver retry prompt")
		}
		return fmt.Errorf("handle event: %w", err)
	}

	now, later := splitDelayed(actions)
	log.Debug().Str("state", string(state)).Int("actions", len(now)).Int("delayed", len(later)).Msg("event handled")

	for _, a := range later {
		b.schedule(sender, ev.UserID, a)
	}
	if len(now) == 0 {
		return nil
	}
	if err := sender.Deliver(ctx, ev.UserID, now); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	return nil
}

// allow applies the limiter to user-driven events only. Payment updates are
// never throttled. Limiter failures fail open.
func (b *BotFacade) allow(ctx context.Context, platform string, ev model.Event) bool {
	if b.limiter == nil {
		return true
	}
	switch ev.Kind {
	case model.EventText, model.EventCallback, model.EventLocation:
	default:
		return true
	}
	ok, err := b.limiter.Allow(ctx, b.opts.RateKey(platform, ev.UserID.String()), b.opts.RateLimit, b.opts.RateWindow)
	if err != nil {
		logging.With(ctx, b.log).Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	return ok
}

func (b *BotFacade) schedule(sender adapter.Sender, user model.UserID, a model.Action) {
	if b.sched == nil {
		b.log.Warn().Str("user_id", user.String()).Msg("no scheduler, delayed action dropped")
		return
	}
	delay := a.Delay
	a.Delay = 0
	to := a.To(user)
	platform := sender.Platform()

	metrics.IncReminder("scheduled")
	b.sched.Schedule("reminder:"+to.String(), delay, func(ctx context.Context) error {
		ctx = logging.WithPlatform(ctx, platform)
		ctx = logging.WithUserID(ctx, to.String())
		if err := sender.Deliver(ctx, user, []model.Action{a}); err != nil {
			metrics.IncReminder("failed")
			return fmt.Errorf("deliver reminder: %w", err)
		}
		metrics.IncReminder("sent")
		return nil
	})
}

func splitDelayed(actions []model.Action) (now, later []model.Action) {
	for _, a := range actions {
		if a.Delay > 0 {
			later = append(later, a)
			continue
		}
		now = append(now, a)
	}
	return now, later
}
