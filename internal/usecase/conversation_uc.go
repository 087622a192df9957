package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/adapter"
	"pizza-order-bot/internal/domain/ports/repository"
	"pizza-order-bot/internal/infra/logging"
	"pizza-order-bot/internal/infra/metrics"
)

// Compile-time check
var _ ConversationUseCase = (*ConversationEngine)(nil)

type ConversationUseCase interface {
	Handle(ctx context.Context, ev model.Event) (model.State, []model.Action, error)
	Inspect(ctx context.Context, userID model.UserID) (*model.Record, error)
	Reset(ctx context.Context, userID model.UserID) error
}

// EngineOptions carries settings and optional collaborators. Orders and
// Events may be nil.
type EngineOptions struct {
	Currency       string
	InvoicePayload string
	ReminderDelay  time.Duration
	CustomerFlow   string

	Orders      repository.OrderRepository
	Events      adapter.EventPublisher
	EventsTopic string

	Now func() time.Time
}

func (o *EngineOptions) normalize() {
	if o.Currency == "" {
		o.Currency = "RUB"
	}
	if o.InvoicePayload == "" {
		o.InvoicePayload = "pizzabot_payment"
	}
	if o.ReminderDelay <= 0 {
		o.ReminderDelay = time.Hour
	}
	if o.CustomerFlow == "" {
		o.CustomerFlow = "customer_address"
	}
	if o.EventsTopic == "" {
		o.EventsTopic = "order.paid"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// ConversationEngine drives the per-user pizza-order dialogue. Each event
// is handled under a per-user lock: load record, dispatch, save record.
type ConversationEngine struct {
	states   repository.StateRepository
	gateway  adapter.CommerceGateway
	geocoder adapter.Geocoder
	locker   Locker
	render   *Renderer
	opts     EngineOptions
	logger   *zerolog.Logger

	routes   []route
	defaults map[model.State]handlerFunc
}

func NewConversationEngine(
	states repository.StateRepository,
	gateway adapter.CommerceGateway,
	geocoder adapter.Geocoder,
	locker Locker,
	render *Renderer,
	opts EngineOptions,
	logger *zerolog.Logger,
) *ConversationEngine {
	opts.normalize()
	if locker == nil {
		locker = NewKeyLocker()
	}
	l := logger.With().Str("component", "ConversationEngine").Logger()
	return &ConversationEngine{
		states:   states,
		gateway:  gateway,
		geocoder: geocoder,
		locker:   locker,
		render:   render,
		opts:     opts,
		logger:   &l,
		routes:   transitionTable(),
		defaults: defaultHandlers(),
	}
}

// turn is the mutable context of one handled event.
type turn struct {
	ev      model.Event
	state   model.State
	session model.Session
}

func lockKey(user model.UserID) string { return "conv_lock:" + user.String() }

// Handle processes one inbound event and returns the persisted next state
// with the actions to deliver. Handler failures become a retry prompt; the
// error return is reserved for state store and lock failures.
func (e *ConversationEngine) Handle(ctx context.Context, ev model.Event) (model.State, []model.Action, error) {
	if ev.UserID == "" {
		return "", nil, fmt.Errorf("%w: empty user id", domain.ErrInvalidArgument)
	}
	ctx = logging.WithUserID(ctx, ev.UserID.String())
	defer logging.TraceDuration(logging.With(ctx, e.logger), "ConversationEngine.Handle")()

	unlock, err := e.locker.Lock(ctx, lockKey(ev.UserID))
	if err != nil {
		return "", nil, err
	}
	defer unlock()

	rec, err := e.load(ctx, ev.UserID)
	if err != nil {
		return "", nil, err
	}

	t := &turn{ev: ev, state: rec.State, session: rec.Session}
	next, actions := e.dispatch(ctx, t)

	// Restart lands in start, whose entry runs right away.
	if next == model.StateStart && t.state != model.StateStart {
		t.state = model.StateStart
		var more []model.Action
		next, more = e.run(ctx, "start_entry", (*ConversationEngine).enterStart, t)
		actions = append(actions, more...)
	}

	if err := e.states.Set(ctx, ev.UserID, &model.Record{State: next, Session: t.session}); err != nil {
		return "", nil, fmt.Errorf("save state: %w", err)
	}
	metrics.IncTransition(string(rec.State), string(next))
	return next, actions, nil
}

func (e *ConversationEngine) load(ctx context.Context, user model.UserID) (*model.Record, error) {
	rec, err := e.states.Get(ctx, user)
	if errors.Is(err, domain.ErrNotFound) {
		return &model.Record{State: model.StateStart}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if !rec.State.Valid() {
		metrics.IncInvalidState()
		logging.With(ctx, e.logger).Warn().
			Err(domain.ErrInvalidState).
			Str("stored", string(rec.State)).
			Msg("resetting conversation")
		return &model.Record{State: model.StateStart}, nil
	}
	return rec, nil
}

func (e *ConversationEngine) dispatch(ctx context.Context, t *turn) (model.State, []model.Action) {
	for _, r := range e.routes {
		if r.state != "" && r.state != t.state {
			continue
		}
		if r.match(t.ev) {
			return e.run(ctx, r.name, r.handle, t)
		}
	}

	metrics.IncUnroutable(string(t.state))
	logging.With(ctx, e.logger).Debug().
		Err(domain.ErrUnroutable).
		Str("state", string(t.state)).
		Str("kind", string(t.ev.Kind)).
		Str("data", t.ev.Data).
		Msg("falling back")

	if h, ok := e.defaults[t.state]; ok {
		return e.run(ctx, "default_"+string(t.state), h, t)
	}
	return e.run(ctx, "restart", (*ConversationEngine).enterStart, t)
}

// run executes a handler. On failure the session is rolled back and the
// state is kept.
func (e *ConversationEngine) run(ctx context.Context, name string, h handlerFunc, t *turn) (model.State, []model.Action) {
	saved := t.session
	next, actions, err := h(e, ctx, t)
	if err != nil {
		t.session = saved
		metrics.IncHandlerFailure(name)
		logging.With(ctx, e.logger).Error().Err(err).
			Str("handler", name).
			Str("state", string(t.state)).
			Msg("handler failed")
		return t.state, []model.Action{e.render.RenderTryAgain()}
	}
	return next, actions
}

// Inspect returns the stored record, normalized the way Handle would see it.
func (e *ConversationEngine) Inspect(ctx context.Context, user model.UserID) (*model.Record, error) {
	return e.load(ctx, user)
}

// Reset rewrites the user's record to the start state.
func (e *ConversationEngine) Reset(ctx context.Context, user model.UserID) error {
	unlock, err := e.locker.Lock(ctx, lockKey(user))
	if err != nil {
		return err
	}
	defer unlock()
	if err := e.states.Set(ctx, user, &model.Record{State: model.StateStart}); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	return nil
}

// retryOnce repeats fn a single time on a transient failure.
func retryOnce[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if errors.Is(err, domain.ErrTransient) && ctx.Err() == nil {
		v, err = fn(ctx)
	}
	return v, err
}
