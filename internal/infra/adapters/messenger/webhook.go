package messenger

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/adapter"
	"pizza-order-bot/internal/infra/logging"
)

// Platform is the Sender platform label for Messenger.
const Platform = "messenger"

// UserPrefix namespaces Messenger PSIDs so they never collide with
// Telegram chat ids in the shared state store and cart references.
const UserPrefix = "facebookid_"

// EventHandler consumes normalized events. *application.BotFacade
// implements it.
type EventHandler interface {
	HandleEvent(ctx context.Context, sender adapter.Sender, ev model.Event) error
}

// Webhook serves the Messenger platform callback URL.
type Webhook struct {
	verifyToken string
	handler     EventHandler
	sender      adapter.Sender
	log         *zerolog.Logger
}

func NewWebhook(verifyToken string, handler EventHandler, sender adapter.Sender, logger *zerolog.Logger) *Webhook {
	l := logger.With().Str("component", "MessengerWebhook").Logger()
	return &Webhook{verifyToken: verifyToken, handler: handler, sender: sender, log: &l}
}

// Routes returns a router to mount at the configured webhook path.
func (h *Webhook) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.verify)
	r.Post("/", h.receive)
	return r
}

func (h *Webhook) verify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.challenge") == "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return
	}
	if q.Get("hub.verify_token") != h.verifyToken {
		http.Error(w, "Verification token mismatch", http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(q.Get("hub.challenge")))
}

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []messagingEvent `json:"messaging"`
	} `json:"entry"`
}

type messagingEvent struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message *struct {
		Text       string `json:"text"`
		IsEcho     bool   `json:"is_echo"`
		QuickReply *struct {
			Payload string `json:"payload"`
		} `json:"quick_reply"`
		Attachments []struct {
			Type    string `json:"type"`
			Payload struct {
				Coordinates *struct {
					Lat  float64 `json:"lat"`
					Long float64 `json:"long"`
				} `json:"coordinates"`
			} `json:"payload"`
		} `json:"attachments"`
	} `json:"message"`
	Postback *struct {
		Payload string `json:"payload"`
	} `json:"postback"`
}

// receive always answers 200 once the body parses; the platform retries
// otherwise and would replay already handled events.
func (h *Webhook) receive(w http.ResponseWriter, r *http.Request) {
	var p webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if p.Object != "page" {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	for _, entry := range p.Entry {
		for _, me := range entry.Messaging {
			ev, ok := normalize(me)
			if !ok {
				continue
			}
			if err := h.handler.HandleEvent(ctx, h.sender, ev); err != nil {
				logging.With(ctx, h.log).Error().Err(err).Str("user_id", ev.UserID.String()).Msg("messenger event failed")
			}
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func normalize(me messagingEvent) (model.Event, bool) {
	if me.Sender.ID == "" {
		return model.Event{}, false
	}
	user := model.UserID(UserPrefix + me.Sender.ID)

	if me.Postback != nil {
		return model.CallbackEvent(user, me.Postback.Payload), true
	}
	m := me.Message
	if m == nil || m.IsEcho {
		return model.Event{}, false
	}
	if m.QuickReply != nil && m.QuickReply.Payload != "" {
		return model.CallbackEvent(user, m.QuickReply.Payload), true
	}
	for _, a := range m.Attachments {
		if a.Type == "location" && a.Payload.Coordinates != nil {
			c := a.Payload.Coordinates
			return model.LocationEvent(user, model.Point{Lon: c.Long, Lat: c.Lat}), true
		}
	}
	if strings.TrimSpace(m.Text) != "" {
		return model.TextEvent(user, m.Text), true
	}
	return model.Event{}, false
}
