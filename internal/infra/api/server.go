package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/repository"
	"pizza-order-bot/internal/infra/logging"
	"pizza-order-bot/internal/infra/metrics"
)

// ConversationAdmin is the operator view of the conversation engine.
type ConversationAdmin interface {
	Inspect(ctx context.Context, userID model.UserID) (*model.Record, error)
	Reset(ctx context.Context, userID model.UserID) error
}

// Server is the HTTP surface: health, metrics, the Messenger webhook and
// the admin API.
type Server struct {
	conv   ConversationAdmin
	orders repository.OrderRepository
	auth   *AuthManager
	apiKey string

	webhook     http.Handler
	webhookPath string

	log *zerolog.Logger
}

// Options carries the optional parts of the server. A nil Webhook or an
// empty APIKey disables the corresponding routes.
type Options struct {
	APIKey      string
	JWTSecret   string
	TokenTTL    time.Duration
	Orders      repository.OrderRepository
	Webhook     http.Handler
	WebhookPath string
}

func NewServer(conv ConversationAdmin, opts Options, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		conv:        conv,
		orders:      opts.Orders,
		auth:        NewAuthManager(opts.JWTSecret, opts.TokenTTL),
		apiKey:      opts.APIKey,
		webhook:     opts.Webhook,
		webhookPath: opts.WebhookPath,
		log:         &l,
	}
}

// Handler builds the routed handler with the common middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	if s.webhook != nil && s.webhookPath != "" {
		r.Mount(s.webhookPath, s.webhook)
	}

	if s.apiKey != "" {
		r.Route("/api/v1", func(r chi.Router) {
			r.Use(Timeout(15 * time.Second))
			r.Post("/auth/token", s.handleToken)
			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin(s.auth))
				r.Get("/conversations/{userID}", s.handleGetConversation)
				r.Delete("/conversations/{userID}", s.handleResetConversation)
				r.Get("/conversations/{userID}/orders", s.handleListOrders)
			})
		})
	}

	return Chain(r, TraceID(), Recover(s.log))
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.APIKey), []byte(s.apiKey)) != 1 {
		metrics.IncAdminRequest("/api/v1/auth/token", "forbidden")
		writeError(w, http.StatusForbidden, "invalid api key")
		return
	}
	token, exp, err := s.auth.Mint()
	if err != nil {
		logging.With(r.Context(), s.log).Error().Err(err).Msg("mint token")
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	metrics.IncAdminRequest("/api/v1/auth/token", "authorized")
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "expires_at": exp.UTC()})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	user := model.UserID(chi.URLParam(r, "userID"))
	rec, err := s.conv.Inspect(r.Context(), user)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleResetConversation(w http.ResponseWriter, r *http.Request) {
	user := model.UserID(chi.URLParam(r, "userID"))
	if err := s.conv.Reset(r.Context(), user); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	logging.With(r.Context(), s.log).Info().Str("user_id", user.String()).Msg("conversation reset by admin")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	if s.orders == nil {
		writeError(w, http.StatusNotImplemented, "order archive disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	user := model.UserID(chi.URLParam(r, "userID"))
	orders, err := s.orders.ListByUser(r.Context(), user, limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	writeJSON(w, http.StatusOK, struct {
		Data []*model.Order `json:"data"`
	}{Data: orders})
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrLockTimeout), errors.Is(err, domain.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("admin request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
