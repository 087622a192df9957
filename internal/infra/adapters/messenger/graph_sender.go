package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"pizza-order-bot/internal/config"
	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/adapter"
	"pizza-order-bot/internal/infra/logging"
	"pizza-order-bot/internal/infra/metrics"
	"pizza-order-bot/internal/usecase"
)

// Send API limits.
const (
	maxTemplateButtons = 3
	maxButtonText      = 640
	maxTitle           = 80
	maxButtonTitle     = 20
	moreButtonsText    = "…"
)

// InvoiceFormatter renders an invoice for a platform without native payments.
type InvoiceFormatter interface {
	InvoiceAsText(inv *model.Invoice) string
}

// GraphSender delivers actions through the Graph API Send endpoint.
// Recipients outside Messenger, such as deliverymen on Telegram, are handed
// to the fallback sender.
type GraphSender struct {
	endpoint string
	token    string
	http     *http.Client
	invoices InvoiceFormatter
	fallback adapter.Sender
	log      *zerolog.Logger
}

func NewGraphSender(cfg *config.MessengerConfig, invoices InvoiceFormatter, fallback adapter.Sender, logger *zerolog.Logger) *GraphSender {
	l := logger.With().Str("component", "MessengerSender").Logger()
	return &GraphSender{
		endpoint: strings.TrimRight(cfg.GraphURL, "/") + "/me/messages",
		token:    cfg.AccessToken,
		http:     &http.Client{Timeout: 10 * time.Second},
		invoices: invoices,
		fallback: fallback,
		log:      &l,
	}
}

func (s *GraphSender) Platform() string { return Platform }

func (s *GraphSender) Deliver(ctx context.Context, user model.UserID, actions []model.Action) error {
	var (
		errs    []error
		foreign []model.Action
	)
	for _, a := range actions {
		to := a.To(user)
		psid, ok := strings.CutPrefix(to.String(), UserPrefix)
		if !ok {
			a.Recipient = to
			foreign = append(foreign, a)
			continue
		}
		for _, msg := range s.messages(a) {
			if err := s.send(ctx, psid, msg); err != nil {
				errs = append(errs, fmt.Errorf("%s action: %w", a.Kind, err))
				break
			}
		}
	}
	if len(foreign) > 0 {
		if s.fallback == nil {
			errs = append(errs, fmt.Errorf("%w: no sender for %d foreign recipients", domain.ErrInvalidArgument, len(foreign)))
		} else if err := s.fallback.Deliver(ctx, user, foreign); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type button struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

type element struct {
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	Buttons  []button `json:"buttons,omitempty"`
}

type templatePayload struct {
	TemplateType string    `json:"template_type"`
	Text         string    `json:"text,omitempty"`
	Elements     []element `json:"elements,omitempty"`
	Buttons      []button  `json:"buttons,omitempty"`
}

type attachment struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type recipient struct {
	ID string `json:"id"`
}

type sendRequest struct {
	Recipient recipient `json:"recipient"`
	Message   message   `json:"message"`
}

type message struct {
	Text       string      `json:"text,omitempty"`
	Attachment *attachment `json:"attachment,omitempty"`
}

// messages converts one action to Send API messages. Actions without a
// Messenger counterpart yield none.
func (s *GraphSender) messages(a model.Action) []message {
	text := a.Text
	if a.Markdown {
		text = usecase.StripMarkdown(text)
	}
	buttons := flatten(a.Buttons)

	switch a.Kind {
	case model.ActionText, model.ActionNotice:
		return textMessages(text, buttons)

	case model.ActionPhoto:
		if a.PhotoURL == "" {
			return textMessages(text, buttons)
		}
		title, subtitle, _ := strings.Cut(text, "\n")
		first := buttons
		if len(first) > maxTemplateButtons {
			first = first[:maxTemplateButtons]
		}
		out := []message{{Attachment: &attachment{
			Type: "template",
			Payload: templatePayload{
				TemplateType: "generic",
				Elements: []element{{
					Title:    truncate(title, maxTitle),
					Subtitle: truncate(strings.TrimSpace(subtitle), maxTitle),
					ImageURL: a.PhotoURL,
					Buttons:  first,
				}},
			},
		}}}
		if len(buttons) > maxTemplateButtons {
			out = append(out, textMessages(moreButtonsText, buttons[maxTemplateButtons:])...)
		}
		return out

	case model.ActionInvoice:
		if a.Invoice == nil {
			return nil
		}
		return textMessages(s.invoices.InvoiceAsText(a.Invoice), buttons)

	case model.ActionLocation:
		if a.Location == nil {
			return nil
		}
		return []message{{Text: fmt.Sprintf("https://yandex.ru/maps/?pt=%f,%f&z=17", a.Location.Lon, a.Location.Lat)}}
	}
	return nil
}

// textMessages sends plain text, or button templates of at most three
// buttons each. Only the first template carries the text.
func textMessages(text string, buttons []button) []message {
	if len(buttons) == 0 {
		return []message{{Text: text}}
	}
	var out []message
	if utf8.RuneCountInString(text) > maxButtonText {
		out = append(out, message{Text: text})
		text = moreButtonsText
	}
	for len(buttons) > 0 {
		n := min(len(buttons), maxTemplateButtons)
		out = append(out, message{Attachment: &attachment{
			Type:    "template",
			Payload: templatePayload{TemplateType: "button", Text: text, Buttons: buttons[:n]},
		}})
		buttons = buttons[n:]
		text = moreButtonsText
	}
	return out
}

func flatten(rows [][]model.Button) []button {
	var out []button
	for _, row := range rows {
		for _, b := range row {
			out = append(out, button{Type: "postback", Title: truncate(b.Label, maxButtonTitle), Payload: b.Payload})
		}
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

func (s *GraphSender) send(ctx context.Context, psid string, msg message) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveGatewayCall("messenger", "send", resultLabel(err), time.Since(start)) }()

	body, err := json.Marshal(sendRequest{Recipient: recipient{ID: psid}, Message: msg})
	if err != nil {
		return err
	}

	u := s.endpoint + "?access_token=" + url.QueryEscape(s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: graph send: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	logging.With(ctx, s.log).Warn().Int("status", resp.StatusCode).Str("body", string(detail)).Msg("graph send rejected")
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("%w: graph send status %d", domain.ErrTransient, resp.StatusCode)
	}
	return fmt.Errorf("%w: graph send status %d", domain.ErrRemote, resp.StatusCode)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrTransient):
		return "transient"
	default:
		return "error"
	}
}
