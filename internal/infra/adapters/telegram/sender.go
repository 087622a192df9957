package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/infra/logging"
)

// updateSender delivers actions in reply to one update. It answers the
// originating callback query exactly once.
type updateSender struct {
	bot           botAPI
	src           source
	providerToken string
	log           *zerolog.Logger

	mu       sync.Mutex
	answered bool
}

func (s *updateSender) Platform() string { return Platform }

func (s *updateSender) Deliver(ctx context.Context, user model.UserID, actions []model.Action) error {
	var (
		notice string
		errs   []error
	)
	pending := s.callbackPending()
	for _, a := range actions {
		if a.Kind == model.ActionNotice && pending && notice == "" {
			notice = a.Text
			continue
		}
		if err := s.deliverOne(ctx, user, a); err != nil {
			errs = append(errs, fmt.Errorf("%s action: %w", a.Kind, err))
		}
	}
	if pending {
		s.answerCallback(ctx, notice)
	}
	return errors.Join(errs...)
}

func (s *updateSender) callbackPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.callbackID != "" && !s.answered
}

// answerCallback stops the client-side spinner; failures are only logged.
func (s *updateSender) answerCallback(ctx context.Context, text string) {
	s.mu.Lock()
	if s.answered {
		s.mu.Unlock()
		return
	}
	s.answered = true
	s.mu.Unlock()

	if _, err := s.bot.Request(tgbotapi.NewCallback(s.src.callbackID, text)); err != nil {
		logging.With(ctx, s.log).Warn().Err(err).Msg("answer callback")
	}
}

func (s *updateSender) deliverOne(ctx context.Context, user model.UserID, a model.Action) error {
	chatID, err := strconv.ParseInt(a.To(user).String(), 10, 64)
	if err != nil {
		return fmt.Errorf("%w: recipient %q", domain.ErrInvalidArgument, a.To(user))
	}
	fromSource := s.src.messageID != 0 && chatID == s.src.chatID

	switch a.Kind {
	case model.ActionText, model.ActionNotice:
		if a.EditSource && fromSource && s.editSource(ctx, chatID, a) {
			return nil
		}
		msg := tgbotapi.NewMessage(chatID, a.Text)
		if a.Markdown {
			msg.ParseMode = tgbotapi.ModeMarkdownV2
		}
		if kb := keyboard(a.Buttons); kb != nil {
			msg.ReplyMarkup = *kb
		}
		if _, err := s.bot.Send(msg); err != nil {
			return err
		}

	case model.ActionPhoto:
		if a.EditSource && fromSource && s.editSource(ctx, chatID, a) {
			return nil
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(a.PhotoURL))
		photo.Caption = a.Text
		if a.Markdown {
			photo.ParseMode = tgbotapi.ModeMarkdownV2
		}
		if kb := keyboard(a.Buttons); kb != nil {
			photo.ReplyMarkup = *kb
		}
		if _, err := s.bot.Send(photo); err != nil {
			return err
		}

	case model.ActionInvoice:
		if a.Invoice == nil {
			return fmt.Errorf("%w: invoice action without invoice", domain.ErrInvalidArgument)
		}
		if _, err := s.bot.Send(s.invoice(chatID, a.Invoice)); err != nil {
			return err
		}

	case model.ActionLocation:
		if a.Location == nil {
			return fmt.Errorf("%w: location action without point", domain.ErrInvalidArgument)
		}
		if _, err := s.bot.Send(tgbotapi.NewLocation(chatID, a.Location.Lat, a.Location.Lon)); err != nil {
			return err
		}

	case model.ActionPreCheckoutAnswer:
		if a.PreCheckout == nil {
			return fmt.Errorf("%w: empty pre-checkout answer", domain.ErrInvalidArgument)
		}
		_, err := s.bot.Request(tgbotapi.PreCheckoutConfig{
			PreCheckoutQueryID: a.PreCheckout.QueryID,
			OK:                 a.PreCheckout.OK,
			ErrorMessage:       a.PreCheckout.ErrorMessage,
		})
		return err

	default:
		return fmt.Errorf("%w: unknown action kind %q", domain.ErrInvalidArgument, a.Kind)
	}

	if a.ReplaceSource && fromSource {
		s.deleteSource(ctx, chatID)
	}
	return nil
}

// editSource rewrites the originating message in place. A photo message
// can only have its caption edited. Reports false when the edit failed and
// a new message should be sent instead.
func (s *updateSender) editSource(ctx context.Context, chatID int64, a model.Action) bool {
	parseMode := ""
	if a.Markdown {
		parseMode = tgbotapi.ModeMarkdownV2
	}
	kb := keyboard(a.Buttons)

	var c tgbotapi.Chattable
	if s.src.photo {
		edit := tgbotapi.NewEditMessageCaption(chatID, s.src.messageID, a.Text)
		edit.ParseMode = parseMode
		edit.ReplyMarkup = kb
		c = edit
	} else {
		edit := tgbotapi.NewEditMessageText(chatID, s.src.messageID, a.Text)
		edit.ParseMode = parseMode
		edit.ReplyMarkup = kb
		c = edit
	}
	if _, err := s.bot.Send(c); err != nil {
		logging.With(ctx, s.log).Debug().Err(err).Msg("edit failed, sending new message")
		return false
	}
	return true
}

func (s *updateSender) deleteSource(ctx context.Context, chatID int64) {
	if _, err := s.bot.Request(tgbotapi.NewDeleteMessage(chatID, s.src.messageID)); err != nil {
		logging.With(ctx, s.log).Debug().Err(err).Msg("delete source message")
	}
}

func (s *updateSender) invoice(chatID int64, inv *model.Invoice) tgbotapi.InvoiceConfig {
	prices := make([]tgbotapi.LabeledPrice, 0, len(inv.Prices))
	for _, p := range inv.Prices {
		prices = append(prices, tgbotapi.LabeledPrice{Label: p.Label, Amount: int(p.Amount)})
	}
	description := inv.Description
	if description == "" {
		description = inv.Title
	}
	cfg := tgbotapi.NewInvoice(chatID, inv.Title, description, inv.Payload, s.providerToken, "", inv.Currency, prices)
	// the Bot API rejects a null tip list
	cfg.SuggestedTipAmounts = []int{}
	return cfg
}

func keyboard(rows [][]model.Button) *tgbotapi.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kbRows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Payload))
		}
		kbRows = append(kbRows, tgbotapi.NewInlineKeyboardRow(btns...))
	}
	if len(kbRows) == 0 {
		return nil
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(kbRows...)
	return &kb
}
