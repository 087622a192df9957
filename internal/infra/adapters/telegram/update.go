package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pizza-order-bot/internal/domain/model"
)

// source identifies the update a reply belongs to.
type source struct {
	chatID     int64
	messageID  int
	photo      bool
	callbackID string
}

// normalizeUpdate maps a Telegram update to an Event. ok is false for
// update kinds the bot does not handle.
func normalizeUpdate(up tgbotapi.Update) (model.Event, source, bool) {
	switch {
	case up.CallbackQuery != nil:
		q := up.CallbackQuery
		src := source{callbackID: q.ID}
		if q.Message != nil && q.Message.Chat != nil {
			src.chatID = q.Message.Chat.ID
			src.messageID = q.Message.MessageID
			src.photo = len(q.Message.Photo) > 0
		} else if q.From != nil {
			src.chatID = q.From.ID
		}
		if src.chatID == 0 {
			return model.Event{}, source{}, false
		}
		return model.CallbackEvent(userID(src.chatID), q.Data), src, true

	case up.PreCheckoutQuery != nil:
		q := up.PreCheckoutQuery
		if q.From == nil {
			return model.Event{}, source{}, false
		}
		src := source{chatID: q.From.ID}
		return model.Event{
			UserID: userID(src.chatID),
			Kind:   model.EventPreCheckout,
			PreCheckout: &model.PreCheckout{
				QueryID:     q.ID,
				Payload:     q.InvoicePayload,
				Currency:    q.Currency,
				TotalAmount: q.TotalAmount,
			},
		}, src, true

	case up.Message != nil && up.Message.Chat != nil:
		m := up.Message
		src := source{chatID: m.Chat.ID}
		user := userID(m.Chat.ID)
		switch {
		case m.SuccessfulPayment != nil:
			p := m.SuccessfulPayment
			return model.Event{
				UserID: user,
				Kind:   model.EventSuccessfulPayment,
				Payment: &model.SuccessfulPayment{
					Payload:          p.InvoicePayload,
					Currency:         p.Currency,
					TotalAmount:      p.TotalAmount,
					ProviderChargeID: p.ProviderPaymentChargeID,
				},
			}, src, true
		case m.Location != nil:
			return model.LocationEvent(user, model.Point{Lon: m.Location.Longitude, Lat: m.Location.Latitude}), src, true
		case m.Text != "":
			return model.TextEvent(user, m.Text), src, true
		}
	}
	return model.Event{}, source{}, false
}

func userID(chatID int64) model.UserID {
	return model.UserID(strconv.FormatInt(chatID, 10))
}
