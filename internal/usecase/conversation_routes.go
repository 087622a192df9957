package usecase

import (
	"context"
	"strconv"
	"strings"

	"pizza-order-bot/internal/domain/model"
)

type handlerFunc func(e *ConversationEngine, ctx context.Context, t *turn) (model.State, []model.Action, error)

type route struct {
	name   string
	state  model.State // empty matches any state
	match  func(ev model.Event) bool
	handle handlerFunc
}

// transitionTable lists transitions in priority order; the first match wins.
func transitionTable() []route {
	return []route{
		{"start_command", "", isStartCommand, (*ConversationEngine).enterStart},
		{"start_entry", model.StateStart, notPayment, (*ConversationEngine).enterStart},

		{"menu_cart", model.StateMenu, callbackEq(cbCart), (*ConversationEngine).showCart},
		{"menu_page", model.StateMenu, isPageCallback, (*ConversationEngine).showPage},
		{"menu_category", model.StateMenu, callbackPrefix(cbCategoryPrefix), (*ConversationEngine).selectCategory},
		{"menu_product", model.StateMenu, isProductCallback, (*ConversationEngine).showProduct},

		{"product_add", model.StateProduct, callbackPrefix(cbAddPrefix), (*ConversationEngine).addToCart},
		{"product_cart", model.StateProduct, callbackEq(cbCart), (*ConversationEngine).showCart},
		{"product_back", model.StateProduct, callbackEq(cbBack), (*ConversationEngine).backToMenu},
		{"product_other", model.StateProduct, isProductCallback, (*ConversationEngine).showProduct},

		{"cart_checkout", model.StateCart, callbackEq(cbAddress), (*ConversationEngine).askAddress},
		{"cart_back", model.StateCart, callbackEq(cbBack), (*ConversationEngine).backToMenu},
		{"cart_refresh", model.StateCart, callbackEq(cbCart), (*ConversationEngine).showCart},
		{"cart_remove", model.StateCart, isProductCallback, (*ConversationEngine).removeLine},

		{"location_shared", model.StateAwaitLocation, isLocation, (*ConversationEngine).onLocation},
		{"location_address", model.StateAwaitLocation, isPlainText, (*ConversationEngine).onAddressText},

		{"delivery_address", model.StateDelivery, callbackEq(cbAddress), (*ConversationEngine).askAddress},
		{"delivery_choice", model.StateDelivery, isDeliveryCallback, (*ConversationEngine).chooseDelivery},

		{"payment_pay", model.StatePayment, callbackEq(cbPay), (*ConversationEngine).requestInvoice},
		{"payment_pre_checkout", model.StatePayment, kindIs(model.EventPreCheckout), (*ConversationEngine).answerPreCheckout},
		{"payment_succeeded", model.StatePayment, kindIs(model.EventSuccessfulPayment), (*ConversationEngine).onSuccessfulPayment},

		{"finish_again", model.StateFinish, callbackIn(cbAgain, cbNewOrder), (*ConversationEngine).restart},

		// The provider has charged the user already and the query must
		// always be answered, whatever the state. start_entry leaves both
		// kinds to these rows.
		{"late_payment", "", kindIs(model.EventSuccessfulPayment), (*ConversationEngine).onSuccessfulPayment},
		{"stray_pre_checkout", "", kindIs(model.EventPreCheckout), (*ConversationEngine).rejectPreCheckout},
	}
}

// defaultHandlers run when nothing in the table matches. States without a
// default re-enter start.
func defaultHandlers() map[model.State]handlerFunc {
	return map[model.State]handlerFunc{
		model.StateAwaitLocation: (*ConversationEngine).repeatAddressPrompt,
		model.StateDelivery:      (*ConversationEngine).repeatDeliveryOptions,
		model.StatePayment:       (*ConversationEngine).repeatPaymentPrompt,
		model.StateFinish:        (*ConversationEngine).repeatFinishPrompt,
	}
}

func notPayment(ev model.Event) bool {
	return ev.Kind != model.EventPreCheckout && ev.Kind != model.EventSuccessfulPayment
}

func kindIs(k model.EventKind) func(model.Event) bool {
	return func(ev model.Event) bool { return ev.Kind == k }
}

func isStartCommand(ev model.Event) bool {
	if ev.Kind != model.EventText {
		return false
	}
	f := strings.Fields(ev.Text)
	return len(f) > 0 && (f[0] == "/start" || strings.HasPrefix(f[0], "/start@"))
}

func callbackEq(data string) func(model.Event) bool {
	return func(ev model.Event) bool { return ev.Kind == model.EventCallback && ev.Data == data }
}

func callbackIn(values ...string) func(model.Event) bool {
	return func(ev model.Event) bool {
		if ev.Kind != model.EventCallback {
			return false
		}
		for _, v := range values {
			if ev.Data == v {
				return true
			}
		}
		return false
	}
}

func callbackPrefix(prefix string) func(model.Event) bool {
	return func(ev model.Event) bool {
		return ev.Kind == model.EventCallback && strings.HasPrefix(ev.Data, prefix) && len(ev.Data) > len(prefix)
	}
}

func pageNumber(data string) (int, bool) {
	if !strings.HasPrefix(data, cbPagePrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(data, cbPagePrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func isPageCallback(ev model.Event) bool {
	if ev.Kind != model.EventCallback {
		return false
	}
	_, ok := pageNumber(ev.Data)
	return ok
}

// isProductCallback matches an opaque id: a product id in the catalog or a
// cart line id in the cart view.
func isProductCallback(ev model.Event) bool {
	if ev.Kind != model.EventCallback || ev.Data == "" {
		return false
	}
	switch ev.Data {
	case cbCart, cbBack, cbAddress, cbPay, cbAgain, cbNewOrder:
		return false
	}
	if strings.HasPrefix(ev.Data, cbAddPrefix) || strings.HasPrefix(ev.Data, cbCategoryPrefix) {
		return false
	}
	_, isPage := pageNumber(ev.Data)
	return !isPage
}

func isDeliveryCallback(ev model.Event) bool {
	if ev.Kind != model.EventCallback {
		return false
	}
	_, ok := model.ParseDeliveryType(ev.Data)
	return ok
}

func isLocation(ev model.Event) bool {
	return ev.Kind == model.EventLocation && ev.Location != nil
}

func isPlainText(ev model.Event) bool {
	return ev.Kind == model.EventText && strings.TrimSpace(ev.Text) != "" && !strings.HasPrefix(ev.Text, "/")
}
