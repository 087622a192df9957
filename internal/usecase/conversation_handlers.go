package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/infra/logging"
	"pizza-order-bot/internal/infra/metrics"
)

func (e *ConversationEngine) enterStart(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	t.session.Reset()
	return e.showCatalog(ctx, t, "", 0)
}

func (e *ConversationEngine) restart(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	return model.StateStart, nil, nil
}

func (e *ConversationEngine) showCatalog(ctx context.Context, t *turn, category string, page int) (model.State, []model.Action, error) {
	var (
		products []model.Product
		err      error
	)
	if category == "" {
		products, err = retryOnce(ctx, e.gateway.ListProducts)
	} else {
		products, err = retryOnce(ctx, func(ctx context.Context) ([]model.Product, error) {
			return e.gateway.ListProductsByCategory(ctx, category)
		})
	}
	if err != nil {
		return "", nil, fmt.Errorf("list products: %w", err)
	}

	log := logging.With(ctx, e.logger)

	// Categories and the cart only decorate the page.
	categories, err := retryOnce(ctx, e.gateway.ListCategories)
	if err != nil {
		log.Warn().Err(err).Msg("list categories")
		categories = nil
	}
	cartEmpty := true
	cart, err := retryOnce(ctx, func(ctx context.Context) (*model.Cart, error) {
		return e.gateway.GetCart(ctx, t.ev.UserID)
	})
	if err != nil {
		log.Warn().Err(err).Msg("get cart for catalog")
	} else {
		cartEmpty = cart.Empty()
	}

	start, _, _, _ := PageBounds(len(products), page, e.render.PageSize())
	t.session.Category = category
	t.session.Page = start / e.render.PageSize()

	return model.StateMenu, []model.Action{e.render.RenderCatalogPage(CatalogView{
		Products:   products,
		Page:       t.session.Page,
		CartEmpty:  cartEmpty,
		Categories: categories,
		Category:   category,
	})}, nil
}

func (e *ConversationEngine) showPage(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	n, _ := pageNumber(t.ev.Data)
	return e.showCatalog(ctx, t, t.session.Category, n)
}

func (e *ConversationEngine) selectCategory(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	return e.showCatalog(ctx, t, strings.TrimPrefix(t.ev.Data, cbCategoryPrefix), 0)
}

func (e *ConversationEngine) backToMenu(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	return e.showCatalog(ctx, t, t.session.Category, t.session.Page)
}

func (e *ConversationEngine) getProduct(ctx context.Context, id string, user model.UserID) (*model.Product, error) {
	return retryOnce(ctx, func(ctx context.Context) (*model.Product, error) {
		return e.gateway.GetProduct(ctx, id, user)
	})
}

func (e *ConversationEngine) showProduct(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	p, err := e.getProduct(ctx, t.ev.Data, t.ev.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return e.backToMenu(ctx, t)
	}
	if err != nil {
		return "", nil, fmt.Errorf("get product: %w", err)
	}
	return model.StateProduct, []model.Action{e.render.RenderProductDetail(*p, false)}, nil
}

// addToCart adds one unit. Gateway failures are swallowed and the card is
// re-rendered with whatever the cart holds.
func (e *ConversationEngine) addToCart(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	id := strings.TrimPrefix(t.ev.Data, cbAddPrefix)
	if err := e.gateway.AddToCart(ctx, id, 1, t.ev.UserID); err != nil {
		if !domain.IsGatewayError(err) {
			return "", nil, fmt.Errorf("add to cart: %w", err)
		}
		logging.With(ctx, e.logger).Warn().Err(err).Str("product_id", id).Msg("add to cart suppressed")
	}
	p, err := e.getProduct(ctx, id, t.ev.UserID)
	if err != nil {
		return "", nil, fmt.Errorf("get product: %w", err)
	}
	return model.StateProduct, []model.Action{
		e.render.RenderNotice("notice.added"),
		e.render.RenderProductDetail(*p, true),
	}, nil
}

func (e *ConversationEngine) getCart(ctx context.Context, user model.UserID) (*model.Cart, error) {
	return retryOnce(ctx, func(ctx context.Context) (*model.Cart, error) {
		return e.gateway.GetCart(ctx, user)
	})
}

func (e *ConversationEngine) showCart(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	cart, err := e.getCart(ctx, t.ev.UserID)
	if err != nil {
		return "", nil, fmt.Errorf("get cart: %w", err)
	}
	return model.StateCart, []model.Action{e.render.RenderCart(cart)}, nil
}

func (e *ConversationEngine) removeLine(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	if err := e.gateway.RemoveFromCart(ctx, t.ev.Data, t.ev.UserID); err != nil {
		if !domain.IsGatewayError(err) {
			return "", nil, fmt.Errorf("remove from cart: %w", err)
		}
		logging.With(ctx, e.logger).Warn().Err(err).Str("line_id", t.ev.Data).Msg("remove from cart suppressed")
	}
	return e.showCart(ctx, t)
}

func (e *ConversationEngine) askAddress(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	return model.StateAwaitLocation, []model.Action{e.render.RenderAddressPrompt()}, nil
}

func (e *ConversationEngine) onLocation(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	return e.resolveLocation(ctx, t, *t.ev.Location)
}

func (e *ConversationEngine) onAddressText(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	address := strings.TrimSpace(t.ev.Text)
	pt, err := e.geocoder.Geocode(ctx, address)
	if err != nil {
		logging.With(ctx, e.logger).Info().Err(err).
			Str("address", logging.Redact(address, false)).
			Msg("address not resolved")
		return model.StateAwaitLocation, []model.Action{e.render.RenderAddressNotFound()}, nil
	}
	return e.resolveLocation(ctx, t, pt)
}

// resolveLocation records the customer location, picks the nearest
// pizzeria and offers the delivery options its distance allows.
func (e *ConversationEngine) resolveLocation(ctx context.Context, t *turn, pt model.Point) (model.State, []model.Action, error) {
	entry := map[string]any{
		"customer_telegram_id": t.ev.UserID.String(),
		"longitude":            pt.Lon,
		"latitude":             pt.Lat,
	}
	if err := e.gateway.AddFlowEntry(ctx, e.opts.CustomerFlow, entry); err != nil {
		if !domain.IsGatewayError(err) {
			return "", nil, fmt.Errorf("save customer address: %w", err)
		}
		logging.With(ctx, e.logger).Warn().Err(err).Msg("customer address not saved")
	}

	pizzerias, err := retryOnce(ctx, e.gateway.ListPizzerias)
	if err != nil {
		return "", nil, fmt.Errorf("list pizzerias: %w", err)
	}
	nearest, _, ok := NearestPizzeria(pizzerias, pt)
	if !ok {
		return "", nil, fmt.Errorf("%w: no pizzerias", domain.ErrNotFound)
	}

	loc := pt
	t.session.Pizzeria = &nearest
	t.session.Location = &loc
	t.session.DeliveryType = ""
	return model.StateDelivery, []model.Action{e.render.RenderDeliveryOptions(nearest)}, nil
}

func (e *ConversationEngine) chooseDelivery(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	d, _ := model.ParseDeliveryType(t.ev.Data)
	if t.session.Pizzeria == nil {
		return model.StateAwaitLocation, []model.Action{e.render.RenderAddressPrompt()}, nil
	}
	if !TierFor(t.session.Pizzeria.DeliveryDistance).Offers(d) {
		return model.StateDelivery, []model.Action{e.render.RenderDeliveryOptions(*t.session.Pizzeria)}, nil
	}
	t.session.DeliveryType = d
	return model.StatePayment, []model.Action{e.render.RenderPaymentPrompt()}, nil
}

func (e *ConversationEngine) requestInvoice(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	if t.session.DeliveryType == "" {
		return model.StateAwaitLocation, []model.Action{e.render.RenderAddressPrompt()}, nil
	}
	cart, err := e.getCart(ctx, t.ev.UserID)
	if err != nil {
		return "", nil, fmt.Errorf("get cart: %w", err)
	}
	if cart.Empty() {
		return model.StateCart, []model.Action{e.render.RenderCart(cart)}, nil
	}
	return model.StatePayment, []model.Action{
		e.render.RenderInvoiceRequest(cart, t.session.DeliveryType, e.opts.Currency, e.opts.InvoicePayload),
	}, nil
}

func (e *ConversationEngine) answerPreCheckout(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	pc := t.ev.PreCheckout
	if pc == nil {
		return model.StatePayment, nil, nil
	}
	ok := pc.Payload == e.opts.InvoicePayload
	if !ok {
		logging.With(ctx, e.logger).Warn().
			Err(domain.ErrPaymentValidation).
			Str("payload", pc.Payload).
			Msg("pre-checkout rejected")
	}
	return model.StatePayment, []model.Action{e.render.RenderPreCheckoutAnswer(pc.QueryID, ok)}, nil
}

func (e *ConversationEngine) rejectPreCheckout(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	var id string
	if t.ev.PreCheckout != nil {
		id = t.ev.PreCheckout.QueryID
	}
	logging.With(ctx, e.logger).Warn().Str("state", string(t.state)).Msg("pre-checkout outside payment")
	return t.state, []model.Action{e.render.RenderPreCheckoutAnswer(id, false)}, nil
}

// onSuccessfulPayment never fails: the money is charged, so every step
// past the thank-you message is best effort.
func (e *ConversationEngine) onSuccessfulPayment(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	log := logging.With(ctx, e.logger)
	user := t.ev.UserID
	pay := t.ev.Payment
	if pay == nil {
		pay = &model.SuccessfulPayment{}
	}
	if pay.Payload != "" && pay.Payload != e.opts.InvoicePayload {
		log.Warn().Err(domain.ErrPaymentValidation).Str("payload", pay.Payload).Msg("payment with foreign payload")
	}

	actions := []model.Action{e.render.RenderPaymentThanks(t.session.DeliveryType, t.session.Pizzeria)}

	cart, err := e.getCart(ctx, user)
	if err != nil {
		log.Error().Err(err).Msg("get cart after payment")
		cart = nil
	}

	if t.session.Pizzeria == nil {
		log.Error().Msg("payment without delivery address; deliveryman not notified")
	} else if cart != nil {
		if to := e.deliverymanFor(ctx, t.session.Pizzeria); to != "" {
			loc := t.session.Location
			if loc == nil {
				loc = e.lookupCustomerLocation(ctx, user)
			}
			actions = append(actions, e.render.RenderDeliverymanOrder(model.UserID(to), cart, loc)...)
		} else {
			log.Error().Str("pizzeria_id", t.session.Pizzeria.ID).Msg("no deliveryman contact")
		}
	}

	order := e.buildOrder(user, t.session, cart, pay)
	e.archive(ctx, order)
	metrics.IncOrderPaid(string(order.DeliveryType), order.Currency, order.TotalMinor)

	if err := e.gateway.EmptyCart(ctx, user); err != nil {
		log.Warn().Err(err).Msg("empty cart after payment")
	}

	actions = append(actions, e.render.RenderReminder(user, e.opts.ReminderDelay))
	return model.StateFinish, actions, nil
}

func (e *ConversationEngine) deliverymanFor(ctx context.Context, p *model.Pizzeria) string {
	contact, err := e.gateway.GetDeliverymanContact(ctx, p.ID)
	if err != nil {
		logging.With(ctx, e.logger).Warn().Err(err).Str("pizzeria_id", p.ID).Msg("deliveryman lookup")
	}
	if contact == "" {
		contact = p.DeliverymanID
	}
	return contact
}

func (e *ConversationEngine) lookupCustomerLocation(ctx context.Context, user model.UserID) *model.Point {
	entry, err := e.gateway.GetFlowEntry(ctx, e.opts.CustomerFlow, map[string]string{"customer_telegram_id": user.String()})
	if err != nil {
		logging.With(ctx, e.logger).Warn().Err(err).Msg("customer location lookup")
		return nil
	}
	lon, okLon := toFloat(entry["longitude"])
	lat, okLat := toFloat(entry["latitude"])
	if !okLon || !okLat {
		return nil
	}
	return &model.Point{Lon: lon, Lat: lat}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

func (e *ConversationEngine) buildOrder(user model.UserID, s model.Session, cart *model.Cart, pay *model.SuccessfulPayment) *model.Order {
	o := &model.Order{
		ID:               ulid.Make().String(),
		UserID:           user,
		DeliveryType:     s.DeliveryType,
		DeliveryFee:      s.DeliveryType.Fee() * 100,
		TotalMinor:       int64(pay.TotalAmount),
		Currency:         pay.Currency,
		Location:         s.Location,
		ProviderChargeID: pay.ProviderChargeID,
		PaidAt:           e.opts.Now().UTC(),
	}
	if s.Pizzeria != nil {
		o.PizzeriaID = s.Pizzeria.ID
	}
	if cart != nil {
		o.Lines = cart.Lines
	}
	if o.Currency == "" {
		o.Currency = e.opts.Currency
	}
	if o.TotalMinor == 0 && cart != nil {
		inv := e.render.RenderInvoiceRequest(cart, s.DeliveryType, o.Currency, e.opts.InvoicePayload).Invoice
		o.TotalMinor = inv.Total()
	}
	return o
}

func (e *ConversationEngine) archive(ctx context.Context, o *model.Order) {
	log := logging.With(ctx, e.logger)
	if e.opts.Orders != nil {
		err := e.opts.Orders.Save(ctx, o)
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			log.Debug().Str("order_id", o.ID).Msg("order already archived")
		case err != nil:
			log.Error().Err(err).Str("order_id", o.ID).Msg("archive order")
		}
	}
	if e.opts.Events != nil {
		ev := model.OrderPaidEvent{
			OrderID:      o.ID,
			UserID:       o.UserID,
			PizzeriaID:   o.PizzeriaID,
			DeliveryType: o.DeliveryType,
			TotalMinor:   o.TotalMinor,
			Currency:     o.Currency,
			PaidAt:       o.PaidAt,
		}
		if err := e.opts.Events.PublishEvent(ctx, e.opts.EventsTopic, o.UserID.String(), ev); err != nil {
			log.Error().Err(err).Str("order_id", o.ID).Msg("publish order event")
		}
	}
}

func (e *ConversationEngine) repeatAddressPrompt(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	a := e.render.RenderAddressPrompt()
	a.ReplaceSource = false
	return model.StateAwaitLocation, []model.Action{a}, nil
}

func (e *ConversationEngine) repeatDeliveryOptions(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	if t.session.Pizzeria == nil {
		return e.repeatAddressPrompt(ctx, t)
	}
	return model.StateDelivery, []model.Action{e.render.RenderDeliveryOptions(*t.session.Pizzeria)}, nil
}

func (e *ConversationEngine) repeatPaymentPrompt(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	a := e.render.RenderPaymentPrompt()
	a.ReplaceSource = false
	return model.StatePayment, []model.Action{a}, nil
}

func (e *ConversationEngine) repeatFinishPrompt(ctx context.Context, t *turn) (model.State, []model.Action, error) {
	return model.StateFinish, []model.Action{e.render.RenderFinishPrompt()}, nil
}
