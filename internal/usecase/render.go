package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pizza-order-bot/internal/domain/model"
)

// Callback payloads shared by the renderer and the transition table.
const (
	cbCart           = "cart"
	cbBack           = "back"
	cbAddress        = "address"
	cbPay            = "pay"
	cbAgain          = "again"
	cbNewOrder       = "new_order"
	cbPagePrefix     = "page"
	cbCategoryPrefix = "category:"
	cbAddPrefix      = "+"
)

// Texts resolves localized message templates.
type Texts interface {
	T(key string, args ...interface{}) string
}

// Renderer builds outbound action descriptors. It performs no I/O.
type Renderer struct {
	pageSize int
	texts    Texts
}

func NewRenderer(texts Texts, pageSize int) *Renderer {
	if pageSize <= 0 {
		pageSize = 5
	}
	return &Renderer{pageSize: pageSize, texts: texts}
}

func (r *Renderer) PageSize() int { return r.pageSize }

// PageBounds returns the slice bounds of page within total items. Pages
// past the end are clamped to the last page.
func PageBounds(total, page, size int) (start, end int, hasPrev, hasNext bool) {
	if size <= 0 || total <= 0 {
		return 0, 0, false, false
	}
	last := (total - 1) / size
	if page < 0 {
		page = 0
	}
	if page > last {
		page = last
	}
	start = page * size
	end = start + size
	if end > total {
		end = total
	}
	return start, end, page > 0, end < total
}

// CatalogView is the input of a catalog page.
type CatalogView struct {
	Products   []model.Product
	Page       int
	CartEmpty  bool
	Categories []model.Category
	Category   string
}

func (r *Renderer) RenderCatalogPage(v CatalogView) model.Action {
	start, end, hasPrev, hasNext := PageBounds(len(v.Products), v.Page, r.pageSize)
	page := 0
	if r.pageSize > 0 {
		page = start / r.pageSize
	}

	var rows [][]model.Button
	for _, p := range v.Products[start:end] {
		rows = append(rows, []model.Button{{Label: p.Name, Payload: p.ID}})
	}

	var nav []model.Button
	if hasPrev {
		nav = append(nav, model.Button{Label: r.texts.T("catalog.prev"), Payload: cbPagePrefix + strconv.Itoa(page-1)})
	}
	if hasNext {
		nav = append(nav, model.Button{Label: r.texts.T("catalog.next"), Payload: cbPagePrefix + strconv.Itoa(page+1)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	if !v.CartEmpty {
		rows = append(rows, []model.Button{{Label: r.texts.T("button.cart"), Payload: cbCart}})
	}

	if len(v.Categories) > 1 {
		var cats []model.Button
		for _, c := range v.Categories {
			if c.Slug == v.Category {
				continue
			}
			cats = append(cats, model.Button{Label: r.texts.T("catalog.category", c.Name), Payload: cbCategoryPrefix + c.Slug})
		}
		rows = append(rows, chunkButtons(cats, 2)...)
	}

	return model.Action{
		Kind:          model.ActionText,
		Text:          r.texts.T("catalog.prompt"),
		Buttons:       rows,
		ReplaceSource: true,
	}
}

func (r *Renderer) productSummary(p model.Product) string {
	s := r.markdownT("product.summary", p.Name, p.Price, p.Description)
	if p.QuantityInCart > 0 {
		s += "\n\n" + r.markdownT("product.in_cart", p.QuantityInCart)
	}
	return s
}

// RenderProductDetail shows a product card. With edit set the transport
// updates the card that carried the button instead of sending a new one.
func (r *Renderer) RenderProductDetail(p model.Product, edit bool) model.Action {
	a := model.Action{
		Kind:     model.ActionPhoto,
		Text:     r.productSummary(p),
		Markdown: true,
		PhotoURL: p.ImageURL,
		Buttons: [][]model.Button{{
			{Label: r.texts.T("button.order"), Payload: cbAddPrefix + p.ID},
			{Label: r.texts.T("button.cart"), Payload: cbCart},
			{Label: r.texts.T("button.menu"), Payload: cbBack},
		}},
	}
	if p.ImageURL == "" {
		a.Kind = model.ActionText
	}
	if edit {
		a.EditSource = true
	} else {
		a.ReplaceSource = true
	}
	return a
}

// CartSummary renders the MarkdownV2 cart body shared by the cart view and
// the deliveryman message.
func (r *Renderer) CartSummary(cart *model.Cart) string {
	if cart.Empty() {
		return r.markdownT("cart.empty")
	}
	parts := make([]string, 0, len(cart.Lines)+1)
	for _, l := range cart.Lines {
		parts = append(parts, r.markdownT("cart.line", l.Name, l.Description, l.Quantity, l.TotalFormatted))
	}
	parts = append(parts, r.markdownT("cart.total", cart.Total))
	return strings.Join(parts, "\n\n")
}

func (r *Renderer) RenderCart(cart *model.Cart) model.Action {
	var rows [][]model.Button
	if !cart.Empty() {
		rows = append(rows, []model.Button{{Label: r.texts.T("button.checkout"), Payload: cbAddress}})
		for _, l := range cart.Lines {
			rows = append(rows, []model.Button{{Label: r.texts.T("button.remove", l.Name), Payload: l.ID}})
		}
	}
	rows = append(rows, []model.Button{{Label: r.texts.T("button.menu"), Payload: cbBack}})

	return model.Action{
		Kind:          model.ActionText,
		Text:          r.CartSummary(cart),
		Markdown:      true,
		Buttons:       rows,
		ReplaceSource: true,
	}
}

func (r *Renderer) RenderAddressPrompt() model.Action {
	return model.Action{Kind: model.ActionText, Text: r.texts.T("address.prompt"), ReplaceSource: true}
}

func (r *Renderer) RenderAddressNotFound() model.Action {
	return model.Action{Kind: model.ActionText, Text: r.texts.T("address.not_found")}
}

// RenderDeliveryOptions presents the nearest pizzeria and the delivery
// choices its distance allows.
func (r *Renderer) RenderDeliveryOptions(p model.Pizzeria) model.Action {
	tier := TierFor(p.DeliveryDistance)
	changeAddress := model.Button{Label: r.texts.T("button.change_address"), Payload: cbAddress}

	var text string
	switch tier {
	case TierFree:
		text = r.texts.T("delivery.free", p.Address, p.DeliveryDistance*1000)
	case TierNear, TierFar:
		text = r.texts.T("delivery.paid", p.Address, p.DeliveryDistance)
	default:
		text = r.texts.T("delivery.pickup_only", p.DeliveryDistance)
	}

	options := make([]model.Button, 0, 2)
	for _, d := range DeliveryOptions(tier) {
		options = append(options, model.Button{Label: r.deliveryLabel(d), Payload: string(d)})
	}
	rows := [][]model.Button{options, {changeAddress}}
	if tier == TierPickupOnly {
		rows = [][]model.Button{append(options, changeAddress)}
	}
	return model.Action{Kind: model.ActionText, Text: text, Buttons: rows}
}

func (r *Renderer) deliveryLabel(d model.DeliveryType) string {
	key := "delivery.button." + string(d)
	if d.Fee() > 0 {
		return r.texts.T(key, d.Fee())
	}
	return r.texts.T(key)
}

func (r *Renderer) RenderPaymentPrompt() model.Action {
	return model.Action{
		Kind:          model.ActionText,
		Text:          r.texts.T("payment.prompt"),
		Buttons:       [][]model.Button{{{Label: r.texts.T("button.pay"), Payload: cbPay}}},
		ReplaceSource: true,
	}
}

var hundred = decimal.NewFromInt(100)

// RenderInvoiceRequest prices every cart line in minor units and appends a
// delivery line unless the order is picked up.
func (r *Renderer) RenderInvoiceRequest(cart *model.Cart, d model.DeliveryType, currency, payload string) model.Action {
	var prices []model.LabeledPrice
	if cart != nil {
		for _, l := range cart.Lines {
			label := l.Name
			if l.Quantity > 1 {
				label = r.texts.T("invoice.quantity", l.Name, l.Quantity)
			}
			prices = append(prices, model.LabeledPrice{Label: label, Amount: l.Total.Mul(hundred).Round(0).IntPart()})
		}
	}
	if d.IsDelivery() {
		prices = append(prices, model.LabeledPrice{Label: r.texts.T("invoice.delivery"), Amount: d.Fee() * 100})
	}
	return model.Action{
		Kind: model.ActionInvoice,
		Invoice: &model.Invoice{
			Title:       r.texts.T("invoice.title"),
			Description: r.texts.T("invoice.description"),
			Payload:     payload,
			Currency:    currency,
			Prices:      prices,
		},
	}
}

func (r *Renderer) newOrderButtons() [][]model.Button {
	return [][]model.Button{{{Label: r.texts.T("button.new_order"), Payload: cbAgain}}}
}

// RenderPaymentThanks confirms the payment. Pickup orders get the pizzeria
// address.
func (r *Renderer) RenderPaymentThanks(d model.DeliveryType, p *model.Pizzeria) model.Action {
	text := r.texts.T("thanks.delivery")
	if d == model.DeliveryPickup && p != nil {
		text = r.texts.T("thanks.pickup", p.Address)
	}
	return model.Action{Kind: model.ActionText, Text: text, Buttons: r.newOrderButtons()}
}

func (r *Renderer) RenderFinishPrompt() model.Action {
	return model.Action{Kind: model.ActionText, Text: r.texts.T("finish.prompt"), Buttons: r.newOrderButtons()}
}

// RenderDeliverymanOrder sends the cart summary and, when known, the
// customer location to the deliveryman.
func (r *Renderer) RenderDeliverymanOrder(to model.UserID, cart *model.Cart, loc *model.Point) []model.Action {
	actions := []model.Action{{
		Kind:      model.ActionText,
		Recipient: to,
		Text:      r.CartSummary(cart),
		Markdown:  true,
	}}
	if loc != nil {
		p := *loc
		actions = append(actions, model.Action{Kind: model.ActionLocation, Recipient: to, Location: &p})
	}
	return actions
}

func (r *Renderer) RenderReminder(to model.UserID, delay time.Duration) model.Action {
	return model.Action{Kind: model.ActionText, Recipient: to, Text: r.texts.T("reminder"), Delay: delay}
}

func (r *Renderer) RenderTryAgain() model.Action {
	return model.Action{Kind: model.ActionText, Text: r.texts.T("error.try_again")}
}

func (r *Renderer) RenderRateLimited() model.Action {
	return model.Action{Kind: model.ActionNotice, Text: r.texts.T("error.rate_limited")}
}

// RenderNotice is a short acknowledgement of a button press.
func (r *Renderer) RenderNotice(key string) model.Action {
	return model.Action{Kind: model.ActionNotice, Text: r.texts.T(key)}
}

func (r *Renderer) RenderPreCheckoutAnswer(queryID string, ok bool) model.Action {
	ans := &model.PreCheckoutAnswer{QueryID: queryID, OK: ok}
	if !ok {
		ans.ErrorMessage = r.texts.T("precheckout.error")
	}
	return model.Action{Kind: model.ActionPreCheckoutAnswer, PreCheckout: ans}
}

// InvoiceAsText is the fallback for transports without native payments.
func (r *Renderer) InvoiceAsText(inv *model.Invoice) string {
	total := decimal.NewFromInt(inv.Total()).Div(hundred).StringFixed(2)
	return r.texts.T("invoice.unsupported", inv.Title, fmt.Sprintf("%s %s", total, inv.Currency))
}

func chunkButtons(btns []model.Button, n int) [][]model.Button {
	var rows [][]model.Button
	for len(btns) > 0 {
		k := n
		if len(btns) < k {
			k = len(btns)
		}
		rows = append(rows, btns[:k])
		btns = btns[k:]
	}
	return rows
}

var markdownEscaper = strings.NewReplacer(
	"-", `\-`, ".", `\.`, "(", `\(`, ")", `\)`, "!", `\!`,
	"+", `\+`, "=", `\=`, "#", `\#`, ">", `\>`, "|", `\|`,
	"{", `\{`, "}", `\}`, "[", `\[`, "]", `\]`, "~", `\~`, "`", "\\`",
)

var markdownValueEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`,
	"-", `\-`, ".", `\.`, "(", `\(`, ")", `\)`, "!", `\!`,
	"+", `\+`, "=", `\=`, "#", `\#`, ">", `\>`, "|", `\|`,
	"{", `\{`, "}", `\}`, "[", `\[`, "]", `\]`, "~", `\~`, "`", "\\`",
)

// EscapeMarkdownValue escapes every MarkdownV2 reserved character, the
// formatting markers included. Use it for text coming from the catalog.
func EscapeMarkdownValue(s string) string {
	return markdownValueEscaper.Replace(s)
}

// markdownT formats a template as MarkdownV2: the template keeps its * and _
// markers while string arguments are escaped in full.
func (r *Renderer) markdownT(key string, args ...interface{}) string {
	format := EscapeMarkdown(r.texts.T(key))
	if len(args) == 0 {
		return format
	}
	for i, a := range args {
		if s, ok := a.(string); ok {
			args[i] = EscapeMarkdownValue(s)
		}
	}
	return fmt.Sprintf(format, args...)
}

// EscapeMarkdown escapes MarkdownV2 reserved characters except the * and _
// formatting markers.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

var markdownStripper = strings.NewReplacer(
	`\\`, `\`, `\*`, "*", `\_`, "_",
	`\-`, "-", `\.`, ".", `\(`, "(", `\)`, ")", `\!`, "!",
	`\+`, "+", `\=`, "=", `\#`, "#", `\>`, ">", `\|`, "|",
	`\{`, "{", `\}`, "}", `\[`, "[", `\]`, "]", `\~`, "~", "\\`", "`",
	"*", "", "_", "",
)

// StripMarkdown turns an escaped MarkdownV2 text into plain text.
func StripMarkdown(s string) string {
	return markdownStripper.Replace(s)
}
