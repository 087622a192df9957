//go:build !integration

package usecase

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pizza-order-bot/internal/domain/model"
)

func TestPageBounds(t *testing.T) {
	tests := []struct {
		name                 string
		total, page, size    int
		start, end           int
		hasPrev, hasNext     bool
	}{
		{"first page", 12, 0, 5, 0, 5, false, true},
		{"middle page", 12, 1, 5, 5, 10, true, true},
		{"last partial page", 12, 2, 5, 10, 12, true, false},
		{"past the end clamps", 12, 7, 5, 10, 12, true, false},
		{"negative clamps", 12, -1, 5, 0, 5, false, true},
		{"exact fit", 10, 1, 5, 5, 10, true, false},
		{"empty", 0, 0, 5, 0, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, e, p, n := PageBounds(tt.total, tt.page, tt.size)
			if s != tt.start || e != tt.end || p != tt.hasPrev || n != tt.hasNext {
				t.Errorf("got (%d,%d,%v,%v), want (%d,%d,%v,%v)", s, e, p, n, tt.start, tt.end, tt.hasPrev, tt.hasNext)
			}
		})
	}
}

func TestRenderCatalogPage(t *testing.T) {
	r := newTestRenderer(t, 5)
	g := newFakeGateway(12)

	a := r.RenderCatalogPage(CatalogView{Products: g.products, Page: 0, CartEmpty: true})
	if len(a.Buttons) != 6 {
		t.Fatalf("rows = %d, want 5 products + nav", len(a.Buttons))
	}
	nav := a.Buttons[5]
	if len(nav) != 1 || nav[0].Payload != "page1" {
		t.Errorf("nav = %+v, want next only", nav)
	}
	if !a.ReplaceSource || a.Text != "Какую пиццу выберешь сегодня?" {
		t.Errorf("unexpected action %+v", a)
	}

	a = r.RenderCatalogPage(CatalogView{Products: g.products, Page: 1, CartEmpty: false})
	if !hasButton(a, "page0") || !hasButton(a, "page2") || !hasButton(a, cbCart) {
		t.Errorf("page 1 buttons = %+v", a.Buttons)
	}

	cats := []model.Category{{Name: "A", Slug: "a"}, {Name: "B", Slug: "b"}, {Name: "C", Slug: "c"}}
	a = r.RenderCatalogPage(CatalogView{Products: g.products[:2], CartEmpty: true, Categories: cats, Category: "a"})
	if hasButton(a, "category:a") || !hasButton(a, "category:b") || !hasButton(a, "category:c") {
		t.Errorf("category buttons = %+v", a.Buttons)
	}
	if last := a.Buttons[len(a.Buttons)-1]; len(last) != 2 {
		t.Errorf("categories should share a row: %+v", last)
	}
}

func TestRenderProductDetail(t *testing.T) {
	r := newTestRenderer(t, 5)
	p := model.Product{ID: "P1", Name: "Пепперони", Description: "Острая (очень).", Price: "450.00 ₽", ImageURL: "https://img/1.jpg"}

	a := r.RenderProductDetail(p, false)
	if a.Kind != model.ActionPhoto || !a.Markdown || !a.ReplaceSource || a.EditSource {
		t.Fatalf("unexpected action %+v", a)
	}
	want := "*Пепперони / 450\\.00 ₽*\n\n_Острая \\(очень\\)\\._"
	if a.Text != want {
		t.Errorf("text = %q, want %q", a.Text, want)
	}
	if strings.Contains(a.Text, "В корзине") {
		t.Error("quantity line shown for zero quantity")
	}
	if !hasButton(a, "+P1") || !hasButton(a, cbCart) || !hasButton(a, cbBack) {
		t.Errorf("buttons = %+v", a.Buttons)
	}

	p.QuantityInCart = 3
	p.ImageURL = ""
	a = r.RenderProductDetail(p, true)
	if a.Kind != model.ActionText || !a.EditSource {
		t.Errorf("expected edited text card, got %+v", a)
	}
	if !strings.HasSuffix(a.Text, "В корзине: *3 шт\\.*") {
		t.Errorf("text = %q", a.Text)
	}
}

func TestRenderCart(t *testing.T) {
	r := newTestRenderer(t, 5)

	empty := r.RenderCart(&model.Cart{})
	if empty.Text != "Здесь пока пусто\\." {
		t.Errorf("empty text = %q", empty.Text)
	}
	if hasButton(empty, cbAddress) || !hasButton(empty, cbBack) {
		t.Errorf("empty cart buttons = %+v", empty.Buttons)
	}

	cart := &model.Cart{
		Lines: []model.CartLine{
			{ID: "l1", ProductID: "P1", Name: "Маргарита", Description: "сыр", Quantity: 2, TotalFormatted: "800 ₽"},
			{ID: "l2", ProductID: "P2", Name: "Гавайская", Description: "ананас", Quantity: 1, TotalFormatted: "500 ₽"},
		},
		Total: "1300 ₽",
	}
	a := r.RenderCart(cart)
	want := "*Маргарита* (_сыр_)\n2 шт. на сумму 800 ₽\n\n*Гавайская* (_ананас_)\n1 шт. на сумму 500 ₽\n\n*К оплате: 1300 ₽*"
	if a.Text != EscapeMarkdown(want) {
		t.Errorf("text = %q", a.Text)
	}
	if !hasButton(a, cbAddress) || !hasButton(a, "l1") || !hasButton(a, "l2") {
		t.Errorf("buttons = %+v", a.Buttons)
	}
}

func TestRenderDeliveryOptions(t *testing.T) {
	r := newTestRenderer(t, 5)
	tests := []struct {
		km      float64
		text    string
		offered model.DeliveryType
	}{
		{0.3, "всего в 300 м", model.DeliveryFree},
		{3, "находится в 3 км", model.DeliveryPaid1},
		{12, "находится в 12 км", model.DeliveryPaid2},
		{30, "в 30 км от вас!", ""},
	}
	for _, tt := range tests {
		a := r.RenderDeliveryOptions(model.Pizzeria{Address: "Ленина 1", DeliveryDistance: tt.km})
		if !strings.Contains(a.Text, tt.text) {
			t.Errorf("%v km: text = %q", tt.km, a.Text)
		}
		if !hasButton(a, string(model.DeliveryPickup)) || !hasButton(a, cbAddress) {
			t.Errorf("%v km: buttons = %+v", tt.km, a.Buttons)
		}
		if tt.offered != "" && !hasButton(a, string(tt.offered)) {
			t.Errorf("%v km: %s not offered", tt.km, tt.offered)
		}
	}

	a := r.RenderDeliveryOptions(model.Pizzeria{DeliveryDistance: 3})
	if got := a.Buttons[0][1].Label; got != "🚴 Доставка за 100 ₽" {
		t.Errorf("paid label = %q", got)
	}
}

func TestRenderInvoiceRequest(t *testing.T) {
	r := newTestRenderer(t, 5)
	cart := &model.Cart{Lines: []model.CartLine{
		{Name: "Маргарита", Quantity: 2, Total: decimal.RequireFromString("799.50")},
		{Name: "Гавайская", Quantity: 1, Total: decimal.NewFromInt(500)},
	}}

	a := r.RenderInvoiceRequest(cart, model.DeliveryPaid2, "RUB", "pizzabot_payment")
	inv := a.Invoice
	if a.Kind != model.ActionInvoice || inv == nil {
		t.Fatalf("unexpected action %+v", a)
	}
	want := []model.LabeledPrice{
		{Label: "Маргарита (2 шт.)", Amount: 79950},
		{Label: "Гавайская", Amount: 50000},
		{Label: "Доставка", Amount: 30000},
	}
	if len(inv.Prices) != len(want) {
		t.Fatalf("prices = %+v", inv.Prices)
	}
	for i := range want {
		if inv.Prices[i] != want[i] {
			t.Errorf("price[%d] = %+v, want %+v", i, inv.Prices[i], want[i])
		}
	}
	if inv.Title != "Оплата пиццы" || inv.Payload != "pizzabot_payment" || inv.Currency != "RUB" {
		t.Errorf("invoice meta = %+v", inv)
	}

	pickup := r.RenderInvoiceRequest(cart, model.DeliveryPickup, "RUB", "x")
	if len(pickup.Invoice.Prices) != 2 {
		t.Errorf("pickup should not add a delivery line: %+v", pickup.Invoice.Prices)
	}
	free := r.RenderInvoiceRequest(cart, model.DeliveryFree, "RUB", "x")
	if n := len(free.Invoice.Prices); n != 3 || free.Invoice.Prices[2].Amount != 0 {
		t.Errorf("free delivery should add a zero line: %+v", free.Invoice.Prices)
	}
}

func TestRenderPaymentMessages(t *testing.T) {
	r := newTestRenderer(t, 5)
	pz := &model.Pizzeria{Address: "Арбат 10"}

	if a := r.RenderPaymentThanks(model.DeliveryPickup, pz); !strings.Contains(a.Text, "Арбат 10") || !hasButton(a, cbAgain) {
		t.Errorf("pickup thanks = %+v", a)
	}
	if a := r.RenderPaymentThanks(model.DeliveryPaid1, pz); strings.Contains(a.Text, "Арбат") {
		t.Errorf("delivery thanks should not mention the address: %q", a.Text)
	}

	ok := r.RenderPreCheckoutAnswer("q", true)
	if !ok.PreCheckout.OK || ok.PreCheckout.ErrorMessage != "" {
		t.Errorf("accept = %+v", ok.PreCheckout)
	}
	bad := r.RenderPreCheckoutAnswer("q", false)
	if bad.PreCheckout.OK || bad.PreCheckout.ErrorMessage != "В процессе оплаты произошла ошибка" {
		t.Errorf("reject = %+v", bad.PreCheckout)
	}

	rem := r.RenderReminder("42", 90*time.Minute)
	if rem.Recipient != "42" || rem.Delay != 90*time.Minute || !strings.HasPrefix(rem.Text, "Приятного аппетита") {
		t.Errorf("reminder = %+v", rem)
	}

	loc := &model.Point{Lon: 1, Lat: 2}
	courier := r.RenderDeliverymanOrder("777", &model.Cart{}, loc)
	if len(courier) != 2 || courier[1].Kind != model.ActionLocation || courier[1].Recipient != "777" {
		t.Errorf("courier actions = %+v", courier)
	}
	if len(r.RenderDeliverymanOrder("777", &model.Cart{}, nil)) != 1 {
		t.Error("location action expected only when known")
	}

	inv := &model.Invoice{Title: "Оплата пиццы", Currency: "RUB", Prices: []model.LabeledPrice{{Amount: 41050}}}
	if got := r.InvoiceAsText(inv); !strings.Contains(got, "410.50 RUB") {
		t.Errorf("invoice text = %q", got)
	}
}

func TestEscapeAndStripMarkdown(t *testing.T) {
	in := "*Итого: 1-2 (шт.)!* _a+b=c_ #1 > [x] {y} | ~z `q`"
	esc := EscapeMarkdown(in)
	want := "*Итого: 1\\-2 \\(шт\\.\\)\\!* _a\\+b\\=c_ \\#1 \\> \\[x\\] \\{y\\} \\| \\~z \\`q\\`"
	if esc != want {
		t.Errorf("escape = %q, want %q", esc, want)
	}
	if got := StripMarkdown(esc); got != "Итого: 1-2 (шт.)! a+b=c #1 > [x] {y} | ~z `q`" {
		t.Errorf("strip = %q", got)
	}
}

func TestRenderEscapesCatalogText(t *testing.T) {
	r := newTestRenderer(t, 5)

	a := r.RenderProductDetail(model.Product{ID: "P1", Name: "4*сыра_XL", Price: "450.00 ₽", Description: `острая \ пряная`}, false)
	want := "*4\\*сыра\\_XL / 450\\.00 ₽*\n\n_острая \\\\ пряная_"
	if a.Text != want {
		t.Errorf("product text = %q, want %q", a.Text, want)
	}
	if got := StripMarkdown(a.Text); got != `4*сыра_XL / 450.00 ₽`+"\n\n"+`острая \ пряная` {
		t.Errorf("stripped = %q", got)
	}

	cart := &model.Cart{
		Lines: []model.CartLine{{ID: "l1", Name: "Пицца_1", Description: "*new*", Quantity: 1, TotalFormatted: "500 ₽"}},
		Total: "500 ₽",
	}
	got := r.RenderCart(cart).Text
	want = "*Пицца\\_1* (_\\*new\\*_)\n1 шт\\. на сумму 500 ₽\n\n*К оплате: 500 ₽*"
	if got != want {
		t.Errorf("cart text = %q, want %q", got, want)
	}
}
