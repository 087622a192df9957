// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pizza-order-bot/internal/domain"
	"pizza-order-bot/internal/domain/model"
	"pizza-order-bot/internal/domain/ports/adapter"
	"pizza-order-bot/internal/infra/i18n"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func newTestRenderer(t *testing.T, pageSize int) *Renderer {
	t.Helper()
	tr, err := i18n.NewTranslator(i18n.LocalesFS, "ru")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}
	return NewRenderer(tr, pageSize)
}

// memStateRepo is an in-memory StateRepository that also records whether
// two handlers ever overlapped between Get and Set for the same user.
type memStateRepo struct {
	mu       sync.Mutex
	store    map[model.UserID]model.Record
	inFlight map[model.UserID]int
	overlap  bool
	sets     int
	getErr   error
	setErr   error
}

func newMemStateRepo() *memStateRepo {
	return &memStateRepo{store: make(map[model.UserID]model.Record), inFlight: make(map[model.UserID]int)}
}

func (m *memStateRepo) Get(ctx context.Context, user model.UserID) (*model.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.inFlight[user]++
	if m.inFlight[user] > 1 {
		m.overlap = true
	}
	rec, ok := m.store[user]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := rec
	return &cp, nil
}

func (m *memStateRepo) Set(ctx context.Context, user model.UserID, rec *model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight[user] > 0 {
		m.inFlight[user]--
	}
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.store[user] = *rec
	return nil
}

func (m *memStateRepo) Clear(ctx context.Context, user model.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, user)
	return nil
}

func (m *memStateRepo) put(user model.UserID, rec model.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[user] = rec
}

func (m *memStateRepo) record(user model.UserID) model.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store[user]
}

// fakeGateway is an in-memory commerce backend.
type fakeGateway struct {
	mu sync.Mutex

	products    []model.Product
	prices      map[string]decimal.Decimal
	byCategory  map[string][]string
	categories  []model.Category
	pizzerias   []model.Pizzeria
	deliveryman map[string]string
	carts       map[model.UserID][]model.CartLine
	flows       map[string][]map[string]any
	lineSeq     int

	// failures consumed one per call, keyed by method name
	failures map[string][]error
	calls    map[string]int
}

var _ adapter.CommerceGateway = (*fakeGateway)(nil)

func newFakeGateway(n int) *fakeGateway {
	g := &fakeGateway{
		prices:      make(map[string]decimal.Decimal),
		byCategory:  make(map[string][]string),
		deliveryman: make(map[string]string),
		carts:       make(map[model.UserID][]model.CartLine),
		flows:       make(map[string][]map[string]any),
		failures:    make(map[string][]error),
		calls:       make(map[string]int),
	}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("P%d", i)
		price := decimal.NewFromInt(int64(400 + i*10))
		g.prices[id] = price
		g.products = append(g.products, model.Product{
			ID:          id,
			Name:        fmt.Sprintf("Pizza %d", i),
			Description: "tasty",
			Price:       price.String() + " ₽",
			ImageURL:    "https://img.example/" + id + ".jpg",
			Stock:       10,
		})
	}
	return g
}

func (g *fakeGateway) failNext(method string, errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures[method] = append(g.failures[method], errs...)
}

func (g *fakeGateway) hit(method string) error {
	g.calls[method]++
	if q := g.failures[method]; len(q) > 0 {
		g.failures[method] = q[1:]
		return q[0]
	}
	return nil
}

func (g *fakeGateway) callCount(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

func (g *fakeGateway) ListProducts(ctx context.Context) ([]model.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("ListProducts"); err != nil {
		return nil, err
	}
	return append([]model.Product(nil), g.products...), nil
}

func (g *fakeGateway) GetProduct(ctx context.Context, id string, user model.UserID) (*model.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("GetProduct"); err != nil {
		return nil, err
	}
	for _, p := range g.products {
		if p.ID == id {
			cp := p
			cart := model.Cart{Lines: g.carts[user]}
			cp.QuantityInCart = cart.QuantityOf(id)
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (g *fakeGateway) ListProductsByCategory(ctx context.Context, slug string) ([]model.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("ListProductsByCategory"); err != nil {
		return nil, err
	}
	var out []model.Product
	for _, id := range g.byCategory[slug] {
		for _, p := range g.products {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func (g *fakeGateway) ListCategories(ctx context.Context) ([]model.Category, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("ListCategories"); err != nil {
		return nil, err
	}
	return append([]model.Category(nil), g.categories...), nil
}

func (g *fakeGateway) AddToCart(ctx context.Context, id string, qty int, user model.UserID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("AddToCart"); err != nil {
		return err
	}
	price, ok := g.prices[id]
	if !ok {
		return fmt.Errorf("%w: product %s", domain.ErrRemote, id)
	}
	lines := g.carts[user]
	for i := range lines {
		if lines[i].ProductID == id {
			lines[i].Quantity += qty
			lines[i].Total = price.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
			lines[i].TotalFormatted = lines[i].Total.String() + " ₽"
			return nil
		}
	}
	g.lineSeq++
	var name string
	for _, p := range g.products {
		if p.ID == id {
			name = p.Name
		}
	}
	total := price.Mul(decimal.NewFromInt(int64(qty)))
	g.carts[user] = append(lines, model.CartLine{
		ID:             fmt.Sprintf("line-%d", g.lineSeq),
		ProductID:      id,
		Name:           name,
		Description:    "tasty",
		UnitPrice:      price.String() + " ₽",
		Quantity:       qty,
		Total:          total,
		TotalFormatted: total.String() + " ₽",
	})
	return nil
}

func (g *fakeGateway) RemoveFromCart(ctx context.Context, lineID string, user model.UserID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("RemoveFromCart"); err != nil {
		return err
	}
	lines := g.carts[user]
	for i := range lines {
		if lines[i].ID == lineID {
			g.carts[user] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: line %s", domain.ErrNotFound, lineID)
}

func (g *fakeGateway) GetCart(ctx context.Context, user model.UserID) (*model.Cart, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("GetCart"); err != nil {
		return nil, err
	}
	lines := append([]model.CartLine(nil), g.carts[user]...)
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total)
	}
	return &model.Cart{Lines: lines, Total: total.String() + " ₽"}, nil
}

func (g *fakeGateway) EmptyCart(ctx context.Context, user model.UserID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("EmptyCart"); err != nil {
		return err
	}
	delete(g.carts, user)
	return nil
}

func (g *fakeGateway) cartQuantity(user model.UserID, productID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	c := model.Cart{Lines: g.carts[user]}
	return c.QuantityOf(productID)
}

func (g *fakeGateway) SaveCustomer(ctx context.Context, email string, meta adapter.CustomerMeta) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hit("SaveCustomer")
}

func (g *fakeGateway) AddFlowEntry(ctx context.Context, flow string, data map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("AddFlowEntry"); err != nil {
		return err
	}
	g.flows[flow] = append(g.flows[flow], data)
	return nil
}

func (g *fakeGateway) GetFlowEntry(ctx context.Context, flow string, filter map[string]string) (map[string]any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("GetFlowEntry"); err != nil {
		return nil, err
	}
	entries := g.flows[flow]
	for i := len(entries) - 1; i >= 0; i-- {
		match := true
		for k, v := range filter {
			if fmt.Sprint(entries[i][k]) != v {
				match = false
			}
		}
		if match {
			return entries[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (g *fakeGateway) ListPizzerias(ctx context.Context) ([]model.Pizzeria, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("ListPizzerias"); err != nil {
		return nil, err
	}
	return append([]model.Pizzeria(nil), g.pizzerias...), nil
}

func (g *fakeGateway) GetDeliverymanContact(ctx context.Context, pizzeriaID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.hit("GetDeliverymanContact"); err != nil {
		return "", err
	}
	c, ok := g.deliveryman[pizzeriaID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return c, nil
}

type fakeGeocoder struct {
	known map[string]model.Point
	err   error
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (model.Point, error) {
	if f.err != nil {
		return model.Point{}, f.err
	}
	p, ok := f.known[address]
	if !ok {
		return model.Point{}, domain.ErrAddressNotFound
	}
	return p, nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders []*model.Order
}

func (m *memOrderRepo) Save(ctx context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.orders {
		if x.ID == o.ID {
			return domain.ErrAlreadyExists
		}
	}
	cp := *o
	m.orders = append(m.orders, &cp)
	return nil
}

func (m *memOrderRepo) ListByUser(ctx context.Context, user model.UserID, limit int) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Order
	for _, o := range m.orders {
		if o.UserID == user {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PaidAt.After(out[j].PaidAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type published struct {
	topic, key string
	event      any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{topic, key, event})
	return nil
}

type memCatalogCache struct {
	mu    sync.Mutex
	lists map[string][]model.Product
}

func newMemCatalogCache() *memCatalogCache {
	return &memCatalogCache{lists: make(map[string][]model.Product)}
}

func (m *memCatalogCache) Get(ctx context.Context, slug string) ([]model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.lists[slug]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *memCatalogCache) Store(ctx context.Context, slug string, products []model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[slug] = products
	return nil
}

// engineFixture bundles an engine with its fakes.
type engineFixture struct {
	engine  *ConversationEngine
	states  *memStateRepo
	gateway *fakeGateway
	geo     *fakeGeocoder
	orders  *memOrderRepo
	events  *fakePublisher
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngineFixture(t *testing.T, products int) *engineFixture {
	t.Helper()
	f := &engineFixture{
		states:  newMemStateRepo(),
		gateway: newFakeGateway(products),
		geo:     &fakeGeocoder{known: map[string]model.Point{}},
		orders:  &memOrderRepo{},
		events:  &fakePublisher{},
	}
	f.engine = NewConversationEngine(
		f.states, f.gateway, f.geo, NewKeyLocker(), newTestRenderer(t, 5),
		EngineOptions{
			Currency:       "RUB",
			InvoicePayload: "pizzabot_payment",
			ReminderDelay:  time.Hour,
			Orders:         f.orders,
			Events:         f.events,
			Now:            func() time.Time { return fixedNow },
		},
		newTestLogger(),
	)
	return f
}

func (f *engineFixture) handle(t *testing.T, ev model.Event) (model.State, []model.Action) {
	t.Helper()
	st, actions, err := f.engine.Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("Handle(%+v): %v", ev, err)
	}
	return st, actions
}
