package http

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/accounts"
	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type AccountsMock struct {
	session *accounts.Session
	user    *domain.User
	users   []*domain.User
	err     error
}

func (m *AccountsMock) Register(_ context.Context, _ accounts.RegisterInput) (*accounts.Session, error) {
	return m.session, m.err
}

func (m *AccountsMock) Login(_ context.Context, _, _ string) (*accounts.Session, error) {
	return m.session, m.err
}

func (m *AccountsMock) Profile(_ context.Context, id domain.Identity) (*domain.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u := *m.user
	u.ID = id.UserID
	return &u, nil
}

func (m *AccountsMock) ListUsers(context.Context, domain.Identity) ([]*domain.User, error) {
	return m.users, m.err
}

type CatalogMock struct {
	products   []*domain.Product
	categories []domain.CategorySummary
	lastFilter catalog.Filter
	lastInput  catalog.ProductInput
	err        error
}

func (m *CatalogMock) List(_ context.Context, f catalog.Filter) ([]*domain.Product, error) {
	m.lastFilter = f
	if m.err != nil {
		return nil, m.err
	}
	return catalog.Query(m.products, f), nil
}

func (m *CatalogMock) Get(_ context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *CatalogMock) Create(_ context.Context, in catalog.ProductInput) (*domain.Product, error) {
	m.lastInput = in
	if m.err != nil {
		return nil, m.err
	}
	p := &domain.Product{ID: "new", Name: in.Name, Price: in.Price, Category: in.Category, Stock: in.Stock}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *CatalogMock) Update(ctx context.Context, id string, in catalog.ProductInput) (*domain.Product, error) {
	m.lastInput = in
	p, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *p
	cp.Name = in.Name
	cp.Price = in.Price
	return &cp, nil
}

func (m *CatalogMock) Delete(ctx context.Context, id string) error {
	_, err := m.Get(ctx, id)
	return err
}

func (m *CatalogMock) Categories(context.Context) ([]domain.CategorySummary, error) {
	return m.categories, m.err
}

func (m *CatalogMock) Export(_ context.Context, w io.Writer) error {
	if m.err != nil {
		return m.err
	}
	_, err := w.Write([]byte("PK-fake-workbook"))
	return err
}

type OrdersMock struct {
	order   *domain.Order
	orders  []*domain.Order
	stats   *orders.DashboardStats
	lastReq orders.PlaceOrderRequest
	lastID  domain.Identity
	err     error
}

func (m *OrdersMock) PlaceOrder(_ context.Context, id domain.Identity, req orders.PlaceOrderRequest) (*domain.Order, error) {
	m.lastReq = req
	m.lastID = id
	return m.order, m.err
}

func (m *OrdersMock) ListMine(_ context.Context, id domain.Identity) ([]*domain.Order, error) {
	m.lastID = id
	return m.orders, m.err
}

func (m *OrdersMock) ListAll(context.Context, domain.Identity) ([]*domain.Order, error) {
	return m.orders, m.err
}

func (m *OrdersMock) Get(_ context.Context, id domain.Identity, _ string) (*domain.Order, error) {
	m.lastID = id
	return m.order, m.err
}

func (m *OrdersMock) TransitionStatus(_ context.Context, _ domain.Identity, _, status string) (*domain.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	o := *m.order
	if err := o.TransitionTo(next); err != nil {
		return nil, err
	}
	return &o, nil
}

func (m *OrdersMock) Dashboard(context.Context, domain.Identity) (*orders.DashboardStats, error) {
	return m.stats, m.err
}

type CartsMock struct {
	cart     *domain.Cart
	order    *domain.Order
	lastUser string
	lastQty  int
	cleared  bool
	err      error
}

func (m *CartsMock) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	m.lastUser = userID
	return m.cart, m.err
}

func (m *CartsMock) AddItem(_ context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	m.lastUser = userID
	m.lastQty = qty
	if m.err != nil {
		return nil, m.err
	}
	err := m.cart.Add(domain.CartItem{ProductID: productID, Name: productID, Price: decimal.NewFromInt(1)}, qty)
	return m.cart, err
}

func (m *CartsMock) UpdateQuantity(_ context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	m.lastUser = userID
	m.lastQty = qty
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, m.cart.UpdateQuantity(productID, qty)
}

func (m *CartsMock) RemoveItem(_ context.Context, userID, productID string) (*domain.Cart, error) {
	m.lastUser = userID
	if !m.cart.Remove(productID) {
		return nil, domain.ErrNotFound
	}
	return m.cart, nil
}

func (m *CartsMock) ClearCart(_ context.Context, userID string) error {
	m.lastUser = userID
	m.cleared = true
	return m.err
}

func (m *CartsMock) Quote(_ context.Context, userID string) (*domain.Cart, pricing.Breakdown, error) {
	m.lastUser = userID
	return m.cart, pricing.Default().QuoteCart(m.cart), m.err
}

func (m *CartsMock) Checkout(_ context.Context, id domain.Identity, _ domain.ShippingAddress) (*domain.Order, error) {
	m.lastUser = id.UserID
	return m.order, m.err
}

// --- helpers ---

const testSecret = "handler-test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestTokens(t *testing.T) *auth.Tokens {
	t.Helper()
	tokens, err := auth.NewTokens(testSecret, time.Hour)
	require.NoError(t, err)
	return tokens
}

func bearer(t *testing.T, tokens *auth.Tokens, userID string, role domain.Role) string {
	t.Helper()
	token, _, err := tokens.Issue(userID, role)
	require.NoError(t, err)
	return "Bearer " + token
}
