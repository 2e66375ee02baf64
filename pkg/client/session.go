package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

var (
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	// ErrStaleResponse is returned for a catalog query that was superseded
	// by a newer one before its response arrived.
	ErrStaleResponse = errors.New("response superseded by a newer query")
)

// Session is one shopper's view of the storefront: the signed-in identity
// and a local cart. It is safe for concurrent use.
type Session struct {
	client  *Client
	pricing *pricing.Calculator

	mu    sync.Mutex
	token string
	user  *User
	cart  *domain.Cart

	checkingOut atomic.Bool
	querySeq    atomic.Uint64
}

// NewSession starts an anonymous session with an empty cart. A nil
// calculator uses the default shipping fee and tax rate.
func NewSession(c *Client, calc *pricing.Calculator) *Session {
	if calc == nil {
		calc = pricing.Default()
	}
	return &Session{client: c, pricing: calc, cart: domain.NewCart("")}
}

func (s *Session) Login(ctx context.Context, email, password string) error {
	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	s.signIn(res)
	return nil
}

func (s *Session) Register(ctx context.Context, name, email, password string) error {
	res, err := s.client.Register(ctx, name, email, password)
	if err != nil {
		return err
	}
	s.signIn(res)
	return nil
}

func (s *Session) signIn(res *AuthResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = res.Token
	u := res.User
	s.user = &u
	s.cart.UserID = u.ID
}

// Logout drops the credential and the local cart.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.cart = domain.NewCart("")
}

// Identity is the principal the session currently acts as.
func (s *Session) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.GuestIdentity
	}
	role, err := domain.ParseRole(s.user.Role)
	if err != nil {
		return domain.GuestIdentity
	}
	return domain.Identity{UserID: s.user.ID, Role: role}
}

func (s *Session) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

func (s *Session) credential() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", fmt.Errorf("%w: not signed in", domain.ErrUnauthenticated)
	}
	return s.token, nil
}

func (s *Session) AddToCart(p Product, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Add(domain.CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     decimal.NewFromFloat(p.Price),
		Image:     p.ImageURL,
		Category:  p.Category,
	}, qty)
}

func (s *Session) UpdateQuantity(productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.UpdateQuantity(productID, qty)
}

func (s *Session) RemoveFromCart(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Remove(productID)
}

func (s *Session) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
}

// Cart returns a copy of the local cart.
func (s *Session) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.cart
	cp.Items = append([]domain.CartItem{}, s.cart.Items...)
	return cp
}

// Quote prices the local cart with the same rules the server applies.
func (s *Session) Quote() pricing.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pricing.QuoteCart(s.cart)
}

// Checkout submits the local cart as an order. Once the server accepts it,
// the ordered quantities are deducted from the cart; lines added or raised
// while the request was in flight stay. A second call while one is in
// flight fails with ErrCheckoutInProgress.
func (s *Session) Checkout(ctx context.Context, address domain.ShippingAddress) (*Order, error) {
	if !s.checkingOut.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInProgress
	}
	defer s.checkingOut.Store(false)

	token, err := s.credential()
	if err != nil {
		return nil, err
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	lines := make([]OrderLine, 0, len(s.cart.Items))
	ordered := make([]domain.StockLine, 0, len(s.cart.Items))
	for _, it := range s.cart.Items {
		lines = append(lines, OrderLine{ProductID: it.ProductID, Quantity: it.Quantity})
		ordered = append(ordered, domain.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	s.mu.Unlock()
	if len(lines) == 0 {
		return nil, domain.NewValidationError("cart", "cart is empty")
	}

	order, err := s.client.PlaceOrder(ctx, token, PlaceOrderRequest{Items: lines, ShippingAddress: address})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cart.Deduct(ordered)
	s.mu.Unlock()
	return order, nil
}

// Products runs a catalog query. When a newer query was started before this
// one returned, the result is discarded and ErrStaleResponse is returned.
func (s *Session) Products(ctx context.Context, q ProductQuery) ([]Product, error) {
	seq := s.querySeq.Add(1)
	products, err := s.client.Products(ctx, q)
	if s.querySeq.Load() != seq {
		return nil, ErrStaleResponse
	}
	return products, err
}

func (s *Session) Profile(ctx context.Context) (*User, error) {
	token, err := s.credential()
	if err != nil {
		return nil, err
	}
	return s.client.Profile(ctx, token)
}

func (s *Session) MyOrders(ctx context.Context) ([]Order, error) {
	token, err := s.credential()
	if err != nil {
		return nil, err
	}
	return s.client.MyOrders(ctx, token)
}

func (s *Session) Order(ctx context.Context, id string) (*Order, error) {
	token, err := s.credential()
	if err != nil {
		return nil, err
	}
	return s.client.Order(ctx, token, id)
}

// UpdateOrderStatus needs an admin session; the server enforces it.
func (s *Session) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*Order, error) {
	token, err := s.credential()
	if err != nil {
		return nil, err
	}
	return s.client.UpdateOrderStatus(ctx, token, id, status)
}

func (s *Session) AllOrders(ctx context.Context) ([]Order, error) {
	token, err := s.credential()
	if err != nil {
		return nil, err
	}
	return s.client.AllOrders(ctx, token)
}

func (s *Session) Stats(ctx context.Context) (*Stats, error) {
	token, err := s.credential()
	if err != nil {
		return nil, err
	}
	return s.client.Stats(ctx, token)
}
