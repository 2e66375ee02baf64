package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/cart/cache"
	"github.com/fjod/go_storefront/internal/cart/repository"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/fjod/go_storefront/internal/orders/events"
	"github.com/fjod/go_storefront/internal/pricing"
	"golang.org/x/sync/singleflight"
)

type ProductLookup interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, id domain.Identity, req orders.PlaceOrderRequest) (*domain.Order, error)
}

var ErrCheckoutInProgress = fmt.Errorf("checkout already in progress: %w", domain.ErrConflict)

// errUnchanged makes mutate skip the write.
var errUnchanged = errors.New("cart unchanged")

// Service keeps one persistent cart per user. Writes are read-modify-write
// on the whole cart, serialized per user within the process; across
// processes the last write wins.
type Service struct {
	repo     repository.CartRepository
	cache    cache.CartCache
	products ProductLookup
	orders   OrderPlacer
	pricing  *pricing.Calculator
	logger   *slog.Logger
	sfg      singleflight.Group

	locks     sync.Map // user id -> *sync.Mutex
	checkouts sync.Map // user id -> struct{}, present while a checkout runs
}

func NewService(
	repo repository.CartRepository,
	cache cache.CartCache,
	products ProductLookup,
	orders OrderPlacer,
	calc *pricing.Calculator,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		products: products,
		orders:   orders,
		pricing:  calc,
		logger:   logger,
	}
}

func (s *Service) loadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(userID), nil
	}
	return cart, err
}

// GetCart returns the user's cart, or an empty one when none is stored.
// Reads go through the cache; concurrent misses for one user share a
// single store read.
func (s *Service) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (any, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "cart cache get failed", "error", err, "user_id", userID)
		}

		cart, err = s.loadCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := s.cache.Set(setCtx, userID, cart); err != nil {
			s.logger.WarnContext(ctx, "cart cache set failed", "error", err, "user_id", userID)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	// the singleflight result is shared between callers
	shared := v.(*domain.Cart)
	cp := *shared
	cp.Items = append([]domain.CartItem{}, shared.Items...)
	return &cp, nil
}

func (s *Service) lock(userID string) func() {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// mutate applies fn to the stored cart and writes it back. It reads the
// store, not the cache. When fn returns errUnchanged nothing is written.
func (s *Service) mutate(ctx context.Context, userID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	defer s.lock(userID)()

	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		if errors.Is(err, errUnchanged) {
			return cart, nil
		}
		return nil, err
	}

	if err := s.repo.UpsertCart(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "cart upsert failed", "error", err, "user_id", userID)
		return nil, err
	}
	s.invalidateCache(userID)
	return cart, nil
}

// AddItem adds qty units of a catalog product, taking name and price from
// the catalog.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, userID, func(c *domain.Cart) error {
		return c.Add(domain.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Image:     p.ImageURL,
			Category:  p.Category,
		}, qty)
	})
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, qty int) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(c *domain.Cart) error {
		return c.UpdateQuantity(productID, qty)
	})
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(c *domain.Cart) error {
		if !c.Remove(productID) {
			return fmt.Errorf("cart item %s: %w", productID, domain.ErrNotFound)
		}
		return nil
	})
}

// ClearCart deletes the stored cart. Clearing an absent cart is not an error.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	defer s.lock(userID)()

	if err := s.repo.DeleteCart(ctx, userID); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.logger.ErrorContext(ctx, "cart delete failed", "error", err, "user_id", userID)
		return err
	}
	s.invalidateCache(userID)
	return nil
}

func (s *Service) Quote(ctx context.Context, userID string) (*domain.Cart, pricing.Breakdown, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, pricing.Breakdown{}, err
	}
	return cart, s.pricing.QuoteCart(cart), nil
}

// Checkout places an order from the current cart and, once the order is
// accepted, deducts the ordered lines from the cart. Items added while the
// order was being placed stay in the cart. One checkout per user runs at a
// time; a concurrent one fails with ErrCheckoutInProgress.
func (s *Service) Checkout(ctx context.Context, id domain.Identity, address domain.ShippingAddress) (*domain.Order, error) {
	if err := auth.Authorize(id, domain.RoleCustomer); err != nil {
		return nil, err
	}
	if _, busy := s.checkouts.LoadOrStore(id.UserID, struct{}{}); busy {
		return nil, ErrCheckoutInProgress
	}
	defer s.checkouts.Delete(id.UserID)

	cart, err := s.loadCart(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.NewValidationError("cart", "cart is empty")
	}

	lines := make([]orders.LineRequest, 0, len(cart.Items))
	ordered := make([]domain.StockLine, 0, len(cart.Items))
	for _, it := range cart.Items {
		lines = append(lines, orders.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
		ordered = append(ordered, domain.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := s.orders.PlaceOrder(ctx, id, orders.PlaceOrderRequest{
		Items:           lines,
		ShippingAddress: address,
		Source:          events.SourceCart,
	})
	if err != nil {
		return nil, err
	}

	// the order is committed; settle even if the caller has gone away
	if err := s.SettleOrder(context.WithoutCancel(ctx), id.UserID, order.ID.String(), ordered); err != nil {
		s.logger.ErrorContext(ctx, "cart settle after checkout failed", "error", err, "user_id", id.UserID, "order_id", order.ID.String())
	}
	return order, nil
}

// SettleOrder deducts the lines of a committed order from the user's cart.
// It is idempotent per order id, so checkout and the order event consumer
// can both call it.
func (s *Service) SettleOrder(ctx context.Context, userID, orderID string, lines []domain.StockLine) error {
	_, err := s.mutate(ctx, userID, func(c *domain.Cart) error {
		if c.ID == "" && c.IsEmpty() {
			return errUnchanged
		}
		if !c.Settle(orderID, lines) {
			return errUnchanged
		}
		return nil
	})
	return err
}

func (s *Service) invalidateCache(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cart cache invalidate failed", "error", err, "user_id", userID)
	}
}
