package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/orders/repository"
	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const SourceDirect = "direct"

// Catalog is the slice of the catalog service that order placement needs.
type Catalog interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	Reserve(ctx context.Context, lines []domain.StockLine) error
	Release(ctx context.Context, lines []domain.StockLine) error
	Count(ctx context.Context) (int, error)
}

type CustomerCounter interface {
	CountCustomers(ctx context.Context) (int, error)
}

type LineRequest struct {
	ProductID string
	Quantity  int
}

type PlaceOrderRequest struct {
	Items           []LineRequest
	ShippingAddress domain.ShippingAddress
	// Source tags where the order came from; empty means SourceDirect.
	Source string
}

type DashboardStats struct {
	Orders    int
	Sales     decimal.Decimal
	Products  int
	Customers int
}

type Service struct {
	repo      repository.OrderRepository
	catalog   Catalog
	customers CustomerCounter
	pricing   *pricing.Calculator
	logger    *slog.Logger
}

func NewService(
	repo repository.OrderRepository,
	catalog Catalog,
	customers CustomerCounter,
	calc *pricing.Calculator,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		catalog:   catalog,
		customers: customers,
		pricing:   calc,
		logger:    logger,
	}
}

// stockLines validates the requested lines and merges repeated products.
func stockLines(items []LineRequest) ([]domain.StockLine, error) {
	if len(items) == 0 {
		return nil, domain.NewValidationError("items", "order has no items")
	}

	lines := make([]domain.StockLine, 0, len(items))
	index := make(map[string]int, len(items))
	for i, it := range items {
		id := strings.TrimSpace(it.ProductID)
		if id == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if it.Quantity < 1 {
			return nil, domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be at least 1")
		}
		if at, ok := index[id]; ok {
			lines[at].Quantity += it.Quantity
			continue
		}
		index[id] = len(lines)
		lines = append(lines, domain.StockLine{ProductID: id, Quantity: it.Quantity})
	}
	return lines, nil
}

// PlaceOrder prices the requested lines from the catalog, reserves stock and
// stores the order with status New. Client-supplied prices are never used.
func (s *Service) PlaceOrder(ctx context.Context, id domain.Identity, req PlaceOrderRequest) (*domain.Order, error) {
	if err := auth.Authorize(id, domain.RoleCustomer); err != nil {
		return nil, err
	}

	lines, err := stockLines(req.Items)
	if err != nil {
		return nil, err
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		p, err := s.catalog.Get(ctx, line.ProductID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewValidationError("items", fmt.Sprintf("unknown product %s", line.ProductID))
		}
		if err != nil {
			return nil, err
		}
		items = append(items, domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
		})
	}
	quote := s.pricing.QuoteItems(items)

	source := req.Source
	if source == "" {
		source = SourceDirect
	}
	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          id.UserID,
		Items:           items,
		Subtotal:        quote.Subtotal,
		ShippingFee:     quote.Shipping,
		Tax:             quote.Tax,
		TotalAmount:     quote.Total,
		ShippingAddress: req.ShippingAddress,
		Status:          domain.OrderStatusNew,
		Source:          source,
	}

	if err := s.catalog.Reserve(ctx, lines); err != nil {
		return nil, err
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		s.logger.ErrorContext(ctx, "create order failed, releasing stock", "error", err, "user_id", id.UserID)
		if relErr := s.catalog.Release(context.WithoutCancel(ctx), lines); relErr != nil {
			s.logger.ErrorContext(ctx, "stock release after failed order", "error", relErr)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "order placed",
		"order_id", order.ID.String(),
		"user_id", order.UserID,
		"total", order.TotalAmount.String(),
		"source", order.Source,
	)
	return order, nil
}

func (s *Service) ListMine(ctx context.Context, id domain.Identity) ([]*domain.Order, error) {
	if err := auth.Authorize(id, domain.RoleCustomer); err != nil {
		return nil, err
	}
	return s.repo.ListOrdersByUserID(ctx, id.UserID)
}

func (s *Service) ListAll(ctx context.Context, id domain.Identity) ([]*domain.Order, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return nil, err
	}
	return s.repo.ListOrders(ctx)
}

// Get returns the order to its owner or to an admin. Anyone else gets
// NotFound so other users' order ids stay hidden.
func (s *Service) Get(ctx context.Context, id domain.Identity, orderID string) (*domain.Order, error) {
	if err := auth.Authorize(id, domain.RoleCustomer); err != nil {
		return nil, err
	}

	oid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, repository.ErrOrderNotFound
	}

	o, err := s.repo.GetOrderByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if o.UserID != id.UserID && !id.IsAdmin() {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

// TransitionStatus moves an order to the named status. Cancelling returns
// the reserved stock to the catalog.
func (s *Service) TransitionStatus(ctx context.Context, id domain.Identity, orderID, status string) (*domain.Order, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return nil, err
	}

	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return nil, repository.ErrOrderNotFound
	}

	o, err := s.repo.TransitionStatus(ctx, oid, next)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "order status changed", "order_id", o.ID.String(), "status", o.Status.String(), "by", id.UserID)

	if o.Status == domain.OrderStatusCancelled {
		lines := make([]domain.StockLine, 0, len(o.Items))
		for _, it := range o.Items {
			lines = append(lines, domain.StockLine{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		if err := s.catalog.Release(ctx, lines); err != nil {
			s.logger.ErrorContext(ctx, "stock release after cancel", "error", err, "order_id", o.ID.String())
		}
	}
	return o, nil
}

func (s *Service) Dashboard(ctx context.Context, id domain.Identity) (*DashboardStats, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return nil, err
	}

	st, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	products, err := s.catalog.Count(ctx)
	if err != nil {
		return nil, err
	}
	customers, err := s.customers.CountCustomers(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		Orders:    st.OrderCount,
		Sales:     st.Sales,
		Products:  products,
		Customers: customers,
	}, nil
}
