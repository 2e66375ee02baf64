package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, id domain.Identity, req orders.PlaceOrderRequest) (*domain.Order, error)
	ListMine(ctx context.Context, id domain.Identity) ([]*domain.Order, error)
	ListAll(ctx context.Context, id domain.Identity) ([]*domain.Order, error)
	Get(ctx context.Context, id domain.Identity, orderID string) (*domain.Order, error)
	TransitionStatus(ctx context.Context, id domain.Identity, orderID, status string) (*domain.Order, error)
	Dashboard(ctx context.Context, id domain.Identity) (*orders.DashboardStats, error)
}

type OrdersHandler struct {
	orders  OrderService
	timeout time.Duration
	logger  *slog.Logger
}

func NewOrdersHandler(orders OrderService, timeout time.Duration, logger *slog.Logger) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
		logger:  logger,
	}
}

type OrderLineRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderRequestDTO carries no prices; the server prices every line.
type PlaceOrderRequestDTO struct {
	Items           []OrderLineRequestDTO  `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

// POST /api/v1/orders
func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PlaceOrderRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	lines := make([]orders.LineRequest, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, orders.LineRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	o, err := h.orders.PlaceOrder(ctx, IdentityFrom(r.Context()), orders.PlaceOrderRequest{
		Items:           lines,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertOrder(o))
}

// GET /api/v1/orders/my-orders
func (h *OrdersHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.orders.ListMine(ctx, IdentityFrom(r.Context()))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrders(list))
}

// GET /api/v1/orders
func (h *OrdersHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.orders.ListAll(ctx, IdentityFrom(r.Context()))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrders(list))
}

// GET /api/v1/orders/{id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	o, err := h.orders.Get(ctx, IdentityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(o))
}

// PUT /api/v1/orders/{id}/status
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateStatusRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	o, err := h.orders.TransitionStatus(ctx, IdentityFrom(r.Context()), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(o))
}

// GET /api/v1/admin/stats
func (h *OrdersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st, err := h.orders.Dashboard(ctx, IdentityFrom(r.Context()))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, convertStats(st))
}
