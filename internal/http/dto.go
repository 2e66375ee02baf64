package http

import (
	"time"

	"github.com/fjod/go_storefront/internal/accounts"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/fjod/go_storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

type UserResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expires_at"`
	User      UserResponse `json:"user"`
}

type ProductResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Stock       int     `json:"stock"`
	Rating      float64 `json:"rating"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

type ProductsResponse struct {
	Products []ProductResponse `json:"products"`
	Count    int               `json:"count"`
}

type OrderItemDTO struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type OrderResponseDTO struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"user_id"`
	Items           []OrderItemDTO         `json:"items"`
	Subtotal        float64                `json:"subtotal"`
	ShippingFee     float64                `json:"shipping_fee"`
	Tax             float64                `json:"tax"`
	TotalAmount     float64                `json:"total_amount"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	Status          string                 `json:"status"`
	Source          string                 `json:"source"`
	CreatedAt       string                 `json:"created_at"`
	UpdatedAt       string                 `json:"updated_at"`
}

type CartItemDTO struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Category  string  `json:"category"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

type CartResponseDTO struct {
	UserID    string        `json:"user_id"`
	Items     []CartItemDTO `json:"items"`
	ItemCount int           `json:"item_count"`
	Total     float64       `json:"total"`
	UpdatedAt string        `json:"updated_at"`
}

type QuoteResponseDTO struct {
	Cart     CartResponseDTO `json:"cart"`
	Subtotal float64         `json:"subtotal"`
	Shipping float64         `json:"shipping"`
	Tax      float64         `json:"tax"`
	Total    float64         `json:"total"`
}

type StatsResponseDTO struct {
	Orders    int     `json:"orders"`
	Sales     float64 `json:"sales"`
	Products  int     `json:"products"`
	Customers int     `json:"customers"`
}

func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func convertUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		IsAdmin:   u.IsAdmin(),
		CreatedAt: timestamp(u.CreatedAt),
	}
}

func convertSession(s *accounts.Session) AuthResponse {
	return AuthResponse{
		Token:     s.Token,
		ExpiresAt: timestamp(s.ExpiresAt),
		User:      convertUser(s.User),
	}
}

func convertProduct(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Stock:       p.Stock,
		Rating:      p.Rating,
		CreatedAt:   timestamp(p.CreatedAt),
		UpdatedAt:   timestamp(p.UpdatedAt),
	}
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     money(it.UnitPrice),
		})
	}

	return OrderResponseDTO{
		ID:              o.ID.String(),
		UserID:          o.UserID,
		Items:           items,
		Subtotal:        money(o.Subtotal),
		ShippingFee:     money(o.ShippingFee),
		Tax:             money(o.Tax),
		TotalAmount:     money(o.TotalAmount),
		ShippingAddress: o.ShippingAddress,
		Status:          o.Status.String(),
		Source:          o.Source,
		CreatedAt:       timestamp(o.CreatedAt),
		UpdatedAt:       timestamp(o.UpdatedAt),
	}
}

func convertOrders(list []*domain.Order) []OrderResponseDTO {
	dtos := make([]OrderResponseDTO, 0, len(list))
	for _, o := range list {
		dtos = append(dtos, convertOrder(o))
	}
	return dtos
}

func convertCart(c *domain.Cart) CartResponseDTO {
	items := make([]CartItemDTO, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, CartItemDTO{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     money(it.Price),
			Image:     it.Image,
			Category:  it.Category,
			Quantity:  it.Quantity,
			LineTotal: money(it.LineTotal()),
		})
	}

	return CartResponseDTO{
		UserID:    c.UserID,
		Items:     items,
		ItemCount: c.ItemCount(),
		Total:     money(c.Total),
		UpdatedAt: timestamp(c.UpdatedAt),
	}
}

func convertQuote(c *domain.Cart, b pricing.Breakdown) QuoteResponseDTO {
	return QuoteResponseDTO{
		Cart:     convertCart(c),
		Subtotal: money(b.Subtotal),
		Shipping: money(b.Shipping),
		Tax:      money(b.Tax),
		Total:    money(b.Total),
	}
}

func convertStats(s *orders.DashboardStats) StatsResponseDTO {
	return StatsResponseDTO{
		Orders:    s.Orders,
		Sales:     money(s.Sales),
		Products:  s.Products,
		Customers: s.Customers,
	}
}
