package client

import (
	"net/url"
	"strconv"

	"github.com/fjod/go_storefront/internal/domain"
)

type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	IsAdmin bool   `json:"is_admin"`
}

type AuthResult struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	User      User   `json:"user"`
}

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Stock       int     `json:"stock"`
	Rating      float64 `json:"rating"`
}

type Category struct {
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
}

// ProductQuery mirrors the catalog filter. Nil price bounds are omitted.
type ProductQuery struct {
	Category   string
	Categories []string
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
	Sort       string
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	for _, c := range q.Categories {
		v.Add("categories", c)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.MinPrice != nil {
		v.Set("min_price", strconv.FormatFloat(*q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice != nil {
		v.Set("max_price", strconv.FormatFloat(*q.MaxPrice, 'f', -1, 64))
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	return v
}

type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrderRequest struct {
	Items           []OrderLine            `json:"items"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
}

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type Order struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"user_id"`
	Items           []OrderItem            `json:"items"`
	Subtotal        float64                `json:"subtotal"`
	ShippingFee     float64                `json:"shipping_fee"`
	Tax             float64                `json:"tax"`
	TotalAmount     float64                `json:"total_amount"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	Status          string                 `json:"status"`
	Source          string                 `json:"source"`
	CreatedAt       string                 `json:"created_at"`
}

type Stats struct {
	Orders    int     `json:"orders"`
	Sales     float64 `json:"sales"`
	Products  int     `json:"products"`
	Customers int     `json:"customers"`
}
