package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	Stock       int
	Rating      float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Product) Validate() error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return NewValidationError("name", "is required")
	case strings.TrimSpace(p.Category) == "":
		return NewValidationError("category", "is required")
	case p.Price.IsNegative():
		return NewValidationError("price", "must not be negative")
	case p.Stock < 0:
		return NewValidationError("stock", "must not be negative")
	case p.Rating < 0 || p.Rating > 5:
		return NewValidationError("rating", "must be between 0 and 5")
	}
	return nil
}

// CategorySummary is one row of the category listing.
type CategorySummary struct {
	Name         string `json:"name"`
	ProductCount int    `json:"product_count"`
}

// StockLine is a quantity of one product to reserve or release.
type StockLine struct {
	ProductID string
	Quantity  int
}
