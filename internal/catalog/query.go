package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortName      SortKey = "name"
	SortRating    SortKey = "rating"
)

func ParseSortKey(s string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(s))); key {
	case "":
		return SortFeatured, nil
	case SortFeatured, SortPriceLow, SortPriceHigh, SortName, SortRating:
		return key, nil
	default:
		return "", domain.NewValidationError("sort", fmt.Sprintf("unknown sort key %q", s))
	}
}

// Filter narrows a product list. Zero values disable a criterion; MaxPrice
// is only applied when HasMaxPrice is set. Category is the single category
// being browsed and Categories an additional selection; a product must
// satisfy both.
type Filter struct {
	Category    string
	Categories  []string
	Search      string
	MinPrice    decimal.Decimal
	MaxPrice    decimal.Decimal
	HasMaxPrice bool
	Sort        SortKey
}

func (f Filter) Validate() error {
	if f.MinPrice.IsNegative() {
		return domain.NewValidationError("min_price", "must not be negative")
	}
	if f.HasMaxPrice && f.MaxPrice.LessThan(f.MinPrice) {
		return domain.NewValidationError("max_price", "must not be below min_price")
	}
	return nil
}

func (f Filter) matches(p *domain.Product, search string) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if len(f.Categories) > 0 && !slices.ContainsFunc(f.Categories, func(c string) bool {
		return strings.EqualFold(p.Category, c)
	}) {
		return false
	}
	if search != "" &&
		!strings.Contains(strings.ToLower(p.Name), search) &&
		!strings.Contains(strings.ToLower(p.Category), search) {
		return false
	}
	if p.Price.LessThan(f.MinPrice) {
		return false
	}
	if f.HasMaxPrice && p.Price.GreaterThan(f.MaxPrice) {
		return false
	}
	return true
}

// Query returns the products matching f in the requested order. The input
// slice is left untouched; all sorts are stable.
func Query(products []*domain.Product, f Filter) []*domain.Product {
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]*domain.Product, 0, len(products))
	for _, p := range products {
		if f.matches(p, search) {
			out = append(out, p)
		}
	}

	switch f.Sort {
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b *domain.Product) int {
			return a.Price.Cmp(b.Price)
		})
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b *domain.Product) int {
			return b.Price.Cmp(a.Price)
		})
	case SortName:
		col := collate.New(language.English, collate.IgnoreCase)
		slices.SortStableFunc(out, func(a, b *domain.Product) int {
			return col.CompareString(a.Name, b.Name)
		})
	case SortRating:
		slices.SortStableFunc(out, func(a, b *domain.Product) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
	case SortFeatured, "":
	}

	return out
}
