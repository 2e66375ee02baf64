package catalog

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fjod/go_storefront/internal/catalog/repository"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductInput carries the admin-editable fields of a product.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
	Stock       int
	Rating      float64
}

func (in ProductInput) apply(p *domain.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Category = strings.ToLower(strings.TrimSpace(in.Category))
	p.ImageURL = in.ImageURL
	p.Stock = in.Stock
	p.Rating = in.Rating
}

type Service struct {
	repo   repository.ProductRepository
	logger *slog.Logger
}

func NewService(repo repository.ProductRepository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List loads the catalog (narrowed by category at the store) and applies the
// remaining filter and sort in memory.
func (s *Service) List(ctx context.Context, f Filter) ([]*domain.Product, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	products, err := s.repo.ListProducts(ctx, f.Category)
	if err != nil {
		return nil, err
	}
	return Query(products, f), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	p := &domain.Product{ID: uuid.NewString()}
	in.apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "product created", "product_id", p.ID, "category", p.Category)
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	in.apply(p)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "product updated", "product_id", p.ID)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "product deleted", "product_id", id)
	return nil
}

func (s *Service) Categories(ctx context.Context) ([]domain.CategorySummary, error) {
	return s.repo.Categories(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.CountProducts(ctx)
}

// Reserve takes stock for every line or for none of them.
func (s *Service) Reserve(ctx context.Context, lines []domain.StockLine) error {
	for _, l := range lines {
		if l.Quantity < 1 {
			return domain.NewValidationError("quantity", "must be at least 1")
		}
	}
	return s.repo.Reserve(ctx, lines)
}

func (s *Service) Release(ctx context.Context, lines []domain.StockLine) error {
	if err := s.repo.Release(ctx, lines); err != nil {
		s.logger.ErrorContext(ctx, "stock release failed", "error", err, "lines", len(lines))
		return err
	}
	return nil
}
