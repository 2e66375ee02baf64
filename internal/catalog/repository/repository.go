package repository

import (
	"context"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
)

var (
	ErrProductNotFound   = fmt.Errorf("product not found: %w", domain.ErrNotFound)
	ErrInsufficientStock = fmt.Errorf("insufficient stock: %w", domain.ErrValidation)
)

type ProductRepository interface {
	ListProducts(ctx context.Context, category string) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]domain.CategorySummary, error)
	CountProducts(ctx context.Context) (int, error)
	// Reserve decrements stock for every line or for none of them.
	Reserve(ctx context.Context, lines []domain.StockLine) error
	Release(ctx context.Context, lines []domain.StockLine) error
	RunMigrations(string) error
	Close() error
}
