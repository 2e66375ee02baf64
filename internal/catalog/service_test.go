package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/fjod/go_storefront/internal/catalog/repository"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

type mockRepository struct {
	mu       sync.Mutex
	products []*domain.Product
	err      error
	reserved []domain.StockLine
	released []domain.StockLine
}

func (m *mockRepository) ListProducts(_ context.Context, category string) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		if category == "" || strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepository) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

func (m *mockRepository) CreateProduct(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.products = append(m.products, p)
	return nil
}

func (m *mockRepository) UpdateProduct(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == p.ID {
			m.products[i] = p
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *mockRepository) DeleteProduct(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].ID == id {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return nil
		}
	}
	return repository.ErrProductNotFound
}

func (m *mockRepository) Categories(context.Context) ([]domain.CategorySummary, error) {
	return []domain.CategorySummary{{Name: "sarees", ProductCount: 4}}, nil
}

func (m *mockRepository) CountProducts(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}

func (m *mockRepository) Reserve(_ context.Context, lines []domain.StockLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.reserved = append(m.reserved, lines...)
	return nil
}

func (m *mockRepository) Release(_ context.Context, lines []domain.StockLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, lines...)
	return m.err
}

func (m *mockRepository) RunMigrations(string) error { return nil }
func (m *mockRepository) Close() error               { return nil }

func newTestService(products ...*domain.Product) (*Service, *mockRepository) {
	repo := &mockRepository{products: products}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, logger), repo
}

func TestService_ListAppliesFilterAndSort(t *testing.T) {
	svc, _ := newTestService(sampleCatalog()...)

	got, err := svc.List(context.Background(), Filter{Category: "jewelry", Sort: SortPriceLow})
	require.NoError(t, err)
	assert.Equal(t, []string{"11", "9"}, ids(got))
}

func TestService_ListRejectsInvalidFilter(t *testing.T) {
	svc, _ := newTestService(sampleCatalog()...)

	_, err := svc.List(context.Background(), Filter{MinPrice: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_CreateNormalizesAndAssignsID(t *testing.T) {
	svc, repo := newTestService()

	p, err := svc.Create(context.Background(), ProductInput{
		Name:     "  Silk Dupatta ",
		Price:    decimal.NewFromInt(999),
		Category: "Ethnic",
		Stock:    3,
		Rating:   4,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Silk Dupatta", p.Name)
	assert.Equal(t, "ethnic", p.Category)
	assert.Len(t, repo.products, 1)
}

func TestService_CreateValidation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	tests := []struct {
		name string
		in   ProductInput
	}{
		{"missing name", ProductInput{Category: "x", Price: decimal.NewFromInt(1)}},
		{"missing category", ProductInput{Name: "x", Price: decimal.NewFromInt(1)}},
		{"negative price", ProductInput{Name: "x", Category: "x", Price: decimal.NewFromInt(-1)}},
		{"negative stock", ProductInput{Name: "x", Category: "x", Stock: -1}},
		{"rating too high", ProductInput{Name: "x", Category: "x", Rating: 5.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
	assert.Empty(t, repo.products)
}

func TestService_UpdateUnknownProduct(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Update(context.Background(), "missing", ProductInput{Name: "x", Category: "y"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Update(t *testing.T) {
	svc, _ := newTestService(sampleCatalog()...)
	ctx := context.Background()

	p, err := svc.Update(ctx, "3", ProductInput{
		Name: "Cotton Handloom Saree", Category: "sarees", Price: decimal.NewFromInt(1799), Stock: 2, Rating: 4.5,
	})
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(1799)))

	got, err := svc.Get(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)
}

func TestService_ReserveRejectsZeroQuantity(t *testing.T) {
	svc, repo := newTestService()

	err := svc.Reserve(context.Background(), []domain.StockLine{{ProductID: "1", Quantity: 0}})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, repo.reserved)
}

func TestService_ReleasePropagatesError(t *testing.T) {
	svc, repo := newTestService()
	repo.err = errors.New("disk full")

	err := svc.Release(context.Background(), []domain.StockLine{{ProductID: "1", Quantity: 1}})
	assert.EqualError(t, err, "disk full")
}

func TestService_Export(t *testing.T) {
	svc, _ := newTestService(sampleCatalog()...)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), &buf))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	assert.Equal(t, "Products", sheet.Name)
	require.Len(t, sheet.Rows, len(sampleCatalog())+1)
	assert.Equal(t, "ID", sheet.Rows[0].Cells[0].Value)
	assert.Equal(t, "1", sheet.Rows[1].Cells[0].Value)
	assert.Equal(t, "Royal Silk Banarasi Saree", sheet.Rows[1].Cells[1].Value)
}
