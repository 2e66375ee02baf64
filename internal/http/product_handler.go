package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CatalogService interface {
	List(ctx context.Context, f catalog.Filter) ([]*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, in catalog.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id string, in catalog.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]domain.CategorySummary, error)
	Export(ctx context.Context, w io.Writer) error
}

type ProductHandler struct {
	catalog CatalogService
	timeout time.Duration
	logger  *slog.Logger
}

func NewProductHandler(catalog CatalogService, timeout time.Duration, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		timeout: timeout,
		logger:  logger,
	}
}

type ProductRequestDTO struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Stock       int     `json:"stock"`
	Rating      float64 `json:"rating"`
}

func (d ProductRequestDTO) input() catalog.ProductInput {
	return catalog.ProductInput{
		Name:        d.Name,
		Description: d.Description,
		Price:       decimal.NewFromFloat(d.Price),
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		Stock:       d.Stock,
		Rating:      d.Rating,
	}
}

// parseFilter reads the catalog query parameters. Missing parameters
// disable their criterion.
func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()

	sort, err := catalog.ParseSortKey(q.Get("sort"))
	if err != nil {
		return catalog.Filter{}, err
	}
	f := catalog.Filter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Sort:     sort,
	}
	// ?categories=a&categories=b or ?categories=a,b
	for _, raw := range q["categories"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.Categories = append(f.Categories, c)
			}
		}
	}

	if raw := q.Get("min_price"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return catalog.Filter{}, domain.NewValidationError("min_price", "must be a number")
		}
		f.MinPrice = v
	}
	if raw := q.Get("max_price"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return catalog.Filter{}, domain.NewValidationError("max_price", "must be a number")
		}
		f.MaxPrice = v
		f.HasMaxPrice = true
	}
	return f, nil
}

// GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	f, err := parseFilter(r)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	res, err := h.catalog.List(ctx, f)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	products := make([]ProductResponse, len(res))
	for i, p := range res {
		products[i] = convertProduct(p)
	}
	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products, Count: len(products)})
}

// GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, err := h.catalog.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, convertProduct(p))
}

// POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProductRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	p, err := h.catalog.Create(ctx, req.input())
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, convertProduct(p))
}

// PUT /api/v1/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProductRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	p, err := h.catalog.Update(ctx, chi.URLParam(r, "id"), req.input())
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, convertProduct(p))
}

// DELETE /api/v1/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.catalog.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/categories
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

// GET /api/v1/products/export
func (h *ProductHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	// buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	if err := h.catalog.Export(ctx, &buf); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="products.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write failed", "error", err)
	}
}
