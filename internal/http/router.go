package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Gate     *auth.Gate
	Accounts AccountService
	Catalog  CatalogService
	Orders   OrderService
	// Carts and Feed are optional; their routes are only mounted when set.
	Carts          CartService
	Feed           http.Handler
	HealthChecks   map[string]HealthCheck
	Logger         *slog.Logger
	RequestTimeout time.Duration
	CORSOrigins    []string
	AuthRateLimit  int
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	users := NewUsersHandler(cfg.Accounts, cfg.RequestTimeout, logger)
	products := NewProductHandler(cfg.Catalog, cfg.RequestTimeout, logger)
	orders := NewOrdersHandler(cfg.Orders, cfg.RequestTimeout, logger)
	limiter := NewRateLimiter(cfg.AuthRateLimit)

	customerOnly := RequireRole(domain.RoleCustomer, logger)
	adminOnly := RequireRole(domain.RoleAdmin, logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler(cfg.HealthChecks))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Authenticate(cfg.Gate))
		r.Get("/health", healthHandler(cfg.HealthChecks))

		withDeadline := func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Use(middleware.Compress(5))
		}

		r.Group(func(r chi.Router) {
			withDeadline(r)

			r.Route("/users", func(r chi.Router) {
				r.With(limiter.Middleware).Post("/register", users.Register)
				r.With(limiter.Middleware).Post("/login", users.Login)
				r.With(customerOnly).Get("/profile", users.Profile)
				r.With(adminOnly).Get("/", users.List)
			})

			r.Get("/categories", products.Categories)
			r.Route("/products", func(r chi.Router) {
				r.Get("/", products.List)
				r.With(adminOnly).Get("/export", products.Export)
				r.Get("/{id}", products.Get)
				r.With(adminOnly).Post("/", products.Create)
				r.With(adminOnly).Put("/{id}", products.Update)
				r.With(adminOnly).Delete("/{id}", products.Delete)
			})

			r.With(adminOnly).Get("/admin/stats", orders.Stats)

			if cfg.Carts != nil {
				carts := NewCartHandler(cfg.Carts, cfg.RequestTimeout, logger)
				r.Route("/cart", func(r chi.Router) {
					r.Use(customerOnly)
					r.Get("/", carts.GetCart)
					r.Delete("/", carts.ClearCart)
					r.Get("/quote", carts.Quote)
					r.Post("/checkout", carts.Checkout)
					r.Post("/items", carts.AddItem)
					r.Put("/items/{product_id}", carts.UpdateQuantity)
					r.Delete("/items/{product_id}", carts.RemoveItem)
				})
			}
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(customerOnly)

			// websocket upgrades bypass the timeout and compression middleware
			if cfg.Feed != nil {
				r.With(adminOnly).Get("/feed", cfg.Feed.ServeHTTP)
			}

			r.Group(func(r chi.Router) {
				withDeadline(r)
				r.Post("/", orders.PlaceOrder)
				r.Get("/my-orders", orders.ListMine)
				r.With(adminOnly).Get("/", orders.ListAll)
				r.Get("/{id}", orders.GetOrder)
				r.With(adminOnly).Put("/{id}/status", orders.UpdateStatus)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront-http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
				continue
			}
			body[name] = "ok"
		}
		respondJSON(w, status, body)
	}
}
