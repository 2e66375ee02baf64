package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/accounts"
	"github.com/fjod/go_storefront/internal/domain"
)

type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (*accounts.Session, error)
	Login(ctx context.Context, email, password string) (*accounts.Session, error)
	Profile(ctx context.Context, id domain.Identity) (*domain.User, error)
	ListUsers(ctx context.Context, id domain.Identity) ([]*domain.User, error)
}

type UsersHandler struct {
	accounts AccountService
	timeout  time.Duration
	logger   *slog.Logger
}

func NewUsersHandler(accounts AccountService, timeout time.Duration, logger *slog.Logger) *UsersHandler {
	return &UsersHandler{
		accounts: accounts,
		timeout:  timeout,
		logger:   logger,
	}
}

type RegisterRequestDTO struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/v1/users/register
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RegisterRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	session, err := h.accounts.Register(ctx, accounts.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertSession(session))
}

// POST /api/v1/users/login
func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "validation_failed", "email and password are required")
		return
	}

	session, err := h.accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, convertSession(session))
}

// GET /api/v1/users/profile
func (h *UsersHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	u, err := h.accounts.Profile(ctx, IdentityFrom(r.Context()))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, convertUser(u))
}

// GET /api/v1/users
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	users, err := h.accounts.ListUsers(ctx, IdentityFrom(r.Context()))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	dtos := make([]UserResponse, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, convertUser(u))
	}
	respondJSON(w, http.StatusOK, dtos)
}
