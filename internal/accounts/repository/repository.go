package repository

import (
	"context"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
)

var (
	ErrUserNotFound   = fmt.Errorf("user not found: %w", domain.ErrNotFound)
	ErrDuplicateEmail = fmt.Errorf("email already registered: %w", domain.ErrConflict)
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	CountCustomers(ctx context.Context) (int, error)
	RunMigrations(dir string) error
}
