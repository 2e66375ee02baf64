package repository

import (
	"context"
	"fmt"

	"github.com/fjod/go_storefront/internal/domain"
)

var ErrCartNotFound = fmt.Errorf("cart not found: %w", domain.ErrNotFound)

type CartRepository interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	// UpsertCart replaces the stored cart of cart.UserID.
	UpsertCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, userID string) error
	CreateIndexes(ctx context.Context) error
}
