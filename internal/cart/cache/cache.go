// Package cache keeps a short-lived copy of each user's cart in front of
// the cart store.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

// CartCache is keyed by user id. Get reports ErrCacheMiss for an absent
// entry; any other error means the cache itself failed.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cart cache miss")

// Options sets entry lifetime. Each entry lives TTL plus a random share of
// Jitter.
type Options struct {
	TTL    time.Duration
	Jitter time.Duration
}

func DefaultOptions() Options {
	return Options{TTL: 15 * time.Minute, Jitter: 5 * time.Minute}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TTL <= 0 {
		o.TTL = d.TTL
	}
	if o.Jitter < 0 {
		o.Jitter = 0
	}
	return o
}
