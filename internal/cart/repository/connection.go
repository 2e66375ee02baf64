package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOptions configures the cart store connection. Zero durations and
// pool size fall back to the driver-friendly defaults below.
type MongoOptions struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

const (
	defaultConnectTimeout = 10 * time.Second
	defaultMaxPoolSize    = 50
)

// Open connects to MongoDB, verifies the connection, and returns the cart
// database. The caller owns the client and disconnects it on shutdown.
func Open(ctx context.Context, o MongoOptions) (*mongo.Database, error) {
	if o.URI == "" || o.Database == "" {
		return nil, errors.New("mongo uri and database are required")
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.MaxPoolSize == 0 {
		o.MaxPoolSize = defaultMaxPoolSize
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(o.URI).
		SetConnectTimeout(o.ConnectTimeout).
		SetServerSelectionTimeout(o.ConnectTimeout/2).
		SetMaxPoolSize(o.MaxPoolSize).
		SetAppName("storefront-carts"))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, o.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("ping mongo at %s: %w", o.URI, err)
	}

	return client.Database(o.Database), nil
}
