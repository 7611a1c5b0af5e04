// Package redisclient wraps the go-redis client used by the subscription
// wizard session store.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is a thin wrapper so callers don't depend directly on the
// go-redis package type, keeping a future driver swap localized here.
type Client struct {
	rdb *redis.Client
}

// New builds a Client from a redis:// URL. It does not connect eagerly;
// call Ping to verify connectivity.
func New(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &Client{rdb: redis.NewClient(opt)}, nil
}

// Ping verifies connectivity with a short deadline.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error { return c.rdb.Close() }

// Raw exposes the underlying go-redis client for packages (wizard) that
// need the full command surface.
func (c *Client) Raw() *redis.Client { return c.rdb }
