// Package redis caches live game states and turn timers.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis client for game state operations.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a Redis client from a connection URL.
func NewClient(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// NewClientFromPool wraps an existing redis.Client for use in tests.
func NewClientFromPool(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// EnableExpiryEvents turns on keyspace notifications for expired keys,
// which the turn timer listener relies on. Managed Redis services may
// refuse CONFIG SET; the poller still catches expired turns then.
func (c *Client) EnableExpiryEvents(ctx context.Context) error {
	if err := c.rdb.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		return fmt.Errorf("enable expiry events: %w", err)
	}
	return nil
}

// SubscribeExpired subscribes to expired-key events on the client's
// database.
func (c *Client) SubscribeExpired(ctx context.Context) *redis.PubSub {
	return c.rdb.PSubscribe(ctx, fmt.Sprintf("__keyevent@%d__:expired", c.rdb.Options().DB))
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
