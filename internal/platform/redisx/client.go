// Package redisx wraps the go-redis client with the two-connection
// discipline the gateway requires: one for commands, one dedicated to
// pub/sub subscription, since a subscribed connection cannot issue unrelated
// commands.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"edgegate/internal/platform/config"
)

// Client wraps the go-redis command connection with health checking.
type Client struct {
	*redis.Client
	prefix string
}

// New creates the command connection from the given configuration.
func New(cfg *config.Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.RedisPoolSize
	opts.DialTimeout = cfg.RedisDialTimeout
	opts.ReadTimeout = cfg.RedisReadTimeout
	opts.WriteTimeout = cfg.RedisWriteTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RedisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{Client: client, prefix: cfg.RedisKeyPrefix}, nil
}

// Key prefixes k with the configured key prefix.
func (c *Client) Key(k string) string {
	return c.prefix + k
}

// Health checks if the Redis connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Close closes the command connection.
func (c *Client) Close() error {
	return c.Client.Close()
}

// Subscriber opens a dedicated connection pinned to pub/sub mode for the
// given channel. The returned *redis.PubSub must be closed independently of
// (and, on shutdown, before) the command connection.
func (c *Client) Subscriber(ctx context.Context, channel string) *redis.PubSub {
	return c.Client.Subscribe(ctx, channel)
}

// WaitReady blocks until the command connection responds or the timeout
// elapses.
func (c *Client) WaitReady(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Health(ctx)
}
