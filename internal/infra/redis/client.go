package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for run coordination.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func lockKey(cycle int) string {
	return fmt.Sprintf("collect_lock:%d", cycle)
}

// AcquireRunLock attempts to acquire the per-cycle collection lock. A second
// collector started by the scheduler while a run is in flight must not race
// the checkpoint.
func (c *Client) AcquireRunLock(
	ctx context.Context,
	cycle int,
	runID string,
	ttl time.Duration,
) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, lockKey(cycle), runID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// RefreshRunLock extends the TTL of a held lock.
func (c *Client) RefreshRunLock(ctx context.Context, cycle int, ttl time.Duration) error {
	return c.rdb.Expire(ctx, lockKey(cycle), ttl).Err()
}

// ReleaseRunLock releases the per-cycle lock if this run still owns it.
func (c *Client) ReleaseRunLock(ctx context.Context, cycle int, runID string) error {
	val, err := c.rdb.Get(ctx, lockKey(cycle)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get lock failed: %w", err)
	}
	if val != runID {
		// Another run took over after our TTL lapsed. Leave it alone.
		return nil
	}
	return c.rdb.Del(ctx, lockKey(cycle)).Err()
}

// LockHolder returns the run ID currently holding the cycle lock, if any.
func (c *Client) LockHolder(ctx context.Context, cycle int) (string, error) {
	val, err := c.rdb.Get(ctx, lockKey(cycle)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get lock failed: %w", err)
	}
	return val, nil
}
