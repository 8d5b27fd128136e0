// Package cache keeps the public post listing in Redis so GET /posts does
// not run the owner join on every request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkpost/config"
	"inkpost/models"

	"github.com/redis/go-redis/v9"
)

const postsKey = "inkpost:posts"

// NewRedis parses the URL, connects, and pings before returning.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// Posts caches the listing under a single key. Redis errors are logged
// and treated as a miss; the store stays the source of truth.
type Posts struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPosts(rdb *redis.Client, ttl time.Duration) *Posts {
	return &Posts{rdb: rdb, ttl: ttl}
}

func (c *Posts) GetPosts(ctx context.Context) ([]models.PostView, bool) {
	data, err := c.rdb.Get(ctx, postsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		slog.WarnContext(ctx, "post cache read failed", "error", err)
		return nil, false
	}

	var posts []models.PostView
	if err := json.Unmarshal(data, &posts); err != nil {
		slog.WarnContext(ctx, "post cache entry corrupt", "error", err)
		return nil, false
	}
	return posts, true
}

func (c *Posts) SetPosts(ctx context.Context, posts []models.PostView) {
	data, err := json.Marshal(posts)
	if err != nil {
		slog.WarnContext(ctx, "post cache encode failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, postsKey, data, c.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "post cache write failed", "error", err)
	}
}

func (c *Posts) Invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, postsKey).Err(); err != nil {
		slog.WarnContext(ctx, "post cache invalidate failed", "error", err)
	}
}
