package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/use-agent/mirror/models"
)

// Redis is a Store shared by every instance pointed at the same server.
// Entries expire server-side after the configured TTL.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to the server at rawURL (redis://[:password@]host:port/db)
// and verifies it answers PING.
func NewRedis(ctx context.Context, rawURL, prefix string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("cache: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: ping redis: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string, maxAge time.Duration) (*models.CrawlResult, bool) {
	if maxAge <= 0 {
		return nil, false
	}
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("cache read failed", "error", err)
		}
		return nil, false
	}

	var res models.CrawlResult
	if err := json.Unmarshal(b, &res); err != nil {
		slog.Warn("cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	if !fresh(&res, maxAge) {
		return nil, false
	}
	return &res, true
}

func (r *Redis) Set(ctx context.Context, key string, res *models.CrawlResult) {
	if res == nil || !res.Success {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		slog.Warn("cache encode failed", "error", err)
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, b, r.ttl).Err(); err != nil {
		slog.Warn("cache write failed", "error", err)
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}
