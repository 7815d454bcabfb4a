package news

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"QuantScout/internal/model"
)

// Result is the news context of one symbol for one day.
type Result struct {
	News      []model.NewsItem `json:"news"`
	Sentiment model.Sentiment  `json:"sentiment"`
}

// Cache stores analysis results between scans.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, r *Result) error
}

// CacheKey identifies the analysis of symbol on the UTC day of t.
func CacheKey(symbol string, t time.Time) string {
	return fmt.Sprintf("quantscout:news:%s:%s", symbol, t.UTC().Format("2006-01-02"))
}

// NoCache never stores anything.
type NoCache struct{}

func (NoCache) Get(context.Context, string) (*Result, bool, error) { return nil, false, nil }
func (NoCache) Set(context.Context, string, *Result) error         { return nil }

// RedisCache keeps results in Redis with a fixed expiration.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server at addr.
func NewRedisCache(addr, password string, db int, ttl time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client, ttl: ttl}
}

// Ping checks that the server is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	log.Debugf("redis get key %q", key)

	// skip null data
	if len(data) == 0 || string(data) == "null" {
		return nil, false, nil
	}

	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &r, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, r *Result) error {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	log.Debugf("redis set key %q, expiration = %s", key, c.ttl)
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
