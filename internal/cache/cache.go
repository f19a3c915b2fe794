// Package cache keeps immutable analysis history payloads close to the agent.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"nunbody/internal/models"
)

const keyPrefix = "nunbody:analysis:"

// AnalysisCache stores raw analysis JSON by history id.
type AnalysisCache interface {
	// Get reports a miss as ok == false with a nil error.
	Get(ctx context.Context, id string) (payload []byte, ok bool, err error)
	Set(ctx context.Context, id string, payload []byte) error
	Close() error
}

// New picks Redis when an address is configured and an in-process map otherwise.
func New(ctx context.Context, cfg models.RedisConfig, log *zap.Logger) AnalysisCache {
	if cfg.Addr == "" {
		log.Info("analysis cache: in-memory")
		return NewMemoryCache(cfg.TTL)
	}
	rc := NewRedisCache(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable, analysis cache falls back to memory", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = rc.Close()
		return NewMemoryCache(cfg.TTL)
	}
	log.Info("analysis cache: redis", zap.String("addr", cfg.Addr))
	return rc
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(cfg models.RedisConfig) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.Addr,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		}),
		ttl: cfg.TTL,
	}
}

func (c *RedisCache) Get(ctx context.Context, id string) ([]byte, bool, error) {
	const op = "cache.RedisCache.Get"

	b, err := c.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return b, true, nil
}

func (c *RedisCache) Set(ctx context.Context, id string, payload []byte) error {
	const op = "cache.RedisCache.Set"

	if err := c.client.Set(ctx, keyPrefix+id, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, id string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		delete(c.entries, id)
		return nil, false, nil
	}
	return append([]byte(nil), e.payload...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, id string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := memoryEntry{payload: append([]byte(nil), payload...)}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.entries[id] = e
	return nil
}

func (c *MemoryCache) Close() error { return nil }
