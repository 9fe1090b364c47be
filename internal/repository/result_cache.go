package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SweepLab/internal/domain/models"
	"SweepLab/pkg/cache"
)

// ResultCache stores finished results under a request fingerprint and
// guards in-flight fingerprints with a short-lived lock.
type ResultCache struct {
	svc     cache.Service
	ttl     time.Duration
	lockTTL time.Duration
}

func NewResultCache(svc cache.Service, ttl, lockTTL time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &ResultCache{svc: svc, ttl: ttl, lockTTL: lockTTL}
}

func (c *ResultCache) Get(ctx context.Context, key string) ([]models.StrategyResult, bool, error) {
	var out []models.StrategyResult
	err := c.svc.Get(ctx, key, &out)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("result cache get: %w", err)
	}
	return out, true, nil
}

func (c *ResultCache) Set(ctx context.Context, key string, results []models.StrategyResult) error {
	if err := c.svc.Set(ctx, key, results, c.ttl); err != nil {
		return fmt.Errorf("result cache set: %w", err)
	}
	return nil
}

func (c *ResultCache) Acquire(ctx context.Context, key string) (bool, error) {
	return c.svc.TryLock(ctx, lockKey(key), c.lockTTL)
}

func (c *ResultCache) Release(ctx context.Context, key string) error {
	return c.svc.Unlock(ctx, lockKey(key))
}

func lockKey(key string) string { return cache.GenerateKey("lock", key) }
