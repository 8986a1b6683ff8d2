package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"market-chat/internal/domain/service"

	goredis "github.com/redis/go-redis/v9"
)

// Cache key patterns:
// - service:{service_id} - 5m TTL, service detail cache

// CacheConfig contains configuration for caching
type CacheConfig struct {
	ServiceTTL time.Duration
}

// DefaultCacheConfig returns sensible defaults
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ServiceTTL: 5 * time.Minute,
	}
}

// CacheStore handles caching in Redis
type CacheStore struct {
	client *goredis.Client
	config CacheConfig
}

func NewCacheStore(client *goredis.Client, config CacheConfig) *CacheStore {
	return &CacheStore{
		client: client,
		config: config,
	}
}

func serviceKey(id uint) string {
	return fmt.Sprintf("service:%d", id)
}

// GetService returns nil, nil on a cache miss.
func (c *CacheStore) GetService(ctx context.Context, id uint) (*service.Service, error) {
	data, err := c.client.Get(ctx, serviceKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s service.Service
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *CacheStore) SetService(ctx context.Context, s service.Service) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, serviceKey(s.ID), data, c.config.ServiceTTL).Err()
}

func (c *CacheStore) InvalidateService(ctx context.Context, id uint) error {
	return c.client.Del(ctx, serviceKey(id)).Err()
}

func (c *CacheStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
