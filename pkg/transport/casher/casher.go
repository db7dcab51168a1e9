// Package casher provides Redis-based caching of survey definitions
package casher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Koyo-os/survey-service/pkg/logger"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SURVEY_KEY_TEMPLATE namespaces every cached survey under "survey:"
const SURVEY_KEY_TEMPLATE = "survey:%s"

// ErrCacheMiss is returned by GetCashFor when the key is not cached
var ErrCacheMiss = errors.New("cache miss")

// Casher handles caching operations using Redis as the backend
type Casher struct {
	client *redis.Client
	logger *logger.Logger
	ttl    time.Duration
}

// Init creates a Casher whose entries expire after ttl; zero keeps them until removed
func Init(client *redis.Client, logger *logger.Logger, ttl time.Duration) *Casher {
	return &Casher{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Connect parses a redis:// URL and pings the server
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func (c *Casher) Close() error {
	return c.client.Close()
}

func (c *Casher) IsHealthy() bool {
	return c.client.Ping(context.Background()).Err() == nil
}

// AddToCash encodes payload and stores it under key
func (c *Casher) AddToCash(ctx context.Context, key string, payload any) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		c.logger.Error("failed to encode payload for cache",
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	if err = c.client.Set(ctx, fmt.Sprintf(SURVEY_KEY_TEMPLATE, key), data, c.ttl).Err(); err != nil {
		c.logger.Error("failed to cash payload with",
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	return nil
}

// GetCashFor decodes the entry stored under key into out, which must be a
// pointer. A missing key yields ErrCacheMiss.
func (c *Casher) GetCashFor(ctx context.Context, key string, out any) error {
	data, err := c.client.Get(ctx, fmt.Sprintf(SURVEY_KEY_TEMPLATE, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		c.logger.Error("error get cash",
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	if err = sonic.Unmarshal(data, out); err != nil {
		c.logger.Warn("dropping undecodable cache entry",
			zap.String("key", key),
			zap.Error(err))
		c.client.Del(ctx, fmt.Sprintf(SURVEY_KEY_TEMPLATE, key))
		return ErrCacheMiss
	}

	return nil
}

// RemoveFromCash evicts key; evicting a missing key is not an error
func (c *Casher) RemoveFromCash(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, fmt.Sprintf(SURVEY_KEY_TEMPLATE, key)).Err(); err != nil {
		c.logger.Error("error delete from redis",
			zap.String("key", key),
			zap.Error(err))
		return err
	}

	return nil
}
