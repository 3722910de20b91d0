package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

// RedisCache caches scenario results in Redis behind a circuit
// breaker: repeated Redis failures trip the breaker and every
// subsequent lookup short-circuits to a clean miss until the breaker's
// cooldown elapses, so a degraded cache never blocks scheduling.
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker[*CachedResult]
	log     *slog.Logger
}

// NewRedisCache wires a redis.Client (caller owns its lifecycle) behind
// a breaker: five consecutive failures trips
// it, a minute of cooldown before the breaker lets a trial request
// through again.
func NewRedisCache(client *redis.Client, ttl time.Duration, log *slog.Logger) *RedisCache {
	if log == nil {
		log = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        "resultcache.redis",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("resultcache circuit breaker state change", "breaker", name, "from", from, "to", to)
		},
	}
	return &RedisCache{
		client:  client,
		ttl:     ttl,
		breaker: gobreaker.NewCircuitBreaker[*CachedResult](settings),
		log:     log,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*CachedResult, bool, error) {
	result, err := c.breaker.Execute(func() (*CachedResult, error) {
		raw, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		var cr CachedResult
		if err := json.Unmarshal(raw, &cr); err != nil {
			return nil, err
		}
		return &cr, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.log.Debug("resultcache bypassed: circuit open", "key", key)
			return nil, false, nil
		}
		c.log.Warn("resultcache get failed, bypassing cache", "key", key, "error", err)
		return nil, false, nil
	}
	if result == nil {
		return nil, false, nil
	}
	return result, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, result *CachedResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = c.breaker.Execute(func() (*CachedResult, error) {
		return nil, c.client.Set(ctx, key, raw, c.ttl).Err()
	})
	if err != nil {
		c.log.Warn("resultcache set failed, continuing without caching this result", "key", key, "error", err)
		return nil
	}
	return nil
}
