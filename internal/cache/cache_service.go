// Package cache provides Redis-based caching for the active commission
// settings and the public homepage payload, with graceful degradation:
// when Redis is unavailable every lookup is a miss and callers fall back
// to the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"mlm-referral-app/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache keys
const (
	KeyActiveSettings = "referral:settings:active"
	KeyHomePage       = "content:homepage"
)

// Default TTLs
const (
	SettingsTTL = 1 * time.Hour
	HomePageTTL = 10 * time.Minute
)

// CacheService provides Redis-based caching with a small circuit
// breaker: after a few consecutive failures it stops hitting Redis and
// probes periodically until the connection recovers.
type CacheService struct {
	client       *redis.Client
	log          zerolog.Logger
	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration
}

// NewCacheService creates a new CacheService with the provided
// configuration. A failed initial connection returns the service in
// degraded mode rather than an error.
func NewCacheService(cfg config.RedisConfig) (*CacheService, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	cs := &CacheService{
		client:        client,
		log:           zerolog.New(os.Stdout).With().Timestamp().Str("component", "cache").Logger(),
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		cs.log.Warn().Err(err).Msg("Initial Redis connection failed, starting degraded")
		return cs, nil
	}

	cs.healthy = true
	cs.lastCheck = time.Now()
	cs.log.Info().Str("address", cfg.Address).Msg("Redis connected")

	return cs, nil
}

// IsHealthy returns whether Redis is currently available
func (cs *CacheService) IsHealthy() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.healthy
}

func (cs *CacheService) recordFailure() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.failureCount++
	if cs.failureCount >= cs.maxFailures {
		if cs.healthy {
			cs.log.Warn().Int("failures", cs.failureCount).Msg("Circuit breaker OPEN: Redis marked unhealthy")
		}
		cs.healthy = false
	}
}

func (cs *CacheService) recordSuccess() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.healthy {
		cs.log.Info().Msg("Circuit breaker CLOSED: Redis recovered")
	}
	cs.healthy = true
	cs.failureCount = 0
	cs.lastCheck = time.Now()
}

// checkHealth probes Redis in the background once the breaker is open
// and the check interval has elapsed.
func (cs *CacheService) checkHealth() {
	cs.mu.RLock()
	shouldCheck := !cs.healthy && time.Since(cs.lastCheck) >= cs.checkInterval
	cs.mu.RUnlock()

	if !shouldCheck {
		return
	}

	cs.mu.Lock()
	cs.lastCheck = time.Now()
	cs.mu.Unlock()

	go func() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := cs.client.Ping(pingCtx).Err(); err == nil {
			cs.recordSuccess()
		}
	}()
}

// getJSON fetches key and unmarshals it into dest. The bool reports a
// usable hit.
func (cs *CacheService) getJSON(ctx context.Context, key string, dest interface{}) bool {
	cs.checkHealth()

	if !cs.IsHealthy() {
		return false
	}

	data, err := cs.client.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			cs.recordFailure()
			cs.log.Debug().Err(err).Str("key", key).Msg("Redis get failed")
		}
		return false
	}

	cs.recordSuccess()

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		cs.log.Warn().Err(err).Str("key", key).Msg("Corrupt cache entry, dropping")
		cs.client.Del(ctx, key)
		return false
	}
	return true
}

// setJSON marshals value and stores it under key with ttl. Failures are
// logged and swallowed; the cache is best-effort.
func (cs *CacheService) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	cs.checkHealth()

	if !cs.IsHealthy() {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		cs.log.Warn().Err(err).Str("key", key).Msg("Failed to marshal cache value")
		return
	}

	if err := cs.client.Set(ctx, key, data, ttl).Err(); err != nil {
		cs.recordFailure()
		cs.log.Debug().Err(err).Str("key", key).Msg("Redis set failed")
		return
	}
	cs.recordSuccess()
}

// del removes a key, best-effort.
func (cs *CacheService) del(ctx context.Context, key string) {
	if !cs.IsHealthy() {
		return
	}
	if err := cs.client.Del(ctx, key).Err(); err != nil {
		cs.recordFailure()
	}
}

// Close closes the Redis connection
func (cs *CacheService) Close() error {
	return cs.client.Close()
}
