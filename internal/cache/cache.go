/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-backed cache for rendered show plans, with
// graceful fallback when Redis is unavailable.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_planner/internal/events"
	"github.com/friendsincode/huginn_planner/internal/showplan"
)

// KeyPlan is the Redis key prefix for cached plans, suffixed with the
// timeslot id.
const KeyPlan = "huginn:cache:plan:"

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PlanTTL       time.Duration

	// DisableOnError trips the circuit breaker on the first Redis error.
	DisableOnError bool
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		PlanTTL:        5 * time.Minute,
		DisableOnError: true,
	}
}

// PlanCache caches rendered show plans keyed by timeslot. A cache miss or a
// Redis outage is never an error for the caller; the plan is simply re-read
// from the store.
type PlanCache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool
}

// New creates a plan cache. When Redis is unreachable the cache starts
// disabled and every lookup is a miss.
func New(cfg Config, logger zerolog.Logger) *PlanCache {
	scoped := logger.With().Str("component", "plancache").Logger()

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		scoped.Warn().Err(err).Msg("Redis unavailable, running without plan cache")
		return &PlanCache{logger: scoped, config: cfg, disabled: true}
	}

	scoped.Info().Str("addr", cfg.RedisAddr).Msg("plan cache initialized")
	return &PlanCache{client: client, logger: scoped, config: cfg}
}

// Close closes the Redis connection.
func (c *PlanCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *PlanCache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

func (c *PlanCache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}
	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")
	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling plan cache due to Redis error")
	}
}

// Get returns the cached plan for the timeslot, or found=false on a miss.
func (c *PlanCache) Get(ctx context.Context, timeslotID string) ([]showplan.ChannelPlan, bool) {
	if !c.IsAvailable() {
		return nil, false
	}
	data, err := c.client.Get(ctx, KeyPlan+timeslotID).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.handleError(err, "get")
		return nil, false
	}
	var plan []showplan.ChannelPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		c.logger.Warn().Err(err).Msg("corrupt cached plan, dropping")
		c.Invalidate(ctx, timeslotID)
		return nil, false
	}
	return plan, true
}

// Set stores the rendered plan.
func (c *PlanCache) Set(ctx context.Context, timeslotID string, plan []showplan.ChannelPlan) {
	if !c.IsAvailable() {
		return
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, KeyPlan+timeslotID, data, c.config.PlanTTL).Err(); err != nil {
		c.handleError(err, "set")
	}
}

// Invalidate drops the cached plan for the timeslot.
func (c *PlanCache) Invalidate(ctx context.Context, timeslotID string) {
	if !c.IsAvailable() {
		return
	}
	if err := c.client.Del(ctx, KeyPlan+timeslotID).Err(); err != nil {
		c.handleError(err, "del")
	}
}

// Start subscribes to plan update events and invalidates affected entries
// until ctx is cancelled. Run it in its own goroutine.
func (c *PlanCache) Start(ctx context.Context, bus events.PubSub) {
	updated := bus.Subscribe(events.EventPlanUpdated)
	defer bus.Unsubscribe(events.EventPlanUpdated, updated)

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-updated:
			if !ok {
				return
			}
			if id, ok := payload["timeslot_id"].(string); ok && id != "" {
				c.Invalidate(ctx, id)
			}
		}
	}
}
