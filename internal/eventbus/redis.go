/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus provides a Redis-backed distributed event bus so that
// plan updates on one instance invalidate caches and trigger legacy sync on
// every instance. Falls back to the in-process bus when Redis is down.
package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/huginn_planner/internal/events"
)

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// message is the wire form carried over Redis pub/sub. NodeID suppresses
// echo: the publishing node already delivered the event locally.
type message struct {
	NodeID  string         `json:"node_id"`
	Payload events.Payload `json:"payload"`
}

// RedisBus fans events out across instances. Local subscribers always get
// events through the embedded in-process bus; Redis carries them to other
// nodes.
type RedisBus struct {
	client *redis.Client
	local  *events.Bus
	logger zerolog.Logger
	nodeID string

	mu       sync.Mutex
	channels map[events.EventType]*redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	degraded bool
}

// NewRedisBus creates a Redis-backed bus. When Redis is unreachable the bus
// degrades to in-process delivery only.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) *RedisBus {
	scoped := logger.With().Str("component", "eventbus").Logger()
	ctx, cancel := context.WithCancel(context.Background())

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	bus := &RedisBus{
		client:   client,
		local:    events.NewBus(),
		logger:   scoped,
		nodeID:   nodeID,
		channels: make(map[events.EventType]*redis.PubSub),
		ctx:      ctx,
		cancel:   cancel,
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		scoped.Warn().Err(err).Msg("Redis unreachable, event bus degraded to in-process delivery")
		bus.degraded = true
		return bus
	}

	scoped.Info().Str("addr", cfg.Addr).Msg("Redis event bus initialized")
	return bus
}

// Subscribe registers a local subscriber and, once per event type, a Redis
// subscription that relays remote events into the local bus.
func (rb *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := rb.local.Subscribe(eventType)
	if rb.degraded {
		return sub
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()
	if _, exists := rb.channels[eventType]; !exists {
		pubsub := rb.client.Subscribe(rb.ctx, channelName(eventType))
		rb.channels[eventType] = pubsub
		rb.wg.Add(1)
		go rb.relay(eventType, pubsub)
	}
	return sub
}

// Publish delivers locally and fans out to other nodes.
func (rb *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	rb.local.Publish(eventType, payload)
	if rb.degraded {
		return
	}

	data, err := json.Marshal(message{NodeID: rb.nodeID, Payload: payload})
	if err != nil {
		rb.logger.Error().Err(err).Msg("marshal event for Redis")
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()
	if err := rb.client.Publish(ctx, channelName(eventType), data).Err(); err != nil {
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("publish to Redis")
	}
}

// Unsubscribe removes a local subscriber.
func (rb *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	rb.local.Unsubscribe(eventType, sub)
}

// Close stops the relays and closes the Redis connection.
func (rb *RedisBus) Close() error {
	rb.cancel()
	rb.mu.Lock()
	for _, pubsub := range rb.channels {
		_ = pubsub.Close()
	}
	rb.mu.Unlock()
	rb.wg.Wait()
	if rb.client != nil {
		return rb.client.Close()
	}
	return nil
}

// relay pumps remote events for one event type into the local bus.
func (rb *RedisBus) relay(eventType events.EventType, pubsub *redis.PubSub) {
	defer rb.wg.Done()
	ch := pubsub.Channel()

	for {
		select {
		case <-rb.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				rb.logger.Warn().Str("event_type", string(eventType)).Msg("Redis channel closed")
				return
			}
			var decoded message
			if err := json.Unmarshal([]byte(msg.Payload), &decoded); err != nil {
				rb.logger.Error().Err(err).Msg("unmarshal Redis event")
				continue
			}
			if decoded.NodeID == rb.nodeID {
				continue
			}
			rb.local.Publish(eventType, decoded.Payload)
		}
	}
}

func channelName(eventType events.EventType) string {
	return "huginn.events." + string(eventType)
}
