/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// EventPlanUpdated fires after an operation batch commits. Payload
	// carries timeslot_id, client_id and op_count. Consumed by the legacy
	// sync adapter and the plan cache.
	EventPlanUpdated EventType = "plan.updated"

	// EventPlanConflict fires when a batch is rejected by an optimistic
	// concurrency precondition. Payload carries timeslot_id, client_id and
	// the failing op index.
	EventPlanConflict EventType = "plan.conflict"

	// EventLegacyPublished fires after the legacy store mirror succeeds.
	EventLegacyPublished EventType = "legacy.published"

	// EventLegacyPublishFailed fires when a legacy mirror attempt fails;
	// payload carries the error string for out-of-band retry tooling.
	EventLegacyPublishFailed EventType = "legacy.publish_failed"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// PubSub is satisfied by the in-process Bus and by the distributed
// redis-backed bus; services depend on this rather than a concrete bus.
type PubSub interface {
	Subscribe(eventType EventType) Subscriber
	Publish(eventType EventType, payload Payload)
	Unsubscribe(eventType EventType, sub Subscriber)
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 8)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers are skipped rather
// than blocking the publisher. Sends stay under the read lock: Unsubscribe
// closes channels under the write lock, so a send can never hit a channel
// mid-close.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
