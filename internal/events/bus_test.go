/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "testing"

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(EventPlanUpdated)
	b := bus.Subscribe(EventPlanUpdated)
	other := bus.Subscribe(EventPlanConflict)

	bus.Publish(EventPlanUpdated, Payload{"timeslot_id": "slot-1"})

	for _, sub := range []Subscriber{a, b} {
		select {
		case payload := <-sub:
			if payload["timeslot_id"] != "slot-1" {
				t.Fatalf("unexpected payload: %v", payload)
			}
		default:
			t.Fatal("subscriber did not receive event")
		}
	}
	select {
	case payload := <-other:
		t.Fatalf("conflict subscriber received foreign event: %v", payload)
	default:
	}
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	bus := NewBus()
	slow := bus.Subscribe(EventPlanUpdated)

	// Fill the buffer and keep publishing; Publish must never block.
	for i := 0; i < 32; i++ {
		bus.Publish(EventPlanUpdated, Payload{"n": i})
	}
	if len(slow) != cap(slow) {
		t.Fatalf("expected full buffer, got %d", len(slow))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventPlanUpdated)
	bus.Unsubscribe(EventPlanUpdated, sub)

	if _, ok := <-sub; ok {
		t.Fatal("expected closed channel")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventPlanUpdated, Payload{})
}

func TestPublishRacingUnsubscribe(t *testing.T) {
	bus := NewBus()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			sub := bus.Subscribe(EventPlanUpdated)
			bus.Unsubscribe(EventPlanUpdated, sub)
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
			bus.Publish(EventPlanUpdated, Payload{"n": 1})
		}
	}
}
