package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/GRAVEYARDOG/ethio-safeguard/module/core/domain"
)

func envelopeFor(vehicleID string, seq int) domain.BroadcastEnvelope {
	sample := sampleAt(vehicleID, insidePoint, seq)
	return domain.NewEnvelope(sample, &domain.Vehicle{ID: vehicleID}, sample.ReceivedAt)
}

func TestHub_SubscriberSeesOnlyLaterEnvelopes(t *testing.T) {
	hub := NewHub(4)

	if n := hub.Publish(envelopeFor("v1", 0)); n != 0 {
		t.Fatalf("expected 0 deliveries without subscribers, got %d", n)
	}

	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	if n := hub.Publish(envelopeFor("v1", 1)); n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}

	select {
	case env := <-sub.Envelopes():
		if !env.Location.ReportedAt.Equal(sampleAt("v1", insidePoint, 1).ReportedAt) {
			t.Errorf("expected the second envelope, got %v", env.Location.ReportedAt)
		}
	default:
		t.Fatal("expected an envelope")
	}

	select {
	case env := <-sub.Envelopes():
		t.Fatalf("unexpected extra envelope: %+v", env)
	default:
	}
}

func TestHub_PreservesPublishOrder(t *testing.T) {
	hub := NewHub(16)
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	for i := 0; i < 10; i++ {
		hub.Publish(envelopeFor("v1", i))
	}

	for i := 0; i < 10; i++ {
		env := <-sub.Envelopes()
		want := sampleAt("v1", insidePoint, i).ReportedAt
		if !env.Location.ReportedAt.Equal(want) {
			t.Fatalf("envelope %d out of order: got %v", i, env.Location.ReportedAt)
		}
	}
}

func TestHub_SlowSubscriberIsDisconnected(t *testing.T) {
	hub := NewHub(2)
	slow := hub.Subscribe()
	fast := hub.Subscribe()
	defer hub.Unsubscribe(fast)

	var wg sync.WaitGroup
	received := 0
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range fast.Envelopes() {
			received++
			if received == 5 {
				return
			}
		}
	}()

	for i := 0; i < 5; i++ {
		hub.Publish(envelopeFor("v1", i))
		// let the fast consumer keep up
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	if received != 5 {
		t.Errorf("expected fast subscriber to receive 5, got %d", received)
	}
	if !errors.Is(slow.Err(), ErrSlowSubscriber) {
		t.Errorf("expected ErrSlowSubscriber, got %v", slow.Err())
	}
	if n := hub.SubscriberCount(); n != 1 {
		t.Errorf("expected 1 remaining subscriber, got %d", n)
	}

	// the slow subscriber still drains what was buffered, then sees close
	drained := 0
	for range slow.Envelopes() {
		drained++
	}
	if drained != 2 {
		t.Errorf("expected 2 buffered envelopes, got %d", drained)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub(4)
	sub := hub.Subscribe()

	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)

	if n := hub.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
	if _, ok := <-sub.Envelopes(); ok {
		t.Error("expected closed channel")
	}
	if sub.Err() != nil {
		t.Errorf("expected nil error after unsubscribe, got %v", sub.Err())
	}
	if n := hub.Publish(envelopeFor("v1", 0)); n != 0 {
		t.Errorf("expected 0 deliveries, got %d", n)
	}
}

func TestHub_ConcurrentPublishAndSubscribe(t *testing.T) {
	hub := NewHub(1024)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe()
			for j := 0; j < 50; j++ {
				hub.Publish(envelopeFor("v1", j))
			}
			hub.Unsubscribe(sub)
		}()
	}
	wg.Wait()

	if n := hub.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
}

func TestHub_CloseEndsEverySubscription(t *testing.T) {
	hub := NewHub(4)
	a := hub.Subscribe()
	b := hub.Subscribe()

	hub.Close()

	for _, sub := range []*Subscription{a, b} {
		if _, ok := <-sub.Envelopes(); ok {
			t.Fatalf("expected subscription %s to be closed", sub.ID)
		}
		if !errors.Is(sub.Err(), ErrHubClosed) {
			t.Errorf("expected ErrHubClosed, got %v", sub.Err())
		}
	}
	if hub.SubscriberCount() != 0 {
		t.Errorf("expected no subscribers, got %d", hub.SubscriberCount())
	}

	late := hub.Subscribe()
	if _, ok := <-late.Envelopes(); ok || !errors.Is(late.Err(), ErrHubClosed) {
		t.Error("expected a subscription after Close to come back ended")
	}
	if n := hub.Publish(envelopeFor("v1", 0)); n != 0 {
		t.Errorf("expected 0 deliveries after Close, got %d", n)
	}

	hub.Unsubscribe(a)
}
