package broadcast

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/concert-seat-selection/internal/model"
)

func event(seatID string) model.SeatUpdateEvent {
	return model.NewSeatUpdate(seatID, model.StatusAvailable, model.StatusHold, "c1", time.Now())
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New()
	s1 := b.Subscribe("c1")
	s2 := b.Subscribe("c2")
	defer b.Unsubscribe(s1)
	defer b.Unsubscribe(s2)

	b.Publish(event("1-1-A"))

	for _, s := range []*Subscriber{s1, s2} {
		select {
		case ev := <-s.C():
			require.Equal(t, "1-1-A", ev.Payload.SeatID)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	b := New()
	s := b.Subscribe("slow")
	defer b.Unsubscribe(s)

	total := subscriberBuffer + 10
	for i := 0; i < total; i++ {
		b.Publish(event(fmt.Sprintf("seat-%d", i)))
	}

	// The buffer holds the newest events; the oldest were dropped.
	first := <-s.C()
	require.Equal(t, fmt.Sprintf("seat-%d", total-subscriberBuffer), first.Payload.SeatID)

	got := 1
	for {
		select {
		case <-s.C():
			got++
		default:
			require.Equal(t, subscriberBuffer, got)
			return
		}
	}
}

func TestPublishNeverBlocksMutator(t *testing.T) {
	b := New()
	s := b.Subscribe("gone") // never reads
	defer b.Unsubscribe(s)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10*subscriberBuffer; i++ {
			b.Publish(event("1-1-A"))
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a subscriber that never reads")
	}
}

func TestUnsubscribeClosesStream(t *testing.T) {
	b := New()
	s := b.Subscribe("c1")
	b.Unsubscribe(s)

	_, open := <-s.C()
	require.False(t, open)
	require.Zero(t, b.Len())

	// Publishing after unsubscribe must not panic on the closed channel.
	b.Publish(event("1-1-A"))
}
