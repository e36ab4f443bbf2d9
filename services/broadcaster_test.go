package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/risiti/risiti-backend/types"
)

func TestBroadcaster_DeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster(4)

	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	event := types.NewEvent(types.EventTypeSubmissionQueued, "sub-1", types.QueuedPayload{ID: "sub-1"})
	b.Publish(event)

	for _, ch := range []<-chan types.Event{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, types.EventTypeSubmissionQueued, got.Type)
			assert.Equal(t, "sub-1", got.SubmissionID)
		case <-time.After(time.Second):
			t.Fatal("subscriber never received the event")
		}
	}
}

func TestBroadcaster_SlowSubscriberIsDroppedNotBlocking(t *testing.T) {
	b := NewBroadcaster(1)

	slow, _ := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	// Fill the buffer, then publish again; the publisher must not block and
	// must evict the stalled subscriber.
	done := make(chan struct{})
	go func() {
		b.Publish(types.NewEvent(types.EventTypeSubmissionQueued, "sub-1", nil))
		b.Publish(types.NewEvent(types.EventTypeSubmissionQueued, "sub-2", nil))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}

	assert.Equal(t, 0, b.SubscriberCount())

	// The channel was closed on eviction; draining it must terminate.
	for range slow {
	}
}

func TestBroadcaster_UnsubscribeIsIdempotent(t *testing.T) {
	b := NewBroadcaster(2)

	_, unsub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	unsub()
	unsub()
	assert.Equal(t, 0, b.SubscriberCount())

	// Publishing after unsubscribe must not panic on the closed channel.
	b.Publish(types.NewEvent(types.EventTypeSubmissionFailed, "sub-1", nil))
}

func TestBroadcaster_ConcurrentPublishAndSubscribe(t *testing.T) {
	b := NewBroadcaster(64)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, unsub := b.Subscribe()
			for j := 0; j < 10; j++ {
				b.Publish(types.NewEvent(types.EventTypeSubmissionQueued, "sub", nil))
			}
			unsub()
			for range ch {
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, b.SubscriberCount())
}
