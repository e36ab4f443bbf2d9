package services

import (
	"sync"

	"go.uber.org/zap"

	"github.com/risiti/risiti-backend/logger"
	"github.com/risiti/risiti-backend/types"
)

const defaultSubscriberBuffer = 10

// Broadcaster is the in-process publish/subscribe hub for live status
// updates. Each subscriber owns a bounded channel; a subscriber that cannot
// keep up is dropped rather than ever blocking a publisher. One instance is
// constructor-injected into the serving process; tests create their own.
type Broadcaster struct {
	log        *zap.SugaredLogger
	bufferSize int

	mu          sync.Mutex
	subscribers map[chan types.Event]struct{}
}

// NewBroadcaster creates a broadcaster whose subscriber channels buffer
// bufferSize events. Values <= 0 fall back to the default.
func NewBroadcaster(bufferSize int) *Broadcaster {
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBuffer
	}
	return &Broadcaster{
		log:         logger.GetLogger().Named("broadcaster"),
		bufferSize:  bufferSize,
		subscribers: make(map[chan types.Event]struct{}),
	}
}

// Publish pushes the event to every current subscriber. Subscribers with a
// full buffer are treated as disconnected: their channel is closed and
// removed so a stalled consumer can never stall the pipeline.
func (b *Broadcaster) Publish(event types.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			delete(b.subscribers, ch)
			close(ch)
			b.log.Warnw("Dropped slow event subscriber", "eventType", event.Type)
		}
	}
}

// Subscribe registers a new subscriber and returns its channel together with
// an unsubscribe function. The channel is closed either by unsubscribe or by
// the publisher dropping a stalled subscriber; consumers must tolerate both.
func (b *Broadcaster) Subscribe() (<-chan types.Event, func()) {
	ch := make(chan types.Event, b.bufferSize)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// SubscriberCount reports the current number of live subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
