// Package pubsub fans catalog events out to every open subscription.
package pubsub

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/libraryapp/library-server/internal/domain"
)

// Topic names an event stream.
type Topic string

// TopicBookAdded carries every successfully created book.
const TopicBookAdded Topic = "BOOK_ADDED"

// DefaultBuffer is the per-subscriber queue length used when none is configured.
const DefaultBuffer = 64

// Event is one published message.
type Event struct {
	Topic Topic                 `json:"topic"`
	Book  *domain.PopulatedBook `json:"book,omitempty"`
}

// Observer is notified after every local fan-out.
type Observer interface {
	EventPublished(topic string, delivered, dropped int)
}

// Forwarder receives every event published on this process so it can be
// relayed elsewhere. Forward must not block.
type Forwarder interface {
	Forward(evt Event)
}

type subscription struct {
	topic Topic
	ch    chan Event
}

// Bus is an in-process broadcast channel. Subscribers only see events
// published while they are registered; nothing is replayed.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	closed bool

	buffer    int
	logger    *slog.Logger
	observer  Observer
	forwarder Forwarder
}

// New creates a bus whose subscribers each queue up to buffer events.
func New(logger *slog.Logger, buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{
		subs:   make(map[string]*subscription),
		buffer: buffer,
		logger: logger,
	}
}

// SetObserver installs o to be told about each fan-out.
func (b *Bus) SetObserver(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observer = o
}

// SetForwarder installs f to receive every locally published event.
func (b *Bus) SetForwarder(f Forwarder) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwarder = f
}

// Subscribe registers a subscriber for topic. The returned channel is closed
// when ctx is done, when cleanup is called, or when the bus closes,
// whichever happens first.
func (b *Bus) Subscribe(ctx context.Context, topic Topic) (<-chan Event, func()) {
	id := uuid.New().String()
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = &subscription{topic: topic, ch: ch}
	total := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug("subscriber registered",
		slog.String("subscriber_id", id),
		slog.String("topic", string(topic)),
		slog.Int("total_subscribers", total))

	var once sync.Once
	cleanup := func() {
		once.Do(func() { b.remove(id) })
	}

	go func() {
		<-ctx.Done()
		cleanup()
	}()

	return ch, cleanup
}

func (b *Bus) remove(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(sub.ch)
	}
	total := len(b.subs)
	b.mu.Unlock()

	if ok {
		b.logger.Debug("subscriber removed",
			slog.String("subscriber_id", id),
			slog.Int("total_subscribers", total))
	}
}

// Publish delivers evt to every current subscriber of its topic and hands
// it to the forwarder. It never blocks: a subscriber whose queue is full
// misses the event.
func (b *Bus) Publish(evt Event) {
	b.Deliver(evt)

	b.mu.RLock()
	f := b.forwarder
	b.mu.RUnlock()
	if f != nil {
		f.Forward(evt)
	}
}

// Deliver fans evt out to local subscribers only.
func (b *Bus) Deliver(evt Event) {
	var delivered, dropped int

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	for id, sub := range b.subs {
		if sub.topic != evt.Topic {
			continue
		}
		select {
		case sub.ch <- evt:
			delivered++
		default:
			dropped++
			b.logger.Warn("subscriber buffer full, dropping event",
				slog.String("subscriber_id", id),
				slog.String("topic", string(evt.Topic)))
		}
	}
	observer := b.observer
	b.mu.RUnlock()

	if observer != nil {
		observer.EventPublished(string(evt.Topic), delivered, dropped)
	}

	b.logger.Debug("event published",
		slog.String("topic", string(evt.Topic)),
		slog.Group("stats",
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped)))
}

// SubscriberCount returns the number of registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscriber channel and rejects further subscriptions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
	b.logger.Info("event bus closed")
}

// BookAdded builds the event announcing book.
func BookAdded(book *domain.PopulatedBook) Event {
	return Event{Topic: TopicBookAdded, Book: book}
}
