package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryapp/library-server/internal/logger"
)

func startRelay(t *testing.T, addr string) (*Bus, *Relay) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	bus := New(logger.Discard(), 8)
	relay := NewRelay(client, bus, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-relay.Ready():
	case err := <-done:
		t.Fatalf("relay exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay never became ready")
	}
	return bus, relay
}

func TestRelay_DeliversAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	busA, _ := startRelay(t, mr.Addr())
	busB, _ := startRelay(t, mr.Addr())

	onA, _ := busA.Subscribe(t.Context(), TopicBookAdded)
	onB, _ := busB.Subscribe(t.Context(), TopicBookAdded)

	busA.Publish(BookAdded(testBook("Demons")))

	local := receive(t, onA)
	assert.Equal(t, "Demons", local.Book.Title)

	remote := receive(t, onB)
	assert.Equal(t, "Demons", remote.Book.Title)
	require.NotNil(t, remote.Book.Author)
	assert.Equal(t, "Robert Martin", remote.Book.Author.Name)
	assert.Equal(t, []string{"refactoring"}, remote.Book.Genres)

	// The origin must not hear its own event twice.
	assertNothing(t, onA)
}

func TestRelay_IgnoresMalformedPayloads(t *testing.T) {
	mr := miniredis.RunT(t)
	bus, _ := startRelay(t, mr.Addr())
	ch, _ := bus.Subscribe(t.Context(), TopicBookAdded)

	mr.Publish(channelName(TopicBookAdded), "{not json")

	assertNothing(t, ch)
}

func TestRelay_ForwardDropsWhenQueueFull(t *testing.T) {
	bus := New(logger.Discard(), 1)
	relay := NewRelay(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}), bus, logger.Discard())

	for range relayQueueSize + 10 {
		relay.Forward(BookAdded(testBook("overflow")))
	}
	assert.Len(t, relay.queue, relayQueueSize)
}
