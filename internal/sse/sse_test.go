package sse

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryapp/library-server/internal/domain"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/pubsub"
)

type frame struct {
	event string
	data  string
}

func setupStream(t *testing.T, heartbeat time.Duration) (*pubsub.Bus, *Manager, *httptest.Server) {
	t.Helper()

	bus := pubsub.New(logger.Discard(), 8)
	t.Cleanup(bus.Close)

	manager := NewManager(bus, logger.Discard())
	manager.SetHeartbeatInterval(heartbeat)

	srv := httptest.NewServer(NewHandler(manager, logger.Discard()))
	t.Cleanup(srv.Close)
	return bus, manager, srv
}

func openStream(t *testing.T, url string) (*bufio.Reader, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	return bufio.NewReader(resp.Body), func() {
		cancel()
		_ = resp.Body.Close()
	}
}

func readFrame(t *testing.T, r *bufio.Reader) frame {
	t.Helper()

	var f frame
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return f
		case strings.HasPrefix(line, "event: "):
			f.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			f.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func testBook() *domain.PopulatedBook {
	book := &domain.Book{Title: "Clean Code", Published: 2008, Genres: []string{"refactoring"}, AuthorID: "author-1"}
	book.ID = "book-1"
	return domain.Populate(book, domain.NewAuthor("author-1", "Robert Martin"))
}

func TestHandler_StreamsBookAdded(t *testing.T) {
	bus, manager, srv := setupStream(t, time.Hour)

	r, closeStream := openStream(t, srv.URL)
	defer closeStream()

	connected := readFrame(t, r)
	assert.Equal(t, "connected", connected.event)
	require.Equal(t, 1, manager.ClientCount())

	bus.Publish(pubsub.BookAdded(testBook()))

	f := readFrame(t, r)
	require.Equal(t, "book.added", f.event)

	var event struct {
		Type string `json:"type"`
		Data struct {
			Book struct {
				Title  string `json:"title"`
				Author struct {
					Name string `json:"name"`
				} `json:"author"`
			} `json:"book"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(f.data), &event))
	assert.Equal(t, "book.added", event.Type)
	assert.Equal(t, "Clean Code", event.Data.Book.Title)
	assert.Equal(t, "Robert Martin", event.Data.Book.Author.Name)
}

func TestHandler_Heartbeat(t *testing.T) {
	_, _, srv := setupStream(t, 20*time.Millisecond)

	r, closeStream := openStream(t, srv.URL)
	defer closeStream()

	readFrame(t, r)
	f := readFrame(t, r)
	assert.Equal(t, "heartbeat", f.event)
}

func TestHandler_DisconnectReleasesSubscription(t *testing.T) {
	bus, manager, srv := setupStream(t, time.Hour)

	r, closeStream := openStream(t, srv.URL)
	readFrame(t, r)
	require.Equal(t, 1, bus.SubscriberCount())

	closeStream()

	require.Eventually(t, func() bool {
		return manager.ClientCount() == 0 && bus.SubscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsNonGet(t *testing.T) {
	_, _, srv := setupStream(t, time.Hour)

	resp, err := http.Post(srv.URL, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestManager_Shutdown(t *testing.T) {
	bus := pubsub.New(logger.Discard(), 8)
	defer bus.Close()
	manager := NewManager(bus, logger.Discard())

	client, err := manager.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(client.ID, "stream-"))

	require.NoError(t, manager.Shutdown(context.Background()))

	select {
	case <-client.Done:
	case <-time.After(time.Second):
		t.Fatal("client not closed on shutdown")
	}
	assert.Equal(t, 0, manager.ClientCount())
	assert.Equal(t, 0, bus.SubscriberCount())

	_, err = manager.Connect(context.Background())
	assert.ErrorIs(t, err, ErrShuttingDown)

	// Disconnect after shutdown is a no-op.
	manager.Disconnect(client.ID)
}
