package graph

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/service"
)

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func dialGraphQL(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(env.withUser(nil))
	t.Cleanup(srv.Close)

	dialer := websocket.Dialer{Subprotocols: []string{"graphql-transport-ws"}}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(wsMessage{Type: "connection_init"}))
	ack := readMessage(t, conn)
	require.Equal(t, "connection_ack", ack.Type)
	return conn
}

// readMessage returns the next protocol message, skipping keepalives.
func readMessage(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg wsMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "ping" || msg.Type == "pong" || msg.Type == "ka" {
			continue
		}
		return msg
	}
}

func TestBookAddedSubscription(t *testing.T) {
	env := setupGraphTest(t)
	user := env.signUp(t, "mluukkai")
	conn := dialGraphQL(t, env)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"id":      "1",
		"type":    "subscribe",
		"payload": map[string]any{"query": `subscription { bookAdded { title genres author { name } } }`},
	}))

	require.Eventually(t, func() bool { return env.bus.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	author := "Fyodor Dostoevsky"
	_, err := env.catalog.AddBook(context.Background(), user, service.AddBookInput{
		Title: "Crime and punishment", Author: &author, Published: 1866, Genres: []string{"classic", "crime"},
	}, nil)
	require.NoError(t, err)

	msg := readMessage(t, conn)
	require.Equal(t, "next", msg.Type, string(msg.Payload))
	assert.Equal(t, "1", msg.ID)

	var payload struct {
		Data struct {
			BookAdded bookView `json:"bookAdded"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, "Crime and punishment", payload.Data.BookAdded.Title)
	assert.Equal(t, []string{"classic", "crime"}, payload.Data.BookAdded.Genres)
	assert.Equal(t, author, payload.Data.BookAdded.Author.Name)

	require.NoError(t, conn.WriteJSON(wsMessage{ID: "1", Type: "complete"}))
	require.Eventually(t, func() bool { return env.bus.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBookAddedSubscription_DisconnectReleasesSubscriber(t *testing.T) {
	env := setupGraphTest(t)
	conn := dialGraphQL(t, env)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"id":      "7",
		"type":    "subscribe",
		"payload": map[string]any{"query": `subscription { bookAdded { title } }`},
	}))
	require.Eventually(t, func() bool { return env.bus.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return env.bus.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBookAddedResolver_StopsWithContext(t *testing.T) {
	env := setupGraphTest(t)
	r := NewResolver(env.catalog, env.accounts, env.bus, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	books, err := r.Subscription().BookAdded(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, env.bus.SubscriberCount())

	cancel()

	select {
	case _, ok := <-books:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancel")
	}
	require.Eventually(t, func() bool { return env.bus.SubscriberCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
