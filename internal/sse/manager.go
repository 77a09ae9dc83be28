package sse

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/libraryapp/library-server/internal/id"
	"github.com/libraryapp/library-server/internal/pubsub"
)

// ErrShuttingDown is returned by Connect once Shutdown has begun.
var ErrShuttingDown = errors.New("sse: manager is shutting down")

// DefaultHeartbeatInterval is how often an idle stream gets a keepalive.
const DefaultHeartbeatInterval = 30 * time.Second

// Subscriber opens a stream of bus events.
type Subscriber interface {
	Subscribe(ctx context.Context, topic pubsub.Topic) (<-chan pubsub.Event, func())
}

// Client represents a connected SSE client.
type Client struct {
	ConnectedAt time.Time
	Events      <-chan pubsub.Event
	Done        chan struct{}
	ID          string

	unsubscribe func()
}

// Manager tracks open streams. Each client holds its own bus
// subscription, so fan-out and slow-client dropping happen in the bus.
type Manager struct {
	bus               Subscriber
	clients           map[string]*Client
	logger            *slog.Logger
	heartbeatInterval time.Duration
	mu                sync.RWMutex
	shutdown          bool
}

// NewManager creates a new SSE Manager.
func NewManager(bus Subscriber, logger *slog.Logger) *Manager {
	return &Manager{
		bus:               bus,
		clients:           make(map[string]*Client),
		logger:            logger,
		heartbeatInterval: DefaultHeartbeatInterval,
	}
}

// SetHeartbeatInterval changes the keepalive period for streams opened
// afterwards.
func (m *Manager) SetHeartbeatInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.heartbeatInterval = d
}

// HeartbeatInterval returns the keepalive period.
func (m *Manager) HeartbeatInterval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.heartbeatInterval
}

// Connect registers a new client subscribed to BOOK_ADDED. The
// subscription ends when ctx is done or the client disconnects.
func (m *Manager) Connect(ctx context.Context) (*Client, error) {
	clientID, err := id.Generate(id.PrefixStream)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, ErrShuttingDown
	}

	events, unsubscribe := m.bus.Subscribe(ctx, pubsub.TopicBookAdded)
	client := &Client{
		ID:          clientID,
		Events:      events,
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
		unsubscribe: unsubscribe,
	}
	m.clients[client.ID] = client
	totalClients := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("SSE client connected",
		slog.String("client_id", clientID),
		slog.Int("total_clients", totalClients))
	return client, nil
}

// Disconnect removes a client and releases its bus subscription.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	totalClients := len(m.clients)
	m.mu.Unlock()

	client.unsubscribe()
	close(client.Done)

	m.logger.Info("SSE client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", totalClients))
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Shutdown refuses new clients and closes every open stream.
func (m *Manager) Shutdown(_ context.Context) error {
	m.mu.Lock()
	m.shutdown = true
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, client := range clients {
		client.unsubscribe()
		close(client.Done)
	}

	m.logger.Info("SSE manager shutdown complete", slog.Int("closed_clients", len(clients)))
	return nil
}
