package providers

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"

	"github.com/libraryapp/library-server/internal/config"
	"github.com/libraryapp/library-server/internal/logger"
	"github.com/libraryapp/library-server/internal/metrics"
	"github.com/libraryapp/library-server/internal/pubsub"
	"github.com/libraryapp/library-server/internal/sse"
)

// ProvideMetrics provides the prometheus collectors.
func ProvideMetrics(_ do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

// BusHandle wraps the event bus and its optional redis relay.
type BusHandle struct {
	*pubsub.Bus
	redis  *redis.Client
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *BusHandle) Shutdown() error {
	h.cancel()
	h.Close()
	if h.redis != nil {
		return h.redis.Close()
	}
	return nil
}

// ProvideEventBus provides the BOOK_ADDED bus. With REDIS_ADDR set the bus
// is relayed through redis so every instance sees every book.
func ProvideEventBus(i do.Injector) (*BusHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	bus := pubsub.New(log.Logger, cfg.Events.SubscriberBuffer)
	bus.SetObserver(m)
	m.Gauge("bus", "subscribers", "Open event bus subscriptions.", func() float64 {
		return float64(bus.SubscriberCount())
	})

	ctx, cancel := context.WithCancel(context.Background())
	handle := &BusHandle{Bus: bus, cancel: cancel}

	if cfg.Events.RedisAddr == "" {
		log.Info("Event bus started", "relay", false)
		return handle, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Events.RedisAddr})
	pingCtx, pingCancel := context.WithTimeout(ctx, relayConnectTimeout)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		cancel()
		_ = client.Close()
		return nil, errors.Join(errors.New("connect to redis event relay"), err)
	}
	handle.redis = client

	relay := pubsub.NewRelay(client, bus, log.Logger)
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("Event relay stopped", "error", err)
		}
	}()

	log.Info("Event bus started", "relay", true, "redis_addr", cfg.Events.RedisAddr)
	return handle, nil
}

// SSEManagerHandle wraps the SSE manager for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	bus := do.MustInvoke[*BusHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	manager := sse.NewManager(bus.Bus, log.Logger)
	m.Gauge("sse", "clients", "Connected SSE clients.", func() float64 {
		return float64(manager.ClientCount())
	})

	log.Info("SSE manager started")
	return &SSEManagerHandle{Manager: manager}, nil
}
