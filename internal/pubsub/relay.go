package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	relayChannelPrefix  = "library:"
	relayQueueSize      = 256
	relayPublishTimeout = 5 * time.Second
)

type envelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// Relay mirrors bus events through redis so every server instance sharing
// the redis server sees books added on any of them.
type Relay struct {
	client     *redis.Client
	bus        *Bus
	logger     *slog.Logger
	instanceID string
	topics     []Topic

	queue chan Event
	ready chan struct{}
}

// NewRelay creates a relay for topics and installs it as the bus forwarder.
func NewRelay(client *redis.Client, bus *Bus, logger *slog.Logger, topics ...Topic) *Relay {
	if len(topics) == 0 {
		topics = []Topic{TopicBookAdded}
	}
	r := &Relay{
		client:     client,
		bus:        bus,
		logger:     logger,
		instanceID: uuid.New().String(),
		topics:     topics,
		queue:      make(chan Event, relayQueueSize),
		ready:      make(chan struct{}),
	}
	bus.SetForwarder(r)
	return r
}

func channelName(topic Topic) string {
	return relayChannelPrefix + string(topic)
}

// Forward queues evt for publishing to redis. A full queue drops the event.
func (r *Relay) Forward(evt Event) {
	select {
	case r.queue <- evt:
	default:
		r.logger.Warn("relay queue full, dropping event", slog.String("topic", string(evt.Topic)))
	}
}

// Ready is closed once the redis subscription is confirmed.
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Run subscribes to the relay channels and pumps events both ways until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	channels := make([]string, 0, len(r.topics))
	for _, t := range r.topics {
		channels = append(channels, channelName(t))
	}

	ps := r.client.Subscribe(ctx, channels...)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to relay channels: %w", err)
	}
	close(r.ready)

	r.logger.Info("event relay started",
		slog.String("instance_id", r.instanceID),
		slog.Any("channels", channels))

	incoming := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("event relay stopping")
			return nil

		case evt := <-r.queue:
			r.publish(ctx, evt)

		case msg, ok := <-incoming:
			if !ok {
				return nil
			}
			r.receive(msg)
		}
	}
}

func (r *Relay) publish(ctx context.Context, evt Event) {
	data, err := json.Marshal(envelope{Origin: r.instanceID, Event: evt})
	if err != nil {
		r.logger.Error("failed to encode relayed event", slog.String("error", err.Error()))
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, relayPublishTimeout)
	defer cancel()

	if err := r.client.Publish(pubCtx, channelName(evt.Topic), data).Err(); err != nil {
		r.logger.Warn("failed to relay event",
			slog.String("topic", string(evt.Topic)),
			slog.String("error", err.Error()))
	}
}

func (r *Relay) receive(msg *redis.Message) {
	var env envelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		r.logger.Warn("discarding malformed relayed event",
			slog.String("channel", msg.Channel),
			slog.String("error", err.Error()))
		return
	}
	if env.Origin == r.instanceID {
		return
	}
	r.bus.Deliver(env.Event)
}
