package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/boyl/lighteddjango/internal/metrics"
	"github.com/boyl/lighteddjango/internal/relay"
)

const topicPrefix = "watercooler:"

// Bridge fans envelopes out across relay processes via Redis Pub/Sub. Every
// publish goes through Redis, including for peers on this process; the
// subscription delivers it back and the registry suppresses the sender.
//
// Channel subscriptions are ref-counted by local interest. The wildcard
// topic is held for the whole process lifetime so webhook events arrive even
// while the local connection set is churning.
type Bridge struct {
	rdb      *goredis.Client
	registry *relay.Registry

	mu     sync.Mutex
	pubsub *goredis.PubSub
	refs   map[string]int
}

func NewBridge(rdb *goredis.Client, registry *relay.Registry) *Bridge {
	return &Bridge{
		rdb:      rdb,
		registry: registry,
		// Created without channels so Subscribe is safe before Start;
		// go-redis connects the pubsub on its first command.
		pubsub: rdb.Subscribe(context.Background()),
		refs:   make(map[string]int),
	}
}

// Start subscribes the wildcard topic and launches the receive loop. The
// loop exits when ctx is cancelled or Stop is called. go-redis re-subscribes
// after transient bus outages on its own, so a Redis blip costs messages but
// never the process.
func (b *Bridge) Start(ctx context.Context) {
	if err := b.pubsub.Subscribe(ctx, topicName(relay.AllChannels)); err != nil {
		slog.Error("wildcard subscribe failed", "error", err)
	}
	go b.receive(ctx)
}

// Stop closes the subscriber connection, ending the receive loop.
func (b *Bridge) Stop() {
	_ = b.pubsub.Close()
}

// Publish serializes an envelope onto the topic for channel.
func (b *Bridge) Publish(ctx context.Context, channel string, env relay.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.rdb.Publish(ctx, topicName(channel), data).Err(); err != nil {
		metrics.BusPublishErrors.Inc()
		return fmt.Errorf("publish to %s: %w", topicName(channel), err)
	}
	metrics.EnvelopesPublished.Inc()
	return nil
}

// Subscribe records local interest in a channel, subscribing the bus
// connection on the first subscriber.
func (b *Bridge) Subscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refs[channel]++
	if b.refs[channel] == 1 {
		return b.pubsub.Subscribe(ctx, topicName(channel))
	}
	return nil
}

// Unsubscribe drops local interest in a channel. The bus subscription is
// released only when no local connection still needs it.
func (b *Bridge) Unsubscribe(ctx context.Context, channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.refs[channel] == 0 {
		return
	}
	b.refs[channel]--
	if b.refs[channel] > 0 {
		return
	}
	delete(b.refs, channel)
	if err := b.pubsub.Unsubscribe(ctx, topicName(channel)); err != nil {
		slog.Warn("bus unsubscribe failed", "channel", channel, "error", err)
	}
}

// Subscribers reports the local interest count for a channel.
func (b *Bridge) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refs[channel]
}

func (b *Bridge) receive(ctx context.Context) {
	ch := b.pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			metrics.EnvelopesReceived.Inc()
			env := relay.DecodeEnvelope([]byte(msg.Payload))
			b.registry.DeliverLocal(channelName(msg.Channel), env)
		case <-ctx.Done():
			return
		}
	}
}

func topicName(channel string) string {
	return topicPrefix + channel
}

func channelName(topic string) string {
	return strings.TrimPrefix(topic, topicPrefix)
}
