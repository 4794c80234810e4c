package relay

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/boyl/lighteddjango/internal/metrics"
)

// Conn is one live subscriber: a unique identity, the channel it joined for
// its lifetime, and its write pump.
type Conn struct {
	ID      uuid.UUID
	Channel string
	writer  *clientWriter
}

// NewConn wraps an upgraded websocket in a connection bound to channel.
func NewConn(channel string, ws *websocket.Conn, clock clockwork.Clock) *Conn {
	return &Conn{
		ID:      uuid.New(),
		Channel: channel,
		writer:  newClientWriter(ws, clock),
	}
}

// Close stops the write pump and closes the transport.
func (c *Conn) Close() {
	c.writer.stop()
}

// Registry tracks live connections per channel. It is the process's shared
// mutable resource: reader goroutines add and remove entries while the bus
// receive goroutine delivers. All access goes through the mutex; Members
// returns a snapshot so delivery iterates without holding it.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]map[uuid.UUID]*Conn
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]map[uuid.UUID]*Conn)}
}

// Add registers a connection under its channel.
func (r *Registry) Add(conn *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	peers, ok := r.channels[conn.Channel]
	if !ok {
		peers = make(map[uuid.UUID]*Conn)
		r.channels[conn.Channel] = peers
	}
	peers[conn.ID] = conn
	metrics.ActiveConnections.Inc()
}

// Remove deregisters a connection and stops its write pump. Removing a
// connection that is already gone is a no-op.
func (r *Registry) Remove(conn *Conn) {
	r.mu.Lock()
	peers, ok := r.channels[conn.Channel]
	removed := false
	if ok {
		if _, present := peers[conn.ID]; present {
			delete(peers, conn.ID)
			removed = true
			if len(peers) == 0 {
				delete(r.channels, conn.Channel)
			}
		}
	}
	r.mu.Unlock()

	if removed {
		conn.Close()
		metrics.ActiveConnections.Dec()
	}
}

// Members returns a snapshot of the live set for a channel, or of every
// channel's membership when given AllChannels.
func (r *Registry) Members(channel string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if channel == AllChannels {
		var all []*Conn
		for _, peers := range r.channels {
			for _, conn := range peers {
				all = append(all, conn)
			}
		}
		return all
	}

	peers := r.channels[channel]
	conns := make([]*Conn, 0, len(peers))
	for _, conn := range peers {
		conns = append(conns, conn)
	}
	return conns
}

// Count reports the number of live connections on a channel.
func (r *Registry) Count(channel string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if channel == AllChannels {
		total := 0
		for _, peers := range r.channels {
			total += len(peers)
		}
		return total
	}
	return len(r.channels[channel])
}

// DeliverLocal writes an envelope's message to every local member of channel
// except the sender named in the envelope. A peer that cannot accept the
// write is evicted; delivery to the remaining members continues.
func (r *Registry) DeliverLocal(channel string, env Envelope) {
	payload := []byte(env.Message)
	for _, conn := range r.Members(channel) {
		if env.Sender != "" && conn.ID.String() == env.Sender {
			continue
		}
		if !conn.writer.trySend(payload) {
			slog.Warn("evicting unresponsive peer",
				"channel", conn.Channel,
				"connection_id", conn.ID)
			metrics.DeliveryFailures.Inc()
			r.Remove(conn)
			continue
		}
		metrics.EnvelopesDelivered.Inc()
	}
}
