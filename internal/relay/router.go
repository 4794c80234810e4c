package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/boyl/lighteddjango/internal/metrics"
	"github.com/boyl/lighteddjango/internal/signing"
)

// ErrBusUnavailable wraps publish failures so callers can tell a broken bus
// apart from a bad request.
var ErrBusUnavailable = errors.New("bus unavailable")

// Bus is the publish side of the message bus plus subscription interest
// management. Implemented by the Redis bridge; tests use a loopback.
type Bus interface {
	Publish(ctx context.Context, channel string, env Envelope) error
	Subscribe(ctx context.Context, channel string) error
	Unsubscribe(ctx context.Context, channel string)
}

// actionsByMethod is the closed verb-to-action table for webhook calls.
var actionsByMethod = map[string]Action{
	http.MethodPost:   ActionAdd,
	http.MethodPut:    ActionUpdate,
	http.MethodDelete: ActionRemove,
}

// knownModels is the closed set of resources the system-of-record announces.
var knownModels = map[string]bool{
	"task":   true,
	"sprint": true,
	"user":   true,
}

// Router drives the connection lifecycle: token-checked connects, client
// publishes, disconnects, and webhook rebroadcast.
type Router struct {
	tokens   *signing.ChannelTokens
	registry *Registry
	bus      Bus
	clock    clockwork.Clock
}

func NewRouter(tokens *signing.ChannelTokens, registry *Registry, bus Bus, clock clockwork.Clock) *Router {
	return &Router{tokens: tokens, registry: registry, bus: bus, clock: clock}
}

// HandleConnect authorizes an upgraded websocket against a channel token and
// registers it. The token must grant exactly the channel the client asked
// for; on any failure no connection is created and the caller closes the
// transport.
func (rt *Router) HandleConnect(ctx context.Context, channel, token string, ws *websocket.Conn) (*Conn, error) {
	granted, err := rt.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if granted != channel {
		return nil, signing.ErrInvalid
	}

	conn := NewConn(channel, ws, rt.clock)
	rt.registry.Add(conn)
	if err := rt.bus.Subscribe(ctx, channel); err != nil {
		// The connection stays up; the bus client reconnects on its own and
		// re-establishes the subscription set.
		slog.Error("bus subscription failed", "channel", channel, "error", err)
	}
	return conn, nil
}

// HandleMessage publishes a client frame on the connection's channel. The
// router never delivers locally itself; the message comes back through the
// bus and the sender id keeps it from echoing to the originator.
//
// Payloads ride the bus as a JSON string and leave as text frames, so bytes
// that are not valid UTF-8 are replaced with U+FFFD on the way through.
func (rt *Router) HandleMessage(ctx context.Context, conn *Conn, payload []byte) {
	env := Envelope{Sender: conn.ID.String(), Message: string(payload)}
	if err := rt.bus.Publish(ctx, conn.Channel, env); err != nil {
		slog.Error("broadcast failed", "channel", conn.Channel, "error", err)
	}
}

// HandleDisconnect removes a connection from the registry and releases its
// bus subscription interest. Safe to call more than once.
func (rt *Router) HandleDisconnect(ctx context.Context, conn *Conn) {
	rt.registry.Remove(conn)
	rt.bus.Unsubscribe(ctx, conn.Channel)
}

// HandleWebhook rebroadcasts a verified change notification to every client
// on every channel, with no sender so it is never suppressed. The relay is a
// dumb notifier: it does not check that model/id name a real resource.
func (rt *Router) HandleWebhook(ctx context.Context, method, model, id string, body []byte) error {
	action, ok := actionsByMethod[strings.ToUpper(method)]
	if !ok {
		return fmt.Errorf("unsupported method %q", method)
	}
	if !knownModels[model] {
		return fmt.Errorf("unknown model %q", model)
	}
	if len(body) > 0 && !json.Valid(body) {
		return fmt.Errorf("body is not valid JSON")
	}

	event := Event{Model: model, ID: id, Action: action}
	if len(body) > 0 {
		event.Body = body
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := rt.bus.Publish(ctx, AllChannels, Envelope{Message: string(data)}); err != nil {
		return fmt.Errorf("%w: %v", ErrBusUnavailable, err)
	}
	metrics.WebhookRequests.WithLabelValues("broadcast").Inc()
	return nil
}
