package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/boyl/lighteddjango/internal/config"
	"github.com/boyl/lighteddjango/internal/relay"
	"github.com/boyl/lighteddjango/internal/signing"
)

// loopbackBus short-circuits publish into local delivery, standing in for the
// Redis bridge in handler tests.
type loopbackBus struct {
	registry *relay.Registry

	mu   sync.Mutex
	subs map[string]int
}

func newLoopbackBus(registry *relay.Registry) *loopbackBus {
	return &loopbackBus{registry: registry, subs: make(map[string]int)}
}

func (b *loopbackBus) Publish(_ context.Context, channel string, env relay.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	b.registry.DeliverLocal(channel, relay.DecodeEnvelope(data))
	return nil
}

func (b *loopbackBus) Subscribe(_ context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[channel]++
	return nil
}

func (b *loopbackBus) Unsubscribe(_ context.Context, channel string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[channel] > 0 {
		b.subs[channel]--
	}
}

type serverFixture struct {
	srv      *Server
	tokens   *signing.ChannelTokens
	verifier *signing.WebhookVerifier
	registry *relay.Registry
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	cfg := &config.Config{
		Port:             "0",
		SecretKey:        "test-secret-key",
		AllowedHosts:     "localhost:8080",
		Debug:            true,
		MaxConnections:   100,
		ConnectsPerIP:    1000,
		ConnectsPerIPCap: 1000,
	}

	clock := clockwork.NewRealClock()
	signer := signing.NewSigner(cfg.SecretKey, clock)
	tokens := signing.NewChannelTokens(signer)
	verifier := signing.NewWebhookVerifier(signer)

	registry := relay.NewRegistry()
	bus := newLoopbackBus(registry)
	router := relay.NewRouter(tokens, registry, bus, clock)

	return &serverFixture{
		srv:      NewServer(cfg, router, registry, verifier, nil, nil),
		tokens:   tokens,
		verifier: verifier,
		registry: registry,
	}
}

// dial connects a websocket client to the fixture's HTTP server.
func (f *serverFixture) dial(t *testing.T, baseURL, channel, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(baseURL, "http") + "/" + channel + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f *serverFixture) httpServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(f.srv.echo)
	t.Cleanup(srv.Close)
	return srv
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func assertNoMessage(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

// waitForCount polls the registry until a channel reaches the expected size.
func waitForCount(t *testing.T, registry *relay.Registry, channel string, expected int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return registry.Count(channel) == expected
	}, 2*time.Second, 5*time.Millisecond)
}
