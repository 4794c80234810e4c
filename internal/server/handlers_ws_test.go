package server

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleSocket_ValidTokenSubscribes(t *testing.T) {
	f := newServerFixture(t)
	srv := f.httpServer(t)

	conn := f.dial(t, srv.URL, "123", f.tokens.Issue("123"))
	waitForCount(t, f.registry, "123", 1)

	_ = conn
}

func TestHandleSocket_MessageRoundTrip(t *testing.T) {
	f := newServerFixture(t)
	srv := f.httpServer(t)

	connA := f.dial(t, srv.URL, "123", f.tokens.Issue("123"))
	connB := f.dial(t, srv.URL, "123", f.tokens.Issue("123"))
	waitForCount(t, f.registry, "123", 2)

	require.NoError(t, connA.WriteMessage(websocket.TextMessage, []byte("task moved")))

	assert.Equal(t, "task moved", readText(t, connB))
	assertNoMessage(t, connA)
}

func TestHandleSocket_ChannelIsolation(t *testing.T) {
	f := newServerFixture(t)
	srv := f.httpServer(t)

	connA := f.dial(t, srv.URL, "123", f.tokens.Issue("123"))
	connB := f.dial(t, srv.URL, "456", f.tokens.Issue("456"))
	waitForCount(t, f.registry, "123", 1)
	waitForCount(t, f.registry, "456", 1)

	require.NoError(t, connA.WriteMessage(websocket.TextMessage, []byte("only for 123")))
	assertNoMessage(t, connB)
}

func TestHandleSocket_InvalidTokenClosedBeforeRegistration(t *testing.T) {
	f := newServerFixture(t)
	srv := f.httpServer(t)

	conn := f.dial(t, srv.URL, "123", "garbage")

	// The server closes right after the upgrade with no data frame.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.Equal(t, 0, f.registry.Count("123"))
}

func TestHandleSocket_TokenForOtherChannelRejected(t *testing.T) {
	f := newServerFixture(t)
	srv := f.httpServer(t)

	conn := f.dial(t, srv.URL, "123", f.tokens.Issue("999"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.Equal(t, 0, f.registry.Count("123"))
	assert.Equal(t, 0, f.registry.Count("999"))
}

func TestHandleSocket_DisconnectReleasesRegistryEntry(t *testing.T) {
	f := newServerFixture(t)
	srv := f.httpServer(t)

	conn := f.dial(t, srv.URL, "123", f.tokens.Issue("123"))
	waitForCount(t, f.registry, "123", 1)

	require.NoError(t, conn.Close())
	waitForCount(t, f.registry, "123", 0)
}
