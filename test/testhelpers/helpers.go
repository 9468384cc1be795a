// Package testhelpers provides shared fixtures for exercising the chat
// backend over real HTTP and WebSocket connections.
//
// These utilities start the full router on an httptest server, dial real
// sockets against it, and speak the event protocol so unit and integration
// tests do not repeat the handshake plumbing.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TorVallin/WebSockets-Workshop-Backend/internal/server"
)

// readTimeout bounds every single frame read in tests.
const readTimeout = 3 * time.Second

// NewTestServer starts the full application router on an httptest server
// with a permissive origin policy. The registry is returned so tests can
// inspect server-side state directly. Configuration is restored to
// defaults when the test finishes.
func NewTestServer(t *testing.T) (*httptest.Server, *server.Registry) {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	server.SetConfig(cfg)
	t.Cleanup(func() { server.SetConfig(nil) })

	reg := server.NewRegistry()
	ts := httptest.NewServer(server.NewRouter(reg))
	t.Cleanup(ts.Close)
	return ts, reg
}

// WSURL converts an httptest server URL into the WebSocket endpoint for
// the given room. An empty room targets the bare /ws endpoint.
func WSURL(ts *httptest.Server, room string) string {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if room != "" {
		url += "/" + room
	}
	return url
}

// Dial opens a WebSocket connection to the given URL. The connection is
// closed automatically when the test finishes.
func Dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", "http://localhost:5000")

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// SendEvent serializes an event and writes it as a single text frame.
func SendEvent(t *testing.T, conn *websocket.Conn, ev server.Event) {
	t.Helper()

	payload, err := server.EncodeEvent(ev)
	if err != nil {
		t.Fatalf("Failed to encode %s event: %v", ev.Kind(), err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("Failed to send %s event: %v", ev.Kind(), err)
	}
}

// ReadEvent blocks for the next frame and decodes it against the event
// schema, failing the test on timeout or malformed frames.
func ReadEvent(t *testing.T, conn *websocket.Conn) server.Event {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	ev, err := server.DecodeEvent(raw)
	if err != nil {
		t.Fatalf("Received undecodable frame %s: %v", raw, err)
	}
	return ev
}

// WaitFor reads events until one of the requested concrete type arrives,
// skipping everything else. It fails the test after too many frames.
func WaitFor[T server.Event](t *testing.T, conn *websocket.Conn) T {
	t.Helper()

	var want T
	for i := 0; i < 32; i++ {
		ev := ReadEvent(t, conn)
		if typed, ok := ev.(T); ok {
			return typed
		}
	}
	t.Fatalf("Gave up waiting for a %s event", want.Kind())
	return want
}

// ExpectEvent reads exactly one event and requires it to be of the given
// concrete type.
func ExpectEvent[T server.Event](t *testing.T, conn *websocket.Conn) T {
	t.Helper()

	ev := ReadEvent(t, conn)
	typed, ok := ev.(T)
	if !ok {
		var want T
		t.Fatalf("Expected a %s event, got %s", want.Kind(), ev.Kind())
	}
	return typed
}

// JoinChat dials the room endpoint, performs the admission handshake as
// username, and consumes the whole room intro (connection confirmation,
// room directory, history, online users, and the client's own join
// announcement). The returned connection is ready for scenario traffic.
func JoinChat(t *testing.T, ts *httptest.Server, room, username string) *websocket.Conn {
	t.Helper()

	conn := Dial(t, WSURL(ts, room))
	SendEvent(t, conn, server.NewConnectionRequest(username))

	resp := WaitFor[server.ConnectionResponse](t, conn)
	if resp.Username != username {
		t.Fatalf("Handshake confirmed username %q, want %q", resp.Username, username)
	}

	join := WaitFor[server.UserJoin](t, conn)
	if join.Username != username {
		t.Fatalf("Expected own join announcement, got one for %q", join.Username)
	}
	return conn
}

// LeaveChat closes the connection with a normal close frame so the server
// observes an ordinary disconnect.
func LeaveChat(conn *websocket.Conn) {
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
}
