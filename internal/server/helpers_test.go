package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/relaychat/internal/chat"
	"github.com/Tyrowin/relaychat/internal/upload"
)

const testOrigin = "http://localhost:3000"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a config suitable for in-process servers. mutate may be nil.
func testConfig(mutate func(*Config)) *Config {
	cfg := NewConfig()
	cfg.AllowedOrigins = []string{testOrigin}
	cfg.RateLimit.Burst = 100
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

// newTestServer starts a Server's hub and serves its routes from httptest.
func newTestServer(t *testing.T, mutate func(*Config)) (*Server, *httptest.Server) {
	t.Helper()

	store, err := upload.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	srv := New(testConfig(mutate), discardLogger(), store)
	srv.StartHub()
	ts := httptest.NewServer(srv.Routes())

	t.Cleanup(func() {
		ts.Close()
		_ = srv.Hub().Shutdown(2 * time.Second)
	})
	return srv, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dialWithOrigin(ts *httptest.Server, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	headers := http.Header{}
	headers.Set("Origin", origin)
	return dialer.Dial(wsURL(ts), headers)
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, resp, err := dialWithOrigin(ts, testOrigin)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := chat.EncodeEnvelope(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func readEvent(t *testing.T, conn *websocket.Conn) chat.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env chat.Envelope
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

// expectEvent reads frames until one named event arrives.
func expectEvent(t *testing.T, conn *websocket.Conn, event string) chat.Envelope {
	t.Helper()
	for i := 0; i < 20; i++ {
		env := readEvent(t, conn)
		if env.Event == event {
			return env
		}
	}
	t.Fatalf("event %q not received", event)
	return chat.Envelope{}
}

// expectMessage reads until a message event with the given text arrives.
func expectMessage(t *testing.T, conn *websocket.Conn, text string) chat.Message {
	t.Helper()
	for i := 0; i < 20; i++ {
		env := expectEvent(t, conn, chat.EventMessage)
		msg := decodeData[chat.Message](t, env)
		if msg.Text == text {
			return msg
		}
	}
	t.Fatalf("message %q not received", text)
	return chat.Message{}
}

func decodeData[T any](t *testing.T, env chat.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func usernames(members []chat.Member) []string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Username)
	}
	return names
}

// recordingDispatcher captures hub callbacks.
type recordingDispatcher struct {
	mu          sync.Mutex
	events      []string
	disconnects []string
	err         error
}

func (d *recordingDispatcher) Dispatch(connID, event string, _ json.RawMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, connID+":"+event)
	return d.err
}

func (d *recordingDispatcher) Disconnect(connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disconnects = append(d.disconnects, connID)
}

func (d *recordingDispatcher) snapshot() ([]string, []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...), append([]string(nil), d.disconnects...)
}
