package chat

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errGone = errors.New("connection gone")

// recordingTransport captures every frame per connection instead of writing
// to a socket.
type recordingTransport struct {
	mu     sync.Mutex
	frames map[string][]Envelope
	dead   map[string]bool
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		frames: make(map[string][]Envelope),
		dead:   make(map[string]bool),
	}
}

func (r *recordingTransport) Send(connID string, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dead[connID] {
		return errGone
	}
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return err
	}
	r.frames[connID] = append(r.frames[connID], env)
	return nil
}

func (r *recordingTransport) kill(connID string) {
	r.mu.Lock()
	r.dead[connID] = true
	r.mu.Unlock()
}

func (r *recordingTransport) events(connID string) []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.frames[connID]...)
}

func (r *recordingTransport) named(connID, event string) []Envelope {
	var out []Envelope
	for _, env := range r.events(connID) {
		if env.Event == event {
			out = append(out, env)
		}
	}
	return out
}

func (r *recordingTransport) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, frames := range r.frames {
		n += len(frames)
	}
	return n
}

func (r *recordingTransport) reset() {
	r.mu.Lock()
	r.frames = make(map[string][]Envelope)
	r.mu.Unlock()
}

// stepClock returns a clock that advances one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	coord     *Coordinator
	sessions  *SessionTable
	rooms     *RoomDirectory
	transport *recordingTransport
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	sessions := NewSessionTable()
	rooms := NewRoomDirectory(0)
	transport := newRecordingTransport()
	b := NewRoomBroadcaster(rooms, transport, discardLogger())
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	if opts.Now == nil {
		opts.Now = stepClock()
	}
	return &fixture{
		coord:     NewCoordinator(sessions, rooms, b, opts),
		sessions:  sessions,
		rooms:     rooms,
		transport: transport,
	}
}

func decodeData[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func roomNames(d *RoomDirectory) map[string]int {
	out := make(map[string]int)
	for name, count := range d.Rooms() {
		out[name] = count
	}
	return out
}
