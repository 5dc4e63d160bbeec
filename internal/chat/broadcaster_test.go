package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroadcaster() (*RoomBroadcaster, *RoomDirectory, *recordingTransport) {
	rooms := NewRoomDirectory(0)
	transport := newRecordingTransport()
	return NewRoomBroadcaster(rooms, transport, discardLogger()), rooms, transport
}

func TestEncodeEnvelope(t *testing.T) {
	frame, err := EncodeEnvelope(EventUserTyping, TypingNotice{Username: "alice", IsTyping: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"user_typing","data":{"username":"alice","isTyping":true}}`, string(frame))

	frame, err = EncodeEnvelope(EventGetRooms, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"get_rooms"}`, string(frame))

	_, err = EncodeEnvelope(EventMessage, make(chan int))
	assert.Error(t, err)
}

func TestRoomBroadcaster_SendToRoom(t *testing.T) {
	tests := []struct {
		name    string
		exclude string
		want    map[string]int
	}{
		{name: "all members", exclude: "", want: map[string]int{"a": 1, "b": 1, "c": 1}},
		{name: "all except sender", exclude: "a", want: map[string]int{"a": 0, "b": 1, "c": 1}},
		{name: "exclude non member", exclude: "zz", want: map[string]int{"a": 1, "b": 1, "c": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, rooms, transport := newTestBroadcaster()
			for _, id := range []string{"a", "b", "c"} {
				rooms.Join("lobby", id)
			}
			rooms.Join("other", "d")

			b.SendToRoom("lobby", EventUserTyping, TypingNotice{Username: "a"}, tt.exclude)

			for id, n := range tt.want {
				assert.Len(t, transport.events(id), n, "recipient %s", id)
			}
			assert.Empty(t, transport.events("d"), "other rooms must not receive the event")
		})
	}
}

func TestRoomBroadcaster_SwallowsDeliveryFailures(t *testing.T) {
	b, rooms, transport := newTestBroadcaster()
	rooms.Join("lobby", "a")
	rooms.Join("lobby", "b")
	rooms.Join("lobby", "c")
	transport.kill("b")

	assert.NotPanics(t, func() {
		b.SendToRoom("lobby", EventMessage, &Message{Type: MessageUser, Text: "hi"}, "")
		b.SendToConnection("b", EventRoomList, []RoomSummary{})
	})

	assert.Len(t, transport.events("a"), 1)
	assert.Empty(t, transport.events("b"))
	assert.Len(t, transport.events("c"), 1)
}

func TestRoomBroadcaster_MissingRoomSendsNothing(t *testing.T) {
	b, _, transport := newTestBroadcaster()
	b.SendToRoom("ghost", EventMessage, &Message{}, "")
	assert.Zero(t, transport.total())
}

func TestRoomBroadcaster_SendToConnection(t *testing.T) {
	b, _, transport := newTestBroadcaster()
	b.SendToConnection("a", EventRoomList, []RoomSummary{{Name: "lobby", UserCount: 2}})

	events := transport.events("a")
	require.Len(t, events, 1)
	assert.Equal(t, EventRoomList, events[0].Event)

	var rooms []RoomSummary
	require.NoError(t, json.Unmarshal(events[0].Data, &rooms))
	assert.Equal(t, []RoomSummary{{Name: "lobby", UserCount: 2}}, rooms)
}
