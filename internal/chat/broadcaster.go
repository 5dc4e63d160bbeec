package chat

import (
	"encoding/json"
	"log/slog"
)

// Transport delivers an encoded frame to a single connection. Implementations
// must not block on slow or dead recipients.
type Transport interface {
	Send(connID string, frame []byte) error
}

// Broadcaster fans events out to connections and rooms.
type Broadcaster interface {
	SendToConnection(connID, event string, payload any)
	// SendToRoom delivers to every current member of room except exclude.
	// An empty exclude delivers to all members.
	SendToRoom(room, event string, payload any, exclude string)
}

// RoomBroadcaster is the Broadcaster backed by a RoomDirectory for membership
// and a Transport for delivery. Delivery failures are logged and swallowed.
type RoomBroadcaster struct {
	rooms     *RoomDirectory
	transport Transport
	log       *slog.Logger
}

// NewRoomBroadcaster creates a broadcaster over the given directory and transport.
func NewRoomBroadcaster(rooms *RoomDirectory, transport Transport, logger *slog.Logger) *RoomBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomBroadcaster{rooms: rooms, transport: transport, log: logger}
}

// EncodeEnvelope builds the wire frame for event and payload.
func EncodeEnvelope(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// SendToConnection delivers one event to one connection.
func (b *RoomBroadcaster) SendToConnection(connID, event string, payload any) {
	frame, err := EncodeEnvelope(event, payload)
	if err != nil {
		b.log.Error("encode event", "event", event, "err", err)
		return
	}
	b.deliver(connID, event, frame)
}

// SendToRoom delivers one event to the room's members, skipping exclude.
func (b *RoomBroadcaster) SendToRoom(room, event string, payload any, exclude string) {
	members := b.rooms.MemberIDs(room)
	if len(members) == 0 {
		return
	}

	frame, err := EncodeEnvelope(event, payload)
	if err != nil {
		b.log.Error("encode event", "event", event, "room", room, "err", err)
		return
	}

	for _, id := range members {
		if exclude != "" && id == exclude {
			continue
		}
		b.deliver(id, event, frame)
	}
}

func (b *RoomBroadcaster) deliver(connID, event string, frame []byte) {
	if err := b.transport.Send(connID, frame); err != nil {
		b.log.Debug("dropped event", "conn", connID, "event", event, "err", err)
	}
}
