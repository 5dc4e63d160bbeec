package chat

import (
	"bytes"
	"encoding/json"
	"time"
)

// Inbound event names.
const (
	EventJoin        = "join"
	EventChatMessage = "chat_message"
	EventTyping      = "typing"
	EventGetUsers    = "get_users"
	EventGetRooms    = "get_rooms"
)

// Outbound event names.
const (
	EventMessage        = "message"
	EventRecentMessages = "recent_messages"
	EventUserList       = "user_list"
	EventRoomList       = "room_list"
	EventUserTyping     = "user_typing"
)

// MessageType distinguishes server generated notices from user chat lines.
type MessageType string

const (
	MessageSystem MessageType = "system"
	MessageUser   MessageType = "user"
)

// timestampLayout renders UTC times as ISO-8601 with millisecond precision,
// e.g. 2026-10-18T09:30:00.000Z.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t in the wire timestamp format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Message is an immutable chat record. The same pointer is stored in room
// history and handed to the broadcaster, so it must not be modified after
// construction. File carries the upload descriptor exactly as the sender
// supplied it.
type Message struct {
	Type      MessageType     `json:"type"`
	Text      string          `json:"message"`
	Username  string          `json:"username,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	Room      string          `json:"room"`
	Timestamp string          `json:"timestamp"`
	File      json.RawMessage `json:"file,omitempty"`
}

// Member is one entry of a user_list event.
type Member struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	JoinTime string `json:"joinTime"`
}

// RoomSummary is one entry of a room_list event.
type RoomSummary struct {
	Name      string `json:"name"`
	UserCount int    `json:"userCount"`
}

// TypingNotice is the payload of a user_typing event.
type TypingNotice struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// JoinRequest is the payload of an inbound join event.
type JoinRequest struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

// ChatRequest is the payload of an inbound chat_message event.
type ChatRequest struct {
	Message string          `json:"message"`
	File    json.RawMessage `json:"file,omitempty"`
}

// TypingRequest is the payload of an inbound typing event.
type TypingRequest struct {
	IsTyping bool `json:"isTyping"`
}

// Envelope is the frame format used on the wire in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// attachment returns raw unchanged, or nil when it is absent or JSON null.
func attachment(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return raw
}

func newSystemMessage(room, text string, at time.Time) *Message {
	return &Message{
		Type:      MessageSystem,
		Text:      text,
		Room:      room,
		Timestamp: FormatTimestamp(at),
	}
}
