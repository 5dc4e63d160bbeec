package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// DefaultRecentLimit is the number of history messages replayed to a joining
// connection.
const DefaultRecentLimit = 10

var (
	// ErrRoomLimitReached is returned when a join would create a room beyond
	// the configured maximum number of rooms.
	ErrRoomLimitReached = errors.New("room limit reached")
	// ErrRoomFull is returned when a join would exceed a room's member limit.
	ErrRoomFull = errors.New("room is full")
	// ErrUnknownEvent is returned by Dispatch for unrecognized event names.
	ErrUnknownEvent = errors.New("unknown event")
)

// Options tunes a Coordinator. Zero values select the defaults.
type Options struct {
	// RecentLimit is the number of history messages sent to a joining connection.
	RecentLimit int
	// MaxRooms caps the number of populated rooms. Zero means unlimited.
	MaxRooms int
	// MaxRoomMembers caps the members of a single room. Zero means unlimited.
	MaxRoomMembers int
	Logger         *slog.Logger
	Now            func() time.Time
}

// Coordinator drives the per-connection presence protocol: join, chat,
// typing, user/room listing and disconnect. It composes the session table,
// the room directory and a broadcaster.
//
// Transitions are not serialized by the Coordinator itself; callers must
// deliver events one at a time (the server hub runs them on a single loop).
type Coordinator struct {
	sessions    *SessionTable
	rooms       *RoomDirectory
	broadcaster Broadcaster

	recentLimit    int
	maxRooms       int
	maxRoomMembers int
	log            *slog.Logger
	now            func() time.Time
}

// NewCoordinator wires a coordinator over the given registries and broadcaster.
func NewCoordinator(sessions *SessionTable, rooms *RoomDirectory, b Broadcaster, opts Options) *Coordinator {
	c := &Coordinator{
		sessions:       sessions,
		rooms:          rooms,
		broadcaster:    b,
		recentLimit:    opts.RecentLimit,
		maxRooms:       opts.MaxRooms,
		maxRoomMembers: opts.MaxRoomMembers,
		log:            opts.Logger,
		now:            opts.Now,
	}
	if c.recentLimit <= 0 {
		c.recentLimit = DefaultRecentLimit
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Dispatch routes one inbound event from connID to its transition.
func (c *Coordinator) Dispatch(connID, event string, data json.RawMessage) error {
	switch event {
	case EventJoin:
		var req JoinRequest
		if err := decode(data, &req); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		return c.Join(connID, req.Username, req.Room)
	case EventChatMessage:
		var req ChatRequest
		if err := decode(data, &req); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		c.ChatMessage(connID, req)
	case EventTyping:
		var req TypingRequest
		if err := decode(data, &req); err != nil {
			return fmt.Errorf("decode %s: %w", event, err)
		}
		c.Typing(connID, req.IsTyping)
	case EventGetUsers:
		c.GetUsers(connID)
	case EventGetRooms:
		c.GetRooms(connID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	return nil
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// Join registers connID as username in room and announces it. A connection
// already in a different room leaves that room first.
func (c *Coordinator) Join(connID, username, room string) error {
	prev, hadSession := c.sessions.Get(connID)
	moving := hadSession && prev.Room != room

	if err := c.admit(connID, room, prev, moving); err != nil {
		c.log.Info("join rejected", "conn", connID, "room", room, "err", err)
		c.broadcaster.SendToConnection(connID, EventMessage,
			newSystemMessage(room, fmt.Sprintf("Cannot join %s: %v", room, err), c.now()))
		return err
	}

	if moving {
		c.leaveRoom(prev)
	}

	now := c.now()
	c.sessions.RegisterAt(connID, username, room, now)
	c.rooms.Join(room, connID)
	c.log.Info("user joined", "conn", connID, "username", username, "room", room)

	c.broadcaster.SendToRoom(room, EventMessage,
		newSystemMessage(room, username+" joined the chat", now), connID)
	c.broadcaster.SendToConnection(connID, EventMessage,
		newSystemMessage(room, fmt.Sprintf("Welcome to %s, %s!", room, username), now))
	c.broadcastUserList(room)

	if recent := c.rooms.RecentMessages(room, c.recentLimit); len(recent) > 0 {
		c.broadcaster.SendToConnection(connID, EventRecentMessages, recent)
	}
	return nil
}

// admit enforces the room count and room size bounds.
func (c *Coordinator) admit(connID, room string, prev Session, moving bool) error {
	if c.rooms.Exists(room) {
		if c.maxRoomMembers > 0 && !c.rooms.IsMember(room, connID) &&
			c.rooms.MemberCount(room) >= c.maxRoomMembers {
			return ErrRoomFull
		}
		return nil
	}

	if c.maxRooms <= 0 {
		return nil
	}
	count := c.rooms.Len()
	if moving && c.rooms.MemberCount(prev.Room) == 1 && c.rooms.IsMember(prev.Room, connID) {
		// the move vacates the previous room
		count--
	}
	if count >= c.maxRooms {
		return ErrRoomLimitReached
	}
	return nil
}

// ChatMessage records and fans out a user message. Connections that have not
// joined are ignored.
func (c *Coordinator) ChatMessage(connID string, req ChatRequest) {
	s, ok := c.sessions.Get(connID)
	if !ok {
		c.log.Debug("chat_message from unjoined connection", "conn", connID)
		return
	}

	msg := &Message{
		Type:      MessageUser,
		Text:      req.Message,
		Username:  s.Username,
		UserID:    connID,
		Room:      s.Room,
		Timestamp: FormatTimestamp(c.now()),
		File:      attachment(req.File),
	}

	c.rooms.AppendMessage(s.Room, msg)
	c.broadcaster.SendToRoom(s.Room, EventMessage, msg, "")
}

// Typing relays a typing indicator to the rest of the sender's room.
func (c *Coordinator) Typing(connID string, isTyping bool) {
	s, ok := c.sessions.Get(connID)
	if !ok {
		return
	}
	c.broadcaster.SendToRoom(s.Room, EventUserTyping,
		TypingNotice{Username: s.Username, IsTyping: isTyping}, connID)
}

// GetUsers sends the member list of the caller's room to the caller only.
func (c *Coordinator) GetUsers(connID string) {
	s, ok := c.sessions.Get(connID)
	if !ok {
		return
	}
	c.broadcaster.SendToConnection(connID, EventUserList, c.MemberList(s.Room))
}

// GetRooms sends the populated room list to the caller.
func (c *Coordinator) GetRooms(connID string) {
	c.broadcaster.SendToConnection(connID, EventRoomList, c.RoomList())
}

// Disconnect removes connID from its room and forgets its session.
func (c *Coordinator) Disconnect(connID string) {
	if s, ok := c.sessions.Get(connID); ok {
		c.leaveRoom(s)
		c.log.Info("user left", "conn", connID, "username", s.Username, "room", s.Room)
	}
	c.sessions.Remove(connID)
}

func (c *Coordinator) leaveRoom(s Session) {
	if !c.rooms.Leave(s.Room, s.ConnectionID) {
		return
	}
	c.broadcaster.SendToRoom(s.Room, EventMessage,
		newSystemMessage(s.Room, s.Username+" left the chat", c.now()), s.ConnectionID)
	c.broadcastUserList(s.Room)
}

func (c *Coordinator) broadcastUserList(room string) {
	c.broadcaster.SendToRoom(room, EventUserList, c.MemberList(room), "")
}

// MemberList maps the room's members to their sessions, ordered by join time.
// Members whose session has already gone are left out.
func (c *Coordinator) MemberList(room string) []Member {
	type entry struct {
		member Member
		joined time.Time
	}

	ids := c.rooms.MemberIDs(room)
	entries := make([]entry, 0, len(ids))
	for _, id := range ids {
		s, ok := c.sessions.Get(id)
		if !ok {
			continue
		}
		entries = append(entries, entry{
			member: Member{ID: id, Username: s.Username, JoinTime: FormatTimestamp(s.JoinedAt)},
			joined: s.JoinedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].joined.Equal(entries[j].joined) {
			return entries[i].joined.Before(entries[j].joined)
		}
		return entries[i].member.ID < entries[j].member.ID
	})

	members := make([]Member, len(entries))
	for i, e := range entries {
		members[i] = e.member
	}
	return members
}

// RoomList returns a snapshot of every populated room and its member count.
func (c *Coordinator) RoomList() []RoomSummary {
	list := []RoomSummary{}
	for name, count := range c.rooms.Rooms() {
		list = append(list, RoomSummary{Name: name, UserCount: count})
	}
	return list
}
