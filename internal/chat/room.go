package chat

import (
	"iter"
	"sort"
	"sync"
)

// DefaultHistoryLimit is the number of messages retained per room.
const DefaultHistoryLimit = 100

// history is a fixed-capacity FIFO of messages, oldest first.
type history struct {
	buf   []*Message
	start int
	size  int
}

func newHistory(limit int) *history {
	return &history{buf: make([]*Message, limit)}
}

func (h *history) push(msg *Message) {
	if len(h.buf) == 0 {
		return
	}
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = msg
		h.size++
		return
	}
	// full: overwrite the oldest entry
	h.buf[h.start] = msg
	h.start = (h.start + 1) % len(h.buf)
}

// last returns up to n of the newest messages, oldest first.
func (h *history) last(n int) []*Message {
	if n > h.size {
		n = h.size
	}
	if n <= 0 {
		return []*Message{}
	}
	out := make([]*Message, n)
	offset := h.size - n
	for i := 0; i < n; i++ {
		out[i] = h.buf[(h.start+offset+i)%len(h.buf)]
	}
	return out
}

type room struct {
	mu      sync.Mutex
	name    string
	members map[string]struct{}
	history *history
}

// RoomDirectory owns every populated room, its member set and its bounded
// message history. A room is present exactly while it has at least one member.
type RoomDirectory struct {
	mu           sync.RWMutex
	rooms        map[string]*room
	historyLimit int
}

// NewRoomDirectory creates an empty directory whose rooms retain up to
// historyLimit messages. A non-positive limit selects DefaultHistoryLimit.
func NewRoomDirectory(historyLimit int) *RoomDirectory {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &RoomDirectory{
		rooms:        make(map[string]*room),
		historyLimit: historyLimit,
	}
}

// Join adds connID to the named room, creating the room if needed.
func (d *RoomDirectory) Join(name, connID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[name]
	if !ok {
		r = &room{
			name:    name,
			members: make(map[string]struct{}),
			history: newHistory(d.historyLimit),
		}
		d.rooms[name] = r
	}

	r.mu.Lock()
	r.members[connID] = struct{}{}
	r.mu.Unlock()
}

// Leave removes connID from the named room and deletes the room when it
// becomes empty. It reports whether the room still exists afterwards.
func (d *RoomDirectory) Leave(name, connID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rooms[name]
	if !ok {
		return false
	}

	r.mu.Lock()
	delete(r.members, connID)
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		delete(d.rooms, name)
		return false
	}
	return true
}

// AppendMessage records msg in the room's history, evicting the oldest entry
// once the limit is exceeded. Messages for rooms that no longer exist are
// dropped.
func (d *RoomDirectory) AppendMessage(name string, msg *Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.rooms[name]
	if !ok {
		return
	}

	r.mu.Lock()
	r.history.push(msg)
	r.mu.Unlock()
}

// RecentMessages returns up to n of the room's newest messages, oldest first.
func (d *RoomDirectory) RecentMessages(name string, n int) []*Message {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.rooms[name]
	if !ok {
		return []*Message{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.last(n)
}

// HistoryLen returns the number of messages retained for the room.
func (d *RoomDirectory) HistoryLen(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.rooms[name]
	if !ok {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.history.size
}

// MemberIDs returns a snapshot of the room's members in no particular order.
func (d *RoomDirectory) MemberIDs(name string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.rooms[name]
	if !ok {
		return []string{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	return ids
}

// MemberCount returns the number of members in the room, zero if absent.
func (d *RoomDirectory) MemberCount(name string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.rooms[name]
	if !ok {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// IsMember reports whether connID belongs to the room.
func (d *RoomDirectory) IsMember(name, connID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.rooms[name]
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, member := r.members[connID]
	return member
}

// Exists reports whether the room is currently populated.
func (d *RoomDirectory) Exists(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.rooms[name]
	return ok
}

// Len returns the number of populated rooms.
func (d *RoomDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

// Rooms yields (name, memberCount) for every populated room, sorted by name.
// Each range over the returned sequence snapshots the room names afresh; member
// counts are read as each pair is yielded, and rooms removed in the meantime
// are skipped.
func (d *RoomDirectory) Rooms() iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		d.mu.RLock()
		names := make([]string, 0, len(d.rooms))
		for name := range d.rooms {
			names = append(names, name)
		}
		d.mu.RUnlock()
		sort.Strings(names)

		for _, name := range names {
			d.mu.RLock()
			r, ok := d.rooms[name]
			d.mu.RUnlock()
			if !ok {
				continue
			}

			r.mu.Lock()
			count := len(r.members)
			r.mu.Unlock()

			if !yield(name, count) {
				return
			}
		}
	}
}
