// Package chat holds the in-memory coordination core of the relay: which
// connection belongs to which user and room, each room's bounded message
// history, and the fan-out of presence and chat events to room members.
//
// SessionTable and RoomDirectory are the two owned registries. Coordinator
// composes them with a Broadcaster into the join / chat / typing / disconnect
// protocol. Nothing here touches the network; delivery goes through the
// Transport supplied by the server package.
package chat
