// Package server implements the HTTP and WebSocket layer of relaychat.
//
// A Hub owns the live connections and feeds decoded client events to the
// chat coordinator on a single loop. The rest of the package covers
// configuration, origin checks, rate limiting, routing, invite links,
// metrics and logging.
package server
