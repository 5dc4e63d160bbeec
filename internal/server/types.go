// Package server defines the inbound event type passed from client read
// pumps to the hub, plus shared connection helpers.
package server

import (
	"encoding/json"
	"errors"
	"strings"
)

// Dispatcher receives decoded client events on the hub loop. It is
// implemented by chat.Coordinator.
type Dispatcher interface {
	Dispatch(connID, event string, data json.RawMessage) error
	Disconnect(connID string)
}

// inboundEvent carries one decoded envelope from a client to the hub loop.
type inboundEvent struct {
	client *Client
	event  string
	data   json.RawMessage
}

var (
	errUnknownConnection = errors.New("unknown connection")
	errSendBufferFull    = errors.New("send buffer full")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
