// Package server coordinates client registration, inbound event dispatch, and
// connection cleanup for the relaychat WebSocket system via the Hub type.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Hub owns the live WebSocket clients and runs every chat transition on a
// single event loop, so the Dispatcher never sees two events at once.
// It implements chat.Transport for outbound delivery.
type Hub struct {
	clients    map[string]*Client
	inbound    chan inboundEvent
	register   chan *Client
	unregister chan *Client
	dispatcher Dispatcher
	log        *slog.Logger
	metrics    *Metrics
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a hub. SetDispatcher must be called before Run.
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		inbound:    make(chan inboundEvent),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        logger,
		metrics:    metrics,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// SetDispatcher attaches the event handler. The dispatcher usually sends
// through this hub, which is why it cannot be passed to NewHub.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

// Register hands a client to the hub loop, which starts its pumps. It
// returns false once the hub has shut down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) submit(ev inboundEvent) bool {
	select {
	case h.inbound <- ev:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// ClientCount reports the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Send queues frame for connID without blocking. A client whose buffer is
// full is disconnected so that its presence is cleaned up.
func (h *Hub) Send(connID string, frame []byte) error {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	client, exists := h.clients[connID]
	if !exists || client.closed {
		h.metrics.sendDropped()
		return fmt.Errorf("%w: %s", errUnknownConnection, connID)
	}

	select {
	case client.send <- frame:
		return nil
	default:
		h.metrics.sendDropped()
		h.log.Warn("send buffer full; disconnecting client", "conn", connID, "addr", client.addr)
		go client.closeConnection()
		return errSendBufferFull
	}
}

// Run starts the hub's main event loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case ev := <-h.inbound:
			h.dispatch(ev)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	if client == nil {
		h.log.Warn("received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.metrics.connectionOpened()
	h.log.Info("client registered", "conn", client.id, "addr", client.addr, "clients", clientCount)

	if client.conn == nil {
		return
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	close(client.send)
	h.metrics.connectionClosed()
	h.log.Info("client unregistered", "conn", client.id, "addr", client.addr, "clients", clientCount)

	if h.dispatcher != nil {
		h.dispatcher.Disconnect(client.id)
	}
}

func (h *Hub) dispatch(ev inboundEvent) {
	h.mutex.RLock()
	current, ok := h.clients[ev.client.id]
	h.mutex.RUnlock()
	if !ok || current != ev.client {
		return
	}

	h.metrics.eventReceived(ev.event)
	if h.dispatcher == nil {
		return
	}
	if err := h.dispatcher.Dispatch(ev.client.id, ev.event, ev.data); err != nil {
		h.metrics.eventRejected(rejectInvalid)
		h.log.Info("event rejected", "conn", ev.client.id, "event", ev.event, "err", err)
	}
}

// shutdownClients closes every client connection and send channel so both
// pumps of each client exit.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for id, client := range h.clients {
		clients = append(clients, client)
		client.closed = true
		delete(h.clients, id)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		close(client.send)
		client.closeConnection()
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
