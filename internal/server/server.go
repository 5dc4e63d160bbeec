// Package server assembles the relaychat runtime: chat registries, the
// coordinator, the WebSocket hub, uploads and metrics.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/relaychat/internal/chat"
	"github.com/Tyrowin/relaychat/internal/upload"
)

// Server owns one relay instance.
type Server struct {
	cfg        Config
	log        *slog.Logger
	sessions   *chat.SessionTable
	rooms      *chat.RoomDirectory
	hub        *Hub
	metrics    *Metrics
	uploads    *upload.Handler
	origins    *originPolicy
	upgrader   websocket.Upgrader
	httpServer *http.Server
}

// New builds a Server over cfg. Uploads are kept in store.
func New(cfg *Config, logger *slog.Logger, store upload.Store) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	c := sanitizeConfig(*cfg)

	sessions := chat.NewSessionTable()
	rooms := chat.NewRoomDirectory(c.Chat.HistoryLimit)
	metrics := NewMetrics(sessions, rooms)

	hub := NewHub(logger.With("component", "hub"), metrics)
	broadcaster := chat.NewRoomBroadcaster(rooms, hub, logger.With("component", "broadcaster"))
	coordinator := chat.NewCoordinator(sessions, rooms, broadcaster, chat.Options{
		RecentLimit:    c.Chat.RecentLimit,
		MaxRooms:       c.Chat.MaxRooms,
		MaxRoomMembers: c.Chat.MaxRoomMembers,
		Logger:         logger.With("component", "presence"),
	})
	hub.SetDispatcher(coordinator)

	s := &Server{
		cfg:      c,
		log:      logger,
		sessions: sessions,
		rooms:    rooms,
		hub:      hub,
		metrics:  metrics,
		uploads: upload.NewHandler(
			upload.NewService(store, c.Upload.MaxBytes, logger.With("component", "upload")),
			logger.With("component", "upload"),
		),
		origins: newOriginPolicy(c.AllowedOrigins, logger),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	s.httpServer = CreateServer(c.Port, s.Routes())
	return s
}

// Hub returns the connection hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// StartHub runs the hub loop in its own goroutine. It must be called before
// the server accepts WebSocket connections.
func (s *Server) StartHub() {
	go s.hub.Run()
	s.log.Info("hub started")
}

// ListenAndServe starts the hub and serves HTTP until Shutdown.
func (s *Server) ListenAndServe() error {
	s.StartHub()
	err := StartServer(s.httpServer, s.log)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting HTTP requests, then closes every WebSocket client
// and waits for their goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	httpErr := ShutdownServer(ctx, s.httpServer, s.log)

	timeout := s.cfg.ShutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	hubErr := s.hub.Shutdown(timeout)

	return errors.Join(httpErr, hubErr)
}
