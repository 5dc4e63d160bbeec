// Package server wires HTTP handlers into a ServeMux for the relaychat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/rs/cors"
)

// Routes returns the application mux. The JSON API routes are wrapped in a
// CORS policy built from the allowed origins.
func (s *Server) Routes() *http.ServeMux {
	api := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/test", TestPageHandler)
	mux.HandleFunc("GET /ready", s.ReadyHandler)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.Handle("/upload", api.Handler(http.HandlerFunc(s.uploads.ServeUpload)))
	mux.HandleFunc("GET /uploads/{name}", s.uploads.ServeFile)
	mux.Handle("/invite/{room}", api.Handler(http.HandlerFunc(s.InviteHandler)))
	return mux
}
