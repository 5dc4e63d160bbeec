// Package server builds the structured logger shared by the HTTP layer,
// the hub and the chat core.
package server

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a JSON logger at info level for production and a text
// logger at debug level for every other environment.
func NewLogger(env string) *slog.Logger {
	return newLogger(env, os.Stdout)
}

func newLogger(env string, w io.Writer) *slog.Logger {
	if env == "prod" || env == "production" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
