// Package server provides configuration helpers that define runtime defaults,
// validation, and room, upload and rate-limiting parameters for relaychat.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig defines the parameters for per-connection event rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// ChatConfig bounds room history and room population.
type ChatConfig struct {
	HistoryLimit   int
	RecentLimit    int
	MaxRooms       int
	MaxRoomMembers int
}

// UploadConfig selects and limits attachment storage.
type UploadConfig struct {
	Dir      string
	MaxBytes int64
	NATSURL  string
	Bucket   string
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string
	Env             string
	AllowedOrigins  []string
	MaxMessageSize  int64
	RateLimit       RateLimitConfig
	Chat            ChatConfig
	Upload          UploadConfig
	ShutdownTimeout time.Duration
}

const (
	defaultPort            = ":3000"
	defaultMaxMessageSize  = 16 * 1024
	defaultUploadMaxBytes  = 10 * 1024 * 1024
	defaultShutdownTimeout = 30 * time.Second
)

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		Env:  "dev",
		AllowedOrigins: []string{
			"http://localhost:3000",
		},
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          10,
			RefillInterval: time.Second,
		},
		Chat: ChatConfig{
			HistoryLimit: 100,
			RecentLimit:  10,
		},
		Upload: UploadConfig{
			Dir:      "uploads",
			MaxBytes: defaultUploadMaxBytes,
			Bucket:   "chat-uploads",
		},
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// sanitizeConfig replaces invalid values with defaults and copies slices so
// the caller's Config can be reused.
func sanitizeConfig(cfg Config) Config {
	def := defaultConfig()

	if cfg.Port == "" {
		cfg.Port = def.Port
	}
	if cfg.Env == "" {
		cfg.Env = def.Env
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = def.RateLimit.Burst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = def.RateLimit.RefillInterval
	}
	if cfg.Chat.HistoryLimit <= 0 {
		cfg.Chat.HistoryLimit = def.Chat.HistoryLimit
	}
	if cfg.Chat.RecentLimit <= 0 {
		cfg.Chat.RecentLimit = def.Chat.RecentLimit
	}
	if cfg.Chat.MaxRooms < 0 {
		cfg.Chat.MaxRooms = 0
	}
	if cfg.Chat.MaxRoomMembers < 0 {
		cfg.Chat.MaxRoomMembers = 0
	}
	if cfg.Upload.Dir == "" {
		cfg.Upload.Dir = def.Upload.Dir
	}
	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = def.Upload.MaxBytes
	}
	if cfg.Upload.Bucket == "" {
		cfg.Upload.Bucket = def.Upload.Bucket
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		cfg.Env = env
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}
	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseInt64Value(maxSize, cfg.MaxMessageSize)
	}
	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}
	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSeconds(interval, cfg.RateLimit.RefillInterval)
	}

	if v := os.Getenv("HISTORY_LIMIT"); v != "" {
		cfg.Chat.HistoryLimit = parseIntValue(v, cfg.Chat.HistoryLimit)
	}
	if v := os.Getenv("RECENT_LIMIT"); v != "" {
		cfg.Chat.RecentLimit = parseIntValue(v, cfg.Chat.RecentLimit)
	}
	if v := os.Getenv("MAX_ROOMS"); v != "" {
		cfg.Chat.MaxRooms = parseIntValue(v, cfg.Chat.MaxRooms)
	}
	if v := os.Getenv("MAX_ROOM_MEMBERS"); v != "" {
		cfg.Chat.MaxRoomMembers = parseIntValue(v, cfg.Chat.MaxRoomMembers)
	}

	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.Upload.Dir = v
	}
	if v := os.Getenv("UPLOAD_MAX_BYTES"); v != "" {
		cfg.Upload.MaxBytes = parseInt64Value(v, cfg.Upload.MaxBytes)
	}
	cfg.Upload.NATSURL = os.Getenv("NATS_URL")
	if v := os.Getenv("UPLOAD_BUCKET"); v != "" {
		cfg.Upload.Bucket = v
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		cfg.ShutdownTimeout = parseSeconds(v, cfg.ShutdownTimeout)
	}

	return &cfg
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseInt64Value(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
