package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, ":3000", cfg.Port)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(16*1024), cfg.MaxMessageSize)
	assert.Equal(t, RateLimitConfig{Burst: 10, RefillInterval: time.Second}, cfg.RateLimit)
	assert.Equal(t, ChatConfig{HistoryLimit: 100, RecentLimit: 10}, cfg.Chat)
	assert.Equal(t, "uploads", cfg.Upload.Dir)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxBytes)
	assert.Empty(t, cfg.Upload.NATSURL)
	assert.Equal(t, "chat-uploads", cfg.Upload.Bucket)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MAX_MESSAGE_SIZE", "2048")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "5")
	t.Setenv("HISTORY_LIMIT", "50")
	t.Setenv("RECENT_LIMIT", "5")
	t.Setenv("MAX_ROOMS", "4")
	t.Setenv("MAX_ROOM_MEMBERS", "8")
	t.Setenv("UPLOAD_DIR", "/tmp/up")
	t.Setenv("UPLOAD_MAX_BYTES", "1024")
	t.Setenv("NATS_URL", "nats://127.0.0.1:4222")
	t.Setenv("UPLOAD_BUCKET", "files")
	t.Setenv("SHUTDOWN_TIMEOUT", "7")

	cfg := NewConfigFromEnv()

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(2048), cfg.MaxMessageSize)
	assert.Equal(t, RateLimitConfig{Burst: 3, RefillInterval: 5 * time.Second}, cfg.RateLimit)
	assert.Equal(t, ChatConfig{HistoryLimit: 50, RecentLimit: 5, MaxRooms: 4, MaxRoomMembers: 8}, cfg.Chat)
	assert.Equal(t, UploadConfig{Dir: "/tmp/up", MaxBytes: 1024, NATSURL: "nats://127.0.0.1:4222", Bucket: "files"}, cfg.Upload)
	assert.Equal(t, 7*time.Second, cfg.ShutdownTimeout)
}

func TestNewConfigFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "huge")
	t.Setenv("RATE_LIMIT_BURST", "-1")
	t.Setenv("HISTORY_LIMIT", "0")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := NewConfigFromEnv()
	def := defaultConfig()

	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, def.RateLimit.Burst, cfg.RateLimit.Burst)
	assert.Equal(t, def.Chat.HistoryLimit, cfg.Chat.HistoryLimit)
	assert.Equal(t, def.ShutdownTimeout, cfg.ShutdownTimeout)
}

func TestSanitizeConfig(t *testing.T) {
	origins := []string{"http://x.example"}
	cfg := sanitizeConfig(Config{
		AllowedOrigins: origins,
		Chat:           ChatConfig{MaxRooms: -3, MaxRoomMembers: -1},
	})

	def := defaultConfig()
	assert.Equal(t, def.Port, cfg.Port)
	assert.Equal(t, def.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, def.RateLimit, cfg.RateLimit)
	assert.Equal(t, def.Chat.HistoryLimit, cfg.Chat.HistoryLimit)
	assert.Zero(t, cfg.Chat.MaxRooms)
	assert.Zero(t, cfg.Chat.MaxRoomMembers)
	assert.Equal(t, def.Upload.MaxBytes, cfg.Upload.MaxBytes)

	origins[0] = "mutated"
	assert.Equal(t, []string{"http://x.example"}, cfg.AllowedOrigins, "origins must be copied")
}
