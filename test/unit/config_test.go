package unit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TorVallin/WebSockets-Workshop-Backend/internal/server"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := server.NewConfig()

	assert.Equal(t, ":5000", cfg.Port)
	assert.Equal(t, int64(4096), cfg.MaxMessageSize)
	assert.Equal(t, 50, cfg.SendQueueSize)
	assert.Equal(t, 64, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "@every 10m", cfg.RoomSweepSchedule)
	assert.NotEmpty(t, cfg.AllowedOrigins)
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("ALLOWED_ORIGINS", "https://chat.example.com, https://admin.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "8192")
	t.Setenv("SEND_QUEUE_SIZE", "100")
	t.Setenv("RATE_LIMIT_BURST", "16")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("ROOM_SWEEP_SCHEDULE", "@every 1h")

	cfg := server.NewConfigFromEnv()

	assert.Equal(t, ":9000", cfg.Port)
	require.Len(t, cfg.AllowedOrigins, 2)
	assert.Equal(t, "https://chat.example.com", cfg.AllowedOrigins[0])
	assert.Equal(t, "https://admin.example.com", cfg.AllowedOrigins[1])
	assert.Equal(t, int64(8192), cfg.MaxMessageSize)
	assert.Equal(t, 100, cfg.SendQueueSize)
	assert.Equal(t, 16, cfg.RateLimit.Burst)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, "@every 1h", cfg.RoomSweepSchedule)
}

func TestNewConfigFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "not-a-number")
	t.Setenv("SEND_QUEUE_SIZE", "-5")
	t.Setenv("RATE_LIMIT_BURST", "0")

	cfg := server.NewConfigFromEnv()
	defaults := server.NewConfig()

	assert.Equal(t, defaults.MaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, defaults.SendQueueSize, cfg.SendQueueSize)
	assert.Equal(t, defaults.RateLimit.Burst, cfg.RateLimit.Burst)
}

func TestNewConfigFromEnvAllowsDisablingSweep(t *testing.T) {
	t.Setenv("ROOM_SWEEP_SCHEDULE", "")

	cfg := server.NewConfigFromEnv()
	assert.Empty(t, cfg.RoomSweepSchedule)
}
