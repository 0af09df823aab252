package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Parse()
		require.NoError(t, err)

		assert.Equal(t, "dev", cfg.Env)
		assert.Equal(t, ":3000", cfg.HTTPAddr)
		assert.Equal(t, "socket.io", cfg.ChannelPrefix)
		assert.Empty(t, cfg.AllowedOrigins)
		assert.Equal(t, 25*time.Second, cfg.PingInterval)
		assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.ConnectionURL)
		assert.Equal(t, 3, cfg.Redis.RetryAttempts)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("APP_ENV", "prod")
		t.Setenv("SOCKETIO_KEY", "chat")
		t.Setenv("CORS_ALLOW", "https://a.example,https://b.example")
		t.Setenv("REDIS_URL", "redis://cache:6379/2")
		t.Setenv("REDIS_RETRY_INTERVAL", "250ms")

		cfg, err := Parse()
		require.NoError(t, err)

		assert.Equal(t, "prod", cfg.Env)
		assert.Equal(t, "chat", cfg.ChannelPrefix)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
		assert.Equal(t, "redis://cache:6379/2", cfg.Redis.ConnectionURL)
		assert.Equal(t, 250*time.Millisecond, cfg.Redis.RetryInterval)
	})

	t.Run("invalid duration", func(t *testing.T) {
		t.Setenv("PING_TIMEOUT", "soon")

		_, err := Parse()
		assert.Error(t, err)
	})
}
