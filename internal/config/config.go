// Package config loads the chat example's settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ramory-l/sio/pubsub"
)

// Config holds all settings for the clustered chat server.
type Config struct {
	Env      string `env:"APP_ENV" envDefault:"dev"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":3000"`

	// ChannelPrefix is shared by every server of one cluster.
	ChannelPrefix string `env:"SOCKETIO_KEY" envDefault:"socket.io"`

	// AllowedOrigins empty accepts any websocket origin.
	AllowedOrigins []string `env:"CORS_ALLOW" envSeparator:","`

	PingInterval time.Duration `env:"PING_INTERVAL" envDefault:"25s"`
	PingTimeout  time.Duration `env:"PING_TIMEOUT" envDefault:"20s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Redis pubsub.Config
}

// Load reads an optional .env file, then parses the environment.
func Load() (Config, error) {
	// Missing .env is normal outside development.
	_ = godotenv.Load()

	return Parse()
}

// Parse parses the current environment without touching .env files.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
