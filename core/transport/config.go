package transport

import (
	"log/slog"
	"time"
)

const (
	DefaultEndpoint             = "ws://localhost:8000/ws"
	DefaultMaxReconnectAttempts = 5
	DefaultBaseBackoffDelay     = time.Second
	DefaultHandshakeTimeout     = 10 * time.Second
	DefaultWriteTimeout         = 10 * time.Second
	DefaultPingInterval         = 30 * time.Second
	DefaultPongWait             = 60 * time.Second
	DefaultSendQueueSize        = 256
	DefaultReadLimit            = 16 << 20
)

type Config struct {
	Endpoint string

	MaxReconnectAttempts int
	BaseBackoffDelay     time.Duration

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// PingInterval of 0 disables keep-alive pings and the read deadline.
	PingInterval  time.Duration
	PongWait      time.Duration
	SendQueueSize int
	ReadLimit     int64

	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Endpoint:             DefaultEndpoint,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		BaseBackoffDelay:     DefaultBaseBackoffDelay,
		HandshakeTimeout:     DefaultHandshakeTimeout,
		WriteTimeout:         DefaultWriteTimeout,
		PingInterval:         DefaultPingInterval,
		PongWait:             DefaultPongWait,
		SendQueueSize:        DefaultSendQueueSize,
		ReadLimit:            DefaultReadLimit,
	}
}

type Option func(*Config)

func WithEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithReconnect sets the attempt cap and the linear backoff unit. Attempt n
// waits n*baseDelay. A cap of 0 disables reconnection.
func WithReconnect(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Config) {
		c.MaxReconnectAttempts = maxAttempts
		c.BaseBackoffDelay = baseDelay
	}
}

func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.HandshakeTimeout = timeout
	}
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.WriteTimeout = timeout
	}
}

func WithKeepAlive(pingInterval, pongWait time.Duration) Option {
	return func(c *Config) {
		c.PingInterval = pingInterval
		c.PongWait = pongWait
	}
}

func WithSendQueueSize(size int) Option {
	return func(c *Config) {
		c.SendQueueSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
