package relay

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for the relay server.
type Config struct {
	// Addr is the address to listen on.
	// Default: ":8080".
	Addr string

	// DefaultRoom is the room used when a connection's URL carries no room
	// query parameter.
	// Default: "default".
	DefaultRoom string

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// MaxMessageSize is the maximum size of an incoming frame.
	// Default: 64KB.
	MaxMessageSize int64

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// SendBuffer is the per-connection outbound queue length. The relay
	// applies no flow control; frames beyond a full queue are dropped.
	// Default: 256.
	SendBuffer int

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 10 seconds.
	ShutdownTimeout time.Duration

	// CheckOrigin validates the upgrade request origin. The relay default
	// accepts any origin; peers are not authenticated.
	CheckOrigin func(r *http.Request) bool

	// Registry receives the relay's Prometheus metrics.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		DefaultRoom:     "default",
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		MaxMessageSize:  64 * 1024,
		WriteTimeout:    10 * time.Second,
		SendBuffer:      256,
		ShutdownTimeout: 10 * time.Second,
		CheckOrigin:     func(*http.Request) bool { return true },
		Registry:        prometheus.DefaultRegisterer,
	}
}

// withDefaults fills in the zero values of c from DefaultConfig.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	defaults := DefaultConfig()
	out := *c
	if out.Addr == "" {
		out.Addr = defaults.Addr
	}
	if out.DefaultRoom == "" {
		out.DefaultRoom = defaults.DefaultRoom
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = defaults.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = defaults.WriteBufferSize
	}
	if out.MaxMessageSize == 0 {
		out.MaxMessageSize = defaults.MaxMessageSize
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = defaults.WriteTimeout
	}
	if out.SendBuffer == 0 {
		out.SendBuffer = defaults.SendBuffer
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = defaults.CheckOrigin
	}
	if out.Registry == nil {
		out.Registry = defaults.Registry
	}
	return &out
}
