package collab

import (
	"time"

	"github.com/gorilla/websocket"
)

// Config holds configuration for a collaboration session.
type Config struct {
	// URL is the relay WebSocket endpoint (e.g. "ws://host:8080/ws").
	// Connecting without a URL is an error.
	URL string

	// Room is the room identifier embedded as a query parameter on the
	// connect URL, typically a dashboard id.
	// Default: "default".
	Room string

	// HeartbeatInterval is the time between heartbeat pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// ReconnectDelay is the fixed wait before redialing after an abnormal
	// close. There is no backoff growth and no retry ceiling.
	// Default: 3 seconds.
	ReconnectDelay time.Duration

	// WriteTimeout is the maximum time to wait when sending a message.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// InboxSize is the buffer between the network reader and the dispatch
	// loop.
	// Default: 256.
	InboxSize int

	// Dialer performs the WebSocket handshake.
	// Default: websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Room:              "default",
		HeartbeatInterval: 30 * time.Second,
		ReconnectDelay:    3 * time.Second,
		WriteTimeout:      10 * time.Second,
		InboxSize:         256,
		Dialer:            websocket.DefaultDialer,
	}
}

// withDefaults fills in the zero values of c from DefaultConfig.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}
	defaults := DefaultConfig()
	out := *c
	if out.Room == "" {
		out.Room = defaults.Room
	}
	if out.HeartbeatInterval == 0 {
		out.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if out.ReconnectDelay == 0 {
		out.ReconnectDelay = defaults.ReconnectDelay
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = defaults.WriteTimeout
	}
	if out.InboxSize == 0 {
		out.InboxSize = defaults.InboxSize
	}
	if out.Dialer == nil {
		out.Dialer = defaults.Dialer
	}
	return &out
}
